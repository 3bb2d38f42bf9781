package livehttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"planc/internal/config"
	"planc/internal/engine"
	"planc/internal/gateway/exchange"
	"planc/internal/logger"
	"planc/internal/position"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	mock.Mock
	settings engine.Settings
}

func (f *fakeController) State() engine.State {
	return engine.State{Exchange: "binance", Connected: true, Settings: f.settings}
}

func (f *fakeController) Positions(ctx context.Context) ([]exchange.Position, error) {
	args := f.Called(ctx)
	out, _ := args.Get(0).([]exchange.Position)
	return out, args.Error(1)
}

func (f *fakeController) PnL() position.Summary {
	return position.Summary{LocalTotal: 1.5, Trades: 2}
}

func (f *fakeController) RecentTrades(limit int) ([]position.Trade, error) {
	args := f.Called(limit)
	out, _ := args.Get(0).([]position.Trade)
	return out, args.Error(1)
}

func (f *fakeController) Connect(ctx context.Context) error {
	return f.Called(ctx).Error(0)
}

func (f *fakeController) SetSymbol(ctx context.Context, raw string) error {
	err := f.Called(ctx, raw).Error(0)
	if err == nil {
		f.settings.Symbol = strings.ToUpper(raw)
	}
	return err
}

func (f *fakeController) UpdateSettings(p engine.SettingsPatch) (engine.Settings, error) {
	args := f.Called(p)
	if err := args.Error(0); err != nil {
		return f.settings, err
	}
	if p.Leverage != nil {
		f.settings.Leverage = *p.Leverage
	}
	return f.settings, nil
}

func (f *fakeController) SetAuto(enabled bool) {
	f.Called(enabled)
	f.settings.AutoEnabled = enabled
}

func (f *fakeController) ClosePosition(ctx context.Context, symbol, reason string) error {
	return f.Called(ctx, symbol, reason).Error(0)
}

func (f *fakeController) CloseAll(ctx context.Context, reason string) error {
	return f.Called(ctx, reason).Error(0)
}

func newTestServer(t *testing.T, ctl *fakeController, events EventSource) http.Handler {
	t.Helper()
	srv, err := NewServer(ServerConfig{Controller: ctl, Events: events})
	require.NoError(t, err)
	return srv.Handler()
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewServer_RequiresController(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestHealthAndState(t *testing.T) {
	h := newTestServer(t, &fakeController{settings: engine.Settings{Symbol: "BTCUSDT"}}, nil)

	rec := do(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(h, http.MethodGet, "/api/live/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st engine.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "BTCUSDT", st.Settings.Symbol)
	assert.True(t, st.Connected)
}

func TestPositions_NotConnectedMapsToConflict(t *testing.T) {
	ctl := &fakeController{}
	ctl.On("Positions", mock.Anything).Return(nil, exchange.ErrNotConnected)
	rec := do(newTestServer(t, ctl, nil), http.MethodGet, "/api/live/positions", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPositions_EmptyListIsArray(t *testing.T) {
	ctl := &fakeController{}
	ctl.On("Positions", mock.Anything).Return(nil, nil)
	rec := do(newTestServer(t, ctl, nil), http.MethodGet, "/api/live/positions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"positions":[]}`, rec.Body.String())
}

func TestPnL_ClampsLimit(t *testing.T) {
	ctl := &fakeController{}
	ctl.On("RecentTrades", 500).Return([]position.Trade{{Symbol: "BTCUSDT", PnL: 0.5}}, nil)
	rec := do(newTestServer(t, ctl, nil), http.MethodGet, "/api/live/pnl?limit=9999", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body pnlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Summary.Trades)
	require.Len(t, body.Trades, 1)
	ctl.AssertExpectations(t)
}

func TestSettings_InvalidPatchIsBadRequest(t *testing.T) {
	ctl := &fakeController{settings: engine.Settings{Leverage: 3}}
	ctl.On("UpdateSettings", mock.Anything).Return(fmt.Errorf("%w: leverage", config.ErrInvalidConfig)).Once()
	h := newTestServer(t, ctl, nil)

	rec := do(h, http.MethodPost, "/api/live/settings", `{"leverage":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ctl.On("UpdateSettings", mock.Anything).Return(nil).Once()
	rec = do(h, http.MethodPost, "/api/live/settings", `{"leverage":10}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, ctl.settings.Leverage)

	rec = do(h, http.MethodPost, "/api/live/settings", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSymbolAndAuto(t *testing.T) {
	ctl := &fakeController{}
	ctl.On("SetSymbol", mock.Anything, "ethusdt").Return(nil)
	ctl.On("SetAuto", true).Return()
	h := newTestServer(t, ctl, nil)

	rec := do(h, http.MethodPost, "/api/live/symbol", `{"symbol":"ethusdt"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ETHUSDT")

	rec = do(h, http.MethodPost, "/api/live/symbol", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/api/live/auto", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ctl.settings.AutoEnabled)

	rec = do(h, http.MethodPost, "/api/live/auto", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClose_MapsExchangeErrors(t *testing.T) {
	ctl := &fakeController{}
	ctl.On("ClosePosition", mock.Anything, "BTCUSDT", "manual").Return(nil)
	ctl.On("CloseAll", mock.Anything, "manual_all").
		Return(fmt.Errorf("close short ETHUSDT: %w", &exchange.APIError{Code: -2019, Message: "Margin is insufficient."}))
	h := newTestServer(t, ctl, nil)

	rec := do(h, http.MethodPost, "/api/live/close/BTCUSDT", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(h, http.MethodPost, "/api/live/close-all", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "ETHUSDT")
}

func TestConnect_FailureIsConflict(t *testing.T) {
	ctl := &fakeController{}
	ctl.On("Connect", mock.Anything).Return(fmt.Errorf("%w: bad key", exchange.ErrNotConnected))
	rec := do(newTestServer(t, ctl, nil), http.MethodPost, "/api/live/connect", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEvents_RecentAndDisabled(t *testing.T) {
	h := newTestServer(t, &fakeController{}, nil)
	rec := do(h, http.MethodGet, "/api/live/events", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	log := logger.NewEventLog(10)
	for i := 0; i < 3; i++ {
		log.Publish(logger.Event{Time: time.Unix(int64(i), 0), Level: "INFO", Message: fmt.Sprintf("line %d", i)})
	}
	h = newTestServer(t, &fakeController{}, log)
	rec = do(h, http.MethodGet, "/api/live/events?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Events []logger.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Events, 2)
	assert.Equal(t, "line 2", body.Events[1].Message)
}

func TestEvents_StreamEndsWithRequest(t *testing.T) {
	log := logger.NewEventLog(10)
	log.Publish(logger.Event{Level: "INFO", Message: "seed"})
	h := newTestServer(t, &fakeController{}, log)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/live/events?stream=1", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")
	assert.Contains(t, rec.Body.String(), "seed")
}
