package execution

import (
	"context"
	"errors"
	"testing"

	"planc/internal/gateway/exchange"
	"planc/internal/lot"
	"planc/internal/metrics"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) PlaceMarketOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*exchange.OrderResult)
	return res, args.Error(1)
}

func (m *mockGateway) SetMarginType(ctx context.Context, symbol, marginType string) error {
	return m.Called(ctx, symbol, marginType).Error(0)
}

func (m *mockGateway) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	return m.Called(ctx, symbol, leverage).Error(0)
}

type staticRules struct {
	rules lot.Rules
	err   error
}

func (s staticRules) Rules(context.Context, string) (lot.Rules, error) { return s.rules, s.err }

func xrpRules() lot.Rules {
	return lot.Rules{
		Symbol:           "XRPUSDT",
		StepSize:         decimal.RequireFromString("0.01"),
		MinQty:           decimal.RequireFromString("0.1"),
		MinNotional:      decimal.RequireFromString("5"),
		QuantityDecimals: 2,
	}
}

func qtyIs(q string) any {
	return mock.MatchedBy(func(req exchange.OrderRequest) bool { return req.Quantity == q })
}

var precisionErr = &exchange.APIError{Code: exchange.CodeQuantityPrecision, Message: "Precision is over the maximum defined for this asset."}

func newTestExecutor(gw OrderGateway, rules lot.Rules) *Executor {
	e := NewExecutor(gw, staticRules{rules: rules}, metrics.New())
	e.newID = func() string { return "pc-test" }
	return e
}

func TestExecutor_FirstStrategySucceeds(t *testing.T) {
	gw := &mockGateway{}
	gw.On("PlaceMarketOrder", mock.Anything, mock.MatchedBy(func(req exchange.OrderRequest) bool {
		return req.Symbol == "XRPUSDT" && req.Side == exchange.SideBuy && req.Quantity == "37.45" && req.ClientOrderID == "pc-test" && !req.ReduceOnly
	})).Return(&exchange.OrderResult{OrderID: 1, Status: "FILLED"}, nil).Once()

	res, err := newTestExecutor(gw, xrpRules()).PlaceMarketOrder(context.Background(), "xrpusdt", exchange.SideBuy, 37.456, 0.5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.OrderID)
	gw.AssertExpectations(t)
}

func TestExecutor_PrecisionLadder(t *testing.T) {
	gw := &mockGateway{}
	gw.On("PlaceMarketOrder", mock.Anything, qtyIs("37.45")).Return(nil, precisionErr).Once()
	gw.On("PlaceMarketOrder", mock.Anything, qtyIs("37.4")).Return(nil, precisionErr).Once()
	gw.On("PlaceMarketOrder", mock.Anything, qtyIs("37")).Return(&exchange.OrderResult{OrderID: 3}, nil).Once()

	res, err := newTestExecutor(gw, xrpRules()).PlaceMarketOrder(context.Background(), "XRPUSDT", exchange.SideSell, 37.456, 0.5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.OrderID)
	gw.AssertExpectations(t)
}

func TestExecutor_ExhaustedLadderReturnsLastError(t *testing.T) {
	gw := &mockGateway{}
	gw.On("PlaceMarketOrder", mock.Anything, mock.Anything).Return(nil, precisionErr).Times(3)

	_, err := newTestExecutor(gw, xrpRules()).PlaceMarketOrder(context.Background(), "XRPUSDT", exchange.SideBuy, 37.456, 0.5)
	require.Error(t, err)
	assert.True(t, exchange.IsPrecisionError(err))
	assert.Contains(t, err.Error(), "qty=37 ")
	gw.AssertNumberOfCalls(t, "PlaceMarketOrder", 3)
}

func TestExecutor_OtherErrorAbortsImmediately(t *testing.T) {
	gw := &mockGateway{}
	insufficient := &exchange.APIError{Code: -2019, Message: "Margin is insufficient."}
	gw.On("PlaceMarketOrder", mock.Anything, mock.Anything).Return(nil, insufficient).Once()

	_, err := newTestExecutor(gw, xrpRules()).PlaceMarketOrder(context.Background(), "XRPUSDT", exchange.SideBuy, 37.456, 0.5)
	require.Error(t, err)
	assert.ErrorIs(t, err, insufficient)
	gw.AssertNumberOfCalls(t, "PlaceMarketOrder", 1)
}

func TestExecutor_ZeroQuantityIsSkipped(t *testing.T) {
	gw := &mockGateway{}
	_, err := newTestExecutor(gw, xrpRules()).PlaceMarketOrder(context.Background(), "XRPUSDT", exchange.SideBuy, 0, 0.5)
	assert.ErrorIs(t, err, ErrNotActionable)
	gw.AssertNotCalled(t, "PlaceMarketOrder", mock.Anything, mock.Anything)
}

func TestExecutor_ClosePositionIsReduceOnlyOpposite(t *testing.T) {
	gw := &mockGateway{}
	gw.On("PlaceMarketOrder", mock.Anything, mock.MatchedBy(func(req exchange.OrderRequest) bool {
		return req.Side == exchange.SideBuy && req.ReduceOnly && req.Quantity == "12.30"
	})).Return(&exchange.OrderResult{OrderID: 9}, nil).Once()

	_, err := newTestExecutor(gw, xrpRules()).ClosePosition(context.Background(), "XRPUSDT", -12.3)
	require.NoError(t, err)
	gw.AssertExpectations(t)

	_, err = newTestExecutor(gw, xrpRules()).ClosePosition(context.Background(), "XRPUSDT", 0)
	assert.ErrorIs(t, err, ErrNotActionable)
}

func TestExecutor_RulesErrorFallsBackToDefaults(t *testing.T) {
	gw := &mockGateway{}
	gw.On("PlaceMarketOrder", mock.Anything, qtyIs("0.123456")).Return(&exchange.OrderResult{}, nil).Once()
	e := NewExecutor(gw, staticRules{rules: lot.DefaultRules("NEWUSDT"), err: errors.New("exchangeInfo timeout")}, nil)
	_, err := e.PlaceMarketOrder(context.Background(), "NEWUSDT", exchange.SideBuy, 0.1234567, 0)
	require.NoError(t, err)
	gw.AssertExpectations(t)
}

func TestMarginGuard_IdempotentMarginAndSoftLeverage(t *testing.T) {
	gw := &mockGateway{}
	gw.On("SetMarginType", mock.Anything, "BTCUSDT", "ISOLATED").
		Return(&exchange.APIError{Code: exchange.CodeNoNeedToChangeMargin, Message: "No need to change margin type."}).Once()
	gw.On("SetLeverage", mock.Anything, "BTCUSDT", 5).Return(errors.New("leverage not valid")).Once()

	err := NewMarginGuard(gw).Ensure(context.Background(), "BTCUSDT", "ISOLATED", 5)
	assert.NoError(t, err)
	gw.AssertExpectations(t)
}

func TestMarginGuard_TextMatchIsIdempotent(t *testing.T) {
	gw := &mockGateway{}
	gw.On("SetMarginType", mock.Anything, "ETHUSDT", "CROSSED").Return(errors.New("margin type is same")).Once()
	gw.On("SetLeverage", mock.Anything, "ETHUSDT", 3).Return(nil).Once()
	assert.NoError(t, NewMarginGuard(gw).Ensure(context.Background(), "ETHUSDT", "CROSSED", 3))
}

func TestMarginGuard_OtherMarginErrorPropagates(t *testing.T) {
	gw := &mockGateway{}
	blocked := &exchange.APIError{Code: -4048, Message: "Margin type cannot be changed if there exists position."}
	gw.On("SetMarginType", mock.Anything, "BTCUSDT", "ISOLATED").Return(blocked).Once()

	err := NewMarginGuard(gw).Ensure(context.Background(), "BTCUSDT", "ISOLATED", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, blocked)
	gw.AssertNotCalled(t, "SetLeverage", mock.Anything, mock.Anything, mock.Anything)
}
