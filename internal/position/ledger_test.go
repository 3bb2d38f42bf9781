package position

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"planc/internal/gateway/exchange"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockExchange struct {
	mock.Mock
}

func (m *mockExchange) Positions(ctx context.Context, symbol string) ([]exchange.Position, error) {
	args := m.Called(ctx, symbol)
	out, _ := args.Get(0).([]exchange.Position)
	return out, args.Error(1)
}

func (m *mockExchange) IncomeHistory(ctx context.Context, start, end time.Time) ([]exchange.Income, error) {
	args := m.Called(ctx, start, end)
	out, _ := args.Get(0).([]exchange.Income)
	return out, args.Error(1)
}

func newTestLedger(t *testing.T, src *mockExchange, income *IncomeReconciler) (*Ledger, string, string) {
	t.Helper()
	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades_history.csv")
	totalsPath := filepath.Join(dir, "totals_history.csv")
	trades, err := NewTradeLog(tradesPath)
	require.NoError(t, err)
	totals, err := NewTotalsLog(totalsPath)
	require.NoError(t, err)
	return NewLedger(src, trades, totals, income), tradesPath, totalsPath
}

func TestRealizedPnL(t *testing.T) {
	assert.InDelta(t, 2.0, RealizedPnL(1, 100, 102), 1e-9)
	assert.InDelta(t, 4.0, RealizedPnL(-2, 100, 98), 1e-9)
	assert.InDelta(t, -1.0, RealizedPnL(-0.5, 100, 102), 1e-9)
}

func TestGetPosition_FlatOnError(t *testing.T) {
	src := &mockExchange{}
	src.On("Positions", mock.Anything, "BTCUSDT").Return(nil, errors.New("timeout")).Once()
	src.On("Positions", mock.Anything, "ETHUSDT").Return([]exchange.Position{{Symbol: "ETHUSDT", Amount: -0.5, EntryPrice: 3000}}, nil).Once()

	l, _, _ := newTestLedger(t, src, nil)
	amt, entry := l.GetPosition(context.Background(), "btcusdt")
	assert.Zero(t, amt)
	assert.Zero(t, entry)

	amt, entry = l.GetPosition(context.Background(), "ETHUSDT")
	assert.Equal(t, -0.5, amt)
	assert.Equal(t, 3000.0, entry)
}

func TestCurrent_FlatOnErrorKeepsSymbol(t *testing.T) {
	src := &mockExchange{}
	src.On("Positions", mock.Anything, "BTCUSDT").Return(nil, errors.New("timeout"))

	l, _, _ := newTestLedger(t, src, nil)
	pos := l.Current(context.Background(), " btcusdt ")
	assert.True(t, pos.IsFlat())
	assert.Equal(t, "BTCUSDT", pos.Symbol)

	_, err := l.Position(context.Background(), "BTCUSDT")
	assert.Error(t, err)
}

func TestRecordClose_AppendsLedgerAndTotals(t *testing.T) {
	l, tradesPath, totalsPath := newTestLedger(t, &mockExchange{}, nil)
	l.nowFn = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.Local) }

	require.NoError(t, l.RecordClose("btcusdt", 0.01, 60000, 61000, 10))
	require.NoError(t, l.RecordClose("ETHUSDT", 0.5, 3000, 3010, -5))

	raw, err := os.ReadFile(tradesPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2025-03-01 12:00:00,BTCUSDT,0.01,60000,61000,10", lines[0])

	raw, err = os.ReadFile(totalsPath)
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, totalsHeader, lines[0])
	assert.Equal(t, "2025-03-01 12:00:00,5.00,0.00,5.00", lines[2])
}

func TestTradeLog_SkipsPartialLines(t *testing.T) {
	l, tradesPath, _ := newTestLedger(t, &mockExchange{}, nil)
	require.NoError(t, os.WriteFile(tradesPath, []byte(
		"2025-03-01 10:00:00,BTCUSDT,0.01,60000,60500,5\n"+
			"garbage line\n"+
			"2025-03-01 11:00:00,ETHUSDT,0.5,3000,2990,-5\n"+
			"2025-03-01 12:00:00,SOLUSDT,1,150,15",
	), 0o644))

	trades, err := l.RecentTrades(0)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "ETHUSDT", trades[1].Symbol)

	last, err := l.RecentTrades(1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, -5.0, last[0].PnL)
}

func TestIncomeReconciler_Throttled(t *testing.T) {
	src := &mockExchange{}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	src.On("IncomeHistory", mock.Anything, now.Add(-7*24*time.Hour), now).Return([]exchange.Income{
		{TranID: 1, IncomeType: exchange.IncomeRealizedPnL, Income: 10, Time: now.Add(-48 * time.Hour)},
		{TranID: 2, IncomeType: exchange.IncomeCommission, Income: -0.5, Time: now.Add(-time.Hour)},
		{TranID: 3, IncomeType: exchange.IncomeFundingFee, Income: -0.25, Time: now.Add(-2 * time.Hour)},
		{TranID: 4, IncomeType: "TRANSFER", Income: 1000, Time: now.Add(-time.Hour)},
	}, nil).Once()

	r := NewIncomeReconciler(src, nil, 7*24*time.Hour, time.Minute)
	r.nowFn = func() time.Time { return now }

	total, refreshed, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.InDelta(t, 9.25, total, 1e-9)
	assert.InDelta(t, -0.75, r.Today(), 1e-9)

	now = now.Add(30 * time.Second)
	total, refreshed, err = r.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.InDelta(t, 9.25, total, 1e-9)
	src.AssertNumberOfCalls(t, "IncomeHistory", 1)
}

func TestLedger_SummaryAndReconcile(t *testing.T) {
	src := &mockExchange{}
	src.On("IncomeHistory", mock.Anything, mock.Anything, mock.Anything).Return([]exchange.Income{
		{TranID: 1, IncomeType: exchange.IncomeRealizedPnL, Income: 3, Time: time.Now()},
	}, nil).Once()
	income := NewIncomeReconciler(src, nil, 0, 0)
	l, _, totalsPath := newTestLedger(t, src, income)

	require.NoError(t, l.RecordClose("BTCUSDT", 0.01, 60000, 60200, 2))
	require.NoError(t, l.Reconcile(context.Background()))

	s := l.Summary(1.5)
	assert.InDelta(t, 2.0, s.LocalTotal, 1e-9)
	assert.InDelta(t, 2.0, s.LocalToday, 1e-9)
	assert.InDelta(t, 3.0, s.ExchangeRealized, 1e-9)
	assert.Equal(t, 1, s.Trades)
	assert.Equal(t, 1.5, s.Unrealized)

	raw, err := os.ReadFile(totalsPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), ",2.00,3.00,5.00")
}
