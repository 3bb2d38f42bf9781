package lot

import (
	"context"
	"errors"
	"testing"
	"time"

	"planc/internal/gateway/exchange"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockInfoSource struct {
	mock.Mock
}

func (m *mockInfoSource) ExchangeInfo(ctx context.Context) ([]exchange.SymbolInfo, error) {
	args := m.Called(ctx)
	infos, _ := args.Get(0).([]exchange.SymbolInfo)
	return infos, args.Error(1)
}

func sampleInfos() []exchange.SymbolInfo {
	return []exchange.SymbolInfo{
		{Symbol: "BTCUSDT", QuoteAsset: "USDT", ContractType: "PERPETUAL", Status: "TRADING", QuantityPrecision: 3, StepSize: "0.001", MinQty: "0.001", MinNotional: "100"},
		{Symbol: "DOGEUSDT", QuoteAsset: "USDT", ContractType: "PERPETUAL", Status: "TRADING", QuantityPrecision: 0, StepSize: "1", MinQty: "1", MinNotional: "5"},
		{Symbol: "BTCUSDT_250926", QuoteAsset: "USDT", ContractType: "CURRENT_QUARTER", Status: "TRADING", StepSize: "0.001"},
	}
}

func TestRulesFromInfo(t *testing.T) {
	r := RulesFromInfo(sampleInfos()[0])
	assert.Equal(t, "0.001", r.StepSize.String())
	assert.Equal(t, int32(3), r.QuantityDecimals)
	assert.Equal(t, "100", r.MinNotional.String())

	r = RulesFromInfo(exchange.SymbolInfo{Symbol: "X", MarketStepSize: "0.01", MarketMinQty: "0.1", QuantityPrecision: 1})
	assert.Equal(t, "0.01", r.StepSize.String())
	assert.Equal(t, int32(1), r.QuantityDecimals)

	r = RulesFromInfo(exchange.SymbolInfo{Symbol: "Y", StepSize: "garbage"})
	assert.Equal(t, DefaultRules("Y"), r)
}

func TestCache_TTLAndTradable(t *testing.T) {
	src := &mockInfoSource{}
	src.On("ExchangeInfo", mock.Anything).Return(sampleInfos(), nil).Twice()

	now := time.Unix(1_700_000_000, 0)
	c := NewCache(src, 10*time.Minute)
	c.nowFn = func() time.Time { return now }

	r, err := c.Rules(context.Background(), "btcusdt")
	require.NoError(t, err)
	assert.Equal(t, int32(3), r.QuantityDecimals)

	now = now.Add(5 * time.Minute)
	_, err = c.Rules(context.Background(), "DOGEUSDT")
	require.NoError(t, err)
	src.AssertNumberOfCalls(t, "ExchangeInfo", 1)

	now = now.Add(6 * time.Minute)
	set, err := c.Tradable(context.Background())
	require.NoError(t, err)
	assert.True(t, set["BTCUSDT"])
	assert.True(t, set["DOGEUSDT"])
	assert.False(t, set["BTCUSDT_250926"])
	src.AssertNumberOfCalls(t, "ExchangeInfo", 2)
}

func TestCache_FallbacksOnError(t *testing.T) {
	src := &mockInfoSource{}
	src.On("ExchangeInfo", mock.Anything).Return(nil, errors.New("timeout")).Once()

	c := NewCache(src, time.Minute)
	r, err := c.Rules(context.Background(), "ETHUSDT")
	require.Error(t, err)
	assert.Equal(t, DefaultRules("ETHUSDT"), r)

	src.On("ExchangeInfo", mock.Anything).Return(sampleInfos(), nil).Once()
	_, err = c.Rules(context.Background(), "NOPEUSDT")
	assert.ErrorContains(t, err, "not listed")
}
