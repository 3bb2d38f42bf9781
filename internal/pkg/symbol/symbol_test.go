package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"btcusdt":        "BTCUSDT",
		"ETH/USDT":       "ETHUSDT",
		"SOL/USDT:USDT":  "SOLUSDT",
		"doge":           "DOGEUSDT",
		" 1000pepeusdt ": "1000PEPEUSDT",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), in)
	}
	assert.Equal(t, "", Normalize("  "))
}

func TestBaseAndPerp(t *testing.T) {
	assert.Equal(t, "BTC", Base("BTCUSDT"))
	assert.Equal(t, "XRP", Base("xrp"))
	assert.Equal(t, "BNBUSDT", Perp("bnb"))
}

func TestNormalizeList_Dedupes(t *testing.T) {
	got := NormalizeList([]string{"BTC", "btcusdt", "", "ETH/USDT"})
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, got)
}
