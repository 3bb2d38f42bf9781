package market

// Ticker 是 24h 滚动行情统计中引擎关心的字段。
type Ticker struct {
	Symbol        string  `json:"symbol"`
	LastPrice     float64 `json:"last_price"`
	ChangePercent float64 `json:"change_percent"`
	QuoteVolume   float64 `json:"quote_volume"`
}

// TickerIndex 按交易对索引行情，便于宽度统计时按宇宙顺序查找。
func TickerIndex(tickers []Ticker) map[string]Ticker {
	out := make(map[string]Ticker, len(tickers))
	for _, t := range tickers {
		if t.Symbol == "" {
			continue
		}
		out[t.Symbol] = t
	}
	return out
}
