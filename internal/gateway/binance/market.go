package binance

import (
	"context"
	"fmt"
	"strings"

	"planc/internal/gateway/exchange"
	"planc/internal/market"
	symbolpkg "planc/internal/pkg/symbol"

	"github.com/adshao/go-binance/v2/futures"
)

const maxKlineLimit = 1500

func (c *Client) ExchangeInfo(ctx context.Context) ([]exchange.SymbolInfo, error) {
	info, err := readWithRetry(ctx, c, "exchangeInfo", func() (*futures.ExchangeInfo, error) {
		return c.client.NewExchangeInfoService().Do(ctx)
	})
	if err != nil {
		return nil, err
	}
	out := make([]exchange.SymbolInfo, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		out = append(out, convertSymbol(s))
	}
	return out, nil
}

// Tickers 返回全市场 24h 行情统计。
func (c *Client) Tickers(ctx context.Context) ([]market.Ticker, error) {
	stats, err := readWithRetry(ctx, c, "ticker/24hr", func() ([]*futures.PriceChangeStats, error) {
		return c.client.NewListPriceChangeStatsService().Do(ctx)
	})
	if err != nil {
		return nil, err
	}
	out := make([]market.Ticker, 0, len(stats))
	for _, st := range stats {
		if st == nil {
			continue
		}
		out = append(out, convertTicker(st))
	}
	return out, nil
}

func (c *Client) Price(ctx context.Context, sym string) (float64, error) {
	clean := symbolpkg.Normalize(sym)
	if clean == "" {
		return 0, fmt.Errorf("invalid symbol: %q", sym)
	}
	prices, err := readWithRetry(ctx, c, "ticker/price", func() ([]*futures.SymbolPrice, error) {
		return c.client.NewListPricesService().Symbol(clean).Do(ctx)
	})
	if err != nil {
		return 0, err
	}
	for _, p := range prices {
		if p != nil && strings.EqualFold(p.Symbol, clean) {
			if v := parseFloat(p.Price); v > 0 {
				return v, nil
			}
		}
	}
	return 0, fmt.Errorf("%s: %w", clean, exchange.ErrNoPrice)
}

func (c *Client) Klines(ctx context.Context, sym, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxKlineLimit {
		limit = maxKlineLimit
	}
	clean := symbolpkg.Normalize(sym)
	if clean == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	kls, err := readWithRetry(ctx, c, "klines", func() ([]*futures.Kline, error) {
		return c.client.NewKlinesService().Symbol(clean).Interval(interval).Limit(limit).Do(ctx)
	})
	if err != nil {
		return nil, err
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
			Trades:    kl.TradeNum,
		})
	}
	return out, nil
}
