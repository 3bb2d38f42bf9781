package binance

import (
	"context"
	"strings"
	"time"

	"planc/internal/gateway/exchange"
	symbolpkg "planc/internal/pkg/symbol"

	"github.com/adshao/go-binance/v2/futures"
)

const incomePageLimit = 1000

func (c *Client) Positions(ctx context.Context, sym string) ([]exchange.Position, error) {
	clean := ""
	if strings.TrimSpace(sym) != "" {
		clean = symbolpkg.Normalize(sym)
	}
	risks, err := readWithRetry(ctx, c, "positionRisk", func() ([]*futures.PositionRisk, error) {
		svc := c.client.NewGetPositionRiskService()
		if clean != "" {
			svc = svc.Symbol(clean)
		}
		return svc.Do(ctx)
	})
	if err != nil {
		return nil, err
	}
	out := make([]exchange.Position, 0, len(risks))
	for _, r := range risks {
		if r == nil {
			continue
		}
		pos := convertPosition(r)
		if clean == "" && pos.IsFlat() {
			continue
		}
		out = append(out, pos)
	}
	return out, nil
}

// AvailableBalance 返回 USDT 可用余额。
func (c *Client) AvailableBalance(ctx context.Context) (float64, error) {
	balances, err := readWithRetry(ctx, c, "balance", func() ([]*futures.Balance, error) {
		return c.client.NewGetBalanceService().Do(ctx)
	})
	if err != nil {
		return 0, err
	}
	for _, b := range balances {
		if b != nil && strings.EqualFold(b.Asset, symbolpkg.QuoteUSDT) {
			return parseFloat(b.AvailableBalance), nil
		}
	}
	return 0, nil
}

// IncomeHistory 按时间窗口分页拉取资金流水。
func (c *Client) IncomeHistory(ctx context.Context, start, end time.Time) ([]exchange.Income, error) {
	var out []exchange.Income
	cursor := start.UnixMilli()
	endMs := end.UnixMilli()
	for cursor <= endMs {
		from := cursor
		page, err := readWithRetry(ctx, c, "income", func() ([]*futures.IncomeHistory, error) {
			return c.client.NewGetIncomeHistoryService().
				StartTime(from).
				EndTime(endMs).
				Limit(incomePageLimit).
				Do(ctx)
		})
		if err != nil {
			return out, err
		}
		last := cursor
		for _, h := range page {
			if h == nil {
				continue
			}
			out = append(out, convertIncome(h))
			if h.Time > last {
				last = h.Time
			}
		}
		if len(page) < incomePageLimit || last <= cursor {
			break
		}
		cursor = last + 1
	}
	return out, nil
}
