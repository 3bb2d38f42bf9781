// Package position 读取交易所持仓，并维护本地已实现盈亏账本。
package position

import (
	"context"
	"strings"
	"time"

	"planc/internal/gateway/exchange"
	"planc/internal/logger"
)

type PositionSource interface {
	Positions(ctx context.Context, symbol string) ([]exchange.Position, error)
}

// Summary 是对外展示的盈亏汇总。
type Summary struct {
	LocalTotal       float64 `json:"local_total"`
	LocalToday       float64 `json:"local_today"`
	ExchangeRealized float64 `json:"exchange_realized"`
	ExchangeToday    float64 `json:"exchange_today"`
	Unrealized       float64 `json:"unrealized"`
	Trades           int     `json:"trades"`
}

type Ledger struct {
	src    PositionSource
	trades *TradeLog
	totals *TotalsLog
	income *IncomeReconciler
	nowFn  func() time.Time
}

func NewLedger(src PositionSource, trades *TradeLog, totals *TotalsLog, income *IncomeReconciler) *Ledger {
	return &Ledger{src: src, trades: trades, totals: totals, income: income, nowFn: time.Now}
}

// RealizedPnL 按带符号数量计算平仓盈亏：多头 (exit-entry)*qty，空头 (entry-exit)*|qty|。
func RealizedPnL(signedQty, entry, exit float64) float64 {
	return (exit - entry) * signedQty
}

// GetPosition 返回带符号持仓数量与开仓均价；查询失败按空仓处理。
func (l *Ledger) GetPosition(ctx context.Context, symbol string) (float64, float64) {
	pos := l.Current(ctx, symbol)
	return pos.Amount, pos.EntryPrice
}

// Current 与 GetPosition 语义一致，但返回完整持仓；查询失败时返回空仓。
func (l *Ledger) Current(ctx context.Context, symbol string) exchange.Position {
	pos, err := l.Position(ctx, symbol)
	if err != nil {
		logger.Warnf("position fetch failed %s, treating as flat: %v", symbol, err)
		return exchange.Position{Symbol: pos.Symbol}
	}
	return pos
}

// Position 返回单个交易对的完整持仓信息；无持仓时返回零值。
func (l *Ledger) Position(ctx context.Context, symbol string) (exchange.Position, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	positions, err := l.src.Positions(ctx, symbol)
	if err != nil {
		return exchange.Position{Symbol: symbol}, err
	}
	for _, p := range positions {
		if strings.EqualFold(p.Symbol, symbol) && !p.IsFlat() {
			return p, nil
		}
	}
	return exchange.Position{Symbol: symbol}, nil
}

// OpenPositions 返回全部非零持仓。
func (l *Ledger) OpenPositions(ctx context.Context) ([]exchange.Position, error) {
	positions, err := l.src.Positions(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]exchange.Position, 0, len(positions))
	for _, p := range positions {
		if !p.IsFlat() {
			out = append(out, p)
		}
	}
	return out, nil
}

// RecordClose 追加一条平仓记录，并写入累计盈亏快照。
func (l *Ledger) RecordClose(symbol string, qty, entry, exit, pnl float64) error {
	now := l.nowFn()
	trade := Trade{Time: now, Symbol: strings.ToUpper(symbol), Quantity: qty, EntryPrice: entry, ExitPrice: exit, PnL: pnl}
	if err := l.trades.Append(trade); err != nil {
		logger.Errorf("trade log write failed: %v", err)
		return err
	}
	logger.Infof("Trade recorded %s qty=%g entry=%g exit=%g pnl=%.4f", trade.Symbol, qty, entry, exit, pnl)
	return l.writeTotals(now)
}

func (l *Ledger) writeTotals(now time.Time) error {
	if l.totals == nil {
		return nil
	}
	trades, err := l.trades.ReadAll(0)
	if err != nil {
		logger.Warnf("trade log read failed: %v", err)
	}
	local := 0.0
	for _, t := range trades {
		local += t.PnL
	}
	snap := Totals{Time: now, LocalTotal: local}
	if l.income != nil {
		snap.ExchangeRealized = l.income.Realized()
	}
	if err := l.totals.Append(snap); err != nil {
		logger.Errorf("totals snapshot write failed: %v", err)
		return err
	}
	return nil
}

// Reconcile 节流刷新交易所流水；刷新后追加一条累计快照。
func (l *Ledger) Reconcile(ctx context.Context) error {
	if l.income == nil {
		return nil
	}
	_, refreshed, err := l.income.Refresh(ctx)
	if err != nil {
		return err
	}
	if refreshed {
		return l.writeTotals(l.nowFn())
	}
	return nil
}

// Summary 汇总本地账本与交易所流水；unrealized 由调用方根据当前持仓传入。
func (l *Ledger) Summary(unrealized float64) Summary {
	s := Summary{Unrealized: unrealized}
	trades, err := l.trades.ReadAll(0)
	if err != nil {
		logger.Warnf("trade log read failed: %v", err)
	}
	dayStart := startOfDay(l.nowFn())
	for _, t := range trades {
		s.LocalTotal += t.PnL
		if !t.Time.Before(dayStart) {
			s.LocalToday += t.PnL
		}
	}
	s.Trades = len(trades)
	if l.income != nil {
		s.ExchangeRealized = l.income.Realized()
		s.ExchangeToday = l.income.Today()
	}
	return s
}

// RecentTrades 返回最近 limit 条本地平仓记录。
func (l *Ledger) RecentTrades(limit int) ([]Trade, error) {
	return l.trades.ReadAll(limit)
}
