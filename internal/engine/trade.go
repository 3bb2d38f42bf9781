package engine

import (
	"context"
	"fmt"
	"time"

	"planc/internal/execution"
	"planc/internal/gateway/exchange"
	"planc/internal/gateway/notifier"
	"planc/internal/logger"
	"planc/internal/position"

	"go.uber.org/multierr"
)

// orderContext 与停止信号解耦：Stop 不会中断进行中的下单，超时由 orderTimeout 兜底。
func (e *Engine) orderContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), e.orderTimeout)
}

func (e *Engine) EnsureLong(ctx context.Context, symbol string) error {
	return e.ensureSide(ctx, symbol, exchange.SideBuy, "breadth_up")
}

func (e *Engine) EnsureShort(ctx context.Context, symbol string) error {
	return e.ensureSide(ctx, symbol, exchange.SideSell, "breadth_down")
}

// ensureSide 保证持有 side 方向的仓位：同向不动，反向先平再开，空仓直接开。
func (e *Engine) ensureSide(ctx context.Context, symbol string, side exchange.Side, reason string) error {
	if !e.Connected() {
		return exchange.ErrNotConnected
	}
	s := e.Settings()
	ctx, cancel := e.orderContext(ctx)
	defer cancel()

	pos := e.ledger.Current(ctx, symbol)
	wantLong := side == exchange.SideBuy
	if (wantLong && pos.IsLong()) || (!wantLong && pos.IsShort()) {
		logger.Infof("%s already %s (qty=%g), keeping", symbol, pos.Side(), pos.Amount)
		return nil
	}
	if !pos.IsFlat() {
		if err := e.closePosition(ctx, pos, "flip"); err != nil {
			return err
		}
	}
	if !wantLong && e.strategy.LongOnly() {
		logger.Infof("%s short entry skipped: long_only trade mode", symbol)
		return nil
	}
	return e.open(ctx, s, symbol, side, reason)
}

func (e *Engine) open(ctx context.Context, s Settings, symbol string, side exchange.Side, reason string) error {
	if err := e.guard.Ensure(ctx, symbol, s.MarginMode, s.Leverage); err != nil {
		return err
	}
	price, err := e.currentPrice(ctx, symbol)
	if err != nil {
		return fmt.Errorf("open %s %s: %w", side, symbol, err)
	}
	usd, err := e.orderNotional(ctx, s)
	if err != nil {
		return fmt.Errorf("open %s %s: %w", side, symbol, err)
	}
	raw := usd / price
	logger.Infof("OrderCheck %s %s usd=%.4f price=%.8f raw=%.8f lev=%d", symbol, side, usd, price, raw, s.Leverage)
	res, err := e.exec.PlaceMarketOrder(ctx, symbol, side, raw, price)
	if err != nil {
		return err
	}
	e.strategy.ResetTrailing(symbol)
	fill := price
	if res.AvgPrice > 0 {
		fill = res.AvgPrice
	}
	e.notify.Notify(notifier.OrderOpened(symbol, string(side), res.Quantity, fill, reason, e.now()))
	return nil
}

// orderNotional 返回开仓金额（USDT）：auto percent > 0 时按可用余额比例，否则使用固定金额。
func (e *Engine) orderNotional(ctx context.Context, s Settings) (float64, error) {
	usd := s.PositionSizeUSD
	if s.AutoPercent > 0 {
		bal, err := e.ex.AvailableBalance(ctx)
		if err != nil {
			return 0, fmt.Errorf("available balance: %w", err)
		}
		usd = bal * s.AutoPercent / 100
	}
	if usd <= 0 {
		return 0, fmt.Errorf("order size %.4f USDT: %w", usd, execution.ErrNotActionable)
	}
	return usd, nil
}

// currentPrice 优先使用价格循环的缓存（同一交易对且不超过 5 秒）。
func (e *Engine) currentPrice(ctx context.Context, symbol string) (float64, error) {
	e.priceMu.RLock()
	cached, at := e.lastPrice, e.priceAt
	e.priceMu.RUnlock()
	if cached > 0 && symbol == e.Settings().Symbol && e.now().Sub(at) <= 5*time.Second {
		return cached, nil
	}
	price, err := e.ex.Price(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if price <= 0 {
		return 0, exchange.ErrNoPrice
	}
	return price, nil
}

// ClosePosition 平掉 symbol 的全部持仓；空仓时直接返回。
func (e *Engine) ClosePosition(ctx context.Context, symbol, reason string) error {
	if !e.Connected() {
		return exchange.ErrNotConnected
	}
	ctx, cancel := e.orderContext(ctx)
	defer cancel()
	pos := e.ledger.Current(ctx, symbol)
	if pos.IsFlat() {
		logger.Debugf("close %s: no open position", symbol)
		e.strategy.ResetTrailing(symbol)
		return nil
	}
	return e.closePosition(ctx, pos, reason)
}

// CloseAll 平掉所有持仓，单个失败不影响其余交易对，错误合并返回。
func (e *Engine) CloseAll(ctx context.Context, reason string) error {
	if !e.Connected() {
		return exchange.ErrNotConnected
	}
	ctx, cancel := e.orderContext(ctx)
	defer cancel()
	positions, err := e.ledger.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("close all: %w", err)
	}
	var errs error
	for _, pos := range positions {
		errs = multierr.Append(errs, e.closePosition(ctx, pos, reason))
	}
	return errs
}

// closePosition 以行情价作为平仓价记账；行情获取失败时依次退回标记价、入场价。
func (e *Engine) closePosition(ctx context.Context, pos exchange.Position, reason string) error {
	exit, err := e.ex.Price(ctx, pos.Symbol)
	if err != nil || exit <= 0 {
		exit = pos.MarkPrice
		if exit <= 0 {
			exit = pos.EntryPrice
		}
		logger.Warnf("close %s: ticker price unavailable (%v), using %.8f", pos.Symbol, err, exit)
	}
	if _, err := e.exec.ClosePosition(ctx, pos.Symbol, pos.Amount); err != nil {
		return fmt.Errorf("close %s %s: %w", pos.Side(), pos.Symbol, err)
	}
	pnl := position.RealizedPnL(pos.Amount, pos.EntryPrice, exit)
	if err := e.ledger.RecordClose(pos.Symbol, pos.Size(), pos.EntryPrice, exit, pnl); err != nil {
		logger.Errorf("close %s: ledger write failed: %v", pos.Symbol, err)
	}
	e.strategy.ResetTrailing(pos.Symbol)
	logger.Infof("position closed %s %s qty=%g entry=%.8f exit=%.8f pnl=%.4f reason=%s",
		pos.Symbol, pos.Side(), pos.Size(), pos.EntryPrice, exit, pnl, reason)
	e.notify.Notify(notifier.PositionClosed(pos.Symbol, pos.Size(), pos.EntryPrice, exit, pnl, reason, e.now()))
	return nil
}
