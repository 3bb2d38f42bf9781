package engine

import (
	"context"
	"errors"
	"time"

	"planc/internal/breadth"
	"planc/internal/gateway/exchange"
	"planc/internal/logger"
	"planc/internal/market"
	"planc/internal/scheduler"
)

const (
	priceErrorBackoff  = 5 * time.Second
	marketErrorBackoff = 10 * time.Second
)

func (e *Engine) priceLoop() *scheduler.Loop {
	l := scheduler.NewLoop("price", func() time.Duration {
		sec := e.Settings().PriceRefreshSeconds
		if sec <= 0 {
			sec = 1
		}
		return time.Duration(sec) * time.Second
	}, priceErrorBackoff)
	l.OnError = func(name string, _ error) { e.metrics.ObserveLoopError(name) }
	return l
}

func (e *Engine) marketLoop() *scheduler.Loop {
	l := scheduler.NewLoop("market", func() time.Duration {
		sec := e.Settings().IntervalSeconds
		if sec < 5 {
			sec = 5
		}
		return time.Duration(sec) * time.Second
	}, marketErrorBackoff)
	l.OnError = func(name string, _ error) { e.metrics.ObserveLoopError(name) }
	return l
}

// priceCycle 刷新跟踪交易对价格与全部持仓，检查目标盈利并节流对账。
func (e *Engine) priceCycle(ctx context.Context) error {
	s := e.Settings()
	price, err := e.ex.Price(ctx, s.Symbol)
	if err != nil {
		return err
	}
	positions, err := e.ledger.OpenPositions(ctx)
	if err != nil {
		return err
	}
	e.priceMu.Lock()
	e.lastPrice = price
	e.positions = positions
	e.priceAt = e.now()
	e.priceMu.Unlock()

	if s.AutoEnabled && s.TargetPnLUSD > 0 {
		unrealized := 0.0
		for _, p := range positions {
			if p.Symbol == s.Symbol {
				unrealized += p.UnrealizedPnL
			}
		}
		if unrealized >= s.TargetPnLUSD {
			logger.Infof("target PnL %.2f reached (%.4f), closing %s", s.TargetPnLUSD, unrealized, s.Symbol)
			if err := e.ClosePosition(ctx, s.Symbol, "target_pnl"); err != nil {
				return err
			}
		}
	}
	if err := e.ledger.Reconcile(ctx); err != nil {
		logger.Warnf("income reconcile failed: %v", err)
	}
	return nil
}

// marketCycle 采样市场宽度，自动模式下交给编排器决策，再由 PLANC 监督持仓。
func (e *Engine) marketCycle(ctx context.Context) error {
	snap, err := e.monitor.Cycle(ctx)
	if errors.Is(err, breadth.ErrStale) {
		logger.Debugf("market cycle discarded: tracked symbol changed mid-cycle")
		return nil
	}
	if err != nil {
		return err
	}
	s := e.Settings()
	if !s.AutoEnabled || !e.Connected() {
		return nil
	}
	act, err := e.orch.Decide(ctx, snap, s.NeutralClosePct)
	if err != nil {
		return err
	}
	return e.supervise(ctx, s, snap, act)
}

// supervise 用 PLANC 评估快照对应的交易对：持仓时检查出场，空仓且编排器未动作时
// 只接受与宽度锁存方向一致的入场信号。持仓查询失败按空仓处理。
func (e *Engine) supervise(ctx context.Context, s Settings, snap breadth.Snapshot, act Action) error {
	symbol := snap.Symbol
	if symbol == "" {
		symbol = s.Symbol
	}
	candles, err := e.ex.Klines(ctx, symbol, s.KlineInterval, s.KlineLimit)
	if err != nil {
		return err
	}
	pos := e.ledger.Current(ctx, symbol)
	series := market.Candles(candles)
	if !pos.IsFlat() {
		sig := e.strategy.ShouldClosePosition(symbol, pos, series)
		if sig.Close {
			return e.ClosePosition(ctx, symbol, string(sig.Reason))
		}
		return nil
	}
	e.strategy.ResetTrailing(symbol)
	if act != ActionNone {
		return nil
	}
	switch {
	case snap.Up() && e.strategy.ShouldOpenLong(symbol, series):
		if e.orch.Claim() {
			return e.ensureSide(ctx, symbol, exchange.SideBuy, "planc_entry")
		}
	case snap.Down() && e.strategy.ShouldOpenShort(symbol, series):
		if e.orch.Claim() {
			return e.ensureSide(ctx, symbol, exchange.SideSell, "planc_entry")
		}
	}
	return nil
}
