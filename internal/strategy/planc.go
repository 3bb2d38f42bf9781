// Package strategy 实现 PLANC：SuperTrend + ADX 入场，紧急止损/保本/分级跟踪/趋势反转出场。
package strategy

import (
	"sync/atomic"

	"planc/internal/config"
	"planc/internal/gateway/exchange"
	"planc/internal/logger"
	"planc/internal/market"
	"planc/internal/metrics"
)

const Name = "PLANC"

// ExitReason 标识触发平仓的规则。
type ExitReason string

const (
	ExitNone          ExitReason = ""
	ExitEmergencyStop ExitReason = "emergency_stop"
	ExitBreakeven     ExitReason = "breakeven"
	ExitTrailingHigh  ExitReason = "trailing_high"
	ExitTrailingStd   ExitReason = "trailing_std"
	ExitTrendReversal ExitReason = "trend_reversal"
)

type ExitSignal struct {
	Close  bool
	Reason ExitReason
	Price  float64
}

type PLANC struct {
	cfg      config.StrategyConfig
	trailing *TrailingTable
	metrics  *metrics.Metrics
	longOnly atomic.Bool
}

func NewPLANC(cfg config.StrategyConfig, m *metrics.Metrics) *PLANC {
	return &PLANC{cfg: cfg, trailing: NewTrailingTable(), metrics: m}
}

func (p *PLANC) Name() string { return Name }

// SetLongOnly 切换只做多模式，开启后拒绝所有开空信号。
func (p *PLANC) SetLongOnly(v bool) { p.longOnly.Store(v) }

func (p *PLANC) LongOnly() bool { return p.longOnly.Load() }

func (p *PLANC) Trailing() *TrailingTable { return p.trailing }

// ResetTrailing 清除交易对的跟踪状态。
func (p *PLANC) ResetTrailing(symbol string) { p.trailing.Reset(symbol) }

func (p *PLANC) ShouldOpenLong(symbol string, candles market.Candles) bool {
	return p.shouldOpen(symbol, candles, TrendUp)
}

func (p *PLANC) ShouldOpenShort(symbol string, candles market.Candles) bool {
	if p.LongOnly() {
		return false
	}
	return p.shouldOpen(symbol, candles, TrendDown)
}

func (p *PLANC) shouldOpen(symbol string, candles market.Candles, want Trend) bool {
	if len(candles) < p.cfg.MinCandles {
		return false
	}
	st := SuperTrend(candles, p.cfg.ATRPeriod, p.cfg.ATRMultiplier)
	adx := ADX(candles, p.cfg.ADXPeriod)
	logger.Debugf("PLANC %s entry check bar=%s want=%s trend=%s prev=%s adx=%.1f threshold=%.1f",
		symbol, candles[len(candles)-1].TimeString(), want, st.Trend, st.PrevTrend, adx, p.cfg.ADXThreshold)
	if st.Trend != want {
		return false
	}
	if adx < p.cfg.ADXThreshold {
		logger.Infof("PLANC %s: %s trend present but ADX weak (%.1f), skipped", symbol, want, adx)
		return false
	}
	p.trailing.Reset(symbol)
	logger.Infof("PLANC %s: strong %s entry (trend+ADX %.1f) price=%.8f", symbol, want, adx, candles.LastClose())
	return true
}

// ShouldClosePosition 按优先级评估出场规则，命中即返回：
// 紧急止损 > 保本锁定 > 分级跟踪止损 > 趋势反转。
func (p *PLANC) ShouldClosePosition(symbol string, pos exchange.Position, candles market.Candles) ExitSignal {
	if pos.IsFlat() {
		p.trailing.Reset(symbol)
		return ExitSignal{}
	}
	price := candles.LastClose()
	if price <= 0 || pos.EntryPrice <= 0 {
		return ExitSignal{}
	}
	long := pos.IsLong()
	entry := pos.EntryPrice
	sig := p.evaluateExit(symbol, long, entry, price, candles)
	if sig.Close {
		sig.Price = price
		p.metrics.ObserveExitSignal(string(sig.Reason))
		logger.Infof("PLANC %s: exit %s side=%s entry=%.8f price=%.8f", symbol, sig.Reason, pos.Side(), entry, price)
	}
	return sig
}

func (p *PLANC) evaluateExit(symbol string, long bool, entry, price float64, candles market.Candles) ExitSignal {
	gain := gainRatio(long, entry, price)

	if gain.LessThanOrEqual(decFromFloat(-p.cfg.EmergencyStopPct)) {
		return ExitSignal{Close: true, Reason: ExitEmergencyStop}
	}

	beTrigger := decFromFloat(p.cfg.BreakevenTriggerPct)
	beLevel := offsetPrice(long, entry, p.cfg.FeeBufferPct)
	stdAct := decFromFloat(p.cfg.TrailStdActivation)
	highAct := decFromFloat(p.cfg.TrailHighActivation)

	var reason ExitReason
	p.trailing.Update(symbol, long, func(st *TrailingState, fresh bool) {
		if gain.GreaterThan(beTrigger) {
			st.BreakevenActive = true
		}
		if st.BreakevenActive && worseThan(long, price, beLevel) {
			reason = ExitBreakeven
			return
		}
		if fresh || (long && price > st.Extreme) || (!long && price < st.Extreme) {
			st.Extreme = price
		}
		peak := gainRatio(long, entry, st.Extreme)
		switch {
		case peak.GreaterThanOrEqual(highAct):
			if worseThan(long, price, retraceStop(long, st.Extreme, p.cfg.TrailHighCallback)) {
				reason = ExitTrailingHigh
			}
		case peak.GreaterThan(stdAct):
			if worseThan(long, price, retraceStop(long, st.Extreme, p.cfg.TrailStdCallback)) {
				reason = ExitTrailingStd
			}
		}
	})
	if reason != ExitNone {
		return ExitSignal{Close: true, Reason: reason}
	}

	st := SuperTrend(candles, p.cfg.ATRPeriod, p.cfg.ATRMultiplier)
	if st.Trend == TrendNone {
		return ExitSignal{}
	}
	if long && (st.Trend == TrendDown || price < st.Lower) {
		return ExitSignal{Close: true, Reason: ExitTrendReversal}
	}
	if !long && (st.Trend == TrendUp || price > st.Upper) {
		return ExitSignal{Close: true, Reason: ExitTrendReversal}
	}
	return ExitSignal{}
}
