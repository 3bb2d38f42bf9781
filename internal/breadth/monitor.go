package breadth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"planc/internal/logger"
	"planc/internal/market"
	"planc/internal/metrics"
	"planc/internal/pkg/symbol"
)

// ErrStale 表示本轮采样期间发生了 Reset，结果已被丢弃。
var ErrStale = errors.New("breadth cycle superseded by reset")

type TickerSource interface {
	Tickers(ctx context.Context) ([]market.Ticker, error)
}

// Snapshot 是一轮采样后的一致视图，编排器每轮只读取一份。
type Snapshot struct {
	Symbol    string    `json:"symbol"`
	Direction Direction `json:"direction"`
	// SymbolUp/SymbolDown 比较跟踪交易对本轮与上轮的 24h 涨跌幅，首个样本或相等时均为 false。
	SymbolUp      bool      `json:"symbol_up"`
	SymbolDown    bool      `json:"symbol_down"`
	ChangePercent float64   `json:"change_percent"`
	HasChange     bool      `json:"has_change"`
	LastPrice     float64   `json:"last_price"`
	Rising        int       `json:"rising"`
	Falling       int       `json:"falling"`
	Total         int       `json:"total"`
	Diff          int       `json:"diff"`
	Baseline      bool      `json:"baseline"` // true 表示仅建立基线，尚无 diff
	Source        string    `json:"source"`
	Time          time.Time `json:"time"`
}

func (s Snapshot) Up() bool   { return s.Direction == Up }
func (s Snapshot) Down() bool { return s.Direction == Down }

// Monitor 维护市场宽度锁存状态与跟踪交易对的动量基线。
// 网络请求都在锁外完成；gen 在每次 Reset 时递增，用于丢弃过期的采样。
type Monitor struct {
	universe *Universe
	tickers  TickerSource
	metrics  *metrics.Metrics
	now      func() time.Time

	mu            sync.Mutex
	symbol        string
	gen           uint64
	state         Direction
	hasPrevRising bool
	prevRising    int
	hasPrevChange bool
	prevChange    float64
	last          Snapshot
}

func NewMonitor(universe *Universe, tickers TickerSource, trackedSymbol string, m *metrics.Metrics) *Monitor {
	sym := symbol.Normalize(trackedSymbol)
	return &Monitor{
		universe: universe,
		tickers:  tickers,
		metrics:  m,
		now:      time.Now,
		symbol:   sym,
		last:     Snapshot{Symbol: sym},
	}
}

func (m *Monitor) Symbol() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.symbol
}

// Snapshot 返回最近一轮的结果。
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

type sample struct {
	tickers map[string]market.Ticker
	rising  int
	total   int
}

func (m *Monitor) sample(ctx context.Context, sym string) (sample, error) {
	tickers, err := m.tickers.Tickers(ctx)
	if err != nil {
		return sample{}, fmt.Errorf("breadth tickers: %w", err)
	}
	bases, err := m.universe.Bases(ctx, tickers)
	if err != nil {
		return sample{}, fmt.Errorf("breadth universe: %w", err)
	}
	idx := market.TickerIndex(tickers)
	syms := rotate(bases, symbol.Base(sym))
	rising := 0
	for _, s := range syms {
		if t, ok := idx[s]; ok && t.ChangePercent > 0 {
			rising++
		}
	}
	return sample{tickers: idx, rising: rising, total: len(syms)}, nil
}

// Cycle 采样一次：首轮只建立基线，之后按上涨数量变化推进锁存状态并更新动量。
func (m *Monitor) Cycle(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	sym, gen := m.symbol, m.gen
	m.mu.Unlock()

	smp, err := m.sample(ctx, sym)
	if err != nil {
		return Snapshot{}, err
	}

	m.mu.Lock()
	if m.gen != gen {
		last := m.last
		m.mu.Unlock()
		return last, ErrStale
	}
	snap := Snapshot{
		Symbol:  sym,
		Rising:  smp.rising,
		Falling: smp.total - smp.rising,
		Total:   smp.total,
		Source:  m.universe.Source(),
		Time:    m.now(),
	}
	if m.hasPrevRising {
		snap.Diff = smp.rising - m.prevRising
		m.state = nextDirection(m.state, snap.Diff)
	} else {
		snap.Baseline = true
	}
	m.prevRising = smp.rising
	m.hasPrevRising = true
	snap.Direction = m.state

	prevChange, hadPrev := m.prevChange, m.hasPrevChange
	if t, ok := smp.tickers[sym]; ok {
		snap.HasChange = true
		snap.ChangePercent = t.ChangePercent
		snap.LastPrice = t.LastPrice
		snap.SymbolUp = hadPrev && t.ChangePercent > prevChange
		snap.SymbolDown = hadPrev && t.ChangePercent < prevChange
		m.prevChange = t.ChangePercent
		m.hasPrevChange = true
	}
	m.last = snap
	m.mu.Unlock()

	m.metrics.SetTrendState(float64(snap.Direction))
	if snap.Baseline {
		logger.Infof("[breadth] first measurement: rising=%d falling=%d total=%d", snap.Rising, snap.Falling, snap.Total)
	} else {
		logger.Infof("[breadth] rising=%d falling=%d total=%d diff=%d state=%s",
			snap.Rising, snap.Falling, snap.Total, snap.Diff, snap.Direction)
	}
	if snap.HasChange {
		if hadPrev {
			logger.Infof("Momentum %s: cur=%.2f%% prev=%.2f%%", symbol.Base(sym), snap.ChangePercent, prevChange)
		} else {
			logger.Infof("Momentum %s: cur=%.2f%% prev=None", symbol.Base(sym), snap.ChangePercent)
		}
	}
	return snap, nil
}

// Reset 切换跟踪交易对：状态回到 neutral，并用最新数据重建上涨数量与动量基线。
// 采样失败时基线保持为空，下一轮 Cycle 会重新建立。
func (m *Monitor) Reset(ctx context.Context, trackedSymbol string) error {
	sym := symbol.Normalize(trackedSymbol)
	if sym == "" {
		return fmt.Errorf("breadth reset: empty symbol")
	}
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.symbol = sym
	m.state = Neutral
	m.hasPrevRising = false
	m.hasPrevChange = false
	m.last = Snapshot{Symbol: sym, Time: m.now()}
	m.mu.Unlock()
	m.metrics.SetTrendState(float64(Neutral))

	smp, err := m.sample(ctx, sym)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return ErrStale
	}
	m.prevRising = smp.rising
	m.hasPrevRising = true
	if t, ok := smp.tickers[sym]; ok {
		m.prevChange = t.ChangePercent
		m.hasPrevChange = true
	}
	logger.Infof("[breadth] baselines reset for %s: rising_prev=%d prev_change=%.2f%% (has=%v)",
		sym, m.prevRising, m.prevChange, m.hasPrevChange)
	return nil
}
