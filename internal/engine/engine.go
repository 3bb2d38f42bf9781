// Package engine 组装宽度监控、PLANC 策略、下单与账本，驱动价格与市场两个轮询循环。
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"planc/internal/breadth"
	"planc/internal/config"
	"planc/internal/execution"
	"planc/internal/gateway/exchange"
	"planc/internal/gateway/notifier"
	"planc/internal/logger"
	"planc/internal/lot"
	"planc/internal/metrics"
	"planc/internal/position"
	"planc/internal/strategy"
)

type Deps struct {
	Exchange exchange.Exchange
	Executor *execution.Executor
	Guard    *execution.MarginGuard
	Ledger   *position.Ledger
	Monitor  *breadth.Monitor
	Strategy *strategy.PLANC
	Rules    *lot.Cache
	Metrics  *metrics.Metrics
	Notifier *notifier.Dispatcher
	// HTTPTimeout 限定单次交易所请求；下单动作的总时长为其若干倍。
	HTTPTimeout time.Duration
}

type Engine struct {
	ex       exchange.Exchange
	exec     *execution.Executor
	guard    *execution.MarginGuard
	ledger   *position.Ledger
	monitor  *breadth.Monitor
	strategy *strategy.PLANC
	rules    *lot.Cache
	metrics  *metrics.Metrics
	notify   *notifier.Dispatcher
	orch     *Orchestrator
	now      func() time.Time

	orderTimeout time.Duration
	connected    atomic.Bool

	settingsMu sync.RWMutex
	settings   Settings

	priceMu   sync.RWMutex
	lastPrice float64
	positions []exchange.Position
	priceAt   time.Time

	runMu   sync.Mutex
	baseCtx context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(cfg *config.Config, d Deps) (*Engine, error) {
	if d.Exchange == nil || d.Executor == nil || d.Guard == nil || d.Ledger == nil || d.Monitor == nil || d.Strategy == nil {
		return nil, fmt.Errorf("engine: missing dependency")
	}
	if d.HTTPTimeout <= 0 {
		d.HTTPTimeout = 15 * time.Second
	}
	e := &Engine{
		ex:           d.Exchange,
		exec:         d.Executor,
		guard:        d.Guard,
		ledger:       d.Ledger,
		monitor:      d.Monitor,
		strategy:     d.Strategy,
		rules:        d.Rules,
		metrics:      d.Metrics,
		notify:       d.Notifier,
		now:          time.Now,
		orderTimeout: 4 * d.HTTPTimeout,
		settings:     SettingsFromConfig(cfg),
	}
	e.orch = NewOrchestrator(e, func() time.Duration {
		return Cooldown(e.Settings().IntervalSeconds)
	})
	e.strategy.SetLongOnly(e.settings.TradeMode == config.TradeModeLongOnly)
	return e, nil
}

func (e *Engine) Connected() bool { return e.connected.Load() }

// Connect 通过账户接口校验凭证；成功后启动轮询循环，失败时引擎保持断开。
func (e *Engine) Connect(ctx context.Context) error {
	if err := e.ex.Ping(ctx); err != nil {
		e.connected.Store(false)
		logger.Errorf("connect %s failed: %v", e.ex.Name(), err)
		return fmt.Errorf("%w: %w", exchange.ErrNotConnected, err)
	}
	e.connected.Store(true)
	e.orch.Reset()
	logger.Infof("connected to %s", e.ex.Name())
	sym := e.Settings().Symbol
	if err := e.monitor.Reset(ctx, sym); err != nil {
		logger.Warnf("breadth baseline seed for %s failed: %v", sym, err)
	}
	e.startLoops()
	return nil
}

// Run 保存运行上下文并阻塞到 ctx 结束；autoConnect 为 true 时先尝试连接。
func (e *Engine) Run(ctx context.Context, autoConnect bool) error {
	e.runMu.Lock()
	e.baseCtx = ctx
	e.runMu.Unlock()
	if autoConnect {
		if err := e.Connect(ctx); err != nil {
			logger.Warnf("engine started disconnected: %v", err)
		}
	}
	<-ctx.Done()
	return e.Stop(10 * time.Second)
}

func (e *Engine) startLoops() {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.cancel != nil {
		return
	}
	base := e.baseCtx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithCancel(base)
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		e.priceLoop().Run(ctx, e.priceCycle)
	}()
	go func() {
		defer wg.Done()
		e.marketLoop().Run(ctx, e.marketCycle)
	}()
	go func() {
		wg.Wait()
		close(done)
	}()
}

// Running 报告轮询循环是否在运行。
func (e *Engine) Running() bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.cancel != nil
}

// Stop 取消循环并在 timeout 内等待其退出；进行中的下单不受影响。
func (e *Engine) Stop(timeout time.Duration) error {
	e.runMu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.runMu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		logger.Infof("engine loops stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("engine stop: loops did not exit within %s", timeout)
	}
}

// State 是对外展示的引擎状态。
type State struct {
	Exchange   string           `json:"exchange"`
	Connected  bool             `json:"connected"`
	Running    bool             `json:"running"`
	Settings   Settings         `json:"settings"`
	Breadth    breadth.Snapshot `json:"breadth"`
	LastPrice  float64          `json:"last_price"`
	PriceAt    time.Time        `json:"price_at"`
	LastAction time.Time        `json:"last_action"`
}

func (e *Engine) State() State {
	e.priceMu.RLock()
	price, at := e.lastPrice, e.priceAt
	e.priceMu.RUnlock()
	return State{
		Exchange:   e.ex.Name(),
		Connected:  e.Connected(),
		Running:    e.Running(),
		Settings:   e.Settings(),
		Breadth:    e.monitor.Snapshot(),
		LastPrice:  price,
		PriceAt:    at,
		LastAction: e.orch.LastAction(),
	}
}

// Positions 返回最近一次价格循环缓存的持仓；缓存为空时直接查询交易所。
func (e *Engine) Positions(ctx context.Context) ([]exchange.Position, error) {
	e.priceMu.RLock()
	cached := append([]exchange.Position(nil), e.positions...)
	fresh := !e.priceAt.IsZero()
	e.priceMu.RUnlock()
	if fresh {
		return cached, nil
	}
	if !e.Connected() {
		return nil, exchange.ErrNotConnected
	}
	return e.ledger.OpenPositions(ctx)
}

// PnL 汇总本地账本、交易所流水与当前未实现盈亏。
func (e *Engine) PnL() position.Summary {
	e.priceMu.RLock()
	unrealized := 0.0
	for _, p := range e.positions {
		unrealized += p.UnrealizedPnL
	}
	e.priceMu.RUnlock()
	return e.ledger.Summary(unrealized)
}

func (e *Engine) RecentTrades(limit int) ([]position.Trade, error) {
	return e.ledger.RecentTrades(limit)
}
