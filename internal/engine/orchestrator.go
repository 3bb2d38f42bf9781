package engine

import (
	"context"
	"math"
	"sync"
	"time"

	"planc/internal/breadth"
	"planc/internal/logger"
)

// MinCooldown 是两次自动开仓动作之间的最短间隔。
const MinCooldown = 10 * time.Second

type Action string

const (
	ActionNone  Action = ""
	ActionLong  Action = "long"
	ActionShort Action = "short"
	ActionClose Action = "close"
)

// Trader 是编排器驱动的交易动作。
type Trader interface {
	EnsureLong(ctx context.Context, symbol string) error
	EnsureShort(ctx context.Context, symbol string) error
	ClosePosition(ctx context.Context, symbol, reason string) error
}

// Cooldown 返回 max(10s, interval)。
func Cooldown(intervalSeconds int) time.Duration {
	d := time.Duration(intervalSeconds) * time.Second
	if d < MinCooldown {
		return MinCooldown
	}
	return d
}

// decideAction 把一份宽度快照映射成动作：
// up+币种走强 -> 多；down+币种走弱 -> 空；中性且 |24h 涨跌幅| 超过阈值 -> 平仓。
func decideAction(snap breadth.Snapshot, neutralClosePct float64) Action {
	switch {
	case snap.Up() && snap.SymbolUp:
		return ActionLong
	case snap.Down() && snap.SymbolDown:
		return ActionShort
	case snap.Direction == breadth.Neutral && snap.HasChange && neutralClosePct > 0 &&
		math.Abs(snap.ChangePercent) >= neutralClosePct:
		return ActionClose
	default:
		return ActionNone
	}
}

// Orchestrator 根据宽度快照做自动交易决策。所有动作都会记录时间，只有开仓动作受冷却约束。
type Orchestrator struct {
	trader   Trader
	cooldown func() time.Duration
	now      func() time.Time

	mu         sync.Mutex
	lastAction time.Time
}

func NewOrchestrator(trader Trader, cooldown func() time.Duration) *Orchestrator {
	if cooldown == nil {
		cooldown = func() time.Duration { return MinCooldown }
	}
	return &Orchestrator{trader: trader, cooldown: cooldown, now: time.Now}
}

// Decide 执行一轮决策，返回实际执行的动作。
func (o *Orchestrator) Decide(ctx context.Context, snap breadth.Snapshot, neutralClosePct float64) (Action, error) {
	act := decideAction(snap, neutralClosePct)
	switch act {
	case ActionNone:
		logger.Debugf("auto decision %s: market=%s symbol_up=%v symbol_down=%v, waiting",
			snap.Symbol, snap.Direction, snap.SymbolUp, snap.SymbolDown)
		return ActionNone, nil
	case ActionClose:
		logger.Infof("auto decision %s: neutral market and |change| %.2f%% >= %.2f%%, closing",
			snap.Symbol, math.Abs(snap.ChangePercent), neutralClosePct)
		o.touch()
		return act, o.trader.ClosePosition(ctx, snap.Symbol, "neutral_threshold")
	}
	if !o.Claim() {
		logger.Debugf("auto decision %s: %s suppressed by cooldown", snap.Symbol, act)
		return ActionNone, nil
	}
	logger.Infof("auto decision %s: market=%s symbol_up=%v symbol_down=%v -> %s",
		snap.Symbol, snap.Direction, snap.SymbolUp, snap.SymbolDown, act)
	if act == ActionLong {
		return act, o.trader.EnsureLong(ctx, snap.Symbol)
	}
	return act, o.trader.EnsureShort(ctx, snap.Symbol)
}

// Claim 在锁内检查并占用冷却窗口，并发的两轮决策只有一轮能成功。
func (o *Orchestrator) Claim() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	if !o.lastAction.IsZero() && now.Sub(o.lastAction) < o.cooldown() {
		return false
	}
	o.lastAction = now
	return true
}

// touch 记录动作时间但不检查冷却，平仓不受冷却限制。
func (o *Orchestrator) touch() {
	o.mu.Lock()
	o.lastAction = o.now()
	o.mu.Unlock()
}

func (o *Orchestrator) LastAction() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastAction
}

// Reset 清空冷却状态，在重连或切换交易对时调用。
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.lastAction = time.Time{}
	o.mu.Unlock()
}
