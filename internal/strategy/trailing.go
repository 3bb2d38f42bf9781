package strategy

import (
	"strings"
	"sync"
)

// TrailingState 记录单个交易对持仓期间的跟踪止损进度。
type TrailingState struct {
	Long bool
	// Extreme 是持仓以来的最有利价格：多头取最高，空头取最低。
	Extreme         float64
	BreakevenActive bool
}

// TrailingTable 按交易对保存 TrailingState，所有访问都在锁内完成。
type TrailingTable struct {
	mu     sync.Mutex
	states map[string]TrailingState
}

func NewTrailingTable() *TrailingTable {
	return &TrailingTable{states: make(map[string]TrailingState)}
}

func (t *TrailingTable) Get(symbol string) (TrailingState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[key(symbol)]
	return st, ok
}

func (t *TrailingTable) Reset(symbol string) {
	t.mu.Lock()
	delete(t.states, key(symbol))
	t.mu.Unlock()
}

// Update 在锁内读取并写回状态；方向与记录不一致时视为新持仓重新开始。
func (t *TrailingTable) Update(symbol string, long bool, fn func(st *TrailingState, fresh bool)) TrailingState {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key(symbol)
	st, ok := t.states[k]
	fresh := !ok || st.Long != long
	if fresh {
		st = TrailingState{Long: long}
	}
	fn(&st, fresh)
	t.states[k] = st
	return st
}

func (t *TrailingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.states)
}

func key(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
