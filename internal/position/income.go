package position

import (
	"context"
	"fmt"
	"sync"
	"time"

	"planc/internal/gateway/exchange"
	"planc/internal/logger"
)

// reconciledTypes 是计入交易所已实现盈亏的流水类型。
var reconciledTypes = []string{
	exchange.IncomeRealizedPnL,
	exchange.IncomeCommission,
	exchange.IncomeFundingFee,
}

type IncomeSource interface {
	IncomeHistory(ctx context.Context, start, end time.Time) ([]exchange.Income, error)
}

type IncomeStore interface {
	SaveIncomes(ctx context.Context, items []exchange.Income) (int, error)
	SumIncome(ctx context.Context, since time.Time, types []string) (float64, error)
}

// IncomeReconciler 节流拉取交易所资金流水，汇总本地账本看不到的手续费与资金费。
type IncomeReconciler struct {
	src      IncomeSource
	store    IncomeStore
	lookback time.Duration
	every    time.Duration
	nowFn    func() time.Time

	mu        sync.Mutex
	lastFetch time.Time
	realized  float64
	today     float64
}

func NewIncomeReconciler(src IncomeSource, store IncomeStore, lookback, every time.Duration) *IncomeReconciler {
	if lookback <= 0 {
		lookback = 7 * 24 * time.Hour
	}
	if every <= 0 {
		every = time.Minute
	}
	return &IncomeReconciler{src: src, store: store, lookback: lookback, every: every, nowFn: time.Now}
}

// Refresh 距上次拉取不足 every 时直接返回缓存值；refreshed 表示本次是否访问了交易所。
func (r *IncomeReconciler) Refresh(ctx context.Context) (realized float64, refreshed bool, err error) {
	now := r.nowFn()
	r.mu.Lock()
	if !r.lastFetch.IsZero() && now.Sub(r.lastFetch) < r.every {
		realized = r.realized
		r.mu.Unlock()
		return realized, false, nil
	}
	r.lastFetch = now
	r.mu.Unlock()

	start := now.Add(-r.lookback)
	items, err := r.src.IncomeHistory(ctx, start, now)
	if err != nil {
		return r.Realized(), false, fmt.Errorf("income history: %w", err)
	}
	total, today := sumIncomes(items, startOfDay(now))
	if r.store != nil {
		if n, err := r.store.SaveIncomes(ctx, items); err != nil {
			logger.Warnf("income store save failed: %v", err)
		} else if n > 0 {
			logger.Debugf("income store: %d new rows", n)
		}
		if sum, err := r.store.SumIncome(ctx, start, reconciledTypes); err == nil {
			total = sum
		}
		if sum, err := r.store.SumIncome(ctx, startOfDay(now), reconciledTypes); err == nil {
			today = sum
		}
	}
	r.mu.Lock()
	r.realized = total
	r.today = today
	r.mu.Unlock()
	return total, true, nil
}

func (r *IncomeReconciler) Realized() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.realized
}

func (r *IncomeReconciler) Today() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.today
}

func sumIncomes(items []exchange.Income, dayStart time.Time) (total, today float64) {
	for _, it := range items {
		switch it.IncomeType {
		case exchange.IncomeRealizedPnL, exchange.IncomeCommission, exchange.IncomeFundingFee:
			total += it.Income
			if !it.Time.Before(dayStart) {
				today += it.Income
			}
		}
	}
	return total, today
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
