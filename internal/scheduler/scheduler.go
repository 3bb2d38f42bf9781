package scheduler

import (
	"context"
	"time"

	"planc/internal/logger"
)

// Loop 是固定节奏的轮询循环：任务出错时记录日志并休眠 ErrorBackoff，绝不退出。
// Interval 每轮重新读取，运行期调整周期无需重启循环。
type Loop struct {
	Name           string
	Interval       func() time.Duration
	ErrorBackoff   time.Duration
	RunImmediately bool
	OnError        func(name string, err error)

	sleep func(ctx context.Context, d time.Duration) bool
}

func NewLoop(name string, interval func() time.Duration, errorBackoff time.Duration) *Loop {
	return &Loop{
		Name:           name,
		Interval:       interval,
		ErrorBackoff:   errorBackoff,
		RunImmediately: true,
	}
}

// Run 阻塞直到 ctx 结束。当前一轮任务总会执行完毕后才检查退出信号。
func (l *Loop) Run(ctx context.Context, task func(ctx context.Context) error) {
	if l == nil || task == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	sleep := l.sleep
	if sleep == nil {
		sleep = sleepWithContext
	}
	logger.Infof("Loop[%s]: started interval=%s error_backoff=%s", l.Name, l.interval(), l.ErrorBackoff)

	if !l.RunImmediately && !sleep(ctx, l.interval()) {
		logger.Infof("Loop[%s]: ctx done, exit", l.Name)
		return
	}
	for {
		wait := l.interval()
		if err := l.runOnce(ctx, task); err != nil {
			logger.Warnf("Loop[%s]: iteration failed: %v (retry in %s)", l.Name, err, l.ErrorBackoff)
			if l.OnError != nil {
				l.OnError(l.Name, err)
			}
			if l.ErrorBackoff > 0 {
				wait = l.ErrorBackoff
			}
		}
		if !sleep(ctx, wait) {
			logger.Infof("Loop[%s]: ctx done, exit", l.Name)
			return
		}
	}
}

func (l *Loop) runOnce(ctx context.Context, task func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Loop[%s]: panic recovered: %v", l.Name, r)
			err = errPanic
		}
	}()
	return task(ctx)
}

func (l *Loop) interval() time.Duration {
	if l.Interval == nil {
		return time.Second
	}
	if d := l.Interval(); d > 0 {
		return d
	}
	return time.Second
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
