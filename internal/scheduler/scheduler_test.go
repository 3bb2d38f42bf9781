package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoop_ErrorUsesBackoffAndKeepsRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var waits []time.Duration
	loop := NewLoop("market", func() time.Duration { return time.Minute }, 10*time.Second)
	loop.sleep = func(_ context.Context, d time.Duration) bool {
		waits = append(waits, d)
		return len(waits) < 3
	}
	calls := 0
	var reported []string
	loop.OnError = func(name string, _ error) { reported = append(reported, name) }
	loop.Run(ctx, func(context.Context) error {
		calls++
		if calls == 2 {
			return errors.New("ticker timeout")
		}
		return nil
	})

	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Minute, 10 * time.Second, time.Minute}, waits)
	assert.Equal(t, []string{"market"}, reported)
}

func TestLoop_PanicIsRecovered(t *testing.T) {
	loop := NewLoop("price", func() time.Duration { return time.Second }, 5*time.Second)
	var waits []time.Duration
	loop.sleep = func(_ context.Context, d time.Duration) bool {
		waits = append(waits, d)
		return false
	}
	loop.Run(context.Background(), func(context.Context) error { panic("boom") })
	assert.Equal(t, []time.Duration{5 * time.Second}, waits)
}

func TestLoop_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	done := make(chan struct{})
	go func() {
		NewLoop("price", func() time.Duration { return time.Hour }, time.Second).Run(ctx, func(context.Context) error {
			calls++
			return nil
		})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit")
	}
	assert.Equal(t, 1, calls)
}

func TestParseIntervalDuration(t *testing.T) {
	d, ok := ParseIntervalDuration("15m")
	assert.True(t, ok)
	assert.Equal(t, 15*time.Minute, d)
	d, ok = ParseIntervalDuration("4H")
	assert.True(t, ok)
	assert.Equal(t, 4*time.Hour, d)
	_, ok = ParseIntervalDuration("7m")
	assert.False(t, ok)
	_, ok = ParseIntervalDuration("")
	assert.False(t, ok)
}
