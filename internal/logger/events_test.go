package logger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLog_RecentWrapsAround(t *testing.T) {
	l := NewEventLog(3)
	for _, msg := range []string{"a", "b", "c", "d"} {
		l.Publish(Event{Message: msg})
	}
	got := l.Recent(0)
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].Message)
	assert.Equal(t, "d", got[2].Message)

	last := l.Recent(1)
	require.Len(t, last, 1)
	assert.Equal(t, "d", last[0].Message)
}

func TestEventLog_SubscribeReceivesLogLines(t *testing.T) {
	l := NewEventLog(10)
	SetSink(l)
	defer SetSink(nil)

	ch, cancel := l.Subscribe(4)
	defer cancel()

	Infof("trend %s -> %s", "neutral", "up")

	select {
	case evt := <-ch:
		assert.Equal(t, "INFO", evt.Level)
		assert.Equal(t, "trend neutral -> up", evt.Message)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestEventLog_DebugBelowLevelIsNotPublished(t *testing.T) {
	SetLevel("info")
	l := NewEventLog(10)
	SetSink(l)
	defer SetSink(nil)

	Debugf("hidden")
	assert.Empty(t, l.Recent(0))
}
