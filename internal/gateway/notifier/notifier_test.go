package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTelegram_SendTextPostsMarkdown(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := newTelegram(srv.URL, "TOKEN", "42")
	require.NoError(t, tg.SendText(context.Background(), "hello"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "Markdown", got["parse_mode"])
}

func TestTelegram_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := newTelegram(srv.URL, "T", "1")
	tg.client.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(5 * time.Millisecond)
	require.NoError(t, tg.SendText(context.Background(), "x"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestTelegram_RequiresChat(t *testing.T) {
	assert.Error(t, NewTelegram("T", "").SendText(context.Background(), "x"))
}

func TestMessage_Render(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	body := PositionClosed("BTCUSDT", 0.003, 100, 101, 0.003, "trailing_std", at).RenderMarkdown()
	assert.Contains(t, body, "BTCUSDT closed")
	assert.Contains(t, body, "+0.0030 USDT")
	assert.Contains(t, body, "2025-01-02 03:04:05 UTC")

	open := OrderOpened("ETHUSDT", "SELL", "0.01", 2500, "breadth down", at)
	assert.Equal(t, "🔴", open.Icon)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) SendText(ctx context.Context, text string) error {
	return m.Called(text).Error(0)
}

func TestDispatcher_DeliversAndDropsWhenFull(t *testing.T) {
	n := &mockNotifier{}
	done := make(chan struct{})
	n.On("SendText", mock.Anything).Return(nil).Run(func(mock.Arguments) { close(done) }).Once()

	d := NewDispatcher(n, 1)
	assert.True(t, d.Notify(Message{Title: "a"}))
	assert.False(t, d.Notify(Message{Title: "b"}), "queue of one is full")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
	n.AssertExpectations(t)
}
