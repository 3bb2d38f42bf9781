package logger

import (
	"sync"
	"time"
)

const defaultEventCapacity = 500

// Event 是推送给展示层的一条可读状态行。
type Event struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// EventLog 保存最近的事件（环形缓冲），并向订阅者广播。
// 订阅者消费过慢时丢弃事件，不阻塞日志调用方。
type EventLog struct {
	mu     sync.Mutex
	buf    []Event
	next   int
	full   bool
	subs   map[int]chan Event
	nextID int
}

func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = defaultEventCapacity
	}
	return &EventLog{
		buf:  make([]Event, capacity),
		subs: make(map[int]chan Event),
	}
}

func (l *EventLog) Publish(evt Event) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf[l.next] = evt
	l.next = (l.next + 1) % len(l.buf)
	if l.next == 0 {
		l.full = true
	}
	for _, ch := range l.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Recent 返回最近 limit 条事件，按时间从旧到新排列。
func (l *EventLog) Recent(limit int) []Event {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var ordered []Event
	if l.full {
		ordered = append(ordered, l.buf[l.next:]...)
	}
	ordered = append(ordered, l.buf[:l.next]...)
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}
	out := make([]Event, len(ordered))
	copy(out, ordered)
	return out
}

// Subscribe 返回事件通道与取消函数。
func (l *EventLog) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = ch
	l.mu.Unlock()
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			l.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
