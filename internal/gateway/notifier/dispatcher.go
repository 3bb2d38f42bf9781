package notifier

import (
	"context"
	"time"

	"planc/internal/logger"
)

// Dispatcher 在后台串行发送消息，交易路径只做非阻塞入队；队列满时丢弃。
type Dispatcher struct {
	target TextNotifier
	queue  chan Message
}

func NewDispatcher(target TextNotifier, size int) *Dispatcher {
	if target == nil {
		target = Nop{}
	}
	if size <= 0 {
		size = 64
	}
	return &Dispatcher{target: target, queue: make(chan Message, size)}
}

// Notify 入队一条消息，返回是否成功入队。
func (d *Dispatcher) Notify(msg Message) bool {
	if d == nil {
		return false
	}
	select {
	case d.queue <- msg:
		return true
	default:
		logger.Warnf("notifier queue full, dropping %q", msg.Title)
		return false
	}
}

// Run 持续发送直到 ctx 结束。
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-d.queue:
			sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			if err := d.target.SendText(sendCtx, msg.RenderMarkdown()); err != nil {
				logger.Warnf("notify %q failed: %v", msg.Title, err)
			}
			cancel()
		}
	}
}
