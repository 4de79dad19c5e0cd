package events

import (
	"sync"

	"narrative-cli/internal/logger"
)

// Bus 是简单的发布订阅通道，用于链接点击等界面通知。
// 慢订阅者的消息会被丢弃，发布方从不阻塞。
type Bus struct {
	mu     sync.Mutex
	subs   []chan any
	closed bool
	log    *logger.LogEntry
}

func NewBus() *Bus {
	return &Bus{log: log}
}

// SetLogger 替换发布日志输出，nil 时恢复默认。
func (b *Bus) SetLogger(entry *logger.LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if entry == nil {
		entry = log
	}
	b.log = entry
}

func (b *Bus) Subscribe() <-chan any {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		ch := make(chan any)
		close(ch)
		return ch
	}
	ch := make(chan any, 32)
	b.subs = append(b.subs, ch)
	return ch
}

func (b *Bus) Publish(evt any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.log.WithField("type", typeName(evt)).Warn("dropped notification for slow subscriber")
		}
	}
	b.log.WithField("type", typeName(evt)).Debug("published notification")
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		close(ch)
	}
	b.closed = true
}
