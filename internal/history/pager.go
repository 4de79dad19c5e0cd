package history

import (
	"sync"

	"narrative-cli/internal/narrative"
)

// DefaultPageSize 是每次历史请求返回的事件数。
const DefaultPageSize = 100

// Pager 从新到旧分页提供 backlog，返回的事件都标记为历史事件。
type Pager struct {
	mu       sync.Mutex
	events   []narrative.Event
	pageSize int
	// next 是尚未提供的最新事件的下一个位置，[0,next) 仍可分页。
	next int
}

// NewPager copies the backlog so later appends by the caller do not leak in.
func NewPager(events []narrative.Event, pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	cp := make([]narrative.Event, len(events))
	copy(cp, events)
	return &Pager{events: cp, pageSize: pageSize, next: len(cp)}
}

// Latest 返回最新的一页。重复调用等同于 Older。
func (p *Pager) Latest() []narrative.Event {
	return p.Older()
}

// Older 返回已提供内容之前的一页，按时间正序；耗尽时返回 nil。
func (p *Pager) Older() []narrative.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.next == 0 {
		return nil
	}
	start := p.next - p.pageSize
	if start < 0 {
		start = 0
	}
	page := make([]narrative.Event, 0, p.next-start)
	for _, e := range p.events[start:p.next] {
		e.IsHistorical = true
		page = append(page, e)
	}
	p.next = start
	return page
}

// Exhausted reports whether every backlog event has been served.
func (p *Pager) Exhausted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next == 0
}
