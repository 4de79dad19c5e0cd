package repl

import (
	"context"

	"narrative-cli/internal/grouping"
	"narrative-cli/internal/logger"
	"narrative-cli/internal/narrative"
	tuirender "narrative-cli/internal/tui/render"
)

var log = logger.Named("repl")

// Printer 把事件流写成只追加的 scrollback。
// 追加事件只可能改变最后一个组，因此除最后一组外的组都可以立即输出；
// 最后一组在 Flush 时输出。
type Printer struct {
	scrollback *Scrollback
	layout     tuirender.LayoutOptions
	grouping   grouping.Options
	events     []narrative.Event
	emitted    int
}

type PrinterOptions struct {
	Scrollback *Scrollback
	Layout     tuirender.LayoutOptions
	Grouping   grouping.Options
}

func NewPrinter(opts PrinterOptions) *Printer {
	sb := opts.Scrollback
	if sb == nil {
		sb = NewScrollback(ScrollbackOptions{})
	}
	return &Printer{scrollback: sb, layout: opts.Layout, grouping: opts.Grouping}
}

// Add 追加一批事件，并输出所有已闭合的组。
func (p *Printer) Add(batch []narrative.Event) error {
	if len(batch) == 0 {
		return nil
	}
	p.events = append(p.events, batch...)
	groups := grouping.Group(p.events, p.grouping)
	return p.emit(groups, len(groups)-1)
}

// Flush 输出剩余的所有组，包括仍可能继续增长的最后一组。
func (p *Printer) Flush() error {
	groups := grouping.Group(p.events, p.grouping)
	return p.emit(groups, len(groups))
}

// Emitted returns the number of groups already written.
func (p *Printer) Emitted() int { return p.emitted }

func (p *Printer) emit(groups []grouping.RenderGroup, upTo int) error {
	for ; p.emitted < upTo; p.emitted++ {
		if err := p.scrollback.AppendCell(newGroupCell(groups[p.emitted], p.layout)); err != nil {
			return err
		}
	}
	return nil
}

// Follow 持续消费实时批次直到 ctx 结束或通道关闭，退出前 Flush。
func (p *Printer) Follow(ctx context.Context, live <-chan []narrative.Event) error {
	defer func() {
		if err := p.Flush(); err != nil {
			log.Warnf("flush scrollback failed: %v", err)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-live:
			if !ok {
				return nil
			}
			if err := p.Add(batch); err != nil {
				return err
			}
		}
	}
}
