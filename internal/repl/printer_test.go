package repl

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"narrative-cli/internal/grouping"
	"narrative-cli/internal/narrative"
	tuirender "narrative-cli/internal/tui/render"
)

func evt(id, text string) narrative.Event {
	return narrative.Event{ID: id, Content: []string{text}, Kind: narrative.KindNarrative, ContentType: narrative.ContentPlain}
}

func newTestPrinter(buf *bytes.Buffer) *Printer {
	return NewPrinter(PrinterOptions{
		Scrollback: NewScrollback(ScrollbackOptions{Writer: buf, Width: 40, Plain: true}),
		Layout:     tuirender.LayoutOptions{Theme: tuirender.ThemeByName("plain")},
	})
}

func outputLines(buf *bytes.Buffer) []string {
	text := strings.TrimRight(buf.String(), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func TestPrinterHoldsBackLastGroup(t *testing.T) {
	var buf bytes.Buffer
	p := newTestPrinter(&buf)

	if err := p.Add([]narrative.Event{evt("1", "one"), evt("2", "two")}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := outputLines(&buf); len(got) != 1 || got[0] != "  one" {
		t.Fatalf("after first batch: %q", got)
	}

	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := outputLines(&buf); len(got) != 2 || got[1] != "  two" {
		t.Fatalf("after flush: %q", got)
	}
	if p.Emitted() != 2 {
		t.Fatalf("emitted = %d, want 2", p.Emitted())
	}
}

func TestPrinterMergesRunAcrossBatches(t *testing.T) {
	var buf bytes.Buffer
	p := newTestPrinter(&buf)

	first := evt("1", "You see ")
	first.NoNewline = true
	if err := p.Add([]narrative.Event{first}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("open run should not be printed yet: %q", buf.String())
	}
	if err := p.Add([]narrative.Event{evt("2", "a lamp."), evt("3", "done")}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := outputLines(&buf); len(got) != 1 || got[0] != "  You see a lamp." {
		t.Fatalf("merged run: %q", got)
	}
}

func TestPrinterFollowFlushesOnClose(t *testing.T) {
	var buf bytes.Buffer
	p := newTestPrinter(&buf)
	live := make(chan []narrative.Event, 2)
	live <- []narrative.Event{evt("1", "a")}
	live <- []narrative.Event{evt("2", "b")}
	close(live)

	if err := p.Follow(context.Background(), live); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	got := outputLines(&buf)
	if len(got) != 2 || got[0] != "  a" || got[1] != "  b" {
		t.Fatalf("follow output: %q", got)
	}
}

func TestScrollbackStyledOutputKeepsText(t *testing.T) {
	var buf bytes.Buffer
	sb := NewScrollback(ScrollbackOptions{Writer: &buf, Width: 30})
	if sb.Width() != 30 {
		t.Fatalf("Width() = %d", sb.Width())
	}
	if NewScrollback(ScrollbackOptions{}).Width() != 80 {
		t.Fatalf("default width should be 80")
	}
	cell := newGroupCell(groupOf(evt("x", "hello")), tuirender.LayoutOptions{Theme: tuirender.ThemeByName("dark")})
	if err := sb.AppendCell(cell); err != nil {
		t.Fatalf("AppendCell: %v", err)
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("output missing text: %q", buf.String())
	}
	if cell.ID() != "x" {
		t.Fatalf("cell id = %q", cell.ID())
	}
}

func groupOf(events ...narrative.Event) grouping.RenderGroup {
	return grouping.Group(events, grouping.Options{})[0]
}
