package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"narrative-cli/internal/tui/render"
	follow "narrative-cli/internal/viewport"
)

var (
	statusMuted  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D7A85"))
	statusJump   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F2C94C"))
	statusError  = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
	statusFollow = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
)

// statusLine 绘制底部状态行：跟随状态、回到最新提示、历史加载 spinner 与临时消息。
func (m *Model) statusLine() string {
	spans := []render.Span{}
	if m.ctl.State() == follow.Following {
		spans = append(spans, render.Span{Text: "● following", Style: statusFollow})
	} else {
		spans = append(spans, render.Span{Text: "‖ browsing", Style: statusMuted})
	}
	if m.ctl.ShowJumpToNow() {
		spans = append(spans, render.Span{Text: " • "}, render.Span{Text: "↓ jump to now (End)", Style: statusJump})
	}
	switch {
	case m.historyInFlight:
		spans = append(spans, render.Span{Text: " • "}, render.Span{Text: m.spin.View() + "loading history…", Style: statusMuted})
	case m.exhausted && m.viewport.YOffset == 0 && len(m.events) > 0:
		spans = append(spans, render.Span{Text: " • "}, render.Span{Text: "beginning of history", Style: statusMuted})
	}
	switch {
	case m.err != nil:
		spans = append(spans, render.Span{Text: " • "}, render.Span{Text: m.err.Error(), Style: statusError})
	case m.status != "":
		spans = append(spans, render.Span{Text: " • "}, render.Span{Text: m.status, Style: statusMuted})
	}
	total, stale := m.Stats()
	spans = append(spans, render.Span{Text: " • "}, render.Span{Text: fmt.Sprintf("%d events, %d stale", total, stale), Style: statusMuted})
	if m.opts.Title != "" {
		spans = append(spans, render.Span{Text: " • "}, render.Span{Text: m.opts.Title, Style: statusMuted})
	}
	line := render.Line{Spans: clampSpans(spans, max(20, m.width))}
	return render.LinesToStrings([]render.Line{line})[0]
}

func clampSpans(spans []render.Span, width int) []render.Span {
	if width <= 0 {
		return nil
	}
	remaining := width
	out := make([]render.Span, 0, len(spans))
	for _, sp := range spans {
		if remaining <= 0 {
			break
		}
		tw := runewidth.StringWidth(sp.Text)
		if tw <= remaining {
			out = append(out, sp)
			remaining -= tw
			continue
		}
		text := truncateToWidth(sp.Text, remaining)
		if text != "" {
			sp.Text = text
			out = append(out, sp)
			remaining = 0
		}
	}
	return out
}

func truncateToWidth(text string, width int) string {
	if width <= 0 {
		return ""
	}
	w := 0
	out := make([]rune, 0, len(text))
	for _, r := range text {
		rw := runewidth.RuneWidth(r)
		if w+rw > width {
			break
		}
		out = append(out, r)
		w += rw
	}
	return string(out)
}
