package render

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"narrative-cli/internal/grouping"
	"narrative-cli/internal/narrative"
)

// DividerLabel 是历史与实时事件之间的分隔线文字。
const DividerLabel = " reconnected "

const gutterWidth = 2

// LayoutOptions 控制一次布局。
type LayoutOptions struct {
	Width        int
	Theme        Theme
	Renderer     Renderer
	Emoji        bool
	LinkPreviews bool
	// Focus 是获得焦点的组下标，-1 表示没有焦点。
	Focus int
}

// Layout 是分组列表的终端排版结果，行号均从 0 开始。
type Layout struct {
	Lines       []Line
	GroupStart  []int
	GroupHeight []int
	Links       [][]Link
	eventLine   map[string]int
}

// Height returns the total number of rendered lines.
func (l Layout) Height() int { return len(l.Lines) }

// LineOf 返回事件所在的首行。折叠或合并的事件返回其组的首行。
func (l Layout) LineOf(eventID string) (int, bool) {
	line, ok := l.eventLine[eventID]
	return line, ok
}

// GroupAt 返回包含指定行的组下标，分隔线或越界时返回 -1。
func (l Layout) GroupAt(line int) int {
	for i, start := range l.GroupStart {
		if line >= start && line < start+l.GroupHeight[i] {
			return i
		}
	}
	return -1
}

// Strings 输出带样式的行。
func (l Layout) Strings() []string { return LinesToStrings(l.Lines) }

// BuildLayout 按顺序排版所有组。
func BuildLayout(groups []grouping.RenderGroup, opts LayoutOptions) Layout {
	if opts.Renderer == nil {
		opts.Renderer = NewTerminalRenderer(opts.Theme)
	}
	out := Layout{
		GroupStart:  make([]int, len(groups)),
		GroupHeight: make([]int, len(groups)),
		Links:       make([][]Link, len(groups)),
		eventLine:   make(map[string]int),
	}
	inner := opts.Width - gutterWidth
	if opts.Width <= 0 {
		inner = 0
	} else if inner < 1 {
		inner = 1
	}
	for i, g := range groups {
		if g.DividerBefore {
			out.Lines = append(out.Lines, dividerLine(opts.Width, opts.Theme))
		}
		gl := &groupLayout{opts: opts, width: inner, start: len(out.Lines), events: out.eventLine}
		gl.render(g)
		out.GroupStart[i] = gl.start
		out.GroupHeight[i] = len(gl.lines)
		out.Links[i] = gl.links

		gutter := Span{Text: strings.Repeat(" ", gutterWidth)}
		if i == opts.Focus {
			gutter = Span{Text: "▎ ", Style: opts.Theme.Focus}
		}
		out.Lines = append(out.Lines, PrefixLines(gl.lines, gutter, gutter)...)
	}
	return out
}

func dividerLine(width int, theme Theme) Line {
	label := DividerLabel
	if width <= 0 {
		width = 40
	}
	side := (width - runewidth.StringWidth(label)) / 2
	if side < 2 {
		side = 2
	}
	text := strings.Repeat("─", side) + label + strings.Repeat("─", side)
	return Line{Spans: []Span{{Text: text, Style: theme.Divider}}}
}

type groupLayout struct {
	opts   LayoutOptions
	width  int
	start  int
	lines  []Line
	links  []Link
	events map[string]int
}

func (gl *groupLayout) mark(id string) {
	if _, seen := gl.events[id]; !seen {
		gl.events[id] = gl.start + len(gl.lines)
	}
}

func (gl *groupLayout) content(eventID, text string, ct narrative.ContentType, base lipgloss.Style, width int, stale, emoji bool) []Line {
	res := gl.opts.Renderer.Render(Content{
		Text:        text,
		Type:        ct,
		Width:       width,
		Base:        base,
		Stale:       stale,
		EnableEmoji: gl.opts.Emoji && emoji,
		LinkOffset:  len(gl.links),
	})
	for _, l := range res.Links {
		l.EventID = eventID
		gl.links = append(gl.links, l)
	}
	return trimBlankTail(res.Lines)
}

func (gl *groupLayout) render(g grouping.RenderGroup) {
	switch {
	case g.Kind == grouping.KindNoNewlineRun && g.Merged != nil:
		for _, e := range g.Events {
			gl.mark(e.ID)
		}
		first := g.First()
		gl.lines = append(gl.lines, gl.content(first.ID, g.Merged.Content, g.Merged.ContentType, gl.kindStyle(first), gl.width, g.Stale, emojiAllowed(first))...)
		gl.preview(g.Merged.LinkPreview)
	case g.Bubble != nil:
		gl.bubble(g)
	case g.Kind == grouping.KindHintGroup && g.Hint == narrative.HintInset:
		gl.inset(g)
	default:
		for _, e := range g.Events {
			gl.event(e, g.Hint, g.Stale)
		}
	}
}

// emojiAllowed 带 metadata 的事件由服务器决定是否替换表情。
func emojiAllowed(e narrative.Event) bool {
	return e.Metadata == nil || e.Metadata.EnableEmojis
}

func (gl *groupLayout) kindStyle(e narrative.Event) lipgloss.Style {
	t := gl.opts.Theme
	switch e.Kind {
	case narrative.KindSystem:
		return t.System
	case narrative.KindError:
		return t.Error
	case narrative.KindInputEcho:
		return t.Echo
	default:
		return t.Text
	}
}

func (gl *groupLayout) hintStyle(hint string, e narrative.Event) lipgloss.Style {
	switch hint {
	case narrative.HintProcessing:
		return gl.opts.Theme.Hint
	case narrative.HintExpired:
		return gl.opts.Theme.Expired
	default:
		return gl.kindStyle(e)
	}
}

func (gl *groupLayout) event(e narrative.Event, hint string, stale bool) {
	gl.mark(e.ID)
	base := gl.hintStyle(hint, e)
	width := gl.width
	var prefix *Span
	if e.Kind == narrative.KindInputEcho {
		prefix = &Span{Text: "› ", Style: gl.opts.Theme.Echo}
		width = max(1, width-2)
	}
	lines := gl.content(e.ID, e.Text(), e.ContentType, base, width, stale, emojiAllowed(e))
	if prefix != nil {
		lines = PrefixLines(lines, *prefix, Span{Text: "  "})
	}
	gl.lines = append(gl.lines, lines...)
	gl.preview(e.LinkPreview)
}

func (gl *groupLayout) preview(p *narrative.LinkPreview) {
	if !gl.opts.LinkPreviews || p == nil || p.URL == "" {
		return
	}
	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = p.URL
	}
	text := "↳ " + title
	if title != p.URL {
		text += " (" + p.URL + ")"
	}
	for _, s := range wrapText(text, gl.width) {
		gl.lines = append(gl.lines, Line{Spans: []Span{{Text: s, Style: gl.opts.Theme.Preview}}})
	}
	if desc := strings.TrimSpace(p.Description); desc != "" {
		for _, s := range wrapText(desc, max(1, gl.width-2)) {
			gl.lines = append(gl.lines, Line{Spans: []Span{{Text: "  " + s, Style: gl.opts.Theme.Preview}}})
		}
	}
}

// inset 渲染 inset 组；look 组带标题与折叠标记。
func (gl *groupLayout) inset(g grouping.RenderGroup) {
	t := gl.opts.Theme
	if g.Collapsible {
		marker := "▾ "
		if g.Collapsed {
			marker = "▸ "
		}
		head := []Span{{Text: marker + g.Title, Style: t.InsetHead}}
		if g.Collapsed {
			head = append(head, Span{Text: " (" + strconv.Itoa(len(g.Events)) + " hidden)", Style: t.Hint})
			for _, e := range g.Events {
				gl.mark(e.ID)
			}
			gl.lines = append(gl.lines, Line{Spans: head})
			return
		}
		gl.mark(g.First().ID)
		gl.lines = append(gl.lines, Line{Spans: head})
	}
	bar := Span{Text: "│ ", Style: t.Inset}
	for _, e := range g.Events {
		gl.mark(e.ID)
		lines := gl.content(e.ID, e.Text(), e.ContentType, gl.kindStyle(e), max(1, gl.width-2), g.Stale, emojiAllowed(e))
		gl.lines = append(gl.lines, PrefixLines(lines, bar, bar)...)
		gl.preview(e.LinkPreview)
	}
}

// bubble 绘制圆角气泡框，标题为说话人名字。
func (gl *groupLayout) bubble(g grouping.RenderGroup) {
	for _, e := range g.Events {
		gl.mark(e.ID)
	}
	t := gl.opts.Theme
	b := g.Bubble
	innerWidth := max(1, gl.width-4)
	body := gl.content(g.First().ID, b.Content, narrative.ContentPlain, t.Text, innerWidth, g.Stale, b.EnableEmojis)

	bodyWidth := 0
	for _, l := range body {
		bodyWidth = max(bodyWidth, lineWidth(l))
	}
	name := strings.TrimSpace(b.ActorName)
	if name == "" {
		name = b.Actor.String()
	}
	titleWidth := runewidth.StringWidth(name) + 2
	boxInner := min(max(bodyWidth, titleWidth+1), innerWidth)

	top := []Span{
		{Text: "╭─", Style: t.Bubble},
		{Text: " " + runewidth.Truncate(name, max(1, boxInner-2), "…") + " ", Style: t.Speaker},
	}
	used := 1 + runewidth.StringWidth(top[1].Text)
	top = append(top, Span{Text: strings.Repeat("─", max(0, boxInner+2-used)) + "╮", Style: t.Bubble})
	gl.lines = append(gl.lines, Line{Spans: top})

	for _, l := range body {
		spans := []Span{{Text: "│ ", Style: t.Bubble}}
		spans = append(spans, l.Spans...)
		spans = append(spans, Span{Text: strings.Repeat(" ", max(0, boxInner-lineWidth(l))) + " │", Style: t.Bubble})
		gl.lines = append(gl.lines, Line{Spans: spans})
	}
	gl.lines = append(gl.lines, Line{Spans: []Span{{Text: "╰" + strings.Repeat("─", boxInner+2) + "╯", Style: t.Bubble}}})
}

func trimBlankTail(lines []Line) []Line {
	for len(lines) > 1 && IsBlankLineSpacesOnly(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func lineWidth(l Line) int {
	w := 0
	for _, sp := range l.Spans {
		w += runewidth.StringWidth(sp.Text)
	}
	return w
}
