package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/browser"

	"narrative-cli/internal/collapse"
	"narrative-cli/internal/events"
	"narrative-cli/internal/grouping"
	"narrative-cli/internal/logger"
	"narrative-cli/internal/narrative"
	"narrative-cli/internal/staleness"
	"narrative-cli/internal/tui/render"
	follow "narrative-cli/internal/viewport"
)

var log = logger.Named("tui")

// HistorySource 提供更早的一页事件，*history.Pager 满足该接口。
type HistorySource interface {
	Older() []narrative.Event
	Exhausted() bool
}

// Display 汇总与渲染相关的功能开关。
type Display struct {
	SpeechBubbles bool
	Emoji         bool
	Divider       bool
	LinkPreviews  bool
}

type Options struct {
	Initial  []narrative.Event
	History  HistorySource
	Live     <-chan []narrative.Event
	Collapse *collapse.Store
	Tracker  *staleness.Tracker
	Bus      *events.Bus
	Theme    render.Theme
	Display  Display
	Follow   follow.Config
	Title    string

	// OpenURL 与 Copy 默认分别使用系统浏览器与剪贴板。
	OpenURL func(url string) error
	Copy    func(text string) error
}

type historyPageMsg struct {
	Events    []narrative.Event
	Exhausted bool
}

type liveBatchMsg struct {
	Events []narrative.Event
}

type busEventMsg struct {
	Event any
}

type statusMsg struct {
	Text string
	Err  error
}

type Model struct {
	opts     Options
	theme    render.Theme
	renderer render.Renderer

	events []narrative.Event
	seen   map[string]struct{}
	groups []grouping.RenderGroup
	layout render.Layout

	viewport render.Viewport
	ctl      *follow.Controller
	collapse *collapse.Store
	tracker  *staleness.Tracker
	busSub   <-chan any

	// focusKey 是焦点组首个事件的 id，前插历史后据此恢复焦点。
	focusKey string
	focus    int

	historyInFlight bool
	exhausted       bool

	search   *searchState
	spin     spinner.Model
	showHelp bool
	status   string
	err      error
	width    int
	height   int
}

func New(opts Options) *Model {
	if opts.Theme.Name == "" {
		opts.Theme = render.ThemeByName("dark")
	}
	if opts.OpenURL == nil {
		opts.OpenURL = browser.OpenURL
	}
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}
	store := opts.Collapse
	if store == nil {
		store = collapse.New(nil)
	}
	tracker := opts.Tracker
	if tracker == nil {
		tracker = staleness.New(staleness.PolicyInteracted)
	}
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	m := &Model{
		opts:     opts,
		theme:    opts.Theme,
		renderer: render.NewTerminalRenderer(opts.Theme),
		seen:     make(map[string]struct{}),
		viewport: render.NewViewport(80, 23),
		ctl:      follow.New(opts.Follow),
		collapse: store,
		tracker:  tracker,
		focus:    -1,
		search:   newSearchState(),
		spin:     spin,
		width:    80,
		height:   24,
	}
	if opts.History == nil {
		m.exhausted = true
		m.ctl.SetHistoryExhausted(true)
	}
	if opts.Bus != nil {
		m.busSub = opts.Bus.Subscribe()
	}
	m.appendEvents(opts.Initial)
	m.relayout()
	m.ctl.OnResize(m.viewport.Height)
	m.apply(m.ctl.OnContentGrew(m.layout.Height()))
	return m
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick}
	cmds = append(cmds, m.listen()...)
	return tea.Batch(cmds...)
}

func (m *Model) listen() []tea.Cmd {
	cmds := []tea.Cmd{}
	if cmd := m.listenLive(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if cmd := m.listenBus(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return cmds
}

func (m *Model) listenLive() tea.Cmd {
	if m.opts.Live == nil {
		return nil
	}
	ch := m.opts.Live
	return func() tea.Msg {
		batch, ok := <-ch
		if !ok {
			return nil
		}
		return liveBatchMsg{Events: batch}
	}
}

func (m *Model) listenBus() tea.Cmd {
	if m.busSub == nil {
		return nil
	}
	ch := m.busSub
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return nil
		}
		return busEventMsg{Event: evt}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		cmds = append(cmds, m.afterScroll())
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
	case historyPageMsg:
		m.prependHistory(msg)
	case liveBatchMsg:
		m.appendLive(msg.Events)
		cmds = append(cmds, m.listenLive())
	case busEventMsg:
		if m.tracker.Handle(msg.Event) {
			m.relayout()
		}
		cmds = append(cmds, m.listenBus())
	case statusMsg:
		m.status = msg.Text
		m.err = msg.Err
	case tea.MouseMsg:
		cmds = append(cmds, m.viewport.HandleUpdate(msg), m.afterScroll())
	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.search.IsOpen() {
		group, done, cmd := m.search.HandleKey(msg)
		if done && group >= 0 {
			m.setFocus(group)
			m.revealFocus()
			return tea.Batch(cmd, m.afterScroll())
		}
		return cmd
	}
	if m.showHelp {
		m.showHelp = false
		return nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return tea.Quit
	case "?":
		m.showHelp = true
		return nil
	case "up", "k":
		m.viewport.ScrollLines(-1)
		return m.afterScroll()
	case "down", "j":
		m.viewport.ScrollLines(1)
		return m.afterScroll()
	case "pgup", "b":
		m.viewport.ScrollPageUp()
		return m.afterScroll()
	case "pgdown", "f", " ":
		if msg.String() == " " && m.toggleFocused() {
			return nil
		}
		m.viewport.ScrollPageDown()
		return m.afterScroll()
	case "home", "g":
		m.viewport.GotoTop()
		return m.afterScroll()
	case "end", "G":
		m.jumpToNow()
		return nil
	case "tab":
		m.moveFocus(1)
		return m.afterScroll()
	case "shift+tab":
		m.moveFocus(-1)
		return m.afterScroll()
	case "enter":
		m.toggleFocused()
		return nil
	case "y":
		return m.copyFocused()
	case "/":
		return m.search.Open(m.searchEntries())
	case "esc":
		m.setFocus(-1)
		m.relayout()
		return nil
	}
	if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= 9 {
		return m.openLink(n)
	}
	return nil
}

// afterScroll 把当前滚动位置交给控制器，需要时发起历史请求。
func (m *Model) afterScroll() tea.Cmd {
	act := m.ctl.OnScrollSample(m.viewport.Sample(), m.historyInFlight)
	m.apply(act)
	if !act.LoadHistory || m.opts.History == nil {
		return nil
	}
	m.historyInFlight = true
	src := m.opts.History
	return func() tea.Msg {
		page := src.Older()
		return historyPageMsg{Events: page, Exhausted: src.Exhausted()}
	}
}

func (m *Model) apply(act follow.Action) {
	m.viewport.Apply(act)
}

func (m *Model) jumpToNow() {
	m.ctl.OnContentGrew(m.layout.Height())
	m.apply(m.ctl.JumpToNow())
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	viewHeight := max(1, height-1)
	m.viewport.Resize(width, viewHeight)
	m.relayout()
	m.ctl.OnContentGrew(m.layout.Height())
	m.apply(m.ctl.OnResize(viewHeight))
}

// appendEvents 追加事件并跳过已存在的 id，返回实际新增数量。
func (m *Model) appendEvents(batch []narrative.Event) int {
	added := 0
	for _, e := range batch {
		if _, dup := m.seen[e.ID]; dup {
			log.WithField("event_id", e.ID).Debug("skip duplicate event")
			continue
		}
		m.seen[e.ID] = struct{}{}
		m.events = append(m.events, e)
		added++
	}
	return added
}

func (m *Model) appendLive(batch []narrative.Event) {
	added := m.appendEvents(batch)
	if added == 0 {
		return
	}
	m.relayout()
	m.apply(m.ctl.OnContentGrew(m.layout.Height()))
	if m.opts.Bus != nil {
		m.opts.Bus.Publish(events.LiveEventsArrived{Count: added})
	}
}

// prependHistory 前插一页历史，并以原首个事件为锚点保持可见内容不动。
func (m *Model) prependHistory(msg historyPageMsg) {
	m.historyInFlight = false
	if msg.Exhausted {
		m.exhausted = true
		m.ctl.SetHistoryExhausted(true)
	}
	older := make([]narrative.Event, 0, len(msg.Events))
	for _, e := range msg.Events {
		if _, dup := m.seen[e.ID]; dup {
			continue
		}
		m.seen[e.ID] = struct{}{}
		older = append(older, e)
	}
	if len(older) == 0 {
		return
	}

	anchor := ""
	before := 0
	if len(m.events) > 0 {
		anchor = m.events[0].ID
		before, _ = m.layout.LineOf(anchor)
	}
	oldHeight := m.layout.Height()
	m.events = append(older, m.events...)
	m.relayout()

	delta := m.layout.Height() - oldHeight
	if anchor != "" {
		if after, ok := m.layout.LineOf(anchor); ok {
			delta = after - before
		}
	}
	m.apply(m.ctl.OnHistoryPrepended(delta))
	log.WithField("count", len(older)).WithField("delta", delta).Debug("history page prepended")
	if m.opts.Bus != nil {
		m.opts.Bus.Publish(events.HistoryLoaded{Count: len(older), Exhausted: m.exhausted})
	}
}

// relayout 重新分组并排版；分组是纯函数，每次从完整事件列表重算。
func (m *Model) relayout() {
	m.groups = grouping.Group(m.events, grouping.Options{
		ShowDivider:   m.opts.Display.Divider,
		SpeechBubbles: m.opts.Display.SpeechBubbles && !m.theme.SuppressBubbles,
		Collapsed:     m.collapse.IsCollapsed,
		Stale:         m.tracker.EventStale,
	})
	m.focus = -1
	if m.focusKey != "" {
		m.focus = grouping.IndexOf(m.groups, m.focusKey)
		if m.focus < 0 {
			m.focusKey = ""
		}
	}
	m.layout = render.BuildLayout(m.groups, render.LayoutOptions{
		Width:        m.viewport.Width,
		Theme:        m.theme,
		Renderer:     m.renderer,
		Emoji:        m.opts.Display.Emoji,
		LinkPreviews: m.opts.Display.LinkPreviews,
		Focus:        m.focus,
	})
	lines := m.layout.Strings()
	if len(lines) == 0 {
		lines = []string{m.emptyText()}
	}
	m.viewport.SetLines(lines)
}

func (m *Model) emptyText() string {
	return m.theme.Hint.Render("  waiting for narrative events…")
}

func (m *Model) setFocus(group int) {
	if group < 0 || group >= len(m.groups) {
		m.focusKey = ""
		m.focus = -1
		return
	}
	m.focusKey = m.groups[group].First().ID
}

// moveFocus 在组之间移动焦点；无焦点时从视口内的第一个或最后一个组开始。
func (m *Model) moveFocus(step int) {
	if len(m.groups) == 0 {
		return
	}
	next := m.focus
	if next < 0 {
		top := m.layout.GroupAt(m.viewport.YOffset)
		bottom := m.layout.GroupAt(m.viewport.YOffset + m.viewport.Height - 1)
		switch {
		case step > 0 && top >= 0:
			next = top
		case step < 0 && bottom >= 0:
			next = bottom
		case step > 0:
			next = 0
		default:
			next = len(m.groups) - 1
		}
	} else {
		next = (next + step + len(m.groups)) % len(m.groups)
	}
	m.setFocus(next)
	m.revealFocus()
}

// revealFocus 滚动使焦点组完整可见。
func (m *Model) revealFocus() {
	m.relayout()
	if m.focus < 0 {
		return
	}
	start := m.layout.GroupStart[m.focus]
	end := start + m.layout.GroupHeight[m.focus]
	switch {
	case start < m.viewport.YOffset:
		m.viewport.SetYOffset(start)
	case end > m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(max(start, end-m.viewport.Height))
	}
}

func (m *Model) focusedGroup() (grouping.RenderGroup, bool) {
	if m.focus < 0 || m.focus >= len(m.groups) {
		return grouping.RenderGroup{}, false
	}
	return m.groups[m.focus], true
}

// toggleFocused 切换焦点组的折叠状态，焦点组不可折叠时返回 false。
func (m *Model) toggleFocused() bool {
	g, ok := m.focusedGroup()
	if !ok || !g.Collapsible {
		return false
	}
	m.collapse.Toggle(g.CollapseKey)
	m.relayout()
	m.apply(m.ctl.OnContentGrew(m.layout.Height()))
	return true
}

func (m *Model) openLink(n int) tea.Cmd {
	if m.focus < 0 {
		m.status = "focus a message with Tab to open its links"
		return nil
	}
	for _, link := range m.layout.Links[m.focus] {
		if link.Index != n {
			continue
		}
		// 总线可能丢弃消息，标记必须在本地完成；MarkStale 幂等。
		m.tracker.MarkStale(link.EventID)
		m.relayout()
		if m.opts.Bus != nil {
			m.opts.Bus.Publish(events.LinkClicked{EventID: link.EventID, URL: link.URL})
		}
		open := m.opts.OpenURL
		url := link.URL
		return func() tea.Msg {
			if err := open(url); err != nil {
				return statusMsg{Err: fmt.Errorf("open %s: %w", url, err)}
			}
			return statusMsg{Text: "opened " + url}
		}
	}
	m.status = fmt.Sprintf("no link [%d] in this message", n)
	return nil
}

func (m *Model) focusedText() string {
	if m.focus < 0 {
		return ""
	}
	start := m.layout.GroupStart[m.focus]
	end := start + m.layout.GroupHeight[m.focus]
	return strings.Join(stripGutter(render.LinesToPlainStrings(m.layout.Lines[start:end])), "\n")
}

func (m *Model) copyFocused() tea.Cmd {
	text := m.focusedText()
	if text == "" {
		m.status = "nothing focused to copy"
		return nil
	}
	copyFn := m.opts.Copy
	return func() tea.Msg {
		if err := copyFn(text); err != nil {
			return statusMsg{Err: fmt.Errorf("copy: %w", err)}
		}
		return statusMsg{Text: "copied to clipboard"}
	}
}

func (m *Model) searchEntries() []searchEntry {
	entries := make([]searchEntry, 0, len(m.groups))
	for i := range m.groups {
		start := m.layout.GroupStart[i]
		end := start + m.layout.GroupHeight[i]
		text := strings.Join(stripGutter(render.LinesToPlainStrings(m.layout.Lines[start:end])), " ")
		entries = append(entries, searchEntry{Group: i, Text: strings.TrimSpace(text)})
	}
	return entries
}

func stripGutter(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		l = strings.TrimPrefix(l, "▎ ")
		out[i] = strings.TrimPrefix(l, "  ")
	}
	return out
}

// Stats 返回事件数与陈旧事件数。
func (m *Model) Stats() (total, stale int) {
	for _, e := range m.events {
		if m.tracker.EventStale(e) {
			stale++
		}
	}
	return len(m.events), stale
}

func (m *Model) View() string {
	body := m.viewport.View()
	status := m.statusLine()
	content := lipgloss.JoinVertical(lipgloss.Left, body, status)
	switch {
	case m.search.IsOpen():
		return lipgloss.JoinVertical(lipgloss.Left, content, modalStyle.Render(m.search.View(m.width-4)))
	case m.showHelp:
		return lipgloss.JoinVertical(lipgloss.Left, content, modalStyle.Render(helpText))
	}
	return content
}

var modalStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	Padding(0, 1).
	BorderForeground(lipgloss.Color("#FFB454"))

const helpText = `快捷键
↑/↓ j/k 滚动 • PgUp/PgDn 翻页 • Home 顶部 • End/G 回到最新
Tab/Shift+Tab 切换焦点 • Enter/Space 折叠 • 1-9 打开链接 • y 复制
/ 搜索 • Esc 取消焦点 • q 退出 • 任意键关闭帮助`
