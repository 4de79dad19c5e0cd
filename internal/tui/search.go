package tui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"
)

var (
	searchSelectedStyle  = lipgloss.NewStyle().Background(lipgloss.Color("#2F2A3D"))
	searchHighlightStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EBCB8B"))
	searchEmptyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
)

// searchEntry 是一个可检索的组，Text 为去样式后的组文本。
type searchEntry struct {
	Group int
	Text  string
}

type searchMatch struct {
	entry      searchEntry
	highlights []int
	score      int
}

// searchState 维护 "/" 检索弹窗：输入框、模糊匹配结果与选中项。
type searchState struct {
	input    textinput.Model
	entries  []searchEntry
	matches  []searchMatch
	selected int
	open     bool
	maxLines int
}

func newSearchState() *searchState {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "search transcript"
	ti.CharLimit = 200
	return &searchState{input: ti, maxLines: 8}
}

// Open 打开弹窗并替换检索条目。
func (s *searchState) Open(entries []searchEntry) tea.Cmd {
	s.entries = entries
	s.open = true
	s.selected = 0
	s.input.SetValue("")
	s.refilter()
	return s.input.Focus()
}

func (s *searchState) Close() {
	s.open = false
	s.matches = nil
	s.input.Blur()
}

func (s *searchState) IsOpen() bool { return s != nil && s.open }

// Selected 返回当前选中组的下标。
func (s *searchState) Selected() (int, bool) {
	if s == nil || len(s.matches) == 0 {
		return -1, false
	}
	return s.matches[s.selected].entry.Group, true
}

// HandleKey 处理弹窗内按键。done 为真表示用户确认或取消，弹窗已关闭。
func (s *searchState) HandleKey(msg tea.KeyMsg) (group int, done bool, cmd tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		s.Close()
		return -1, true, nil
	case "enter":
		group, ok := s.Selected()
		s.Close()
		if !ok {
			return -1, true, nil
		}
		return group, true, nil
	case "up", "ctrl+p":
		if len(s.matches) > 0 {
			s.selected = (s.selected - 1 + len(s.matches)) % len(s.matches)
		}
		return -1, false, nil
	case "down", "ctrl+n", "tab":
		if len(s.matches) > 0 {
			s.selected = (s.selected + 1) % len(s.matches)
		}
		return -1, false, nil
	}
	before := s.input.Value()
	s.input, cmd = s.input.Update(msg)
	if s.input.Value() != before {
		s.refilter()
	}
	return -1, false, cmd
}

// refilter 空查询时按时间倒序列出全部组，否则按模糊匹配得分排序。
func (s *searchState) refilter() {
	query := strings.TrimSpace(s.input.Value())
	s.selected = 0
	if query == "" {
		s.matches = make([]searchMatch, 0, len(s.entries))
		for i := len(s.entries) - 1; i >= 0; i-- {
			s.matches = append(s.matches, searchMatch{entry: s.entries[i]})
		}
		return
	}
	keys := make([]string, len(s.entries))
	for i, e := range s.entries {
		keys[i] = strings.ToLower(e.Text)
	}
	results := fuzzy.Find(strings.ToLower(query), keys)
	s.matches = make([]searchMatch, 0, len(results))
	for _, res := range results {
		s.matches = append(s.matches, searchMatch{
			entry:      s.entries[res.Index],
			highlights: res.MatchedIndexes,
			score:      res.Score,
		})
	}
	sort.SliceStable(s.matches, func(i, j int) bool {
		if s.matches[i].score == s.matches[j].score {
			return s.matches[i].entry.Group > s.matches[j].entry.Group
		}
		return s.matches[i].score > s.matches[j].score
	})
}

// View 渲染弹窗内容（不含外围边框）。
func (s *searchState) View(width int) string {
	if s == nil || !s.open {
		return ""
	}
	contentWidth := max(20, width)
	lines := []string{s.input.View()}
	if len(s.matches) == 0 {
		lines = append(lines, searchEmptyStyle.Render("no matches"))
		return strings.Join(lines, "\n")
	}
	start := 0
	if s.selected >= s.maxLines {
		start = s.selected - s.maxLines + 1
	}
	end := min(len(s.matches), start+s.maxLines)
	for i := start; i < end; i++ {
		line := highlightMatch(s.matches[i], contentWidth)
		if i == s.selected {
			line = searchSelectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func highlightMatch(m searchMatch, width int) string {
	marks := make(map[int]bool, len(m.highlights))
	for _, idx := range m.highlights {
		marks[idx] = true
	}
	var b strings.Builder
	w := 0
	// MatchedIndexes 是字节下标，ToLower 对 ASCII 不改变长度。
	for i, r := range m.entry.Text {
		rw := runewidth.RuneWidth(r)
		if w+rw > width {
			b.WriteString("…")
			break
		}
		if r == '\n' {
			r = ' '
		}
		if marks[i] {
			b.WriteString(searchHighlightStyle.Render(string(r)))
		} else {
			b.WriteRune(r)
		}
		w += rw
	}
	return b.String()
}
