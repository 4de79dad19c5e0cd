package render

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/net/html"

	"narrative-cli/internal/narrative"
)

// Content 是交给渲染器的一段事件内容。
// LinkOffset 让同一分组内多条事件的链接编号连续。
type Content struct {
	Text        string
	Type        narrative.ContentType
	Width       int
	Base        lipgloss.Style
	Stale       bool
	EnableEmoji bool
	LinkOffset  int
}

// Link 是渲染后内容中的一个可打开链接，Index 即显示的 [n]。
// EventID 由布局填写，指向链接所属的事件。
type Link struct {
	Index   int
	URL     string
	Text    string
	EventID string
}

// Rendered 渲染结果。
type Rendered struct {
	Lines []Line
	Links []Link
}

// Renderer 把事件内容转换为终端行。相同输入必须得到相同输出。
type Renderer interface {
	Render(c Content) Rendered
}

// TerminalRenderer 是默认的终端渲染器。
type TerminalRenderer struct {
	Theme Theme
}

// NewTerminalRenderer 创建使用指定主题的渲染器。
func NewTerminalRenderer(theme Theme) TerminalRenderer {
	return TerminalRenderer{Theme: theme}
}

type segment struct {
	text  string
	style lipgloss.Style
	link  int
}

var (
	djotLinkPattern = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	bareURLPattern  = regexp.MustCompile(`https?://[^\s<>"')\]]+`)
)

// Render 实现 Renderer。
func (r TerminalRenderer) Render(c Content) Rendered {
	text := c.Text
	st := &linkState{next: c.LinkOffset, stale: c.Stale, theme: r.Theme}

	var segs []segment
	switch c.Type {
	case narrative.ContentHTML:
		segs = st.fromHTML(text, c.Base)
	case narrative.ContentTraceback:
		segs = []segment{{text: text, style: r.Theme.Error}}
	case narrative.ContentDjot:
		segs = st.fromText(text, c.Base, true)
	default:
		segs = st.fromText(text, c.Base, false)
	}
	if c.EnableEmoji {
		// 只替换普通文本段，链接文字与 URL 保持原样。
		for i := range segs {
			if segs[i].link == 0 {
				segs[i].text = ReplaceEmoji(segs[i].text)
			}
		}
	}
	return Rendered{Lines: wrapSegments(segs, c.Width), Links: st.links}
}

type linkState struct {
	next  int
	stale bool
	theme Theme
	links []Link
}

func (s *linkState) linkStyle() lipgloss.Style {
	if s.stale {
		return s.theme.StaleLink
	}
	return s.theme.Link
}

func (s *linkState) add(label, url string) []segment {
	s.next++
	if strings.TrimSpace(label) == "" {
		label = url
	}
	s.links = append(s.links, Link{Index: s.next, URL: url, Text: label})
	style := s.linkStyle()
	return []segment{
		{text: label, style: style, link: s.next},
		{text: "[" + strconv.Itoa(s.next) + "]", style: style, link: s.next},
	}
}

// fromText 处理 plain/djot：djot 识别 [text](url)，两者都识别裸 URL。
func (s *linkState) fromText(text string, base lipgloss.Style, djot bool) []segment {
	var out []segment
	for text != "" {
		var loc []int
		isDjot := false
		if djot {
			loc = djotLinkPattern.FindStringSubmatchIndex(text)
			isDjot = loc != nil
		}
		if bare := bareURLPattern.FindStringIndex(text); bare != nil && (loc == nil || bare[0] < loc[0]) {
			loc = bare
			isDjot = false
		}
		if loc == nil {
			out = append(out, segment{text: text, style: base})
			break
		}
		if loc[0] > 0 {
			out = append(out, segment{text: text[:loc[0]], style: base})
		}
		if isDjot {
			out = append(out, s.add(text[loc[2]:loc[3]], text[loc[4]:loc[5]])...)
		} else {
			url := text[loc[0]:loc[1]]
			out = append(out, s.add(url, url)...)
		}
		text = text[loc[1]:]
	}
	return out
}

var htmlSpace = strings.NewReplacer("\r", "", "\n", " ", "\t", " ")

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "tr": true,
}

// fromHTML 去掉标签，保留文本、粗体/斜体与 <a href>。
func (s *linkState) fromHTML(src string, base lipgloss.Style) []segment {
	var (
		out      []segment
		bold     int
		italic   int
		pre      int
		href     string
		inLink   bool
		label    strings.Builder
		skipping int
	)
	style := func() lipgloss.Style {
		st := base
		if bold > 0 {
			st = st.Bold(true)
		}
		if italic > 0 {
			st = st.Italic(true)
		}
		return st
	}
	newline := func() {
		if len(out) == 0 {
			return
		}
		if last := out[len(out)-1].text; strings.HasSuffix(last, "\n") {
			return
		}
		out = append(out, segment{text: "\n", style: base})
	}

	z := html.NewTokenizer(strings.NewReader(src))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if inLink {
				out = append(out, s.add(label.String(), href)...)
			}
			return trimTrailingNewline(out)
		case html.TextToken:
			if skipping > 0 {
				continue
			}
			text := string(z.Text())
			if pre == 0 {
				text = htmlSpace.Replace(text)
			}
			if inLink {
				label.WriteString(text)
				continue
			}
			out = append(out, segment{text: text, style: style()})
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			end := tt == html.EndTagToken
			switch tag {
			case "script", "style":
				if end {
					skipping = max(0, skipping-1)
				} else if tt == html.StartTagToken {
					skipping++
				}
			case "b", "strong":
				bold = adjustDepth(bold, end)
			case "i", "em":
				italic = adjustDepth(italic, end)
			case "pre":
				pre = adjustDepth(pre, end)
				newline()
			case "a":
				if end {
					if inLink {
						out = append(out, s.add(label.String(), href)...)
					}
					inLink = false
					href = ""
					label.Reset()
					continue
				}
				href = ""
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					if string(key) == "href" {
						href = string(val)
					}
				}
				inLink = href != ""
			default:
				if blockTags[tag] {
					newline()
				}
			}
		}
	}
}

func adjustDepth(depth int, end bool) int {
	if end {
		return max(0, depth-1)
	}
	return depth + 1
}

func trimTrailingNewline(segs []segment) []segment {
	for len(segs) > 0 && segs[len(segs)-1].text == "\n" {
		segs = segs[:len(segs)-1]
	}
	return segs
}

type word struct {
	spans []Span
	width int
}

// wrapSegments 按词换行并保留每段样式。链接的 label 与 [n] 不会被拆开。
func wrapSegments(segs []segment, width int) []Line {
	var paragraphs [][]word
	current := []word{}
	var pending *word
	// 同一链接的相邻片段合并为一个词
	lastLink := 0
	flushWord := func() {
		if pending != nil && len(pending.spans) > 0 {
			current = append(current, *pending)
		}
		pending = nil
	}
	for _, seg := range segs {
		if seg.link != 0 {
			if pending == nil || lastLink != seg.link {
				flushWord()
				pending = &word{}
			}
			pending.spans = append(pending.spans, Span{Text: seg.text, Style: seg.style})
			pending.width += runewidth.StringWidth(seg.text)
			lastLink = seg.link
			continue
		}
		lastLink = 0
		for i, rawLine := range strings.Split(seg.text, "\n") {
			if i > 0 {
				flushWord()
				paragraphs = append(paragraphs, current)
				current = []word{}
			}
			startsWithSpace := rawLine != "" && (rawLine[0] == ' ' || rawLine[0] == '\t')
			if startsWithSpace {
				flushWord()
			}
			fields := strings.Fields(rawLine)
			for j, f := range fields {
				if j > 0 {
					flushWord()
				}
				if pending == nil {
					pending = &word{}
				}
				pending.spans = append(pending.spans, Span{Text: f, Style: seg.style})
				pending.width += runewidth.StringWidth(f)
			}
			if len(fields) > 0 && strings.TrimRight(rawLine, " \t") != rawLine {
				flushWord()
			}
		}
	}
	flushWord()
	paragraphs = append(paragraphs, current)

	var lines []Line
	for _, words := range paragraphs {
		lines = append(lines, fillWords(words, width)...)
	}
	if len(lines) == 0 {
		lines = append(lines, Line{})
	}
	return lines
}

func fillWords(words []word, width int) []Line {
	if len(words) == 0 {
		return []Line{{}}
	}
	var (
		out  []Line
		cur  []Span
		curW int
	)
	for _, w := range words {
		if len(cur) > 0 && width > 0 && curW+1+w.width > width {
			out = append(out, Line{Spans: cur})
			cur, curW = nil, 0
		}
		if len(cur) > 0 {
			cur = append(cur, Span{Text: " "})
			curW++
		}
		if width > 0 && w.width > width && len(w.spans) == 1 {
			pieces := breakLongWord(w.spans[0].Text, width)
			for i, p := range pieces {
				if i == len(pieces)-1 {
					cur = append(cur, Span{Text: p, Style: w.spans[0].Style})
					curW = runewidth.StringWidth(p)
					break
				}
				cur = append(cur, Span{Text: p, Style: w.spans[0].Style})
				out = append(out, Line{Spans: cur})
				cur = nil
			}
			continue
		}
		cur = append(cur, w.spans...)
		curW += w.width
	}
	if len(cur) > 0 {
		out = append(out, Line{Spans: cur})
	}
	return out
}

var emojiTable = map[string]string{
	":smile:":    "😄",
	":grin:":     "😁",
	":wink:":     "😉",
	":heart:":    "❤️",
	":thumbsup:": "👍",
	":wave:":     "👋",
	":fire:":     "🔥",
	":star:":     "⭐",
	":sparkles:": "✨",
	":tada:":     "🎉",
	":sad:":      "😢",
	":laugh:":    "😂",
}

var emojiPattern = regexp.MustCompile(`:[a-z_]+:`)

// ReplaceEmoji 替换已知的 :shortcode:，未知的保持原样。
func ReplaceEmoji(text string) string {
	if !strings.Contains(text, ":") {
		return text
	}
	return emojiPattern.ReplaceAllStringFunc(text, func(code string) string {
		if e, ok := emojiTable[code]; ok {
			return e
		}
		return code
	})
}
