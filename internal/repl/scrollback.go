package repl

import (
	"fmt"
	"io"
	"os"

	tuirender "narrative-cli/internal/tui/render"
)

// Scrollback 是只追加的输出区：一旦组已闭合，就作为不可变的 block
// 写入终端的自然滚动缓冲（或任意 io.Writer）。
//
// 注意：这里的 Scrollback 只负责“输出策略”，不负责持久化历史。
type Scrollback struct {
	w     io.Writer
	width int
	plain bool
}

type ScrollbackOptions struct {
	Writer io.Writer
	Width  int
	// Plain 去掉 ANSI 样式，适合重定向到文件。
	Plain bool
}

func NewScrollback(opts ScrollbackOptions) *Scrollback {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	width := opts.Width
	if width <= 0 {
		width = 80
	}
	return &Scrollback{w: w, width: width, plain: opts.Plain}
}

func (s *Scrollback) Width() int {
	if s == nil {
		return 0
	}
	return s.width
}

// AppendCell 将一个已闭合的 HistoryCell 写入 scrollback。
func (s *Scrollback) AppendCell(cell HistoryCell) error {
	if s == nil || cell == nil || s.w == nil {
		return nil
	}
	lines := cell.Render(s.width)
	var out []string
	if s.plain {
		out = tuirender.LinesToPlainStrings(lines)
	} else {
		out = tuirender.LinesToStrings(lines)
	}
	for _, line := range out {
		if _, err := fmt.Fprintln(s.w, line); err != nil {
			return err
		}
	}
	return nil
}
