package render

import (
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	follow "narrative-cli/internal/viewport"
)

// Viewport 包装 bubbles viewport。与普通视口不同，SetLines 不会自动贴底，
// 贴底与否完全由 follow.Controller 的 Action 决定。
type Viewport struct {
	viewport.Model
	lastLines []string
}

// NewViewport 创建视口。
func NewViewport(width, height int) Viewport {
	vp := viewport.New(width, height)
	return Viewport{Model: vp}
}

// Resize 更新宽高，返回高度是否变化。
func (v *Viewport) Resize(width, height int) bool {
	if v == nil {
		return false
	}
	if v.Width == width && v.Height == height {
		return false
	}
	heightChanged := v.Height != height
	if v.Width != width {
		v.Invalidate()
	}
	v.Width = width
	v.Height = height
	return heightChanged
}

// HandleUpdate 代理 bubbles 的 Update（鼠标滚轮等）。
func (v *Viewport) HandleUpdate(msg tea.Msg) tea.Cmd {
	if v == nil {
		return nil
	}
	var cmd tea.Cmd
	v.Model, cmd = v.Model.Update(msg)
	return cmd
}

// SetLines 更新内容并保持当前偏移；偏移越界时由 bubbles 夹到底部。
func (v *Viewport) SetLines(lines []string) {
	if v == nil {
		return
	}
	if slices.Equal(lines, v.lastLines) {
		return
	}
	v.lastLines = append([]string(nil), lines...)
	v.SetContent(strings.Join(lines, "\n"))
}

// Sample 返回当前滚动位置采样，单位为终端行。
func (v *Viewport) Sample() follow.Sample {
	return follow.Sample{
		Offset:         v.YOffset,
		ViewportHeight: v.Height,
		ContentHeight:  v.TotalLineCount(),
	}
}

// Apply 执行控制器给出的滚动动作，LoadHistory 由调用方处理。
func (v *Viewport) Apply(act follow.Action) {
	if v == nil || !act.Scroll {
		return
	}
	v.SetYOffset(act.Offset)
}

// ScrollLines 正数下滚、负数上滚。
func (v *Viewport) ScrollLines(n int) {
	if v == nil || n == 0 {
		return
	}
	if n > 0 {
		v.LineDown(n)
		return
	}
	v.LineUp(-n)
}

// ScrollPageDown 下翻一页。
func (v *Viewport) ScrollPageDown() {
	if v == nil {
		return
	}
	v.ViewDown()
}

// ScrollPageUp 上翻一页。
func (v *Viewport) ScrollPageUp() {
	if v == nil {
		return
	}
	v.ViewUp()
}

// Invalidate 清空已缓存的行，强制下次 SetLines 重新设置内容。
func (v *Viewport) Invalidate() {
	if v == nil {
		return
	}
	v.lastLines = nil
}
