// Package grouping 将有序事件列表切分为渲染组。
//
// Group 是纯函数：每次事件列表变化都从头重算，不保留增量状态。
// 折叠与陈旧状态按事件 id 记录，由调用方通过 Options 注入。
package grouping

import "narrative-cli/internal/narrative"

// Kind 表示渲染组的类型。
type Kind int

const (
	// KindSingle 单条无 hint 事件，按原样渲染。
	KindSingle Kind = iota
	// KindHintGroup 共享 presentation hint 与 group id 的事件。
	KindHintGroup
	// KindNoNewlineRun 由 no_newline 片段拼接成的一行。
	KindNoNewlineRun
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindHintGroup:
		return "hint-group"
	case KindNoNewlineRun:
		return "no-newline-run"
	default:
		return "unknown"
	}
}

// SpeechBubble 是合并后的说话气泡。
type SpeechBubble struct {
	Actor        narrative.ActorRef
	ActorName    string
	Content      string
	EnableEmojis bool
}

// MergedLine 是 no_newline 片段拼接后的单行内容，ContentType 恒为 HTML。
type MergedLine struct {
	Content     string
	ContentType narrative.ContentType
	TTSText     string
	LinkPreview *narrative.LinkPreview
	Thumbnail   *narrative.Thumbnail
}

// RenderGroup 是一段连续事件组成的可视单元，Events 非空。
type RenderGroup struct {
	Kind    Kind
	Events  []narrative.Event
	Hint    string
	GroupID string

	Bubble *SpeechBubble
	Merged *MergedLine

	// Collapsible 仅对 look inset 成立，CollapseKey 为首个事件的 id。
	Collapsible bool
	CollapseKey string
	Title       string
	Collapsed   bool

	Stale bool
	// DividerBefore 表示在本组之前插入断线重连分隔线。
	DividerBefore bool
}

// First returns the first member event.
func (g RenderGroup) First() narrative.Event { return g.Events[0] }

// Last returns the last member event.
func (g RenderGroup) Last() narrative.Event { return g.Events[len(g.Events)-1] }

// Contains reports whether the group holds the event with the given id.
func (g RenderGroup) Contains(id string) bool {
	for _, e := range g.Events {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Options 控制一次分组计算。
type Options struct {
	// ShowDivider 请求在历史与实时事件交界处插入分隔线。
	ShowDivider bool
	// SpeechBubbles 为真时表示气泡功能已启用且当前主题不抑制气泡。
	SpeechBubbles bool
	// Collapsed 查询折叠状态；nil 表示全部展开。
	Collapsed func(key string) bool
	// Stale 判定单个事件是否陈旧；nil 表示全部新鲜。
	Stale func(evt narrative.Event) bool
}

// Events 按顺序展开所有组的成员事件。
func Events(groups []RenderGroup) []narrative.Event {
	n := 0
	for _, g := range groups {
		n += len(g.Events)
	}
	out := make([]narrative.Event, 0, n)
	for _, g := range groups {
		out = append(out, g.Events...)
	}
	return out
}

// IndexOf returns the index of the group holding the event id, or -1.
func IndexOf(groups []RenderGroup, id string) int {
	for i, g := range groups {
		if g.Contains(id) {
			return i
		}
	}
	return -1
}
