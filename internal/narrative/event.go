// Package narrative 定义从世界服务器接收到的叙事事件模型。
package narrative

import (
	"strings"
	"time"
)

// Kind 区分事件来源。
type Kind string

const (
	KindNarrative Kind = "narrative"
	KindInputEcho Kind = "input_echo"
	KindSystem    Kind = "system"
	KindError     Kind = "error"
)

// ContentType 仅用于提示外部渲染器如何解释内容。
type ContentType string

const (
	ContentPlain     ContentType = "plain"
	ContentDjot      ContentType = "djot"
	ContentHTML      ContentType = "html"
	ContentTraceback ContentType = "traceback"
)

// IsMarkup reports whether the content is already HTML-safe markup.
func (c ContentType) IsMarkup() bool {
	return c == ContentHTML
}

// 已知的 presentation hint。未知值原样保留，交给渲染层做样式。
const (
	HintInset        = "inset"
	HintSpeechBubble = "speech_bubble"
	HintProcessing   = "processing"
	HintExpired      = "expired"
)

// VerbLook 标识 "look" 描述事件。
const VerbLook = "look"

// Metadata 是部分 hint 需要的结构化附加信息（说话人、look 标题等）。
type Metadata struct {
	Verb         string
	Actor        ActorRef
	ActorName    string
	Content      string
	DobjName     string
	EnableEmojis bool
}

// LinkPreview 是服务器附带的链接预览，核心逻辑不解析其内容。
type LinkPreview struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Thumbnail 是内联缩略图载荷。
type Thumbnail struct {
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

// Event 是一条不可变的叙事/系统/回显/错误事件。
// ID 由服务器分配，在整个内存列表生命周期内唯一（包括前插的历史事件）。
type Event struct {
	ID               string
	Content          []string
	Kind             Kind
	ContentType      ContentType
	IsHistorical     bool
	NoNewline        bool
	PresentationHint string
	GroupID          string
	TTSText          string
	Thumbnail        *Thumbnail
	LinkPreview      *LinkPreview
	Metadata         *Metadata
	Author           ActorRef
	ServerTime       time.Time
}

// Text 以换行拼接所有内容片段。
func (e Event) Text() string {
	switch len(e.Content) {
	case 0:
		return ""
	case 1:
		return e.Content[0]
	default:
		return strings.Join(e.Content, "\n")
	}
}

// Actor returns the metadata actor, or NoActor when the event carries none.
func (e Event) Actor() ActorRef {
	if e.Metadata == nil {
		return NoActor()
	}
	return e.Metadata.Actor
}

// Verb returns the metadata verb, empty when absent.
func (e Event) Verb() string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata.Verb
}

// IsLook reports whether the event describes a "look" at a named object.
func (e Event) IsLook() bool {
	return e.PresentationHint == HintInset &&
		e.Metadata != nil &&
		e.Metadata.Verb == VerbLook &&
		strings.TrimSpace(e.Metadata.DobjName) != ""
}

// HasSpeech reports whether the metadata is complete enough for a speech bubble.
func (e Event) HasSpeech() bool {
	return e.Metadata != nil &&
		e.Metadata.Content != "" &&
		strings.TrimSpace(e.Metadata.ActorName) != ""
}

// SameHintGroup 判断 next 能否与 e 归入同一 hint 组。
func SameHintGroup(e Event, next Event) bool {
	if e.PresentationHint == "" {
		return false
	}
	return next.PresentationHint == e.PresentationHint &&
		next.GroupID == e.GroupID &&
		SameActor(e, next)
}
