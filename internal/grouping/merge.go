package grouping

import (
	"strings"

	"narrative-cli/internal/narrative"
)

// 仅转义 & < >，与渲染端对纯文本的处理保持一致。
var markupEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// EscapeMarkup escapes a plain-text fragment for inclusion in HTML.
func EscapeMarkup(s string) string {
	return markupEscaper.Replace(s)
}

func mergeLine(members []narrative.Event) *MergedLine {
	var content strings.Builder
	tts := make([]string, 0, len(members))
	line := &MergedLine{ContentType: narrative.ContentHTML}
	for _, e := range members {
		text := e.Text()
		if !e.ContentType.IsMarkup() {
			text = EscapeMarkup(text)
		}
		content.WriteString(text)
		if e.TTSText != "" {
			tts = append(tts, e.TTSText)
		}
		if line.LinkPreview == nil && e.LinkPreview != nil && e.LinkPreview.URL != "" {
			line.LinkPreview = e.LinkPreview
		}
		if line.Thumbnail == nil && e.Thumbnail != nil {
			line.Thumbnail = e.Thumbnail
		}
	}
	line.Content = content.String()
	line.TTSText = strings.Join(tts, " ")
	return line
}

func mergeSpeech(members []narrative.Event) *SpeechBubble {
	first := members[0].Metadata
	parts := make([]string, 0, len(members))
	emoji := false
	for _, e := range members {
		parts = append(parts, e.Metadata.Content)
		emoji = emoji || e.Metadata.EnableEmojis
	}
	return &SpeechBubble{
		Actor:        first.Actor,
		ActorName:    first.ActorName,
		Content:      strings.Join(parts, "\n"),
		EnableEmojis: emoji,
	}
}
