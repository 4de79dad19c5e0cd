package narrative

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrInvalidEvent 表示输入不是一个 JSON 对象。
var ErrInvalidEvent = errors.New("narrative: invalid event json")

// ErrNotNarrative 表示合法但不属于叙事流的事件（present / unpresent 面板控制）。
// 调用方应当跳过而不是当作损坏数据。
var ErrNotNarrative = errors.New("narrative: presentation control event")

// Decode 解析 web host 推送的一条事件 JSON（narrative / system_message /
// traceback 以及历史接口的嵌套 message 形式）。可选字段缺失时取零值。
func Decode(line []byte) (Event, error) {
	if !gjson.ValidBytes(line) {
		return Event{}, ErrInvalidEvent
	}
	root := gjson.ParseBytes(line)
	if !root.IsObject() {
		return Event{}, ErrInvalidEvent
	}

	if root.Get("present").Exists() || root.Get("unpresent").Exists() {
		return Event{}, ErrNotNarrative
	}

	evt := Event{
		ID:               root.Get("event_id").String(),
		Kind:             KindNarrative,
		ContentType:      ContentPlain,
		IsHistorical:     root.Get("is_historical").Bool(),
		NoNewline:        root.Get("no_newline").Bool(),
		PresentationHint: firstString(root, "presentation_hint", "presentationHint"),
		GroupID:          firstString(root, "group_id", "groupId"),
		TTSText:          firstString(root, "tts_text", "ttsText"),
		Author:           decodeActor(root.Get("author")),
		ServerTime:       decodeTime(firstOf(root, "server_time", "timestamp")),
	}

	switch {
	case root.Get("system_message").Exists():
		evt.Kind = KindSystem
		evt.Content = decodeContent(root.Get("system_message"))
	case root.Get("traceback").Exists():
		evt.Kind = KindError
		evt.ContentType = ContentTraceback
		evt.Content = decodeTraceback(root.Get("traceback"))
	default:
		msg := root.Get("message")
		if msg.IsObject() {
			// 历史接口：{"type":"notify","content":...,"content_type":...}
			switch msg.Get("type").String() {
			case "traceback":
				evt.Kind = KindError
				evt.ContentType = ContentTraceback
				evt.Content = []string{msg.Get("error").String()}
			default:
				evt.Content = decodeContent(msg.Get("content"))
				evt.ContentType = normalizeContentType(msg.Get("content_type").String())
			}
		} else {
			evt.Content = decodeContent(msg)
			evt.ContentType = normalizeContentType(root.Get("content_type").String())
		}
	}
	if k := root.Get("kind").String(); k != "" {
		evt.Kind = normalizeKind(k, evt.Kind)
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}

	if md := firstOf(root, "event_metadata", "eventMetadata"); md.IsObject() {
		evt.Metadata = &Metadata{
			Verb:         md.Get("verb").String(),
			Actor:        decodeActor(md.Get("actor")),
			ActorName:    firstString(md, "actor_name", "actorName"),
			Content:      md.Get("content").String(),
			DobjName:     firstString(md, "dobj_name", "dobjName"),
			EnableEmojis: firstOf(md, "enable_emojis", "enableEmojis").Bool(),
		}
	}
	if lp := firstOf(root, "link_preview", "linkPreview"); lp.IsObject() && lp.Get("url").String() != "" {
		evt.LinkPreview = &LinkPreview{
			URL:         lp.Get("url").String(),
			Title:       lp.Get("title").String(),
			Description: lp.Get("description").String(),
			Image:       lp.Get("image").String(),
		}
	}
	if th := root.Get("thumbnail"); th.IsObject() && th.Get("data").String() != "" {
		evt.Thumbnail = &Thumbnail{
			ContentType: th.Get("content_type").String(),
			Data:        th.Get("data").String(),
		}
	}
	return evt, nil
}

// Encode 将事件写回 web host 的 JSON 形式，Decode(Encode(e)) 保留全部字段。
func Encode(evt Event) ([]byte, error) {
	out := []byte(`{}`)
	var err error
	set := func(path string, value any) {
		if err != nil {
			return
		}
		out, err = sjson.SetBytes(out, path, value)
	}

	set("event_id", evt.ID)
	if evt.Kind != "" && evt.Kind != KindNarrative {
		set("kind", string(evt.Kind))
	}
	switch {
	case evt.Kind == KindSystem:
		set("system_message", evt.Text())
	case evt.ContentType == ContentTraceback:
		if len(evt.Content) > 0 {
			set("traceback.error", evt.Content[0])
			set("traceback.traceback", append([]string{}, evt.Content[1:]...))
		} else {
			set("traceback.error", "")
		}
	default:
		if len(evt.Content) == 1 {
			set("message", evt.Content[0])
		} else {
			set("message", append([]string{}, evt.Content...))
		}
		set("content_type", "text/"+string(orPlain(evt.ContentType)))
	}
	if evt.NoNewline {
		set("no_newline", true)
	}
	set("is_historical", evt.IsHistorical)
	if evt.PresentationHint != "" {
		set("presentation_hint", evt.PresentationHint)
	}
	if evt.GroupID != "" {
		set("group_id", evt.GroupID)
	}
	if evt.TTSText != "" {
		set("tts_text", evt.TTSText)
	}
	if !evt.Author.IsZero() {
		set("author", actorJSON(evt.Author))
	}
	if !evt.ServerTime.IsZero() {
		set("server_time", evt.ServerTime.UTC().Format(time.RFC3339Nano))
	}
	if md := evt.Metadata; md != nil {
		set("event_metadata.verb", md.Verb)
		if !md.Actor.IsZero() {
			set("event_metadata.actor", actorJSON(md.Actor))
		}
		set("event_metadata.actor_name", md.ActorName)
		set("event_metadata.content", md.Content)
		set("event_metadata.dobj_name", md.DobjName)
		if md.EnableEmojis {
			set("event_metadata.enable_emojis", true)
		}
	}
	if lp := evt.LinkPreview; lp != nil {
		set("link_preview", lp)
	}
	if th := evt.Thumbnail; th != nil {
		set("thumbnail", th)
	}
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", evt.ID, err)
	}
	return out, nil
}

func orPlain(ct ContentType) ContentType {
	if ct == "" || ct == ContentTraceback {
		return ContentPlain
	}
	return ct
}

func actorJSON(a ActorRef) map[string]any {
	if oid, ok := a.ObjectID(); ok {
		return map[string]any{"oid": oid}
	}
	if token, ok := a.OpaqueID(); ok {
		return map[string]any{"uuid": token}
	}
	return nil
}

func firstOf(res gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := res.Get(p); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

func firstString(res gjson.Result, paths ...string) string {
	return firstOf(res, paths...).String()
}

func decodeContent(res gjson.Result) []string {
	switch {
	case !res.Exists() || res.Type == gjson.Null:
		return nil
	case res.IsArray():
		arr := res.Array()
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			out = append(out, item.String())
		}
		return out
	default:
		return []string{res.String()}
	}
}

func decodeTraceback(res gjson.Result) []string {
	out := []string{res.Get("error").String()}
	for _, frame := range res.Get("traceback").Array() {
		out = append(out, frame.String())
	}
	return out
}

// decodeActor 接受 {"oid":n}、{"uuid":"..."}、"#n" 与纯数字几种形式。
func decodeActor(res gjson.Result) ActorRef {
	switch {
	case !res.Exists():
		return NoActor()
	case res.IsObject():
		if oid := res.Get("oid"); oid.Exists() {
			return ByObjectID(oid.Int())
		}
		if token := res.Get("uuid").String(); token != "" {
			return ByOpaqueID(token)
		}
		return NoActor()
	case res.Type == gjson.Number:
		return ByObjectID(res.Int())
	case res.Type == gjson.String:
		s := strings.TrimSpace(res.String())
		if strings.HasPrefix(s, "#") {
			if oid, err := strconv.ParseInt(s[1:], 10, 64); err == nil {
				return ByObjectID(oid)
			}
		}
		return ByOpaqueID(s)
	default:
		return NoActor()
	}
}

func decodeTime(res gjson.Result) time.Time {
	switch {
	case !res.Exists():
		return time.Time{}
	case res.IsObject():
		// serde 对 SystemTime 的默认编码
		secs := res.Get("secs_since_epoch").Int()
		nanos := res.Get("nanos_since_epoch").Int()
		return time.Unix(secs, nanos).UTC()
	case res.Type == gjson.Number:
		return time.Unix(res.Int(), 0).UTC()
	default:
		t, err := time.Parse(time.RFC3339Nano, res.String())
		if err != nil {
			return time.Time{}
		}
		return t
	}
}

func normalizeContentType(raw string) ContentType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "text/djot", "text_djot", "djot":
		return ContentDjot
	case "text/html", "text_html", "html":
		return ContentHTML
	case "traceback":
		return ContentTraceback
	default:
		return ContentPlain
	}
}

func normalizeKind(raw string, fallback Kind) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindNarrative:
		return KindNarrative
	case KindInputEcho, "echo", "input":
		return KindInputEcho
	case KindSystem:
		return KindSystem
	case KindError:
		return KindError
	default:
		return fallback
	}
}
