package render

import (
	"reflect"
	"slices"
	"testing"

	"narrative-cli/internal/narrative"
)

func renderPlain(t *testing.T, c Content) ([]string, []Link) {
	t.Helper()
	r := NewTerminalRenderer(ThemeByName("dark"))
	out := r.Render(c)
	return LinesToPlainStrings(out.Lines), out.Links
}

func TestRenderLinksAreNumbered(t *testing.T) {
	tests := []struct {
		name      string
		content   Content
		wantLines []string
		wantLinks []Link
	}{
		{
			name:      "bare url in plain text",
			content:   Content{Text: "see https://x.io now", Type: narrative.ContentPlain, Width: 80},
			wantLines: []string{"see https://x.io[1] now"},
			wantLinks: []Link{{Index: 1, URL: "https://x.io", Text: "https://x.io"}},
		},
		{
			name:      "djot link",
			content:   Content{Text: "go [north](https://n.io) now", Type: narrative.ContentDjot, Width: 80},
			wantLines: []string{"go north[1] now"},
			wantLinks: []Link{{Index: 1, URL: "https://n.io", Text: "north"}},
		},
		{
			name:      "djot syntax ignored in plain text",
			content:   Content{Text: "go [north](x) now", Type: narrative.ContentPlain, Width: 80},
			wantLines: []string{"go [north](x) now"},
		},
		{
			name:      "offset continues numbering",
			content:   Content{Text: "https://a.io", Type: narrative.ContentPlain, Width: 80, LinkOffset: 2},
			wantLines: []string{"https://a.io[3]"},
			wantLinks: []Link{{Index: 3, URL: "https://a.io", Text: "https://a.io"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, links := renderPlain(t, tt.content)
			if !slices.Equal(lines, tt.wantLines) {
				t.Fatalf("lines = %q, want %q", lines, tt.wantLines)
			}
			if !reflect.DeepEqual(links, tt.wantLinks) {
				t.Fatalf("links = %+v, want %+v", links, tt.wantLinks)
			}
		})
	}
}

func TestRenderHTMLStripsTags(t *testing.T) {
	src := `<p>Hello <b>world</b></p><a href="https://a.io">door</a> &amp; more<script>x()</script>`
	lines, links := renderPlain(t, Content{Text: src, Type: narrative.ContentHTML, Width: 80})

	want := []string{"Hello world", "door[1] & more"}
	if !slices.Equal(lines, want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
	if len(links) != 1 || links[0].URL != "https://a.io" || links[0].Text != "door" {
		t.Fatalf("unexpected links: %+v", links)
	}
}

func TestRenderHTMLKeepsBoldStyle(t *testing.T) {
	r := NewTerminalRenderer(ThemeByName("dark"))
	out := r.Render(Content{Text: "a <b>b</b>", Type: narrative.ContentHTML, Width: 80})
	if len(out.Lines) != 1 {
		t.Fatalf("expected one line, got %d", len(out.Lines))
	}
	spans := out.Lines[0].Spans
	last := spans[len(spans)-1]
	if last.Text != "b" || !last.Style.GetBold() {
		t.Fatalf("expected bold span for <b>, got %+v", last)
	}
}

func TestRenderStaleLinksAreFaint(t *testing.T) {
	r := NewTerminalRenderer(ThemeByName("dark"))
	fresh := r.Render(Content{Text: "https://x.io", Type: narrative.ContentPlain, Width: 80})
	stale := r.Render(Content{Text: "https://x.io", Type: narrative.ContentPlain, Width: 80, Stale: true})

	if fresh.Lines[0].Spans[0].Style.GetFaint() {
		t.Fatalf("fresh link should not be faint")
	}
	if !stale.Lines[0].Spans[0].Style.GetFaint() {
		t.Fatalf("stale link should be faint")
	}
	if len(stale.Links) != 1 {
		t.Fatalf("stale links are still listed, got %d", len(stale.Links))
	}
}

func TestRenderTracebackSkipsLinks(t *testing.T) {
	lines, links := renderPlain(t, Content{Text: "line 1\nat https://x.io", Type: narrative.ContentTraceback, Width: 80})
	if len(links) != 0 {
		t.Fatalf("traceback should not number links: %+v", links)
	}
	want := []string{"line 1", "at https://x.io"}
	if !slices.Equal(lines, want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
}

func TestRenderEmoji(t *testing.T) {
	on, _ := renderPlain(t, Content{Text: ":wave: hi :nope:", Width: 80, EnableEmoji: true})
	if on[0] != "👋 hi :nope:" {
		t.Fatalf("emoji replacement = %q", on[0])
	}
	off, _ := renderPlain(t, Content{Text: ":wave: hi", Width: 80})
	if off[0] != ":wave: hi" {
		t.Fatalf("emoji should be left alone when disabled, got %q", off[0])
	}
}

func TestRenderEmojiLeavesLinksAlone(t *testing.T) {
	lines, links := renderPlain(t, Content{
		Text:        `:tada: <a href="https://x.test/:tada:">party</a>`,
		Type:        narrative.ContentHTML,
		Width:       80,
		EnableEmoji: true,
	})
	if len(links) != 1 || links[0].URL != "https://x.test/:tada:" {
		t.Fatalf("href rewritten: %+v", links)
	}
	if lines[0] != "🎉 party[1]" {
		t.Fatalf("line = %q", lines[0])
	}

	_, bare := renderPlain(t, Content{Text: "see https://x.test/:wave:", Width: 80, EnableEmoji: true})
	if len(bare) != 1 || bare[0].URL != "https://x.test/:wave:" {
		t.Fatalf("bare url rewritten: %+v", bare)
	}
}

func TestRenderWrapsByWidth(t *testing.T) {
	lines, _ := renderPlain(t, Content{Text: "aaa bbb ccc", Width: 7})
	want := []string{"aaa bbb", "ccc"}
	if !slices.Equal(lines, want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	r := NewTerminalRenderer(ThemeByName("light"))
	c := Content{Text: `<i>x</i> <a href="https://y.io">y</a>`, Type: narrative.ContentHTML, Width: 20}
	first := r.Render(c)
	second := r.Render(c)
	if !slices.Equal(LinesToStrings(first.Lines), LinesToStrings(second.Lines)) {
		t.Fatalf("rendering twice differs")
	}
	if !reflect.DeepEqual(first.Links, second.Links) {
		t.Fatalf("links differ between renders")
	}
}

func TestThemeByName(t *testing.T) {
	if ThemeByName("PLAIN").Name != "plain" || !ThemeByName("plain").SuppressBubbles {
		t.Fatalf("plain theme should suppress bubbles")
	}
	if ThemeByName("light").SuppressBubbles {
		t.Fatalf("light theme should allow bubbles")
	}
	if ThemeByName("unknown").Name != "dark" {
		t.Fatalf("unknown theme should fall back to dark")
	}
}
