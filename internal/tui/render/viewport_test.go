package render

import (
	"testing"

	follow "narrative-cli/internal/viewport"
)

func numbered(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('a' + i%26))
	}
	return out
}

func TestViewportSetLinesDoesNotStick(t *testing.T) {
	vp := NewViewport(10, 2)
	vp.SetLines(numbered(4))
	vp.GotoBottom()
	offset := vp.YOffset

	vp.SetLines(numbered(6))
	if vp.YOffset != offset {
		t.Fatalf("offset moved from %d to %d without an action", offset, vp.YOffset)
	}
	if vp.AtBottom() {
		t.Fatalf("viewport should no longer be at bottom")
	}
}

func TestViewportSampleAndApply(t *testing.T) {
	vp := NewViewport(10, 3)
	vp.SetLines(numbered(10))
	vp.Apply(follow.Action{Scroll: true, Offset: 4})

	got := vp.Sample()
	want := follow.Sample{Offset: 4, ViewportHeight: 3, ContentHeight: 10}
	if got != want {
		t.Fatalf("sample = %+v, want %+v", got, want)
	}
	if got.DistanceFromBottom() != 3 {
		t.Fatalf("distance = %d, want 3", got.DistanceFromBottom())
	}

	vp.Apply(follow.Action{LoadHistory: true})
	if vp.YOffset != 4 {
		t.Fatalf("non-scroll action moved offset to %d", vp.YOffset)
	}
}

func TestViewportScrollLines(t *testing.T) {
	vp := NewViewport(8, 2)
	vp.SetLines(numbered(5))
	vp.SetYOffset(0)

	vp.ScrollLines(2)
	if vp.YOffset != 2 {
		t.Fatalf("YOffset after down = %d", vp.YOffset)
	}
	vp.ScrollLines(-1)
	if vp.YOffset != 1 {
		t.Fatalf("YOffset after up = %d", vp.YOffset)
	}
	vp.ScrollLines(10)
	if !vp.AtBottom() {
		t.Fatalf("viewport should clamp at bottom")
	}
}

func TestViewportResizeReportsHeightChange(t *testing.T) {
	vp := NewViewport(10, 5)
	if vp.Resize(10, 5) {
		t.Fatalf("unchanged size reported as changed")
	}
	if vp.Resize(12, 5) {
		t.Fatalf("width-only change should not report height change")
	}
	if !vp.Resize(12, 8) {
		t.Fatalf("height change not reported")
	}
}
