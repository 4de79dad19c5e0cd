package viewport

import "testing"

func TestFollowingToBrowsing(t *testing.T) {
	c := New(Config{FollowThreshold: 50, HistoryThreshold: 10})

	c.OnScrollSample(Sample{Offset: 960, ViewportHeight: 400, ContentHeight: 1400}, false)
	if c.State() != Following {
		t.Fatalf("within threshold should keep following, got %v", c.State())
	}

	c.OnScrollSample(Sample{Offset: 900, ViewportHeight: 400, ContentHeight: 1400}, false)
	if c.State() != Browsing || !c.ShowJumpToNow() {
		t.Fatalf("expected browsing after scrolling away, got %v", c.State())
	}

	c.OnScrollSample(Sample{Offset: 1000, ViewportHeight: 400, ContentHeight: 1400}, false)
	if c.State() != Browsing {
		t.Fatalf("returning near the bottom must not resume following without jumpToNow")
	}
}

func TestContentGrowth(t *testing.T) {
	c := New(Config{FollowThreshold: 50, HistoryThreshold: 10})
	c.OnScrollSample(Sample{Offset: 600, ViewportHeight: 400, ContentHeight: 1000}, false)

	act := c.OnContentGrew(1200)
	if !act.Scroll || act.Offset != 800 {
		t.Fatalf("following should scroll to bottom, got %+v", act)
	}

	c.OnScrollSample(Sample{Offset: 100, ViewportHeight: 400, ContentHeight: 1200}, false)
	if act := c.OnContentGrew(1500); act.Scroll {
		t.Fatalf("browsing must not auto-scroll, got %+v", act)
	}
}

func TestResizeReattachesWhileFollowing(t *testing.T) {
	c := New(DefaultConfig())
	c.OnScrollSample(Sample{Offset: 80, ViewportHeight: 20, ContentHeight: 100}, false)
	act := c.OnResize(30)
	if !act.Scroll || act.Offset != 70 {
		t.Fatalf("resize while following=%+v", act)
	}
}

func TestHistoryPrependAnchorsBrowsingView(t *testing.T) {
	c := New(Config{FollowThreshold: 50, HistoryThreshold: 10})
	c.OnScrollSample(Sample{Offset: 120, ViewportHeight: 400, ContentHeight: 2000}, false)
	if c.State() != Browsing {
		t.Fatalf("precondition: expected browsing")
	}

	act := c.OnHistoryPrepended(300)
	if !act.Scroll {
		t.Fatalf("expected scroll action")
	}
	if diff := act.Offset - (120 + 300); diff < -1 || diff > 1 {
		t.Fatalf("offset=%d want %d", act.Offset, 420)
	}
	if c.Last().ContentHeight != 2300 {
		t.Fatalf("content height=%d", c.Last().ContentHeight)
	}
}

func TestHistoryPrependWhileFollowingStaysAtBottom(t *testing.T) {
	c := New(DefaultConfig())
	c.OnScrollSample(Sample{Offset: 80, ViewportHeight: 20, ContentHeight: 100}, false)
	act := c.OnHistoryPrepended(40)
	if !act.Scroll || act.Offset != 120 {
		t.Fatalf("following prepend=%+v", act)
	}
}

func TestLoadHistoryGate(t *testing.T) {
	c := New(Config{FollowThreshold: 50, HistoryThreshold: 10})

	if act := c.OnScrollSample(Sample{Offset: 5, ViewportHeight: 400, ContentHeight: 2000}, false); !act.LoadHistory {
		t.Fatalf("expected load request near the top")
	}
	if act := c.OnScrollSample(Sample{Offset: 0, ViewportHeight: 400, ContentHeight: 2000}, true); act.LoadHistory {
		t.Fatalf("in-flight request must suppress a second fetch")
	}
	if act := c.OnScrollSample(Sample{Offset: 11, ViewportHeight: 400, ContentHeight: 2000}, false); act.LoadHistory {
		t.Fatalf("outside the top threshold must not load")
	}

	c.SetHistoryExhausted(true)
	if act := c.OnScrollSample(Sample{Offset: 0, ViewportHeight: 400, ContentHeight: 2000}, false); act.LoadHistory {
		t.Fatalf("exhausted history must not load")
	}
}

func TestJumpToNow(t *testing.T) {
	c := New(Config{FollowThreshold: 50, HistoryThreshold: 10})
	c.OnScrollSample(Sample{Offset: 0, ViewportHeight: 400, ContentHeight: 2000}, false)

	act := c.JumpToNow()
	if c.State() != Following || c.ShowJumpToNow() {
		t.Fatalf("expected following after jump")
	}
	if !act.Scroll || act.Offset != 1600 {
		t.Fatalf("jump action=%+v", act)
	}
}

func TestShortContentBottomIsZero(t *testing.T) {
	c := New(DefaultConfig())
	c.OnScrollSample(Sample{Offset: 0, ViewportHeight: 40, ContentHeight: 10}, false)
	if act := c.OnContentGrew(12); act.Offset != 0 {
		t.Fatalf("short content offset=%d", act.Offset)
	}
}
