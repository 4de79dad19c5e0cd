package collapse

import (
	"errors"
	"slices"
	"testing"

	"narrative-cli/internal/grouping"
	"narrative-cli/internal/narrative"
	"narrative-cli/internal/session"
)

type failingKV struct {
	getErr error
	setErr error
	sets   int
}

func (f *failingKV) Get(string) (string, bool, error) { return "", false, f.getErr }
func (f *failingKV) Set(string, string) error {
	f.sets++
	return f.setErr
}
func (f *failingKV) Remove(string) error { return f.setErr }

func TestToggleFlipsAndPersists(t *testing.T) {
	kv := session.NewMemory()
	s := New(kv)

	if s.IsCollapsed("evt-42") {
		t.Fatalf("keys default to expanded")
	}
	s.Toggle("evt-42")
	if !s.IsCollapsed("evt-42") {
		t.Fatalf("expected collapsed after toggle")
	}
	raw, ok, _ := kv.Get(NamespaceKey)
	if !ok || raw != `["evt-42"]` {
		t.Fatalf("persisted=%q ok=%v", raw, ok)
	}

	s.Toggle("evt-42")
	if s.IsCollapsed("evt-42") {
		t.Fatalf("expected expanded after second toggle")
	}
	if _, ok, _ := kv.Get(NamespaceKey); ok {
		t.Fatalf("empty set should remove the namespace key")
	}
}

func TestLoadRestoresPersistedKeys(t *testing.T) {
	kv := session.NewMemory()
	_ = kv.Set(NamespaceKey, `["b","a"]`)

	s := New(kv)
	if got := s.Keys(); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("Keys=%v", got)
	}
}

func TestMalformedStateStartsEmpty(t *testing.T) {
	kv := session.NewMemory()
	_ = kv.Set(NamespaceKey, `{oops`)
	s := New(kv)
	if len(s.Keys()) != 0 {
		t.Fatalf("expected empty set for malformed state")
	}
	s.Toggle("x")
	if !s.IsCollapsed("x") {
		t.Fatalf("store must remain usable after malformed load")
	}
}

func TestPersistenceFailuresAreSwallowed(t *testing.T) {
	kv := &failingKV{getErr: errors.New("disabled"), setErr: errors.New("quota exceeded")}
	s := New(kv)

	s.Toggle("evt-1")
	if !s.IsCollapsed("evt-1") {
		t.Fatalf("in-memory state must stay authoritative when persistence fails")
	}
	if kv.sets != 1 {
		t.Fatalf("expected one write attempt, got %d", kv.sets)
	}
}

func TestCollapseSurvivesRegrouping(t *testing.T) {
	look := func(id string) narrative.Event {
		return narrative.Event{
			ID:               id,
			Content:          []string{id},
			PresentationHint: narrative.HintInset,
			GroupID:          "look",
			Metadata:         &narrative.Metadata{Verb: "look", DobjName: "lamp"},
		}
	}
	events := []narrative.Event{look("evt-42"), look("evt-43")}
	s := New(session.NewMemory())
	opts := grouping.Options{Collapsed: s.IsCollapsed}

	s.Toggle(grouping.Group(events, opts)[0].CollapseKey)

	older := narrative.Event{ID: "evt-1", Content: []string{"earlier"}, IsHistorical: true}
	events = append([]narrative.Event{older}, events...)
	events = append(events, narrative.Event{ID: "evt-44", Content: []string{"later"}})

	groups := grouping.Group(events, opts)
	idx := grouping.IndexOf(groups, "evt-42")
	if idx < 0 || !groups[idx].Collapsed {
		t.Fatalf("group for evt-42 should still be collapsed: %+v", groups)
	}
}
