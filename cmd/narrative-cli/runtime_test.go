package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"narrative-cli/internal/features"
	"narrative-cli/internal/history"
	"narrative-cli/internal/narrative"
	"narrative-cli/internal/session"
	"narrative-cli/internal/staleness"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("NARRATIVE_EVENTS", "")
	t.Setenv("NARRATIVE_THEME", "")
	return home
}

func seedEvents(t *testing.T, path string, ids ...string) {
	t.Helper()
	store := &history.Store{Path: path}
	for _, id := range ids {
		evt := narrative.Event{ID: id, Content: []string{"text " + id}, Kind: narrative.KindNarrative, ContentType: narrative.ContentPlain}
		if err := store.Append(evt); err != nil {
			t.Fatalf("Append %s: %v", id, err)
		}
	}
}

func TestResolveConfigPrecedence(t *testing.T) {
	home := isolate(t)
	cfgPath := filepath.Join(home, "config.toml")
	content := "theme = \"light\"\nevents_file = \"/from/config.jsonl\"\n[features]\nemoji = false\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	root := rootArgs{cfgPath: cfgPath, overrides: []string{"theme=plain", "features.emoji=true"}}
	v := &viewArgs{configOverrides: stringSlice{"stale_policy=historical"}, eventsFile: "/flag.jsonl", noLive: true}
	cfg, err := resolveConfig(root, v)
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if cfg.Theme != "plain" {
		t.Fatalf("theme = %q, want root override", cfg.Theme)
	}
	if cfg.EventsFile != "/flag.jsonl" {
		t.Fatalf("events file = %q, want flag value", cfg.EventsFile)
	}
	if cfg.StalePolicy != "historical" {
		t.Fatalf("stale policy = %q", cfg.StalePolicy)
	}
	if !cfg.FeatureEnabled(features.Emoji) {
		t.Fatalf("expected emoji re-enabled by override")
	}
	if cfg.FeatureEnabled(features.LiveTail) {
		t.Fatalf("--no-live should disable live_tail")
	}

	v.theme = "dark"
	cfg, _ = resolveConfig(root, v)
	if cfg.Theme != "dark" {
		t.Fatalf("--theme should win, got %q", cfg.Theme)
	}
}

func TestBuildRuntimeLoadsBacklogAndPages(t *testing.T) {
	home := isolate(t)
	events := filepath.Join(home, "events.jsonl")
	seedEvents(t, events, "a", "b", "c")

	root := rootArgs{overrides: []string{"history_page_size=2", "session_dir=" + filepath.Join(home, "sessions")}}
	rt, err := buildRuntime(root, &viewArgs{eventsFile: events, sessionID: "s1"})
	if err != nil {
		t.Fatalf("buildRuntime: %v", err)
	}
	if len(rt.backlog.Events) != 3 || rt.backlog.Offset == 0 {
		t.Fatalf("unexpected backlog: %+v", rt.backlog)
	}
	if rt.sessionID != "s1" {
		t.Fatalf("session id = %q", rt.sessionID)
	}
	if rt.policy != staleness.PolicyInteracted {
		t.Fatalf("policy = %v", rt.policy)
	}

	opts := rt.tuiOptions(nil, nil)
	if len(opts.Initial) != 2 || opts.Initial[0].ID != "b" || !opts.Initial[0].IsHistorical {
		t.Fatalf("initial page = %+v", opts.Initial)
	}
	if older := opts.History.Older(); len(older) != 1 || older[0].ID != "a" {
		t.Fatalf("older page = %+v", older)
	}
	if !opts.History.Exhausted() {
		t.Fatalf("history should be exhausted")
	}
	if !opts.Display.SpeechBubbles || opts.Display.LinkPreviews {
		t.Fatalf("unexpected display defaults: %+v", opts.Display)
	}
	if opts.Follow.FollowThreshold != 3 || opts.Follow.HistoryThreshold != 1 {
		t.Fatalf("follow config = %+v", opts.Follow)
	}
}

func TestBuildRuntimeRejectsUnknownPolicy(t *testing.T) {
	home := isolate(t)
	root := rootArgs{overrides: []string{"stale_policy=sometimes"}}
	if _, err := buildRuntime(root, &viewArgs{eventsFile: filepath.Join(home, "e.jsonl"), ephemeral: true}); err == nil {
		t.Fatalf("expected unknown stale policy to fail")
	}
}

func TestOpenScope(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, "sessions")
	cfg, err := resolveConfig(rootArgs{overrides: []string{"session_dir=" + dir}}, nil)
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}

	t.Run("ephemeral", func(t *testing.T) {
		kv, id, _ := openScope(cfg, &viewArgs{ephemeral: true})
		if id != "" {
			t.Fatalf("ephemeral id = %q", id)
		}
		if _, ok := kv.(*session.Memory); !ok {
			t.Fatalf("expected memory KV, got %T", kv)
		}
	})

	t.Run("named and last", func(t *testing.T) {
		kv, id, err := openScope(cfg, &viewArgs{sessionID: "alpha"})
		if err != nil {
			t.Fatalf("openScope: %v", err)
		}
		if id != "alpha" {
			t.Fatalf("id = %q", id)
		}
		if err := kv.Set("k", "v"); err != nil {
			t.Fatalf("Set: %v", err)
		}
		kv, id, _ = openScope(cfg, &viewArgs{resumeLast: true})
		if id != "alpha" {
			t.Fatalf("--last resolved %q", id)
		}
		if v, ok, _ := kv.Get("k"); !ok || v != "v" {
			t.Fatalf("resumed scope lost value: %q %v", v, ok)
		}
	})

	t.Run("path escape rejected", func(t *testing.T) {
		if _, _, err := openScope(cfg, &viewArgs{sessionID: "../x"}); !errors.Is(err, session.ErrInvalidID) {
			t.Fatalf("openScope(../x) err = %v, want ErrInvalidID", err)
		}
	})

	t.Run("fresh", func(t *testing.T) {
		_, id, _ := openScope(cfg, &viewArgs{})
		if id == "" || id == "alpha" {
			t.Fatalf("expected new session id, got %q", id)
		}
	})
}
