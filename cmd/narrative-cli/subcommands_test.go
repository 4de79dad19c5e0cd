package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"narrative-cli/internal/config"
	"narrative-cli/internal/features"
	"narrative-cli/internal/history"
	"narrative-cli/internal/narrative"
)

func TestAppendEventsDecodesEachLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	store := &history.Store{Path: path}
	input := strings.Join([]string{
		`{"event_id":"e1","author":{"oid":2},"message":"hello"}`,
		``,
		`{"event_id":"p1","author":{"oid":2},"present":{"id":"map","target":"right"}}`,
		`{"author":{"oid":0},"system_message":"restarting"}`,
	}, "\n")

	n, err := appendEvents(store, strings.NewReader(input))
	if err != nil {
		t.Fatalf("appendEvents: %v", err)
	}
	if n != 2 {
		t.Fatalf("appended %d, want 2", n)
	}
	backlog, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(backlog.Events) != 2 || backlog.Events[0].ID != "e1" {
		t.Fatalf("unexpected events: %+v", backlog.Events)
	}
	if backlog.Events[1].ID == "" || backlog.Events[1].Kind != narrative.KindSystem {
		t.Fatalf("system event not stored with an id: %+v", backlog.Events[1])
	}
}

type failingAppender struct{}

func (failingAppender) Append(narrative.Event) error { return errors.New("disk full") }

func TestAppendEventsErrors(t *testing.T) {
	cases := []struct {
		name  string
		store eventAppender
		input string
	}{
		{name: "empty input", store: failingAppender{}, input: "\n\n"},
		{name: "bad json", store: failingAppender{}, input: "not json"},
		{name: "store failure", store: failingAppender{}, input: `{"event_id":"x","message":"m"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := appendEvents(tc.store, strings.NewReader(tc.input)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestWriteFeatures(t *testing.T) {
	cfg := config.ApplyKVOverrides(config.Default(), []string{"features.link_previews=true", "features.emoji=false"})
	var buf bytes.Buffer
	writeFeatures(&buf, cfg)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != len(features.Specs) {
		t.Fatalf("got %d lines, want %d", len(lines), len(features.Specs))
	}
	got := map[string]string{}
	for _, line := range lines {
		parts := strings.Split(line, "\t")
		if len(parts) != 3 {
			t.Fatalf("malformed line %q", line)
		}
		got[parts[0]] = parts[2]
	}
	if got[features.LinkPreviews] != "true" || got[features.Emoji] != "false" || got[features.SpeechBubbles] != "true" {
		t.Fatalf("unexpected feature states: %v", got)
	}
}

func TestDumpPrinterWritesBacklog(t *testing.T) {
	home := isolate(t)
	events := filepath.Join(home, "events.jsonl")
	seedEvents(t, events, "a", "b")

	rt, err := buildRuntime(rootArgs{}, &viewArgs{eventsFile: events, ephemeral: true, noLive: true})
	if err != nil {
		t.Fatalf("buildRuntime: %v", err)
	}
	var buf bytes.Buffer
	p := newDumpPrinter(rt, &buf, 40, true)
	if err := p.Add(markHistorical(rt.backlog.Events)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "text a") || !strings.Contains(out, "text b") {
		t.Fatalf("dump output missing events: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("plain dump should not contain ANSI escapes: %q", out)
	}
	if rt.backlog.Events[0].IsHistorical {
		t.Fatalf("markHistorical must not mutate the backlog")
	}
}

func TestDumpWidth(t *testing.T) {
	t.Setenv("COLUMNS", "120")
	if got := dumpWidth(0); got != 120 {
		t.Fatalf("dumpWidth(0) = %d", got)
	}
	if got := dumpWidth(60); got != 60 {
		t.Fatalf("dumpWidth(60) = %d", got)
	}
	t.Setenv("COLUMNS", "")
	if got := dumpWidth(0); got != 80 {
		t.Fatalf("default width = %d", got)
	}
}

func TestMapKVIsReadOnly(t *testing.T) {
	kv := mapKV{"narrative.collapsed": `["g1"]`}
	if v, ok, err := kv.Get("narrative.collapsed"); !ok || err != nil || v == "" {
		t.Fatalf("Get = %q %v %v", v, ok, err)
	}
	if kv.Set("a", "b") == nil || kv.Remove("a") == nil {
		t.Fatalf("mapKV must reject writes")
	}
}
