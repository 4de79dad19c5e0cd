package events

import (
	"bytes"
	"strings"
	"testing"

	"narrative-cli/internal/logger"

	"github.com/sirupsen/logrus"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	b := NewBus()
	a := b.Subscribe()
	c := b.Subscribe()

	b.Publish(LinkClicked{EventID: "evt-1", URL: "https://example.test"})

	for _, ch := range []<-chan any{a, c} {
		got := <-ch
		click, ok := got.(LinkClicked)
		if !ok || click.EventID != "evt-1" {
			t.Fatalf("unexpected notification %#v", got)
		}
	}
}

func TestBusCloseClosesSubscribers(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe()
	b.Close()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	b.Publish(LinkClicked{})
	late := b.Subscribe()
	if _, ok := <-late; ok {
		t.Fatalf("subscribe after close must return a closed channel")
	}
}

func TestBusDropsForSlowSubscriber(t *testing.T) {
	buf := &bytes.Buffer{}
	l := logrus.New()
	l.SetFormatter(logger.PlainFormatter{})
	l.SetOutput(buf)

	b := NewBus()
	b.SetLogger(logrus.NewEntry(l))
	_ = b.Subscribe()
	for i := 0; i < 40; i++ {
		b.Publish(HistoryLoaded{Count: i})
	}
	if !strings.Contains(buf.String(), "dropped notification") {
		t.Fatalf("expected drop warning, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "type=history.loaded") {
		t.Fatalf("expected type field, got %q", buf.String())
	}
}
