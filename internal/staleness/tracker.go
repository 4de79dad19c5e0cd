// Package staleness 记录哪些事件的交互元素（链接）已经用过，应当淡化显示。
package staleness

import (
	"fmt"
	"strings"

	"narrative-cli/internal/events"
	"narrative-cli/internal/logger"
	"narrative-cli/internal/narrative"
)

var log = logger.Named("staleness")

// Policy 决定历史事件是否自动视为陈旧。
type Policy int

const (
	// PolicyInteracted 仅在读者点击过链接后标记陈旧。
	PolicyInteracted Policy = iota
	// PolicyInteractedOrHistorical 额外把历史事件视为陈旧。
	PolicyInteractedOrHistorical
)

func (p Policy) String() string {
	switch p {
	case PolicyInteractedOrHistorical:
		return "interacted_or_historical"
	default:
		return "interacted"
	}
}

// ParsePolicy parses the config spelling of a policy.
func ParsePolicy(raw string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "interacted":
		return PolicyInteracted, nil
	case "interacted_or_historical", "historical":
		return PolicyInteractedOrHistorical, nil
	default:
		return PolicyInteracted, fmt.Errorf("unknown stale policy %q", raw)
	}
}

// Tracker 单调记录陈旧事件：一旦标记，本次会话内不会恢复。
type Tracker struct {
	policy Policy
	stale  map[string]struct{}
}

// New creates an empty tracker.
func New(policy Policy) *Tracker {
	return &Tracker{policy: policy, stale: map[string]struct{}{}}
}

// Policy returns the tracker's policy.
func (t *Tracker) Policy() Policy { return t.policy }

// MarkStale 标记事件 id；重复标记无副作用。
func (t *Tracker) MarkStale(id string) {
	if id == "" {
		return
	}
	if _, ok := t.stale[id]; ok {
		return
	}
	t.stale[id] = struct{}{}
	log.WithField("event_id", id).Debug("marked stale")
}

// IsStale reports whether the id was explicitly marked.
func (t *Tracker) IsStale(id string) bool {
	_, ok := t.stale[id]
	return ok
}

// EventStale 按策略判定单个事件。
func (t *Tracker) EventStale(evt narrative.Event) bool {
	if t.IsStale(evt.ID) {
		return true
	}
	return t.policy == PolicyInteractedOrHistorical && evt.IsHistorical
}

// GroupStale 只要有一个成员陈旧整组即陈旧。
func (t *Tracker) GroupStale(members []narrative.Event) bool {
	for _, e := range members {
		if t.EventStale(e) {
			return true
		}
	}
	return false
}

// Handle 处理一条通知；非链接点击通知返回 false。
func (t *Tracker) Handle(notification any) bool {
	switch n := notification.(type) {
	case events.LinkClicked:
		t.MarkStale(n.EventID)
		return true
	case *events.LinkClicked:
		if n == nil {
			return false
		}
		t.MarkStale(n.EventID)
		return true
	default:
		return false
	}
}
