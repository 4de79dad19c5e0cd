// Package collapse 记录用户折叠过的分组（以首个事件 id 为键）。
package collapse

import (
	"encoding/json"
	"sort"

	"narrative-cli/internal/logger"
)

// NamespaceKey 是折叠集合在键值存储中的固定键。
const NamespaceKey = "narrative.collapsed"

var log = logger.Named("collapse")

// KV 是尽力而为的字符串键值存储，失败可以被忽略。
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// Store 持有折叠键集合。首次查询时懒加载，每次切换后同步写回。
// 内存中的集合始终是本次会话的权威状态。
type Store struct {
	kv     KV
	keys   map[string]struct{}
	loaded bool
}

// New creates a store backed by kv. A nil kv keeps state in memory only.
func New(kv KV) *Store {
	return &Store{kv: kv}
}

// Load 读取持久化的集合；损坏或读取失败时以空集合开始。
func (s *Store) Load() map[string]struct{} {
	if s.loaded {
		return s.keys
	}
	s.loaded = true
	s.keys = map[string]struct{}{}
	if s.kv == nil {
		return s.keys
	}
	raw, ok, err := s.kv.Get(NamespaceKey)
	if err != nil {
		log.Warnf("load collapse state failed: %v", err)
		return s.keys
	}
	if !ok || raw == "" {
		return s.keys
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		log.Warnf("ignoring malformed collapse state: %v", err)
		return s.keys
	}
	for _, k := range keys {
		s.keys[k] = struct{}{}
	}
	return s.keys
}

// IsCollapsed 未记录的键视为展开。
func (s *Store) IsCollapsed(key string) bool {
	if key == "" {
		return false
	}
	_, ok := s.Load()[key]
	return ok
}

// Toggle 翻转键的折叠状态并立即持久化。
func (s *Store) Toggle(key string) {
	if key == "" {
		return
	}
	keys := s.Load()
	if _, ok := keys[key]; ok {
		delete(keys, key)
	} else {
		keys[key] = struct{}{}
	}
	s.persist()
}

// Keys returns the collapsed keys in sorted order.
func (s *Store) Keys() []string {
	keys := s.Load()
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *Store) persist() {
	if s.kv == nil {
		return
	}
	keys := s.Keys()
	if len(keys) == 0 {
		if err := s.kv.Remove(NamespaceKey); err != nil {
			log.Warnf("clear collapse state failed: %v", err)
		}
		return
	}
	data, err := json.Marshal(keys)
	if err != nil {
		log.Warnf("encode collapse state failed: %v", err)
		return
	}
	if err := s.kv.Set(NamespaceKey, string(data)); err != nil {
		log.WithField("keys", len(keys)).Warnf("persist collapse state failed: %v", err)
	}
}
