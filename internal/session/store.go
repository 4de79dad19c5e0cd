// Package session 提供按会话隔离的持久化键值存储（终端下的 sessionStorage）。
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyDir 表示未配置会话目录。
var ErrEmptyDir = errors.New("session store dir is empty")

// ErrInvalidID 表示会话 id 含有路径分隔符或 ".."，不能映射到 Dir 内的文件。
var ErrInvalidID = errors.New("invalid session id")

// checkID 保证 <Dir>/<id>.json 不会逃出 Dir。
func checkID(id string) error {
	if strings.TrimSpace(id) == "" || id == "." ||
		strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Record 是单个会话在磁盘上的形式。
type Record struct {
	ID      string            `json:"id"`
	Values  map[string]string `json:"values"`
	Updated time.Time         `json:"updated"`
}

// Store 以 <Dir>/<id>.json 保存会话记录。
type Store struct {
	Dir string
}

// DefaultDir returns ~/.narrative/sessions.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".narrative", "sessions"), nil
}

// NewDefault opens the store under DefaultDir.
func NewDefault() (*Store, error) {
	d, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return &Store{Dir: d}, nil
}

func (s *Store) ensureDir() error {
	if s == nil || strings.TrimSpace(s.Dir) == "" {
		return ErrEmptyDir
	}
	return os.MkdirAll(s.Dir, 0o755)
}

func (s *Store) path(id string) string {
	return filepath.Join(s.Dir, id+".json")
}

// Open 打开（或创建）一个会话作用域；id 为空时分配新的 uuid。
// 已存在但无法解析的记录视为空会话。
func (s *Store) Open(id string) (*Scope, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	if id == "" {
		id = uuid.NewString()
	}
	if err := checkID(id); err != nil {
		return nil, err
	}
	rec, err := s.Load(id)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithField("session", id).Warnf("discarding unreadable session record: %v", err)
	}
	if rec.Values == nil {
		rec.Values = map[string]string{}
	}
	rec.ID = id
	return &Scope{store: s, rec: rec}, nil
}

// Load reads a session record from disk.
func (s *Store) Load(id string) (Record, error) {
	var rec Record
	if s == nil || strings.TrimSpace(s.Dir) == "" {
		return rec, ErrEmptyDir
	}
	if err := checkID(id); err != nil {
		return rec, err
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return rec, nil
}

func (s *Store) save(rec Record) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	rec.Updated = time.Now()
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(rec.ID), data, 0o644)
}

// Last returns the most recently modified session record.
func (s *Store) Last() (Record, error) {
	ids, err := s.ListIDs()
	if err != nil {
		return Record{}, err
	}
	if len(ids) == 0 {
		return Record{}, fmt.Errorf("no sessions found")
	}
	return s.Load(ids[0])
}

// ListIDs 返回会话 id，按修改时间从新到旧排序。
func (s *Store) ListIDs() ([]string, error) {
	if s == nil || strings.TrimSpace(s.Dir) == "" {
		return nil, ErrEmptyDir
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	files := make([]fs.DirEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		files = append(files, e)
	}
	sort.Slice(files, func(i, j int) bool {
		iInfo, _ := files[i].Info()
		jInfo, _ := files[j].Info()
		if iInfo == nil || jInfo == nil {
			return files[i].Name() > files[j].Name()
		}
		return iInfo.ModTime().After(jInfo.ModTime())
	})
	ids := make([]string, 0, len(files))
	for _, e := range files {
		ids = append(ids, trimExt(e.Name()))
	}
	return ids, nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

// Scope 是一个会话内的键值视图，每次写入都同步落盘。
type Scope struct {
	store *Store
	mu    sync.Mutex
	rec   Record
}

// ID returns the session id.
func (s *Scope) ID() string { return s.rec.ID }

// Get 读取键值。
func (s *Scope) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.rec.Values[key]
	return v, ok, nil
}

// Set 写入键值并落盘。落盘失败时内存值仍然生效。
func (s *Scope) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.Values[key] = value
	return s.store.save(s.rec)
}

// Remove 删除键并落盘。
func (s *Scope) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rec.Values[key]; !ok {
		return nil
	}
	delete(s.rec.Values, key)
	return s.store.save(s.rec)
}
