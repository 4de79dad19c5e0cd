// Package history 读取与追加 JSONL 事件日志，并提供分页与实时追踪。
package history

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"narrative-cli/internal/logger"
	"narrative-cli/internal/narrative"
)

var log = logger.Named("history")

var (
	// ErrNilStore 表示未初始化的 Store。
	ErrNilStore = errors.New("history store is nil")
	// ErrEmptyPath 表示未配置事件日志路径。
	ErrEmptyPath = errors.New("history store path is empty")
)

const maxLineBytes = 1024 * 1024

// Store 是以行分隔的事件日志，每行一条 web host 事件 JSON。
type Store struct {
	Path string
}

// Backlog 是启动时读到的全部事件以及读取结束的位置。
type Backlog struct {
	Events []narrative.Event
	Offset int64
}

func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".narrative", "events.jsonl"), nil
}

func (s *Store) check() error {
	if s == nil {
		return ErrNilStore
	}
	if strings.TrimSpace(s.Path) == "" {
		return ErrEmptyPath
	}
	return nil
}

func (s *Store) ensureDir() error {
	if err := s.check(); err != nil {
		return err
	}
	return os.MkdirAll(filepath.Dir(s.Path), 0o755)
}

// Append 追加一条事件。
func (s *Store) Append(evt narrative.Event) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	data, err := narrative.Encode(evt)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append event %s: %w", evt.ID, err)
	}
	return nil
}

// Load 读取整个日志；无法解析的行被跳过。文件不存在时返回空 backlog。
func (s *Store) Load() (Backlog, error) {
	if err := s.check(); err != nil {
		return Backlog{}, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Backlog{}, nil
		}
		return Backlog{}, err
	}
	defer f.Close()

	evts, offset, err := readEvents(f)
	if err != nil {
		return Backlog{}, err
	}
	return Backlog{Events: evts, Offset: offset}, nil
}

// readEvents 只消费以换行结束的完整行，返回消费的字节数。
func readEvents(r io.Reader) ([]narrative.Event, int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var (
		out      []narrative.Event
		consumed int64
		skipped  int
	)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return out, consumed, err
		}
		consumed += int64(len(line))
		trimmed := strings.TrimSpace(string(line))
		if trimmed == "" {
			continue
		}
		if len(trimmed) > maxLineBytes {
			skipped++
			continue
		}
		evt, err := narrative.Decode([]byte(trimmed))
		if errors.Is(err, narrative.ErrNotNarrative) {
			continue
		}
		if err != nil {
			skipped++
			continue
		}
		out = append(out, evt)
	}
	if skipped > 0 {
		log.WithField("skipped", skipped).Warn("skipped undecodable event lines")
	}
	return out, consumed, nil
}
