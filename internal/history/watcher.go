package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"narrative-cli/internal/narrative"
)

// Watcher 在 backlog 之后追踪事件日志，把新追加的事件作为实时事件发出。
type Watcher struct {
	path   string
	offset int64
	fsw    *fsnotify.Watcher
	out    chan []narrative.Event
	once   sync.Once
	done   chan struct{}
}

// NewWatcher 从 offset 开始追踪 path。监听所在目录以兼容先删后建的写法。
func NewWatcher(path string, offset int64) (*Watcher, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{
		path:   filepath.Clean(path),
		offset: offset,
		fsw:    fsw,
		out:    make(chan []narrative.Event, 16),
		done:   make(chan struct{}),
	}, nil
}

// Events 返回实时事件批次；Run 结束时关闭。
func (w *Watcher) Events() <-chan []narrative.Event {
	return w.out
}

// Run 阻塞直到 ctx 结束或 Close 被调用。
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.out)
	// 启动前可能已有写入
	w.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				w.drain(ctx)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warnf("event log watcher error: %v", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) drain(ctx context.Context) {
	evts, err := w.readNew()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warnf("read appended events failed: %v", err)
		}
		return
	}
	if len(evts) == 0 {
		return
	}
	select {
	case w.out <- evts:
	case <-ctx.Done():
	case <-w.done:
	}
}

func (w *Watcher) readNew() ([]narrative.Event, error) {
	f, err := os.Open(w.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() < w.offset {
		// 文件被截断或替换，从头读起。
		log.WithField("path", w.path).Info("event log truncated, restarting tail")
		w.offset = 0
	}
	if _, err := f.Seek(w.offset, io.SeekStart); err != nil {
		return nil, err
	}
	evts, consumed, err := readEvents(f)
	w.offset += consumed
	if err != nil {
		return evts, err
	}
	for i := range evts {
		evts[i].IsHistorical = false
	}
	return evts, nil
}
