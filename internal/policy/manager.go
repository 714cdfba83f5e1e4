package policy

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

type Manager struct {
	filePath string
	dirPath  string
	baseName string

	log      *slog.Logger
	debounce time.Duration
	interval time.Duration

	current atomic.Pointer[Document]
}

type Options struct {
	Debounce time.Duration
	Interval time.Duration
	Logger   *slog.Logger
}

func NewManager(filePath string, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 200 * time.Millisecond
	}
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}

	return &Manager{
		filePath: filePath,
		dirPath:  filepath.Dir(filePath),
		baseName: filepath.Base(filePath),
		log:      opts.Logger,
		debounce: opts.Debounce,
		interval: opts.Interval,
	}
}

func (m *Manager) Current() (*Document, bool) {
	d := m.current.Load()
	return d, d != nil
}

// Start loads the file once and then watches its directory until ctx is
// done. A failing initial load is returned; later failures keep the last
// good document.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.reload(); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := w.Add(m.dirPath); err != nil {
		_ = w.Close()
		return err
	}

	go func() {
		defer w.Close()

		var timer *time.Timer
		trigger := func() {
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(m.debounce, func() {
				if err := m.reload(); err != nil {
					m.log.Error("policy reload failed (keeping last known good)", "err", err, "file", m.filePath)
				} else {
					m.log.Info("policy reloaded", "file", m.filePath)
				}
			})
		}

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case <-ticker.C:
				if err := m.reload(); err != nil {
					m.log.Error("policy periodic reload failed (keeping last known good)", "err", err, "file", m.filePath)
				}
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				// configmap mounts swap a "..data" symlink instead of writing the file
				name := filepath.Base(ev.Name)
				if name == m.baseName || name == "..data" {
					trigger()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				if err != nil {
					m.log.Error("policy watcher error", "err", err)
				}
			}
		}
	}()

	return nil
}

func (m *Manager) reload() error {
	doc, err := LoadFromFile(m.filePath)
	if err != nil {
		return err
	}
	m.current.Store(doc)
	return nil
}

// Static serves one fixed document. Used when no policy file is configured.
type Static struct {
	doc *Document
}

func NewStatic(doc *Document) Static {
	return Static{doc: doc}
}

func (s Static) Current() (*Document, bool) {
	if s.doc == nil {
		return nil, false
	}
	return s.doc, true
}
