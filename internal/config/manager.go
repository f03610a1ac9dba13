package config

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"insightbot/pkg/logx"
)

// Manager holds the current config and optionally watches the file for
// changes (daemon mode). Reloads are applied atomically; a broken edit
// keeps the previous config in place.
type Manager struct {
	path string
	log  logx.Logger

	mu  sync.RWMutex
	cfg Config
}

func NewManager(path string, log logx.Logger) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Manager{path: path, log: log, cfg: cfg}, nil
}

// Current returns the latest valid config by value.
func (m *Manager) Current() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Watch blocks until ctx is done, reloading the config file on change.
// Events are debounced because editors and atomic-save tools emit bursts
// of partial writes.
func (m *Manager) Watch(ctx context.Context) {
	const debounceWindow = 300 * time.Millisecond

	w, err := fsnotify.NewWatcher()
	if err != nil {
		m.log.Warn("config watch unavailable", logx.Err(err))
		return
	}
	defer w.Close()

	dir := filepath.Dir(m.path)
	if dir == "" {
		dir = "."
	}
	if err := w.Add(dir); err != nil {
		m.log.Warn("config watch failed", logx.String("dir", dir), logx.Err(err))
		return
	}

	file := filepath.Base(m.path)
	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	fire := make(chan struct{}, 1)
	debounce := func() {
		if pending != nil {
			pending.Stop()
		}
		pending = time.AfterFunc(debounceWindow, func() {
			select {
			case fire <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-fire:
			m.reload()
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			// Compare by basename; atomic saves rename a temp file over the target.
			if strings.EqualFold(filepath.Base(ev.Name), file) &&
				ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove|fsnotify.Chmod) != 0 {
				debounce()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			if err != nil {
				m.log.Warn("config watch error", logx.Err(err))
			}
		}
	}
}

func (m *Manager) reload() {
	next, err := Load(m.path)
	if err != nil {
		m.log.Warn("config reload rejected", logx.String("path", m.path), logx.Err(err))
		return
	}

	m.mu.Lock()
	prev := m.cfg
	m.cfg = next
	m.mu.Unlock()

	if prev.Telegram.Token != next.Telegram.Token || prev.Telegram.ChatID != next.Telegram.ChatID {
		m.log.Warn("telegram credentials changed; restart to apply")
	}
	m.log.Info("config reloaded", logx.String("path", m.path))
}
