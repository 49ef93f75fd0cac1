// internal/config/manager.go
package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/notifyrr/notifyrr/internal/catalog"
	"github.com/notifyrr/notifyrr/internal/notify"
)

// debounceDelay absorbs the multiple write events editors emit for one save.
const debounceDelay = 250 * time.Millisecond

// Manager holds the live configuration and reloads it when the file changes.
// A reload that fails to parse or validate is rejected and the previous
// configuration stays in effect.
//
// Manager is the pipeline's options source: Subscribers and Server always
// reflect the last committed configuration.
type Manager struct {
	path   string
	logger *slog.Logger

	mu  sync.RWMutex
	cfg *Config
}

// NewManager loads the configuration from path and returns a manager
// holding it.
func NewManager(path string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Manager{
		path:   path,
		logger: logger.With("component", "config"),
		cfg:    cfg,
	}, nil
}

// Current returns the last committed configuration.
func (m *Manager) Current() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Subscribers converts the committed subscriber blocks to pipeline options.
func (m *Manager) Subscribers() []notify.Subscriber {
	cfg := m.Current()

	subs := make([]notify.Subscriber, 0, len(cfg.Subscribers))
	for _, sc := range cfg.Subscribers {
		categories := make(map[catalog.Category]bool, len(sc.Categories))
		for _, c := range sc.Categories {
			categories[catalog.Category(c)] = true
		}
		subs = append(subs, notify.Subscriber{
			Name:                 sc.Name,
			UserID:               sc.UserID,
			Enabled:              sc.Enabled,
			AnnounceOnAdd:        sc.AnnounceOnAdd,
			WebhookURL:           sc.WebhookURL,
			AvatarURL:            sc.AvatarURL,
			Username:             sc.Username,
			EmbedColor:           sc.EmbedColor,
			Mention:              notify.MentionType(sc.Mention),
			ServerNameOverride:   sc.ServerNameOverride,
			ServerURL:            strings.TrimRight(sc.ServerURL, "/"),
			ExcludeExternalLinks: sc.ExcludeExternalLinks,
			Categories:           categories,
		})
	}
	return subs
}

// Server returns the committed server context.
func (m *Manager) Server() notify.ServerInfo {
	cfg := m.Current()
	return notify.ServerInfo{
		Name:         cfg.Catalog.ServerName,
		RemoteAccess: cfg.Catalog.RemoteAccess,
		InstanceID:   cfg.Catalog.InstanceID,
	}
}

// Reload re-reads the file and commits the result if it is valid.
func (m *Manager) Reload() error {
	cfg, err := Load(m.path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}

// Watch reloads the configuration on file changes until ctx is canceled.
// The watch is on the directory, not the file, so atomic rename-into-place
// saves are seen too.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		return err
	}
	m.logger.Debug("watching config file", "path", m.path)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	scheduleReload := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounceDelay, func() {
			if err := m.Reload(); err != nil {
				m.logger.Warn("config reload rejected, keeping previous", "path", m.path, "error", err)
				return
			}
			m.logger.Info("config reloaded", "path", m.path)
		})
	}

	base := filepath.Base(m.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				scheduleReload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn("config watch error", "error", err)
		}
	}
}
