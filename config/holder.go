// Package config provides configuration loading and hot reload.
package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// reloadDebounce collapses the burst of events editors emit for one save.
const reloadDebounce = 100 * time.Millisecond

// Holder keeps the current configuration and replaces it when the file
// changes or the process receives SIGHUP.
type Holder struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	logger   zerolog.Logger
	onChange []func(*Config)
	onReload []func(error)

	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHolder loads path and returns a holder for it.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	return &Holder{
		config: cfg,
		path:   abs,
		logger: logger.With().Str("component", "config").Logger(),
		stopCh: make(chan struct{}),
	}, nil
}

// Get returns the current configuration.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// Reload reads the file again. On error the current configuration is kept.
// OnReload listeners see every attempt; OnChange listeners only successful ones.
func (h *Holder) Reload() error {
	next, err := Load(h.path)

	h.mu.Lock()
	prev := h.config
	if err == nil {
		h.config = next
	}
	onReload, onChange := h.onReload, h.onChange
	h.mu.Unlock()

	for _, fn := range onReload {
		fn(err)
	}
	if err != nil {
		h.logger.Error().Err(err).Str("path", h.path).Msg("config reload failed, keeping current config")
		return fmt.Errorf("reload config: %w", err)
	}

	changes := Diff(prev, next)
	for _, c := range changes {
		ev := h.logger.Info()
		if !c.Reloadable {
			ev = h.logger.Warn()
		}
		ev.Str("field", c.Field).
			Str("old", c.Old).
			Str("new", c.New).
			Bool("reloadable", c.Reloadable).
			Msg("config changed")
	}

	for _, fn := range onChange {
		fn(next)
	}

	h.logger.Info().Int("changes", len(changes)).Msg("config reloaded")
	return nil
}

// OnChange registers fn to receive each successfully reloaded configuration.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// OnReload registers fn to receive the result of every reload attempt.
func (h *Holder) OnReload(fn func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onReload = append(h.onReload, fn)
}

// WatchFile reloads whenever the config file is written or replaced.
func (h *Holder) WatchFile() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// The directory, not the file: atomic saves replace the inode.
	if err := w.Add(filepath.Dir(h.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	h.watcher = w

	go h.watchLoop(w)

	h.logger.Info().Str("path", h.path).Msg("watching config file")
	return nil
}

// WatchSignals reloads on SIGHUP until Stop.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		defer signal.Stop(sigCh)
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("SIGHUP received")
				_ = h.Reload()
			case <-h.stopCh:
				return
			}
		}
	}()
}

// Stop ends file and signal watching. It is safe to call more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) watchLoop(w *fsnotify.Watcher) {
	name := filepath.Base(h.path)

	var pending <-chan time.Time
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			h.logger.Debug().Stringer("op", ev.Op).Msg("config file event")
			pending = time.After(reloadDebounce)

		case <-pending:
			pending = nil
			_ = h.Reload()

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("config watcher error")

		case <-h.stopCh:
			return
		}
	}
}

// Change is one setting that differs between two configurations.
type Change struct {
	Field      string
	Old, New   string
	Reloadable bool
}

type setting struct {
	name       string
	reloadable bool
	value      func(*Config) string
}

var settings = []setting{
	{"store.hot_reload", true, func(c *Config) string { return fmt.Sprint(c.Store.HotReload) }},
	{"logging.level", true, func(c *Config) string { return c.Logging.Level }},
	{"store.getter_cache_size", false, func(c *Config) string { return fmt.Sprint(c.Store.GetterCacheSize) }},
	{"shop.backend", false, func(c *Config) string { return c.Shop.Backend }},
	{"shop.url", false, func(c *Config) string { return c.Shop.URL }},
	{"shop.failure_rate", false, func(c *Config) string { return fmt.Sprint(c.Shop.FailureRate) }},
	{"logging.format", false, func(c *Config) string { return c.Logging.Format }},
	{"metrics.enabled", false, func(c *Config) string { return fmt.Sprint(c.Metrics.Enabled) }},
	{"debug.addr", false, func(c *Config) string { return c.Debug.Addr }},
}

// Diff lists the known settings that differ between old and new.
func Diff(old, new *Config) []Change {
	var changes []Change
	for _, s := range settings {
		o, n := s.value(old), s.value(new)
		if o != n {
			changes = append(changes, Change{Field: s.name, Old: o, New: n, Reloadable: s.reloadable})
		}
	}
	return changes
}

// ReloadableFields returns the settings applied without a restart.
func ReloadableFields() []string { return fieldNames(true) }

// NonReloadableFields returns the settings that need a restart to apply.
func NonReloadableFields() []string { return fieldNames(false) }

func fieldNames(reloadable bool) []string {
	var names []string
	for _, s := range settings {
		if s.reloadable == reloadable {
			names = append(names, s.name)
		}
	}
	return names
}
