package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/artpar/modstore/config"
	"github.com/rs/zerolog"
)

func TestHolder_Get(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	got := h.Get()
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if got.Shop.FailureRate != 0.5 {
		t.Errorf("Shop.FailureRate = %v, want 0.5", got.Shop.FailureRate)
	}
}

func TestHolder_ReloadNotifies(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var changed *config.Config
	var reloadErrs []error
	h.OnChange(func(cfg *config.Config) { changed = cfg })
	h.OnReload(func(err error) { reloadErrs = append(reloadErrs, err) })

	newContent := `
store:
  hot_reload: true
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	if changed == nil || !changed.Store.HotReload {
		t.Fatal("OnChange not called with the new config")
	}
	if h.Get().Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", h.Get().Logging.Level)
	}
	if len(reloadErrs) != 1 || reloadErrs[0] != nil {
		t.Errorf("OnReload calls = %v, want one nil", reloadErrs)
	}
}

func TestHolder_ReloadInvalidConfig(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	called := false
	var reloadErr error
	h.OnChange(func(*config.Config) { called = true })
	h.OnReload(func(err error) { reloadErr = err })

	if err := os.WriteFile(path, []byte("shop:\n  backend: carrier-pigeon\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := h.Reload(); err == nil {
		t.Fatal("expected reload error")
	}

	if called {
		t.Error("OnChange called for invalid config")
	}
	if reloadErr == nil {
		t.Error("OnReload not told about the failure")
	}
	if h.Get().Shop.Backend != config.BackendFake {
		t.Errorf("old config not kept, Shop.Backend = %s", h.Get().Shop.Backend)
	}
}

func TestHolder_WatchFile(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var mu sync.Mutex
	var callCount int
	h.OnChange(func(*config.Config) {
		mu.Lock()
		callCount++
		mu.Unlock()
	})

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	newContent := `
store:
  hot_reload: true
`
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := callCount
		mu.Unlock()
		if n > 0 && h.Get().Store.HotReload {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("file watcher did not trigger reload")
}

func TestHolder_StopTwice(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, validConfig()), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	h.Stop()
	h.Stop()
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if h.Get() == nil {
					t.Error("concurrent Get returned nil")
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Reload()
		}()
	}
	wg.Wait()
}

func TestNewHolder_MissingFile(t *testing.T) {
	_, err := config.NewHolder(filepath.Join(t.TempDir(), "missing.yaml"), zerolog.Nop())
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want ErrNotExist", err)
	}
}

func TestReloadableFields(t *testing.T) {
	fields := config.ReloadableFields()
	for _, e := range []string{"store.hot_reload", "logging.level"} {
		if !slices.Contains(fields, e) {
			t.Errorf("%s not in ReloadableFields", e)
		}
	}
	for _, f := range config.NonReloadableFields() {
		if slices.Contains(fields, f) {
			t.Errorf("%s is both reloadable and non-reloadable", f)
		}
	}
}

func TestDiff(t *testing.T) {
	old := config.Defaults()
	next := config.Defaults()
	next.Store.HotReload = !old.Store.HotReload
	next.Debug.Addr = ":9999"

	changes := config.Diff(old, next)
	if len(changes) != 2 {
		t.Fatalf("changes = %+v, want 2", changes)
	}
	byField := map[string]config.Change{}
	for _, c := range changes {
		byField[c.Field] = c
	}
	if c := byField["store.hot_reload"]; !c.Reloadable || c.Old != "false" || c.New != "true" {
		t.Errorf("hot_reload change = %+v", c)
	}
	if c := byField["debug.addr"]; c.Reloadable || c.Old != "" || c.New != ":9999" {
		t.Errorf("debug.addr change = %+v", c)
	}

	if got := config.Diff(old, config.Defaults()); len(got) != 0 {
		t.Errorf("identical configs differ: %+v", got)
	}
}

// Helpers

func validConfig() string {
	return `
shop:
  backend: fake
  latency: 10ms
  failure_rate: 0.5
`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
