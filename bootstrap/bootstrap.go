// Package bootstrap wires configuration, the store, the shop modules and the
// debug server into a running application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/artpar/modstore/adapters/clock"
	apihttp "github.com/artpar/modstore/adapters/http"
	"github.com/artpar/modstore/adapters/idgen"
	"github.com/artpar/modstore/adapters/metrics"
	"github.com/artpar/modstore/adapters/random"
	"github.com/artpar/modstore/adapters/shopapi"
	"github.com/artpar/modstore/app"
	"github.com/artpar/modstore/config"
	"github.com/artpar/modstore/core/module"
	"github.com/artpar/modstore/core/store"
	"github.com/artpar/modstore/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	Store      *store.Store
	Metrics    *metrics.Collector
	Registry   *prometheus.Registry
	ShopAPI    ports.ShopAPI
	Shop       *app.Shop
	HTTPServer *http.Server
}

// Options overrides the defaults New picks for its collaborators.
type Options struct {
	// LogOutput receives log lines. Defaults to os.Stdout.
	LogOutput io.Writer

	Clock  ports.Clock
	IDs    ports.IDGenerator
	Random ports.Random
}

// New builds the application described by cfg. The shop modules are
// registered but their onload actions may still be running; see App.Ready.
func New(cfg *config.Config, opts Options) (*App, error) {
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stdout
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.IDs == nil {
		opts.IDs = idgen.UUID{}
	}
	if opts.Random == nil {
		opts.Random = random.Real{}
	}

	logger := SetupLogger(cfg.Logging, opts.LogOutput)
	logger.Info().Msg("initializing modstore")

	a := &App{
		Logger: logger,
		Config: cfg,
	}

	storeOpts := []store.Option{
		store.WithLogger(logger.With().Str("component", "store").Logger()),
		store.WithClock(opts.Clock),
		store.WithIDGenerator(opts.IDs),
		store.WithGetterCache(cfg.Store.GetterCacheSize),
		store.WithHotReload(cfg.Store.HotReload),
	}

	if cfg.Metrics.Enabled {
		a.Registry = prometheus.NewRegistry()
		a.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.NewWithRegistry(a.Registry)
		storeOpts = append(storeOpts, store.WithObserver(a.Metrics))
		logger.Info().Msg("prometheus metrics enabled")
	}

	a.Store = store.New(storeOpts...)

	api, err := newShopAPI(cfg.Shop, opts.Random)
	if err != nil {
		return nil, fmt.Errorf("init shop backend: %w", err)
	}
	a.ShopAPI = api

	a.Shop, err = app.RegisterShop(a.Store, api, logger)
	if err != nil {
		return nil, fmt.Errorf("register shop: %w", err)
	}

	if cfg.Debug.Addr != "" {
		a.initHTTPServer()
	}

	return a, nil
}

func newShopAPI(cfg config.ShopConfig, rnd ports.Random) (ports.ShopAPI, error) {
	switch cfg.Backend {
	case config.BackendFake:
		return shopapi.NewFake(shopapi.FakeConfig{
			Latency:     cfg.Latency,
			FailureRate: cfg.FailureRate,
			Random:      rnd,
		}), nil
	case config.BackendRemote:
		return shopapi.NewClient(shopapi.ClientConfig{
			BaseURL: cfg.URL,
			Timeout: cfg.Timeout,
			Headers: cfg.Headers,
		}), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func (a *App) initHTTPServer() {
	routerCfg := apihttp.RouterConfig{
		Store:       a.Store,
		Modules:     []*module.Accessor{a.Shop.Products, a.Shop.Cart},
		MetricsPath: a.Config.Metrics.Path,
		Logger:      a.Logger.With().Str("component", "http").Logger(),
	}
	if a.Registry != nil {
		routerCfg.Gatherer = a.Registry
	}
	// Only the in-process backend is re-served; a remote one already has its own server.
	if a.Config.Shop.Backend == config.BackendFake {
		routerCfg.Shop = a.ShopAPI
	}

	a.HTTPServer = &http.Server{
		Addr:              a.Config.Debug.Addr,
		Handler:           apihttp.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	a.Logger.Info().Str("addr", a.HTTPServer.Addr).Msg("debug server configured")
}

// Ready waits for the shop modules' onload actions.
func (a *App) Ready(ctx context.Context) error {
	return a.Shop.Ready(ctx)
}

// Watch applies reloadable settings from h as they change.
func (a *App) Watch(h *config.Holder) {
	h.OnChange(func(cfg *config.Config) {
		a.Store.SetHotReload(cfg.Store.HotReload)
		if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(level)
		}
	})
	if a.Metrics != nil {
		h.OnReload(a.Metrics.ConfigReloaded)
	}
}

// Run serves the debug server, if configured, until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if err := a.Ready(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("shop modules did not load")
	}

	if a.HTTPServer == nil {
		<-ctx.Done()
		return a.Shutdown()
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting debug server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		a.Logger.Info().Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("debug server shutdown error")
			return err
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// SetupLogger builds the process logger from cfg and sets the global level.
func SetupLogger(cfg config.LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(w).With().Timestamp().Logger()
}
