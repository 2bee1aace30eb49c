package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/artpar/modstore/bootstrap"
	"github.com/artpar/modstore/config"
	"github.com/spf13/cobra"
)

var (
	hotReload bool
	serveAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the debug endpoints for the shop modules",
	Long: `Register the shop modules and serve the debug endpoints:

  GET  /health, /version, /metrics
  GET  /state, /state/{module}
  GET  /modules, /modules/{module}
  GET  /getters/{module}/{getter}
  GET  /shop/products, POST /shop/checkout   (fake backend only)

With a config file and --hot-reload, edits to the file (or SIGHUP) apply
logging.level and store.hot_reload without a restart.

Examples:
  modstore serve --addr :9090
  modstore serve --config /etc/modstore/modstore.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "reload the config file on change")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides debug.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if serveAddr != "" {
		cfg.Debug.Addr = serveAddr
	}
	if cfg.Debug.Addr == "" {
		return fmt.Errorf("no listen address: set debug.addr or pass --addr")
	}

	a, err := bootstrap.New(cfg, bootstrap.Options{LogOutput: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}

	// Hot reload only works with a config file.
	if _, statErr := os.Stat(cfgFile); statErr == nil && hotReload {
		holder, err := config.NewHolder(cfgFile, a.Logger.With().Str("component", "config").Logger())
		if err != nil {
			return err
		}
		defer holder.Stop()

		a.Watch(holder)
		if err := holder.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("config file watch disabled")
		}
		holder.WatchSignals()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.Run(ctx)
}
