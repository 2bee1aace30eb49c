package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/artpar/modstore/adapters/shopapi"
	"github.com/artpar/modstore/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the modstore configuration file.

Checks:
  - YAML syntax is valid
  - Values pass validation after MODSTORE_* overrides
  - The remote shop backend answers (optional)

Examples:
  modstore validate
  modstore validate --config /etc/modstore/modstore.yaml --check-backend`,
	RunE: runValidate,
}

var validateCheckBackend bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckBackend, "check-backend", false, "check that a remote shop backend is reachable")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)

	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Fprintf(out, "  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Fprintf(out, "  %s Config file exists\n", checkMark)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(out, "  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config valid\n", checkMark)

	if validateCheckBackend && cfg.Shop.Backend == config.BackendRemote {
		client := shopapi.NewClient(shopapi.ClientConfig{
			BaseURL: cfg.Shop.URL,
			Timeout: cfg.Shop.Timeout,
			Headers: cfg.Shop.Headers,
		})
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		products, err := client.GetProducts(ctx)
		if err != nil {
			fmt.Fprintf(out, "  %s Shop backend reachable\n", crossMark)
			return fmt.Errorf("shop backend: %w", err)
		}
		fmt.Fprintf(out, "  %s Shop backend reachable (%d products)\n", checkMark, len(products))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintf(out, "  Hot reload:        %v\n", cfg.Store.HotReload)
	fmt.Fprintf(out, "  Getter cache size: %d\n", cfg.Store.GetterCacheSize)
	fmt.Fprintf(out, "  Shop backend:      %s\n", describeBackend(cfg.Shop))
	fmt.Fprintf(out, "  Logging:           %s (%s)\n", cfg.Logging.Level, cfg.Logging.Format)
	if cfg.Metrics.Enabled {
		fmt.Fprintf(out, "  Metrics:           %s\n", cfg.Metrics.Path)
	} else {
		fmt.Fprintln(out, "  Metrics:           disabled")
	}
	if cfg.Debug.Addr != "" {
		fmt.Fprintf(out, "  Debug server:      %s\n", cfg.Debug.Addr)
	}

	return nil
}

func describeBackend(cfg config.ShopConfig) string {
	if cfg.Backend == config.BackendRemote {
		return fmt.Sprintf("remote %s (timeout %s)", cfg.URL, cfg.Timeout)
	}
	return fmt.Sprintf("fake (latency %s, failure rate %.2f)", cfg.Latency, cfg.FailureRate)
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
