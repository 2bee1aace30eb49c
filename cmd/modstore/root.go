package main

import (
	"fmt"
	"os"

	"github.com/artpar/modstore/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "modstore",
	Short: "Typed modules on top of a namespaced state store",
	Long: `modstore registers Go module types as namespaced store modules.

Each module declares state, getters, mutators and actions. modstore sorts
them into a store registration and hands back an accessor that reads live
state and routes writes through mutations.

Commands:
  modstore inspect   # Show the classified shop modules
  modstore demo      # Run the cart scenario against the fake shop backend
  modstore serve     # Serve the debug endpoints
  modstore validate  # Validate configuration`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "modstore.yaml", "config file path")
}

// loadConfig reads cfgFile, falling back to MODSTORE_* variables when the
// file is missing.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
