package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/modstore/bootstrap"
	"github.com/artpar/modstore/core/formatter"
	"github.com/artpar/modstore/core/module"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [module...]",
	Short: "Show how the shop modules were classified",
	Long: `Register the shop modules on a fresh store and print their members:
state fields, references, getters, mutators, actions, generated setters
and onload actions.

Examples:
  modstore inspect
  modstore inspect cart -o yaml
  modstore inspect --state --columns name,getters`,
	RunE: runInspect,
}

var (
	inspectOutput   string
	inspectState    bool
	inspectColumns  []string
	inspectNoHeader bool
)

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVarP(&inspectOutput, "output", "o", "table", "output format ("+strings.Join(formatter.List(), "|")+")")
	inspectCmd.Flags().BoolVar(&inspectState, "state", false, "also print each module's loaded state")
	inspectCmd.Flags().StringSliceVar(&inspectColumns, "columns", nil, "columns to print")
	inspectCmd.Flags().BoolVar(&inspectNoHeader, "no-header", false, "omit table headers")
}

func runInspect(cmd *cobra.Command, args []string) error {
	f, ok := formatter.Get(inspectOutput)
	if !ok {
		return fmt.Errorf("unknown output format %q (available: %s)", inspectOutput, strings.Join(formatter.List(), ", "))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Debug.Addr = ""
	cfg.Metrics.Enabled = false

	a, err := bootstrap.New(cfg, bootstrap.Options{LogOutput: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	if err := a.Ready(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("catalog not loaded")
	}

	mods, err := selectModules([]*module.Accessor{a.Shop.Products, a.Shop.Cart}, args)
	if err != nil {
		return err
	}

	descs := make([]module.Description, len(mods))
	for i, acc := range mods {
		descs[i] = acc.Describe()
	}

	out := cmd.OutOrStdout()
	if !inspectState {
		return f.FormatModules(out, descs, formatter.FormatOptions{
			Columns:  inspectColumns,
			NoHeader: inspectNoHeader,
		})
	}

	if err := f.FormatModules(out, descs, formatter.FormatOptions{NoHeader: inspectNoHeader}); err != nil {
		return err
	}
	for _, acc := range mods {
		state, err := a.Store.State(acc.Name())
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		if err := f.FormatState(out, acc.Name(), state, formatter.FormatOptions{Columns: inspectColumns}); err != nil {
			return err
		}
	}
	return nil
}

// selectModules keeps the accessors named in names, in the given order.
// No names selects all.
func selectModules(all []*module.Accessor, names []string) ([]*module.Accessor, error) {
	if len(names) == 0 {
		return all, nil
	}

	byName := make(map[string]*module.Accessor, len(all))
	for _, acc := range all {
		byName[acc.Name()] = acc
	}

	selected := make([]*module.Accessor, 0, len(names))
	for _, name := range names {
		acc, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown module %q", name)
		}
		selected = append(selected, acc)
	}
	return selected, nil
}
