package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/artpar/modstore/bootstrap"
	"github.com/artpar/modstore/core/formatter"
	"github.com/artpar/modstore/core/module"
	"github.com/artpar/modstore/domain/shop"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the shopping cart scenario",
	Long: `Load the catalog, add every product to the cart concurrently, add the
first product again and check out. The shop backend comes from the config;
with the fake backend a checkout fails at the configured failure rate and
the cart is restored.

With --debug-addr the debug server keeps running until interrupted.

Examples:
  modstore demo
  modstore demo -o json
  MODSTORE_SHOP_FAILURE_RATE=1 modstore demo
  modstore demo --debug-addr :9090`,
	RunE: runDemo,
}

var (
	demoDebugAddr string
	demoOutput    string
)

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().StringVar(&demoDebugAddr, "debug-addr", "", "serve the debug endpoints on this address after the run")
	demoCmd.Flags().StringVarP(&demoOutput, "output", "o", "table", "output format for the final state")
}

func runDemo(cmd *cobra.Command, args []string) error {
	f, ok := formatter.Get(demoOutput)
	if !ok {
		return fmt.Errorf("unknown output format %q", demoOutput)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if demoDebugAddr != "" {
		cfg.Debug.Addr = demoDebugAddr
	}

	a, err := bootstrap.New(cfg, bootstrap.Options{LogOutput: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	out := cmd.OutOrStdout()
	if err := runScenario(ctx, a, out); err != nil {
		return err
	}

	for _, acc := range []*module.Accessor{a.Shop.Products, a.Shop.Cart} {
		state, err := a.Store.State(acc.Name())
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		if err := f.FormatState(out, acc.Name(), state, formatter.FormatOptions{}); err != nil {
			return err
		}
	}

	if cfg.Debug.Addr == "" {
		return nil
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	fmt.Fprintf(out, "\nDebug server on %s, press Ctrl+C to stop.\n", cfg.Debug.Addr)
	return a.Run(runCtx)
}

func runScenario(ctx context.Context, a *bootstrap.App, out io.Writer) error {
	if err := a.Ready(ctx); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	products, err := module.Get[[]shop.Product](a.Shop.Products, "all")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Catalog: %d products\n", len(products))

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range products {
		g.Go(func() error {
			return a.Shop.Cart.Dispatch(gctx, "addProductToCart", p).Wait(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("add to cart: %w", err)
	}

	if len(products) > 0 {
		// Re-read so the product carries its current inventory.
		current, _ := module.Get[[]shop.Product](a.Shop.Products, "all")
		if p, ok := shop.FindProduct(current, products[0].ID); ok {
			if err := a.Shop.Cart.Dispatch(ctx, "addProductToCart", p).Wait(ctx); err != nil {
				return fmt.Errorf("add to cart: %w", err)
			}
		}
	}

	if err := printCart(out, a.Shop.Cart); err != nil {
		return err
	}

	if err := a.Shop.Cart.Dispatch(ctx, "checkout", nil).Wait(ctx); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	status, err := module.Get[string](a.Shop.Cart, "checkoutStatus")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Checkout: %s\n", status)
	return nil
}

func printCart(out io.Writer, cart *module.Accessor) error {
	lines, err := module.GetterAs[[]shop.CartProduct](cart, "cartProducts")
	if err != nil {
		return err
	}
	total, err := module.GetterAs[int64](cart, "cartTotalPrice")
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Cart:")
	for _, l := range lines {
		fmt.Fprintf(out, "  %-28s %2d x %s\n", l.Title, l.Quantity, shop.FormatPrice(l.Price))
	}
	fmt.Fprintf(out, "  Total: %s\n", shop.FormatPrice(total))
	return nil
}
