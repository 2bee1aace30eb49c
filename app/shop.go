package app

import (
	"context"
	"fmt"

	"github.com/artpar/modstore/core/module"
	"github.com/artpar/modstore/core/store"
	"github.com/artpar/modstore/ports"
	"github.com/rs/zerolog"
)

// Module names the shop registers under.
const (
	ProductsModuleName = "products"
	CartModuleName     = "cart"
)

// Shop is the registered products and cart modules.
type Shop struct {
	Products *module.Accessor
	Cart     *module.Accessor
}

// RegisterShop registers the products and cart modules with s.
// Both modules generate setters; their actions assign state through them.
func RegisterShop(s *store.Store, api ports.ShopAPI, logger zerolog.Logger) (*Shop, error) {
	products, err := module.Register(NewProductsModule(api), module.Options{
		Store:           s,
		Name:            ProductsModuleName,
		GenerateSetters: true,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("register products: %w", err)
	}

	cart, err := module.Register(NewCartModule(api, products, logger.With().Str("module", CartModuleName).Logger()), module.Options{
		Store:           s,
		Name:            CartModuleName,
		GenerateSetters: true,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("register cart: %w", err)
	}

	return &Shop{Products: products, Cart: cart}, nil
}

// Ready waits until the catalog has loaded.
func (s *Shop) Ready(ctx context.Context) error {
	return s.Products.Loaded().Wait(ctx)
}
