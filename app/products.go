// Package app contains the shop modules built on the module store.
package app

import (
	"fmt"

	"github.com/artpar/modstore/core/module"
	"github.com/artpar/modstore/domain/shop"
	"github.com/artpar/modstore/ports"
)

// ProductsModule holds the catalog. It loads the catalog from the shop API
// once it is registered.
type ProductsModule struct {
	module.Base
	api ports.ShopAPI
}

// NewProductsModule creates the products module declaration.
func NewProductsModule(api ports.ShopAPI) *ProductsModule {
	return &ProductsModule{api: api}
}

// InitialState starts with an empty catalog.
func (p *ProductsModule) InitialState() module.State {
	return module.State{"all": []shop.Product{}}
}

// Mutators decrement the stock of one product.
func (p *ProductsModule) Mutators() module.Mutators {
	return module.Mutators{
		"decrementProductInventory": func(m *module.MutationContext, payload any) error {
			id, err := module.Payload[int](payload)
			if err != nil {
				return err
			}
			all, err := module.Get[[]shop.Product](m, "all")
			if err != nil {
				return err
			}
			next, err := shop.DecrementInventory(all, id)
			if err != nil {
				return err
			}
			return m.Set("all", next)
		},
	}
}

// Actions fetch the catalog.
func (p *ProductsModule) Actions() module.Actions {
	return module.Actions{
		"getAllProducts": func(a *module.ActionContext, _ any) error {
			products, err := p.api.GetProducts(a.Context())
			if err != nil {
				return fmt.Errorf("get products: %w", err)
			}
			return a.Set("all", products)
		},
	}
}

// Onload loads the catalog after registration.
func (p *ProductsModule) Onload() []string {
	return []string{"getAllProducts"}
}
