package app

import (
	"github.com/artpar/modstore/core/module"
	"github.com/artpar/modstore/domain/shop"
	"github.com/artpar/modstore/ports"
	"github.com/rs/zerolog"
)

// CartModule holds the cart and runs checkout against the shop API.
type CartModule struct {
	module.Base
	api      ports.ShopAPI
	products *module.Accessor
	logger   zerolog.Logger
}

// NewCartModule creates the cart module declaration. products is the
// accessor of a registered ProductsModule.
func NewCartModule(api ports.ShopAPI, products *module.Accessor, logger zerolog.Logger) *CartModule {
	return &CartModule{api: api, products: products, logger: logger}
}

// InitialState starts with an empty cart. The products entry is a reference,
// not state.
func (c *CartModule) InitialState() module.State {
	return module.State{
		"items":          []shop.CartItem{},
		"checkoutStatus": shop.CheckoutNone,
		"products":       c.products,
	}
}

// Getters join the cart with the catalog.
func (c *CartModule) Getters() module.Getters {
	return module.Getters{
		"cartProducts": func(g *module.GetterContext) (any, error) {
			items, err := module.Get[[]shop.CartItem](g, "items")
			if err != nil {
				return nil, err
			}
			products, ok := g.Ref("products")
			if !ok {
				return []shop.CartProduct{}, nil
			}
			all, err := module.Get[[]shop.Product](products, "all")
			if err != nil {
				return nil, err
			}
			return shop.CartProducts(items, all)
		},
		"cartTotalPrice": func(g *module.GetterContext) (any, error) {
			lines, err := module.GetterAs[[]shop.CartProduct](g, "cartProducts")
			if err != nil {
				return nil, err
			}
			return shop.TotalPrice(lines), nil
		},
	}
}

// Mutators add to the cart.
func (c *CartModule) Mutators() module.Mutators {
	return module.Mutators{
		"pushProductToCart": func(m *module.MutationContext, payload any) error {
			id, err := module.Payload[int](payload)
			if err != nil {
				return err
			}
			items, err := module.Get[[]shop.CartItem](m, "items")
			if err != nil {
				return err
			}
			return m.Set("items", shop.PushItem(items, id))
		},
		"incrementItemQuantity": func(m *module.MutationContext, payload any) error {
			id, err := module.Payload[int](payload)
			if err != nil {
				return err
			}
			items, err := module.Get[[]shop.CartItem](m, "items")
			if err != nil {
				return err
			}
			next, err := shop.IncrementQuantity(items, id)
			if err != nil {
				return err
			}
			return m.Set("items", next)
		},
	}
}

// Actions add products and check out.
func (c *CartModule) Actions() module.Actions {
	return module.Actions{
		"addProductToCart": func(a *module.ActionContext, payload any) error {
			product, err := module.Payload[shop.Product](payload)
			if err != nil {
				return err
			}
			if err := a.Set("checkoutStatus", shop.CheckoutNone); err != nil {
				return err
			}
			if product.Inventory <= 0 {
				return nil
			}

			items, err := module.Get[[]shop.CartItem](a, "items")
			if err != nil {
				return err
			}
			if _, found := shop.FindItem(items, product.ID); found {
				err = a.Commit("incrementItemQuantity", product.ID)
			} else {
				err = a.Commit("pushProductToCart", product.ID)
			}
			if err != nil {
				return err
			}

			products, _ := a.Ref("products")
			return products.Commit("decrementProductInventory", product.ID)
		},
		"checkout": func(a *module.ActionContext, _ any) error {
			saved, err := module.Get[[]shop.CartItem](a, "items")
			if err != nil {
				return err
			}
			if err := a.Set("checkoutStatus", shop.CheckoutNone); err != nil {
				return err
			}
			if err := a.Set("items", []shop.CartItem{}); err != nil {
				return err
			}

			if err := c.api.BuyProducts(a.Context(), saved); err != nil {
				c.logger.Warn().Err(err).Int("items", len(saved)).Msg("checkout failed, cart restored")
				if err := a.Set("items", saved); err != nil {
					return err
				}
				return a.Set("checkoutStatus", shop.CheckoutFailed)
			}
			return a.Set("checkoutStatus", shop.CheckoutSuccessful)
		},
	}
}
