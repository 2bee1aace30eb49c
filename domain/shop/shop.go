// Package shop provides catalog and cart value types and pure functions.
//
// Functions never modify their input slices; they return new ones, so values
// held in published store state stay unchanged.
package shop

import (
	"errors"
	"fmt"
)

// Checkout status values.
const (
	CheckoutNone       = ""
	CheckoutSuccessful = "successful"
	CheckoutFailed     = "failed"
)

var (
	// ErrUnknownProduct is returned when an ID is not in the catalog.
	ErrUnknownProduct = errors.New("shop: unknown product")
	// ErrOutOfStock is returned when decrementing a product with no inventory.
	ErrOutOfStock = errors.New("shop: product out of stock")
	// ErrNotInCart is returned when an item is not in the cart.
	ErrNotInCart = errors.New("shop: item not in cart")
)

// Product is a catalog entry (immutable value type).
type Product struct {
	ID        int    `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	Price     int64  `json:"price" yaml:"price"` // cents
	Inventory int    `json:"inventory" yaml:"inventory"`
}

// CartItem is a product ID and how many of it are in the cart.
type CartItem struct {
	ID       int `json:"id" yaml:"id"`
	Quantity int `json:"quantity" yaml:"quantity"`
}

// CartProduct is a cart line joined with its catalog entry.
type CartProduct struct {
	Title    string `json:"title" yaml:"title"`
	Price    int64  `json:"price" yaml:"price"` // cents
	Quantity int    `json:"quantity" yaml:"quantity"`
}

// Catalog returns the products the demo shop sells.
func Catalog() []Product {
	return []Product{
		{ID: 1, Title: "iPad 4 Mini", Price: 50001, Inventory: 2},
		{ID: 2, Title: "H&M T-Shirt White", Price: 1099, Inventory: 10},
		{ID: 3, Title: "Charli XCX - Sucker CD", Price: 1999, Inventory: 5},
	}
}

// FindProduct returns the product with the given ID.
func FindProduct(products []Product, id int) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// DecrementInventory returns a copy of products with one less of id in stock.
func DecrementInventory(products []Product, id int) ([]Product, error) {
	out := make([]Product, len(products))
	copy(out, products)
	for i := range out {
		if out[i].ID != id {
			continue
		}
		if out[i].Inventory <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrOutOfStock, id)
		}
		out[i].Inventory--
		return out, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownProduct, id)
}

// FindItem returns the cart item for a product ID.
func FindItem(items []CartItem, id int) (CartItem, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return CartItem{}, false
}

// PushItem returns a copy of items with a new line of quantity 1 for id.
func PushItem(items []CartItem, id int) []CartItem {
	out := make([]CartItem, len(items), len(items)+1)
	copy(out, items)
	return append(out, CartItem{ID: id, Quantity: 1})
}

// IncrementQuantity returns a copy of items with the quantity of id raised by one.
func IncrementQuantity(items []CartItem, id int) ([]CartItem, error) {
	out := make([]CartItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ID == id {
			out[i].Quantity++
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrNotInCart, id)
}

// CartProducts joins cart items with the catalog.
func CartProducts(items []CartItem, products []Product) ([]CartProduct, error) {
	out := make([]CartProduct, 0, len(items))
	for _, it := range items {
		p, ok := FindProduct(products, it.ID)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownProduct, it.ID)
		}
		out = append(out, CartProduct{Title: p.Title, Price: p.Price, Quantity: it.Quantity})
	}
	return out, nil
}

// TotalPrice sums price times quantity over the lines, in cents.
func TotalPrice(lines []CartProduct) int64 {
	var total int64
	for _, l := range lines {
		total += l.Price * int64(l.Quantity)
	}
	return total
}

// FormatPrice renders cents as a decimal amount.
func FormatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
