// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/artpar/modstore/domain/shop"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// Random abstracts randomness for testability.
type Random interface {
	// Float64 returns a number in [0.0, 1.0).
	Float64() float64
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Collaborator Ports
// -----------------------------------------------------------------------------

// ShopAPI is the backend the shop modules talk to from their actions.
type ShopAPI interface {
	// GetProducts returns the current catalog.
	GetProducts(ctx context.Context) ([]shop.Product, error)

	// BuyProducts purchases the given cart items.
	BuyProducts(ctx context.Context, items []shop.CartItem) error
}
