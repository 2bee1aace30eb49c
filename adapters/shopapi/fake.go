// Package shopapi provides ShopAPI implementations: an in-process fake that
// simulates latency and flaky purchases, and an HTTP client for a remote shop.
package shopapi

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/artpar/modstore/domain/shop"
	"github.com/artpar/modstore/ports"
)

// ErrPurchaseFailed is returned when the fake backend rejects a purchase.
var ErrPurchaseFailed = errors.New("shopapi: purchase failed")

// DefaultLatency is how long the fake takes to answer.
const DefaultLatency = 100 * time.Millisecond

// DefaultFailureRate is the chance that a purchase fails.
const DefaultFailureRate = 0.5

// FakeConfig configures the fake backend.
type FakeConfig struct {
	// Products is the catalog. Defaults to shop.Catalog().
	Products []shop.Product

	// Latency is applied to every call. Zero means no delay.
	Latency time.Duration

	// FailureRate is the probability in [0, 1] that BuyProducts fails.
	FailureRate float64

	// Random decides failures. Required when FailureRate > 0.
	Random ports.Random
}

// Fake is an in-process ShopAPI for demos and tests.
type Fake struct {
	cfg FakeConfig

	mu        sync.Mutex
	purchases [][]shop.CartItem
}

// NewFake creates a fake backend.
func NewFake(cfg FakeConfig) *Fake {
	if cfg.Products == nil {
		cfg.Products = shop.Catalog()
	}
	return &Fake{cfg: cfg}
}

// GetProducts returns a copy of the catalog after the configured latency.
func (f *Fake) GetProducts(ctx context.Context) ([]shop.Product, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	out := make([]shop.Product, len(f.cfg.Products))
	copy(out, f.cfg.Products)
	return out, nil
}

// BuyProducts fails when the random draw lands in the top FailureRate of
// [0, 1), otherwise it records the purchase.
func (f *Fake) BuyProducts(ctx context.Context, items []shop.CartItem) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	if f.cfg.FailureRate > 0 && f.cfg.Random.Float64() > 1-f.cfg.FailureRate {
		return ErrPurchaseFailed
	}

	bought := make([]shop.CartItem, len(items))
	copy(bought, items)

	f.mu.Lock()
	f.purchases = append(f.purchases, bought)
	f.mu.Unlock()
	return nil
}

// Purchases returns the successful purchases so far.
func (f *Fake) Purchases() [][]shop.CartItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]shop.CartItem, len(f.purchases))
	copy(out, f.purchases)
	return out
}

func (f *Fake) wait(ctx context.Context) error {
	if f.cfg.Latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(f.cfg.Latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ ports.ShopAPI = (*Fake)(nil)
