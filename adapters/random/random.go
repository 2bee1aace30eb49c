// Package random provides Random implementations.
package random

import (
	"math/rand/v2"
	"sync"

	"github.com/artpar/modstore/ports"
)

// Real draws from the runtime's shared pseudo-random source.
type Real struct{}

// Float64 returns a number in [0.0, 1.0).
func (Real) Float64() float64 {
	return rand.Float64()
}

// Fake provides deterministic randomness for testing.
// Preset values are returned in order and then repeat from the start.
type Fake struct {
	mu     sync.Mutex
	values []float64
	index  int
}

// NewFake creates a fake random source returning values in order.
func NewFake(values ...float64) *Fake {
	return &Fake{values: values}
}

// Float64 returns the next preset value, or 0 when none are configured.
func (f *Fake) Float64() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.values) == 0 {
		return 0
	}
	v := f.values[f.index%len(f.values)]
	f.index++
	return v
}

var (
	_ ports.Random = Real{}
	_ ports.Random = (*Fake)(nil)
)
