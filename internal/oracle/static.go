package oracle

import (
	"context"
	"sync"

	"lending/core"

	"github.com/holiman/uint256"
)

// Static oracle returning a settable price already at core.PriceScale
type Static struct {
	mu    sync.RWMutex
	price *uint256.Int
	err   error
}

// NewStatic static oracle
func NewStatic(price *uint256.Int) *Static {
	return &Static{price: price.Clone()}
}

// Set replace the price and clear any failure
func (o *Static) Set(price *uint256.Int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.price = price.Clone()
	o.err = nil
}

// Fail make Price return err until the next Set
func (o *Static) Fail(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.err = err
}

func (o *Static) Price(ctx context.Context) (*uint256.Int, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.err != nil {
		return nil, o.err
	}

	if o.price.IsZero() {
		return nil, core.ErrInvalidPrice.With("zero price")
	}

	return o.price.Clone(), nil
}
