// Package oracle resolves price feeds into prices.
package oracle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"spiceEngine/internal/model"
)

// PriceOracle returns the latest price published by a feed.
type PriceOracle interface {
	Price(ctx context.Context, feed common.Address) (model.Price, error)
}

// Static serves prices from an in-memory table.
type Static struct {
	mu     sync.RWMutex
	prices map[common.Address]model.Price
}

// NewStatic returns a table seeded with prices keyed by feed.
func NewStatic(prices map[common.Address]int64) *Static {
	s := &Static{prices: make(map[common.Address]model.Price, len(prices))}
	for feed, value := range prices {
		s.Set(feed, value)
	}
	return s
}

// Set publishes value for feed.
func (s *Static) Set(feed common.Address, value int64) {
	s.mu.Lock()
	s.prices[feed] = model.Price{Feed: feed, Value: value, UpdatedAt: time.Now().UTC()}
	s.mu.Unlock()
}

func (s *Static) Price(_ context.Context, feed common.Address) (model.Price, error) {
	s.mu.RLock()
	price, ok := s.prices[feed]
	s.mu.RUnlock()
	if !ok {
		return model.Price{}, fmt.Errorf("feed %s: %w", feed.Hex(), model.ErrPriceNotAvailable)
	}
	return price, nil
}
