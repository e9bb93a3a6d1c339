// Package token resolves asset metadata needed to convert amounts between
// assets of different precision.
package token

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry reports the number of decimals of an asset.
type Registry interface {
	Decimals(ctx context.Context, asset common.Address) (uint8, error)
}

// Meta describes an asset.
type Meta struct {
	Asset    common.Address `json:"asset"`
	Decimals uint8          `json:"decimals"`
	Symbol   string         `json:"symbol,omitempty"`
}

// Cache caches asset metadata by address.
type Cache struct {
	mu   sync.RWMutex
	data map[common.Address]Meta
}

func NewCache() *Cache {
	return &Cache{data: make(map[common.Address]Meta)}
}

func (c *Cache) Get(asset common.Address) (Meta, bool) {
	c.mu.RLock()
	meta, ok := c.data[asset]
	c.mu.RUnlock()
	return meta, ok
}

func (c *Cache) Set(asset common.Address, meta Meta) {
	c.mu.Lock()
	c.data[asset] = meta
	c.mu.Unlock()
}

// Static serves decimals from a fixed table.
type Static struct {
	cache *Cache
}

func NewStatic(decimals map[common.Address]uint8) *Static {
	s := &Static{cache: NewCache()}
	for asset, d := range decimals {
		s.cache.Set(asset, Meta{Asset: asset, Decimals: d})
	}
	return s
}

// Set registers decimals for asset.
func (s *Static) Set(asset common.Address, decimals uint8) {
	s.cache.Set(asset, Meta{Asset: asset, Decimals: decimals})
}

func (s *Static) Decimals(_ context.Context, asset common.Address) (uint8, error) {
	meta, ok := s.cache.Get(asset)
	if !ok {
		return 0, fmt.Errorf("unknown asset %s", asset.Hex())
	}
	return meta.Decimals, nil
}
