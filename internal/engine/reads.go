package engine

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"spiceEngine/internal/model"
	"spiceEngine/internal/yield"
)

// Settings returns the treasury settings.
func (e *Engine) Settings(ctx context.Context) (model.Settings, error) {
	settings, err := e.settings(ctx)
	if err != nil {
		return model.Settings{}, e.fail("settings", err)
	}
	return settings, nil
}

// Pool returns the pool of asset.
func (e *Engine) Pool(ctx context.Context, asset common.Address) (model.Pool, error) {
	pool, err := e.pool(ctx, asset)
	if err != nil {
		return model.Pool{}, e.fail("pool", err)
	}
	return pool, nil
}

// Pools returns every pool.
func (e *Engine) Pools(ctx context.Context) ([]model.Pool, error) {
	pools, err := e.store.Pools(ctx)
	if err != nil {
		return nil, e.fail("pools", err)
	}
	return pools, nil
}

// Provider returns the position of owner in the pool of asset.
func (e *Engine) Provider(ctx context.Context, asset, owner common.Address) (model.Provider, error) {
	provider, ok, err := e.provider(ctx, asset, owner)
	if err != nil {
		return model.Provider{}, e.fail("provider", err)
	}
	if !ok {
		return model.Provider{}, e.fail("provider", model.ErrMissingAccount)
	}
	return provider, nil
}

// Entitlement returns the yield a harvest by owner would pay right now.
func (e *Engine) Entitlement(ctx context.Context, asset, owner common.Address) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.pool(ctx, asset)
	if err != nil {
		return 0, e.fail("entitlement", err)
	}
	provider, _, err := e.provider(ctx, asset, owner)
	if err != nil {
		return 0, e.fail("entitlement", err)
	}
	owed, err := yield.Entitlement(pool, provider)
	if err != nil {
		return 0, e.fail("entitlement", err)
	}
	return owed, nil
}
