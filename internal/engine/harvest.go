package engine

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"spiceEngine/internal/model"
	"spiceEngine/internal/storage"
	"spiceEngine/internal/yield"
)

// HarvestYield pays caller everything owed on its position in the pool of
// asset and returns the amount paid.
func (e *Engine) HarvestYield(ctx context.Context, caller, asset common.Address) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	owed, err := e.harvestYield(ctx, caller, asset)
	if err != nil {
		return 0, e.fail("harvest yield", err)
	}
	e.metrics.HarvestsTotal.Inc()
	e.logger.Debug("yield harvested",
		zap.String("asset", asset.Hex()),
		zap.String("owner", caller.Hex()),
		zap.Uint64("amount", owed),
	)
	return owed, nil
}

func (e *Engine) harvestYield(ctx context.Context, caller, asset common.Address) (uint64, error) {
	if _, err := e.requireOpen(ctx); err != nil {
		return 0, err
	}
	pool, err := e.pool(ctx, asset)
	if err != nil {
		return 0, err
	}
	provider, ok, err := e.provider(ctx, asset, caller)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, model.ErrMissingAccount
	}

	owed, provider, err := yield.Claim(pool, provider)
	if err != nil {
		return 0, err
	}

	transfers := []model.Transfer{{Kind: model.TransferPush, Asset: asset, Account: caller, Amount: owed}}
	if err := e.commit(ctx, storage.ChangeSet{Providers: []model.Provider{provider}}, transfers); err != nil {
		return 0, err
	}
	return owed, nil
}
