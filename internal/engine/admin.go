package engine

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"spiceEngine/internal/model"
	"spiceEngine/internal/storage"
)

// CreatePoolRequest describes a new pool.
type CreatePoolRequest struct {
	Asset        common.Address
	OracleFeed   common.Address
	LPShareAsset common.Address
	Active       bool
	BaseFee      uint64
}

// InitTreasury creates the treasury settings with caller as admin. Only the
// configured administrator may call it, and only once.
func (e *Engine) InitTreasury(ctx context.Context, caller common.Address, incomeDistribution uint64, stoptap bool) (model.Settings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.administrator {
		return model.Settings{}, e.fail("init treasury", model.ErrInvalidAdmin)
	}
	_, ok, err := e.store.Settings(ctx)
	if err != nil {
		return model.Settings{}, e.fail("init treasury", err)
	}
	if ok {
		return model.Settings{}, e.fail("init treasury", model.ErrAlreadyInitialized)
	}

	settings := model.Settings{Admin: caller, IncomeDistribution: incomeDistribution, Stoptap: stoptap}
	if err := e.commit(ctx, storage.ChangeSet{Settings: &settings}, nil); err != nil {
		return model.Settings{}, e.fail("init treasury", err)
	}
	e.logger.Info("treasury initialised",
		zap.String("admin", caller.Hex()),
		zap.Uint64("income_distribution", incomeDistribution),
		zap.Bool("stoptap", stoptap),
	)
	return settings, nil
}

// UpdateSettings replaces the treasury settings, possibly rotating the admin.
func (e *Engine) UpdateSettings(ctx context.Context, caller, newAdmin common.Address, incomeDistribution uint64, stoptap bool) (model.Settings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.requireAdmin(ctx, caller); err != nil {
		return model.Settings{}, e.fail("update settings", err)
	}

	settings := model.Settings{Admin: newAdmin, IncomeDistribution: incomeDistribution, Stoptap: stoptap}
	if err := e.commit(ctx, storage.ChangeSet{Settings: &settings}, nil); err != nil {
		return model.Settings{}, e.fail("update settings", err)
	}
	e.logger.Info("treasury settings updated",
		zap.String("admin", newAdmin.Hex()),
		zap.Uint64("income_distribution", incomeDistribution),
		zap.Bool("stoptap", stoptap),
	)
	return settings, nil
}

// CreatePool registers a pool with zeroed accumulators.
func (e *Engine) CreatePool(ctx context.Context, caller common.Address, req CreatePoolRequest) (model.Pool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.requireAdmin(ctx, caller); err != nil {
		return model.Pool{}, e.fail("create pool", err)
	}
	if err := validBaseFee(req.BaseFee); err != nil {
		return model.Pool{}, e.fail("create pool", err)
	}
	_, exists, err := e.store.Pool(ctx, req.Asset)
	if err != nil {
		return model.Pool{}, e.fail("create pool", err)
	}
	if exists {
		return model.Pool{}, e.fail("create pool", model.ErrPoolExists)
	}

	pool := model.Pool{
		Asset:        req.Asset,
		OracleFeed:   req.OracleFeed,
		LPShareAsset: req.LPShareAsset,
		Active:       req.Active,
		BaseFee:      req.BaseFee,
	}
	if err := e.commit(ctx, storage.ChangeSet{Pools: []model.Pool{pool}}, nil); err != nil {
		return model.Pool{}, e.fail("create pool", err)
	}
	e.logger.Info("pool created",
		zap.String("asset", pool.Asset.Hex()),
		zap.String("oracle_feed", pool.OracleFeed.Hex()),
		zap.Bool("active", pool.Active),
		zap.Uint64("base_fee", pool.BaseFee),
	)
	return pool, nil
}

// SetPoolSettings changes the active flag and fee floor of a pool.
func (e *Engine) SetPoolSettings(ctx context.Context, caller, asset common.Address, active bool, baseFee uint64) (model.Pool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.requireAdmin(ctx, caller); err != nil {
		return model.Pool{}, e.fail("set pool settings", err)
	}
	if err := validBaseFee(baseFee); err != nil {
		return model.Pool{}, e.fail("set pool settings", err)
	}
	pool, err := e.pool(ctx, asset)
	if err != nil {
		return model.Pool{}, e.fail("set pool settings", err)
	}

	pool.Active = active
	pool.BaseFee = baseFee
	if err := e.commit(ctx, storage.ChangeSet{Pools: []model.Pool{pool}}, nil); err != nil {
		return model.Pool{}, e.fail("set pool settings", err)
	}
	e.logger.Info("pool settings updated",
		zap.String("asset", asset.Hex()),
		zap.Bool("active", active),
		zap.Uint64("base_fee", baseFee),
	)
	return pool, nil
}

// CollectProtocolIncome pays the whole units of accrued protocol income of a
// pool to the admin. The sub-unit remainder stays in the pool.
func (e *Engine) CollectProtocolIncome(ctx context.Context, caller, asset common.Address) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.requireAdmin(ctx, caller); err != nil {
		return 0, e.fail("collect protocol income", err)
	}
	pool, err := e.pool(ctx, asset)
	if err != nil {
		return 0, e.fail("collect protocol income", err)
	}

	payout := pool.ProtocolIncome / model.SpiceScale
	pool.ProtocolIncome %= model.SpiceScale

	transfers := []model.Transfer{{Kind: model.TransferPush, Asset: asset, Account: caller, Amount: payout}}
	if err := e.commit(ctx, storage.ChangeSet{Pools: []model.Pool{pool}}, transfers); err != nil {
		return 0, e.fail("collect protocol income", err)
	}
	e.logger.Info("protocol income collected", zap.String("asset", asset.Hex()), zap.Uint64("amount", payout))
	return payout, nil
}
