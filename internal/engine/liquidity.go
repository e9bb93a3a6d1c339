package engine

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"go.uber.org/zap"

	"spiceEngine/internal/model"
	"spiceEngine/internal/storage"
	"spiceEngine/internal/yield"
)

// IncreaseLiquidity deposits amount of asset from caller and mints the same
// amount of LP shares. Yield accrued so far is settled into the pending claim
// before the balance grows.
func (e *Engine) IncreaseLiquidity(ctx context.Context, caller, asset common.Address, amount uint64) (model.Provider, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	provider, err := e.increaseLiquidity(ctx, caller, asset, amount)
	if err != nil {
		return model.Provider{}, e.fail("increase liquidity", err)
	}
	e.metrics.LiquidityTotal.WithLabelValues("add").Add(float64(amount))
	e.logger.Debug("liquidity added",
		zap.String("asset", asset.Hex()),
		zap.String("owner", caller.Hex()),
		zap.Uint64("amount", amount),
		zap.Uint64("lp_balance", provider.LPBalance),
	)
	return provider, nil
}

func (e *Engine) increaseLiquidity(ctx context.Context, caller, asset common.Address, amount uint64) (model.Provider, error) {
	if _, err := e.requireOpen(ctx); err != nil {
		return model.Provider{}, err
	}
	pool, err := e.pool(ctx, asset)
	if err != nil {
		return model.Provider{}, err
	}
	provider, _, err := e.provider(ctx, asset, caller)
	if err != nil {
		return model.Provider{}, err
	}

	provider, err = yield.Settle(pool, provider)
	if err != nil {
		return model.Provider{}, err
	}
	var overflow bool
	if provider.LPBalance, overflow = math.SafeAdd(provider.LPBalance, amount); overflow {
		return model.Provider{}, model.ErrOverflow
	}
	if pool.InitialLiquidity, overflow = math.SafeAdd(pool.InitialLiquidity, amount); overflow {
		return model.Provider{}, model.ErrOverflow
	}
	if pool.CurrentLiquidity, overflow = math.SafeAdd(pool.CurrentLiquidity, amount); overflow {
		return model.Provider{}, model.ErrOverflow
	}

	transfers := []model.Transfer{
		{Kind: model.TransferPull, Asset: asset, Account: caller, Amount: amount},
		{Kind: model.TransferMint, Asset: pool.LPShareAsset, Account: caller, Amount: amount},
	}
	changes := storage.ChangeSet{Pools: []model.Pool{pool}, Providers: []model.Provider{provider}}
	if err := e.commit(ctx, changes, transfers); err != nil {
		return model.Provider{}, err
	}
	return provider, nil
}

// DecreaseLiquidity burns amount of LP shares and pays back the principal
// plus all owed yield, less the exit fee while the pool is depleted. It
// returns the amount paid.
func (e *Engine) DecreaseLiquidity(ctx context.Context, caller, asset common.Address, amount uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	payout, err := e.decreaseLiquidity(ctx, caller, asset, amount)
	if err != nil {
		return 0, e.fail("decrease liquidity", err)
	}
	e.metrics.LiquidityTotal.WithLabelValues("remove").Add(float64(amount))
	e.logger.Debug("liquidity removed",
		zap.String("asset", asset.Hex()),
		zap.String("owner", caller.Hex()),
		zap.Uint64("amount", amount),
		zap.Uint64("payout", payout),
	)
	return payout, nil
}

func (e *Engine) decreaseLiquidity(ctx context.Context, caller, asset common.Address, amount uint64) (uint64, error) {
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
	if amount > provider.LPBalance {
		return 0, model.ErrInvalidLpAmount
	}

	owed, provider, err := yield.Claim(pool, provider)
	if err != nil {
		return 0, err
	}
	payout, err := yield.WithdrawalAmount(pool, amount, owed)
	if err != nil {
		return 0, err
	}

	var underflow bool
	provider.LPBalance -= amount
	if pool.InitialLiquidity, underflow = math.SafeSub(pool.InitialLiquidity, amount); underflow {
		return 0, model.ErrOverflow
	}
	if pool.CurrentLiquidity, underflow = math.SafeSub(pool.CurrentLiquidity, amount); underflow {
		return 0, model.ErrInsufficientLiquidity
	}

	transfers := []model.Transfer{
		{Kind: model.TransferBurn, Asset: pool.LPShareAsset, Account: caller, Amount: amount},
		{Kind: model.TransferPush, Asset: asset, Account: caller, Amount: payout},
	}
	changes := storage.ChangeSet{Pools: []model.Pool{pool}, Providers: []model.Provider{provider}}
	if err := e.commit(ctx, changes, transfers); err != nil {
		return 0, err
	}
	return payout, nil
}
