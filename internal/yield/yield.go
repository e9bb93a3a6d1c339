// Package yield tracks the pro-rata claim of liquidity providers on the
// cumulative yield of a pool.
package yield

import (
	"spiceEngine/internal/model"
)

// ExitFeeDivisor sets the exit fee (1/100 of the withdrawal) charged while a
// pool is depleted.
const ExitFeeDivisor uint64 = 100

// twoTo64 is the first float64 value beyond the uint64 range.
const twoTo64 = 18446744073709551616.0

// Pending returns the yield a provider holding balance units accrued since its
// snapshot lastCumulativeYield. totalLP is the pool principal; an empty pool
// accrues nothing.
func Pending(cumulativeYield, totalLP, balance, lastCumulativeYield uint64) (uint64, error) {
	if cumulativeYield < lastCumulativeYield {
		return 0, model.ErrOverflow
	}
	if totalLP == 0 {
		return 0, nil
	}

	delta := (cumulativeYield - lastCumulativeYield) / model.SpiceScale
	perUnit := float64(delta) / float64(totalLP)
	income := perUnit * float64(balance)
	if income >= twoTo64 {
		return 0, model.ErrOverflow
	}
	return uint64(income), nil
}

// Entitlement is the total yield owed to provider right now.
func Entitlement(pool model.Pool, provider model.Provider) (uint64, error) {
	pending, err := Pending(pool.CumulativeYield, pool.InitialLiquidity, provider.LPBalance, provider.LastCumulativeYield)
	if err != nil {
		return 0, err
	}
	total := pending + provider.PendingClaim
	if total < pending {
		return 0, model.ErrOverflow
	}
	return total, nil
}

// Settle defers the accrued yield into PendingClaim and resyncs the snapshot,
// so the provider balance can change without losing or diluting accruals.
func Settle(pool model.Pool, provider model.Provider) (model.Provider, error) {
	owed, err := Entitlement(pool, provider)
	if err != nil {
		return provider, err
	}
	provider.PendingClaim = owed
	provider.LastCumulativeYield = pool.CumulativeYield
	return provider, nil
}

// Claim returns everything owed to provider and the provider with its claim
// cleared.
func Claim(pool model.Pool, provider model.Provider) (uint64, model.Provider, error) {
	owed, err := Entitlement(pool, provider)
	if err != nil {
		return 0, provider, err
	}
	provider.PendingClaim = 0
	provider.LastCumulativeYield = pool.CumulativeYield
	return owed, provider, nil
}

// WithdrawalAmount is the payout for returning amount of principal plus owed
// yield, less the exit fee when the pool is depleted.
func WithdrawalAmount(pool model.Pool, amount, owed uint64) (uint64, error) {
	total := amount + owed
	if total < amount {
		return 0, model.ErrOverflow
	}
	if pool.Depleted() {
		total -= total / ExitFeeDivisor
	}
	return total, nil
}
