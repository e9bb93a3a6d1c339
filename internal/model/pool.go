package model

import "github.com/ethereum/go-ethereum/common"

// Pool is the persisted liquidity state of one tradable asset.
type Pool struct {
	Asset        common.Address `json:"asset"`
	OracleFeed   common.Address `json:"oracle_feed"`
	LPShareAsset common.Address `json:"lp_share_asset"`
	Active       bool           `json:"active"`
	// BaseFee is the dynamic fee floor, scaled by FeeScale.
	BaseFee uint64 `json:"base_fee"`
	// InitialLiquidity is the deposited principal and the LP share supply.
	InitialLiquidity uint64 `json:"initial_liquidity"`
	// CurrentLiquidity is the tradable balance moved by swaps.
	CurrentLiquidity uint64 `json:"current_liquidity"`
	// CumulativeYield is scaled by SpiceScale and never decreases.
	CumulativeYield uint64 `json:"cumulative_yield"`
	// ProtocolIncome is scaled by SpiceScale.
	ProtocolIncome uint64 `json:"protocol_income"`
}

// Depleted reports whether swaps have drawn the pool below its principal.
func (p Pool) Depleted() bool {
	return p.CurrentLiquidity < p.InitialLiquidity
}
