package model

import "github.com/ethereum/go-ethereum/common"

// Provider is the claim state of one depositor in one pool.
type Provider struct {
	Pool                common.Address `json:"pool"`
	Owner               common.Address `json:"owner"`
	LPBalance           uint64         `json:"lp_balance"`
	LastCumulativeYield uint64         `json:"last_cumulative_yield"`
	PendingClaim        uint64         `json:"pending_claim"`
}

// ProviderKey identifies a Provider record.
type ProviderKey struct {
	Pool  common.Address
	Owner common.Address
}

// Key returns the record key of p.
func (p Provider) Key() ProviderKey {
	return ProviderKey{Pool: p.Pool, Owner: p.Owner}
}
