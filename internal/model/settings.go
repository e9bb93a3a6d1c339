package model

import "github.com/ethereum/go-ethereum/common"

// Settings is the treasury configuration shared by all pools.
type Settings struct {
	Admin common.Address `json:"admin"`
	// IncomeDistribution divides the protocol fee to obtain the treasury cut.
	IncomeDistribution uint64 `json:"income_distribution"`
	// Stoptap halts every value-moving public operation.
	Stoptap bool `json:"stoptap"`
}
