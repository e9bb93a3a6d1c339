package model

const (
	// FeeScale is the denominator of every fee rate (100_000 = 100%).
	FeeScale uint64 = 100_000
	// SpiceScale is the fixed-point scale of CumulativeYield and ProtocolIncome.
	SpiceScale uint64 = 1_000
)
