// Package fee implements the imbalance-sensitive fee curve and the split of a
// gross output between trader, protocol and partner.
package fee

import (
	"math"

	"spiceEngine/internal/model"
)

// Regime is the fee curve branch selected for a trade.
type Regime int

const (
	// Regular trades pay the gentle curve capped at RegularCeiling.
	Regular Regime = iota
	// Equalizing trades restore pool A exactly and pay only the floor.
	Equalizing
	// Imbalancing trades drain an already depleted pool B and pay the steep curve.
	Imbalancing
)

const (
	RegularCeiling     uint64 = 1_000
	ImbalancingCeiling uint64 = 10_000

	regularSteepness     = 1.0
	imbalancingSteepness = 5.0
)

func (r Regime) String() string {
	switch r {
	case Equalizing:
		return "equalizing"
	case Imbalancing:
		return "imbalancing"
	default:
		return "regular"
	}
}

// Liquidity is the principal and tradable balance of one pool.
type Liquidity struct {
	Initial uint64
	Current uint64
}

// Delta returns Current - Initial as a signed value.
func (l Liquidity) Delta() (int64, error) {
	if l.Initial > math.MaxInt64 || l.Current > math.MaxInt64 {
		return 0, model.ErrOverflow
	}
	return int64(l.Current) - int64(l.Initial), nil
}

// Rate is the outcome of the fee curve.
type Rate struct {
	Value  uint64
	Regime Regime
}

// SelectRegime evaluates the regime predicates in order: equalizing, then
// imbalancing, otherwise regular.
func SelectRegime(amountIn uint64, poolA, poolB Liquidity) (Regime, error) {
	deltaA, err := poolA.Delta()
	if err != nil {
		return Regular, err
	}
	deltaB, err := poolB.Delta()
	if err != nil {
		return Regular, err
	}

	// deltaA + amountIn == 0, without leaving int64.
	if deltaA <= 0 && uint64(-deltaA) == amountIn && deltaB >= 0 {
		return Equalizing, nil
	}
	if deltaA > deltaB && deltaB < 0 {
		return Imbalancing, nil
	}
	return Regular, nil
}

// Dynamic computes the fee rate for swapping amountIn of A into amountOut of B.
// The result is never below floor.
func Dynamic(floor, amountIn, amountOut uint64, poolA, poolB Liquidity) (Rate, error) {
	if poolB.Current == 0 {
		return Rate{}, model.ErrNoLiquidity
	}

	regime, err := SelectRegime(amountIn, poolA, poolB)
	if err != nil {
		return Rate{}, err
	}

	ratio := float64(amountOut) / float64(poolB.Current)
	switch regime {
	case Equalizing:
		return Rate{Value: floor, Regime: regime}, nil
	case Imbalancing:
		fee := curve(ImbalancingCeiling, imbalancingSteepness, ratio)
		return Rate{Value: clamp(fee, floor, ImbalancingCeiling), Regime: regime}, nil
	default:
		fee := curve(RegularCeiling, regularSteepness, ratio)
		return Rate{Value: clamp(fee, floor, RegularCeiling), Regime: regime}, nil
	}
}

func curve(ceiling uint64, steepness, ratio float64) uint64 {
	return uint64(math.Round(float64(ceiling) * (1.0 - math.Exp(-steepness*ratio))))
}

// clamp bounds fee to [floor, ceiling]; floor wins when it exceeds ceiling.
func clamp(fee, floor, ceiling uint64) uint64 {
	if fee > ceiling {
		fee = ceiling
	}
	if fee < floor {
		fee = floor
	}
	return fee
}
