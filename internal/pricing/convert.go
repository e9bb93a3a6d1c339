// Package pricing converts amounts between assets using oracle prices.
package pricing

import (
	"github.com/holiman/uint256"

	"spiceEngine/internal/model"
)

// maxDecimalShift is the largest power of ten representable in 128 bits.
const maxDecimalShift = 38

var ten = uint256.NewInt(10)

// RawAmountOut converts amountIn of asset A into asset B at priceA/priceB and
// rescales the result from decimalsA to decimalsB. The computation stays in a
// 128-bit domain; results outside it fail with model.ErrOverflow.
func RawAmountOut(amountIn, priceA, priceB uint64, decimalsA, decimalsB uint8) (*uint256.Int, error) {
	if priceB == 0 {
		return nil, model.ErrDivideByZero
	}

	out := new(uint256.Int).Mul(uint256.NewInt(amountIn), uint256.NewInt(priceA))
	out.Div(out, uint256.NewInt(priceB))

	switch {
	case decimalsA > decimalsB:
		scale, err := pow10(decimalsA - decimalsB)
		if err != nil {
			return nil, err
		}
		out.Div(out, scale)
	case decimalsB > decimalsA:
		scale, err := pow10(decimalsB - decimalsA)
		if err != nil {
			return nil, err
		}
		if _, overflow := out.MulOverflow(out, scale); overflow || !Fits128(out) {
			return nil, model.ErrOverflow
		}
	}

	return out, nil
}

// Fits128 reports whether v is representable as an unsigned 128-bit integer.
func Fits128(v *uint256.Int) bool {
	return v != nil && v.BitLen() <= 128
}

func pow10(shift uint8) (*uint256.Int, error) {
	if shift > maxDecimalShift {
		return nil, model.ErrOverflow
	}
	return new(uint256.Int).Exp(ten, uint256.NewInt(uint64(shift))), nil
}
