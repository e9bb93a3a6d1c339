package token

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatAmount renders base units as a decimal string with the given
// precision, e.g. 1500000 at 6 decimals is "1.5".
func FormatAmount(amount uint64, decimals uint8) string {
	return ToDecimal(amount, decimals).String()
}

// ToDecimal converts base units to a decimal value.
func ToDecimal(amount uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
}

// ParseAmount converts a decimal string to base units. Digits beyond the
// asset precision are rejected.
func ParseAmount(value string, decimals uint8) (uint64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative amount %s", value)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %s exceeds asset precision", value)
	}
	units := scaled.BigInt()
	if !units.IsUint64() {
		return 0, fmt.Errorf("amount %s out of range", value)
	}
	return units.Uint64(), nil
}
