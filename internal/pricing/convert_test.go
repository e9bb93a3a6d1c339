package pricing

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"pgregory.net/rapid"

	"spiceEngine/internal/model"
)

func TestRawAmountOutReference(t *testing.T) {
	got, err := RawAmountOut(1_000_000_000_000_000_000, 17_100_000_000, 100_000_000, 9, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsUint64() || got.Uint64() != 171_000_000_000_000_000 {
		t.Fatalf("raw amount mismatch: %s", got.ToBig())
	}
}

func TestRawAmountOutScalesUp(t *testing.T) {
	got, err := RawAmountOut(5, 3, 1, 6, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Uint64() != 15_000 {
		t.Fatalf("raw amount mismatch: %s", got.ToBig())
	}
}

func TestRawAmountOutEqualDecimals(t *testing.T) {
	got, err := RawAmountOut(10, 7, 2, 8, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Uint64() != 35 {
		t.Fatalf("raw amount mismatch: %s", got.ToBig())
	}
}

func TestRawAmountOutDivideByZero(t *testing.T) {
	if _, err := RawAmountOut(1, 1, 0, 6, 6); !errors.Is(err, model.ErrDivideByZero) {
		t.Fatalf("expected divide by zero, got %v", err)
	}
}

func TestRawAmountOutOverflow(t *testing.T) {
	if _, err := RawAmountOut(^uint64(0), ^uint64(0), 1, 0, 38); !errors.Is(err, model.ErrOverflow) {
		t.Fatalf("expected overflow on upscale, got %v", err)
	}
	if _, err := RawAmountOut(1, 1, 1, 0, 39); !errors.Is(err, model.ErrOverflow) {
		t.Fatalf("expected overflow on decimal shift, got %v", err)
	}
	if _, err := RawAmountOut(1, 1, 1, 39, 0); !errors.Is(err, model.ErrOverflow) {
		t.Fatalf("expected overflow on decimal shift, got %v", err)
	}
}

func TestRawAmountOutLinear(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		amount := rapid.Uint64Range(0, 1<<32).Draw(t, "amount")
		k := rapid.Uint64Range(1, 1<<16).Draw(t, "k")
		priceA := rapid.Uint64Range(0, 1<<40).Draw(t, "priceA")
		priceB := rapid.Uint64Range(1, 1<<40).Draw(t, "priceB")
		decimals := rapid.Uint8Range(0, 18).Draw(t, "decimals")

		single, err := RawAmountOut(amount, priceA, priceB, decimals, decimals)
		if err != nil {
			t.Fatalf("single: %v", err)
		}
		scaled, err := RawAmountOut(amount*k, priceA, priceB, decimals, decimals)
		if err != nil {
			t.Fatalf("scaled: %v", err)
		}

		// floor(k*a/b) - k*floor(a/b) lies in [0, k-1].
		lower := new(uint256.Int).Mul(single, uint256.NewInt(k))
		upper := new(uint256.Int).Add(lower, uint256.NewInt(k-1))
		if scaled.Lt(lower) || scaled.Gt(upper) {
			t.Fatalf("not linear: raw(%d*%d)=%s, %d*raw=%s", k, amount, scaled.ToBig(), k, lower.ToBig())
		}
		if priceA%priceB == 0 && !scaled.Eq(lower) {
			t.Fatalf("exact price ratio must be exactly linear: %s != %s", scaled.ToBig(), lower.ToBig())
		}
	})
}
