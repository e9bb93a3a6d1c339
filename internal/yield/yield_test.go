package yield

import (
	"errors"
	"testing"

	"pgregory.net/rapid"

	"spiceEngine/internal/model"
)

func TestPendingZeroBalance(t *testing.T) {
	got, err := Pending(0, 50_000_000_000, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected zero, got %d", got)
	}
}

func TestPendingProRata(t *testing.T) {
	// 3_000 units of yield (scaled) over 1_000 principal, provider holds 250.
	got, err := Pending(3_000_000, 1_000, 250, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 750 {
		t.Fatalf("expected 750, got %d", got)
	}
}

func TestPendingUnscalesBeforeDividing(t *testing.T) {
	// 1_999 scaled is 1 unscaled unit: sub-unit yield is not distributed.
	got, err := Pending(1_999, 1, 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}

func TestPendingEmptyPool(t *testing.T) {
	got, err := Pending(5_000_000, 0, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected zero from empty pool, got %d", got)
	}
}

func TestPendingSnapshotAhead(t *testing.T) {
	if _, err := Pending(10, 1, 1, 11); !errors.Is(err, model.ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestSettleKeepsAccrual(t *testing.T) {
	pool := model.Pool{InitialLiquidity: 100, CumulativeYield: 500_000}
	provider := model.Provider{LPBalance: 40, LastCumulativeYield: 100_000, PendingClaim: 7}

	settled, err := Settle(pool, provider)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settled.PendingClaim != 7+160 {
		t.Fatalf("pending claim mismatch: %d", settled.PendingClaim)
	}
	if settled.LastCumulativeYield != pool.CumulativeYield {
		t.Fatalf("snapshot not resynced")
	}

	// Settling again without new yield changes nothing.
	again, err := Settle(pool, settled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != settled {
		t.Fatalf("settle is not idempotent: %+v != %+v", again, settled)
	}
}

func TestClaimClears(t *testing.T) {
	pool := model.Pool{InitialLiquidity: 100, CumulativeYield: 500_000}
	provider := model.Provider{LPBalance: 40, LastCumulativeYield: 100_000, PendingClaim: 7}

	owed, cleared, err := Claim(pool, provider)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owed != 167 {
		t.Fatalf("owed mismatch: %d", owed)
	}
	if cleared.PendingClaim != 0 || cleared.LastCumulativeYield != pool.CumulativeYield {
		t.Fatalf("claim not cleared: %+v", cleared)
	}

	owed, _, err = Claim(pool, cleared)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owed != 0 {
		t.Fatalf("second claim must be zero, got %d", owed)
	}
}

func TestWithdrawalAmountExitFee(t *testing.T) {
	healthy := model.Pool{InitialLiquidity: 1_000, CurrentLiquidity: 1_000}
	got, err := WithdrawalAmount(healthy, 500, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 550 {
		t.Fatalf("expected no exit fee, got %d", got)
	}

	depleted := model.Pool{InitialLiquidity: 1_000, CurrentLiquidity: 999}
	got, err = WithdrawalAmount(depleted, 500, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 545 {
		t.Fatalf("expected 1%% exit fee, got %d", got)
	}
}

func TestPendingNeverExceedsPoolYield(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		totalLP := rapid.Uint64Range(1, 1<<40).Draw(t, "totalLP")
		balance := rapid.Uint64Range(0, totalLP).Draw(t, "balance")
		last := rapid.Uint64Range(0, 1<<50).Draw(t, "last")
		accrued := rapid.Uint64Range(0, 1<<50).Draw(t, "accrued")

		got, err := Pending(last+accrued, totalLP, balance, last)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got > accrued/model.SpiceScale {
			t.Fatalf("provider share %d exceeds accrued %d", got, accrued/model.SpiceScale)
		}
	})
}
