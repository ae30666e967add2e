package keeper

import (
	"testing"
	"time"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"

	"github.com/openalpha/bond-amm/x/bondmarket/types"
)

func TestComputeBaseEquity(t *testing.T) {
	testCases := []struct {
		name                              string
		liquid, pnl, vault, weight, pastDue string
		want                              string
	}{
		{"all components", "9000", "50", "1000", "1", "-25", "10025"},
		{"vault excluded", "9000", "50", "1000", "0", "-25", "9025"},
		{"vault haircut", "9000", "0", "1000", "0.5", "0", "9500"},
		{"negative pnl", "100", "-200", "0", "1", "0", "-100"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeBaseEquity(
				dec(t, tc.liquid), dec(t, tc.pnl), dec(t, tc.vault),
				dec(t, tc.weight), dec(t, tc.pastDue),
			)
			if !got.Equal(dec(t, tc.want)) {
				t.Errorf("base equity: got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestComputeWeightedNetAtZero(t *testing.T) {
	sp := types.DefaultParams().Solvency

	// Expired exposure carries full weight on both legs
	net, err := ComputeWeightedNet(0, dec(t, "1000"), dec(t, "400"), sp)
	if err != nil {
		t.Fatalf("ComputeWeightedNet: %v", err)
	}
	if !net.Equal(dec(t, "600")) {
		t.Errorf("net at tau=0: got %s, want exactly 600", net)
	}
}

func TestComputeWeightedNetKnownValue(t *testing.T) {
	sp := types.DefaultParams().Solvency

	// tau equal to the weight timescale: phi = 1 - 1/e
	net, err := ComputeWeightedNet(sp.WeightTimescale, dec(t, "1000"), dec(t, "500"), sp)
	if err != nil {
		t.Fatalf("ComputeWeightedNet: %v", err)
	}
	relClose(t, "weighted net", net, dec(t, "341.9698602928605"), "0.000001")
}

func TestComputeWeightedNetMonotone(t *testing.T) {
	sp := types.DefaultParams().Solvency

	// For b = l the unweighted net is zero but the weighted net decreases with
	// tau: the haircut grows and the premium grows, both against the pool.
	prev := math.LegacyZeroDec()
	for i, tau := range []int64{0, types.SecondsPerYear / 4, types.SecondsPerYear, 4 * types.SecondsPerYear} {
		net, err := ComputeWeightedNet(tau, dec(t, "1000"), dec(t, "1000"), sp)
		if err != nil {
			t.Fatalf("ComputeWeightedNet(%d): %v", tau, err)
		}
		if i == 0 {
			if !net.IsZero() {
				t.Fatalf("net at tau=0 with b=l: got %s, want 0", net)
			}
		} else if !net.LT(prev) {
			t.Errorf("tau=%d: net %s did not decrease from %s", tau, net, prev)
		}
		prev = net
	}

	// phi saturates: far-out weights approach their asymptotes
	far, err := ComputeWeightedNet(100*types.SecondsPerYear, dec(t, "1000"), dec(t, "0"), sp)
	if err != nil {
		t.Fatalf("ComputeWeightedNet: %v", err)
	}
	asymptote := math.LegacyOneDec().Sub(sp.BorrowerHaircut).MulInt64(1000)
	relClose(t, "saturated borrower weight", far, asymptote, "0.0001")
}

func TestCheckFloor(t *testing.T) {
	if err := CheckFloor(dec(t, "100"), dec(t, "0.01"), dec(t, "10000")); err != nil {
		t.Errorf("equity exactly at floor should pass: %v", err)
	}
	err := CheckFloor(dec(t, "99.99"), dec(t, "0.01"), dec(t, "10000"))
	if !errors.IsOf(err, types.ErrSolvencyFloorViolated) {
		t.Errorf("expected ErrSolvencyFloorViolated, got %v", err)
	}
	if err := CheckFloor(dec(t, "-5"), dec(t, "0"), dec(t, "10000")); err == nil {
		t.Error("negative equity must fail even with a zero floor")
	}
}

func TestCheckSolvencyRunningMinimum(t *testing.T) {
	params := types.DefaultParams()
	params.Solvency.FloorPerShare = dec(t, "0")
	k, ctx, _, _, share := setupKeeper(t, params)

	share.supply = dec(t, "1000")

	// A lender-heavy near bucket can push the running prefix below zero even
	// when a later borrower-heavy bucket restores the total.
	state := k.GetPoolState(ctx)
	state.LiquidPrincipal = dec(t, "100")
	k.SetPoolState(ctx, state)

	near := testT0.Add(30 * 24 * time.Hour).Unix()
	far := testT0.Add(365 * 24 * time.Hour).Unix()
	if err := k.AddMaturity(ctx, near, NoHint); err != nil {
		t.Fatalf("AddMaturity(near): %v", err)
	}
	if err := k.AddMaturity(ctx, far, near); err != nil {
		t.Fatalf("AddMaturity(far): %v", err)
	}

	nearBucket := k.GetBucket(ctx, near)
	nearBucket.LenderNotional = dec(t, "500")
	k.SetBucket(ctx, nearBucket)

	farBucket := k.GetBucket(ctx, far)
	farBucket.BorrowerNotional = dec(t, "2000")
	k.SetBucket(ctx, farBucket)

	err := k.checkSolvency(ctx)
	if !errors.IsOf(err, types.ErrSolvencyFloorViolated) {
		t.Errorf("expected prefix minimum to bind, got %v", err)
	}

	// With enough base equity the same book passes
	state = k.GetPoolState(ctx)
	state.LiquidPrincipal = dec(t, "1000")
	k.SetPoolState(ctx, state)
	if err := k.checkSolvency(ctx); err != nil {
		t.Errorf("expected solvent book to pass: %v", err)
	}
}

func TestCheckSolvencyBaseOnly(t *testing.T) {
	params := types.DefaultParams()
	params.Solvency.FloorPerShare = dec(t, "0.5")
	k, ctx, _, _, share := setupKeeper(t, params)

	share.supply = dec(t, "1000")

	// No buckets: the base equity alone is the minimum
	state := k.GetPoolState(ctx)
	state.LiquidPrincipal = dec(t, "499")
	k.SetPoolState(ctx, state)
	if err := k.checkSolvency(ctx); !errors.IsOf(err, types.ErrSolvencyFloorViolated) {
		t.Errorf("expected floor violation on base equity, got %v", err)
	}

	state.LiquidPrincipal = dec(t, "500")
	k.SetPoolState(ctx, state)
	if err := k.checkSolvency(ctx); err != nil {
		t.Errorf("expected base equity at floor to pass: %v", err)
	}
}
