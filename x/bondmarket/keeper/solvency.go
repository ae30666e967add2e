package keeper

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/bond-amm/pkg/decmath"
	"github.com/openalpha/bond-amm/x/bondmarket/types"
)

// ComputeBaseEquity sums the cash-side equity components:
//
//	E = yLiq + yPnl + vaultWeight*yVault + pastDueAggregate
//
// vaultWeight haircuts (or, at 0, excludes) the vault's contribution.
func ComputeBaseEquity(liquid, pnl, vault, vaultWeight, pastDue math.LegacyDec) math.LegacyDec {
	return liquid.Add(pnl).Add(vaultWeight.Mul(vault)).Add(pastDue)
}

// ComputeWeightedNet returns a bucket's (borrower - lender) notional under
// time-decaying weights:
//
//	phi(tau) = 1 - e^(-tau/lambda_w)
//	net = (1 - etaB*phi)*b - (1 + etaL*phi)*l
//
// At tau=0 both weights are one, so net = b - l exactly.
func ComputeWeightedNet(tauSeconds int64, b, l math.LegacyDec, sp types.SolvencyParams) (math.LegacyDec, error) {
	if tauSeconds <= 0 {
		return b.Sub(l), nil
	}

	ratio := math.LegacyNewDec(tauSeconds).Quo(math.LegacyNewDec(sp.WeightTimescale))
	decay, err := decmath.Exp(ratio.Neg())
	if err != nil {
		return math.LegacyDec{}, err
	}
	phi := math.LegacyOneDec().Sub(decay)

	wB := math.LegacyOneDec().Sub(sp.BorrowerHaircut.Mul(phi))
	wL := math.LegacyOneDec().Add(sp.LenderPremium.Mul(phi))
	return wB.Mul(b).Sub(wL.Mul(l)), nil
}

// CheckFloor requires minEquity >= floorPerShare * totalShares
func CheckFloor(minEquity, floorPerShare, totalShares math.LegacyDec) error {
	floor := floorPerShare.Mul(totalShares)
	if minEquity.LT(floor) {
		return types.ErrSolvencyFloorViolated.Wrapf("risk equity %s below floor %s", minEquity, floor)
	}
	return nil
}

// checkSolvency runs the composite post-trade check: starting from base
// equity, it accumulates each active bucket's weighted net in ascending
// maturity order and tracks the running minimum, because a near-term bucket
// may bind harder mid-scan than the final total does. Buckets past due but
// not yet expired contribute at tau=0 weights.
func (k *Keeper) checkSolvency(ctx sdk.Context) error {
	state := k.GetPoolState(ctx)
	sp := k.params.Solvency

	equity := ComputeBaseEquity(
		state.LiquidPrincipal,
		state.RealizedPnl,
		state.VaultPrincipal,
		sp.VaultWeight,
		state.PastDueAggregate,
	)
	minEquity := equity

	now := ctx.BlockTime().Unix()
	for maturity := k.GetHead(ctx); maturity != 0; {
		bucket := k.GetBucket(ctx, maturity)
		if bucket == nil {
			break
		}
		tau := maturity - now
		if tau < 0 {
			tau = 0
		}
		net, err := ComputeWeightedNet(tau, bucket.BorrowerNotional, bucket.LenderNotional, sp)
		if err != nil {
			return types.ErrInvariantViolated.Wrap(err.Error())
		}
		equity = equity.Add(net)
		if equity.LT(minEquity) {
			minEquity = equity
		}
		maturity = bucket.Next
	}

	return CheckFloor(minEquity, sp.FloorPerShare, k.shareKeeper.TotalSupply(ctx))
}
