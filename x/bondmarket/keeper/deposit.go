package keeper

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/bond-amm/x/bondmarket/types"
)

// DepositResult is the outcome of an LP deposit.
type DepositResult struct {
	// SharesToMint is the WAD LP share issuance.
	SharesToMint math.LegacyDec `json:"shares_to_mint"`
	// ShadowReserveNew is X rescaled to keep utilization unchanged.
	ShadowReserveNew math.LegacyDec `json:"shadow_reserve_new"`
	// CashNative is the cash pulled from the depositor.
	CashNative math.Int `json:"cash_native"`
}

// ComputeDeposit sizes share issuance and the reserve rescale for a deposit.
// With no shares outstanding the deposit bootstraps the pool 1:1 and pins
// utilization to exactly one; otherwise shares are issued pro rata against
// nominal equity and X is scaled so the deposit does not move the rate.
func ComputeDeposit(
	nominalEquity math.LegacyDec,
	shadowReserve math.LegacyDec,
	totalShares math.LegacyDec,
	depositAmount math.LegacyDec,
	oldPrincipal math.LegacyDec,
) (sharesToMint, shadowReserveNew math.LegacyDec, err error) {
	newPrincipal := oldPrincipal.Add(depositAmount)

	if totalShares.IsZero() {
		return depositAmount, newPrincipal, nil
	}
	if !nominalEquity.IsPositive() {
		return math.LegacyDec{}, math.LegacyDec{}, types.ErrNegativeEquity.Wrapf("nominal equity %s", nominalEquity)
	}
	if !oldPrincipal.IsPositive() {
		return math.LegacyDec{}, math.LegacyDec{}, types.ErrInvariantViolated.Wrap("shares outstanding with zero principal")
	}

	sharesToMint = depositAmount.Mul(totalShares).Quo(nominalEquity)
	shadowReserveNew = shadowReserve.Mul(newPrincipal).Quo(oldPrincipal)
	return sharesToMint, shadowReserveNew, nil
}

// Deposit adds liquid principal and mints LP shares to the depositor.
func (k *Keeper) Deposit(ctx sdk.Context, depositor sdk.AccAddress, amount math.LegacyDec) (*DepositResult, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return nil, types.ErrZeroDeposit
	}

	cacheCtx, write := ctx.CacheContext()

	// Round the pull up at the native boundary and account in the WAD
	// equivalent of what was actually transferred.
	cashNative := k.NativeFromWadCeil(amount)
	wadIn := k.WadFromNative(cashNative)

	state := k.GetPoolState(cacheCtx)

	// Nominal equity values every open bucket at face: base components plus
	// sum of (b - l) over the active set.
	nominalEquity := state.LiquidPrincipal.
		Add(state.RealizedPnl).
		Add(state.VaultPrincipal).
		Add(state.PastDueAggregate)
	for _, maturity := range k.ActiveMaturities(cacheCtx) {
		bucket := k.GetBucket(cacheCtx, maturity)
		nominalEquity = nominalEquity.Add(bucket.Net())
	}

	totalShares := k.shareKeeper.TotalSupply(cacheCtx)
	shares, shadowReserveNew, err := ComputeDeposit(nominalEquity, state.ShadowReserve, totalShares, wadIn, state.Principal())
	if err != nil {
		return nil, err
	}

	state.LiquidPrincipal = state.LiquidPrincipal.Add(wadIn)
	state.ShadowReserve = shadowReserveNew
	k.SetPoolState(cacheCtx, state)

	if err := k.cashKeeper.TransferToPool(cacheCtx, depositor, cashNative); err != nil {
		return nil, err
	}
	if err := k.shareKeeper.Mint(cacheCtx, depositor, shares); err != nil {
		return nil, err
	}

	write()

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"bondmarket_deposit",
			sdk.NewAttribute("depositor", depositor.String()),
			sdk.NewAttribute("amount", wadIn.String()),
			sdk.NewAttribute("shares", shares.String()),
		),
	)
	k.logger.Info("Deposit processed",
		"depositor", depositor.String(),
		"amount", wadIn.String(),
		"shares", shares.String(),
	)

	return &DepositResult{
		SharesToMint:     shares,
		ShadowReserveNew: shadowReserveNew,
		CashNative:       cashNative,
	}, nil
}
