package keeper

import (
	"strconv"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/bond-amm/x/bondmarket/types"
)

// Repay settles borrower notional on an expired maturity: the caller pays
// face value in cash and receives bond-equivalent credit. Position ownership
// is enforced economically — the cash is pulled from the caller.
func (k *Keeper) Repay(ctx sdk.Context, payer sdk.AccAddress, maturity int64, amount math.LegacyDec) (*TradeResult, error) {
	return k.settle(ctx, payer, maturity, amount, true)
}

// Redeem settles lender notional on an expired maturity: the caller burns
// bond tokens and receives face value in cash, subject to liquid principal.
func (k *Keeper) Redeem(ctx sdk.Context, holder sdk.AccAddress, maturity int64, amount math.LegacyDec) (*TradeResult, error) {
	return k.settle(ctx, holder, maturity, amount, false)
}

func (k *Keeper) settle(ctx sdk.Context, caller sdk.AccAddress, maturity int64, amount math.LegacyDec, isRepay bool) (*TradeResult, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return nil, types.ErrZeroAmount
	}
	bucket := k.GetBucket(ctx, maturity)
	if bucket == nil {
		return nil, types.ErrMaturityNotActive.Wrapf("maturity %d was never tracked", maturity)
	}
	if k.IsActive(ctx, maturity) {
		return nil, types.ErrMaturityActive.Wrapf("maturity %d must be expired before settlement", maturity)
	}

	cacheCtx, write := ctx.CacheContext()

	// tau=0: the invariant collapses to a linear face-value exchange.
	// Repay brings cash in (delta < 0), redeem pushes cash out (delta > 0).
	delta := amount
	if isRepay {
		delta = amount.Neg()
	}

	state := k.GetPoolState(cacheCtx)
	result, err := ComputeSwap(0, delta, state.ShadowReserve, state.Principal(), state.LiquidPrincipal, k.params)
	if err != nil {
		return nil, err
	}

	// Closing more than the recorded exposure is a protocol invariant
	// violation, not a user error: positions live in the external system.
	if isRepay {
		if bucket.BorrowerNotional.LT(amount) {
			return nil, types.ErrInvariantViolated.Wrapf("repay %s exceeds borrower notional %s", amount, bucket.BorrowerNotional)
		}
		bucket.BorrowerNotional = bucket.BorrowerNotional.Sub(amount)
		state.PastDueAggregate = state.PastDueAggregate.Sub(amount)
	} else {
		if bucket.LenderNotional.LT(amount) {
			return nil, types.ErrInvariantViolated.Wrapf("redeem %s exceeds lender notional %s", amount, bucket.LenderNotional)
		}
		bucket.LenderNotional = bucket.LenderNotional.Sub(amount)
		state.PastDueAggregate = state.PastDueAggregate.Add(amount)
	}

	var cashNative math.Int
	state.ShadowReserve = result.ShadowReserveNew
	if isRepay {
		cashNative = k.NativeFromWadCeil(result.CashDelta)
		state.LiquidPrincipal = state.LiquidPrincipal.Add(k.WadFromNative(cashNative))
	} else {
		cashNative = k.NativeFromWadFloor(result.CashDelta.Neg())
		state.LiquidPrincipal = state.LiquidPrincipal.Sub(k.WadFromNative(cashNative))
	}
	k.SetPoolState(cacheCtx, state)
	k.SetBucket(cacheCtx, bucket)

	if err := k.checkSolvency(cacheCtx); err != nil {
		return nil, err
	}

	if isRepay {
		if err := k.cashKeeper.TransferToPool(cacheCtx, caller, cashNative); err != nil {
			return nil, err
		}
		if err := k.bondKeeper.Mint(cacheCtx, caller, maturity, amount); err != nil {
			return nil, err
		}
	} else {
		if err := k.bondKeeper.Burn(cacheCtx, caller, maturity, amount); err != nil {
			return nil, err
		}
		if err := k.cashKeeper.TransferFromPool(cacheCtx, caller, cashNative); err != nil {
			return nil, err
		}
	}

	write()

	op := "repay"
	if !isRepay {
		op = "redeem"
	}
	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"bondmarket_settlement",
			sdk.NewAttribute("operation", op),
			sdk.NewAttribute("caller", caller.String()),
			sdk.NewAttribute("maturity", strconv.FormatInt(maturity, 10)),
			sdk.NewAttribute("amount", amount.String()),
			sdk.NewAttribute("cash_native", cashNative.String()),
		),
	)
	k.logger.Info("Settlement executed",
		"operation", op,
		"caller", caller.String(),
		"maturity", maturity,
		"amount", amount.String(),
		"cash_native", cashNative.String(),
	)

	return &TradeResult{
		BondAmount: amount,
		CashNative: cashNative,
		PsiNew:     result.PsiNew,
	}, nil
}
