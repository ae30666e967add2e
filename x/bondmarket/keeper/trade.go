package keeper

import (
	"strconv"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/bond-amm/x/bondmarket/types"
)

// TradeResult reports a committed trade to the caller.
type TradeResult struct {
	// BondAmount is the WAD face value traded.
	BondAmount math.LegacyDec `json:"bond_amount"`
	// CashNative is the cash moved, in the token's native precision.
	CashNative math.Int `json:"cash_native"`
	// PsiNew is the post-trade utilization ratio.
	PsiNew math.LegacyDec `json:"psi_new"`
}

// Borrow sells bondAmount of face value to the pool at the given maturity
// and pays the discounted cash proceeds to the borrower.
func (k *Keeper) Borrow(ctx sdk.Context, borrower sdk.AccAddress, maturity int64, bondAmount math.LegacyDec) (*TradeResult, error) {
	return k.trade(ctx, borrower, maturity, bondAmount, true)
}

// Lend buys bondAmount of face value from the pool at the given maturity;
// the lender pays the discounted price in cash and receives bond tokens.
func (k *Keeper) Lend(ctx sdk.Context, lender sdk.AccAddress, maturity int64, bondAmount math.LegacyDec) (*TradeResult, error) {
	return k.trade(ctx, lender, maturity, bondAmount, false)
}

func (k *Keeper) trade(ctx sdk.Context, trader sdk.AccAddress, maturity int64, bondAmount math.LegacyDec, isBorrow bool) (*TradeResult, error) {
	if bondAmount.IsNil() || !bondAmount.IsPositive() {
		return nil, types.ErrZeroAmount
	}

	tau := maturity - ctx.BlockTime().Unix()
	if tau < k.params.Pricing.TauMin {
		return nil, types.ErrMaturityTooSoon.Wrapf("tau %d below minimum %d", tau, k.params.Pricing.TauMin)
	}
	if tau > k.params.Pricing.TauMax {
		return nil, types.ErrMaturityTooFar.Wrapf("tau %d above maximum %d", tau, k.params.Pricing.TauMax)
	}
	if !k.IsActive(ctx, maturity) {
		return nil, types.ErrMaturityNotActive.Wrapf("maturity %d", maturity)
	}

	delta := bondAmount
	if !isBorrow {
		delta = bondAmount.Neg()
	}

	cacheCtx, write := ctx.CacheContext()

	state := k.GetPoolState(cacheCtx)
	result, err := ComputeSwap(tau, delta, state.ShadowReserve, state.Principal(), state.LiquidPrincipal, k.params)
	if err != nil {
		return nil, err
	}

	// Effects: move internal balances by the native-rounded cash amount so
	// internal state matches external balances; rounding dust stays with the
	// pool in both directions.
	var cashNative math.Int
	state.ShadowReserve = result.ShadowReserveNew
	if isBorrow {
		cashNative = k.NativeFromWadFloor(result.CashDelta.Neg())
		state.LiquidPrincipal = state.LiquidPrincipal.Sub(k.WadFromNative(cashNative))
	} else {
		cashNative = k.NativeFromWadCeil(result.CashDelta)
		state.LiquidPrincipal = state.LiquidPrincipal.Add(k.WadFromNative(cashNative))
	}
	k.SetPoolState(cacheCtx, state)

	bucket := k.GetBucket(cacheCtx, maturity)
	if isBorrow {
		bucket.BorrowerNotional = bucket.BorrowerNotional.Add(bondAmount)
	} else {
		bucket.LenderNotional = bucket.LenderNotional.Add(bondAmount)
	}
	k.SetBucket(cacheCtx, bucket)

	if err := k.checkSolvency(cacheCtx); err != nil {
		return nil, err
	}

	// Interactions last: a token failure aborts before write()
	if isBorrow {
		if err := k.bondKeeper.Burn(cacheCtx, trader, maturity, bondAmount); err != nil {
			return nil, err
		}
		if err := k.cashKeeper.TransferFromPool(cacheCtx, trader, cashNative); err != nil {
			return nil, err
		}
	} else {
		if err := k.cashKeeper.TransferToPool(cacheCtx, trader, cashNative); err != nil {
			return nil, err
		}
		if err := k.bondKeeper.Mint(cacheCtx, trader, maturity, bondAmount); err != nil {
			return nil, err
		}
	}

	write()

	op := "borrow"
	if !isBorrow {
		op = "lend"
	}
	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"bondmarket_trade",
			sdk.NewAttribute("operation", op),
			sdk.NewAttribute("trader", trader.String()),
			sdk.NewAttribute("maturity", strconv.FormatInt(maturity, 10)),
			sdk.NewAttribute("bond_amount", bondAmount.String()),
			sdk.NewAttribute("cash_native", cashNative.String()),
			sdk.NewAttribute("psi", result.PsiNew.String()),
		),
	)
	k.logger.Info("Trade executed",
		"operation", op,
		"trader", trader.String(),
		"maturity", maturity,
		"bond_amount", bondAmount.String(),
		"cash_native", cashNative.String(),
		"psi", result.PsiNew.String(),
	)

	return &TradeResult{
		BondAmount: bondAmount,
		CashNative: cashNative,
		PsiNew:     result.PsiNew,
	}, nil
}
