package keeper

import (
	"strconv"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/bond-amm/x/bondmarket/types"
)

// NoHint marks an absent predecessor hint.
const NoHint int64 = 0

// IsActive reports whether a maturity is currently in the registry traversal
// order: it has a successor link or is the tail.
func (k *Keeper) IsActive(ctx sdk.Context, maturity int64) bool {
	bucket := k.GetBucket(ctx, maturity)
	if bucket == nil {
		return false
	}
	return bucket.Next != 0 || maturity == k.GetTail(ctx)
}

// AddMaturity inserts a maturity into the registry. The caller supplies the
// predecessor hint; the registry validates it but never searches. NoHint
// means "insert as new head" (or as sole element if the registry is empty).
func (k *Keeper) AddMaturity(ctx sdk.Context, maturity, hint int64) error {
	if maturity <= 0 {
		return types.ErrInvalidHint.Wrapf("invalid maturity timestamp %d", maturity)
	}
	if k.IsActive(ctx, maturity) {
		return types.ErrMaturityActive.Wrapf("maturity %d", maturity)
	}

	cacheCtx, write := ctx.CacheContext()

	// Reuse a retained bucket if this maturity was tradeable before.
	bucket := k.GetBucket(cacheCtx, maturity)
	if bucket == nil {
		bucket = types.NewMaturityBucket(maturity)
	}

	head := k.GetHead(cacheCtx)
	switch {
	case head == 0:
		// Empty registry: the hint must be absent.
		if hint != NoHint {
			return types.ErrInvalidHint.Wrapf("hint %d supplied for empty registry", hint)
		}
		bucket.Next = 0
		k.setHead(cacheCtx, maturity)
		k.setTail(cacheCtx, maturity)

	case hint == NoHint:
		// New head: must precede the current head.
		if maturity >= head {
			return types.ErrInvalidHint.Wrapf("maturity %d does not precede head %d", maturity, head)
		}
		bucket.Next = head
		k.setHead(cacheCtx, maturity)

	default:
		if !k.IsActive(cacheCtx, hint) {
			return types.ErrInvalidHint.Wrapf("hint %d not active", hint)
		}
		if hint >= maturity {
			return types.ErrInvalidHint.Wrapf("hint %d does not precede maturity %d", hint, maturity)
		}
		hintBucket := k.GetBucket(cacheCtx, hint)
		if hintBucket.Next != 0 && hintBucket.Next <= maturity {
			return types.ErrInvalidHint.Wrapf("hint successor %d does not follow maturity %d", hintBucket.Next, maturity)
		}
		bucket.Next = hintBucket.Next
		hintBucket.Next = maturity
		k.SetBucket(cacheCtx, hintBucket)
		if k.GetTail(cacheCtx) == hint {
			k.setTail(cacheCtx, maturity)
		}
	}

	k.SetBucket(cacheCtx, bucket)
	write()

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"bondmarket_maturity_added",
			sdk.NewAttribute("maturity", strconv.FormatInt(maturity, 10)),
		),
	)
	k.logger.Info("Maturity added", "maturity", maturity, "hint", hint)
	return nil
}

// ExpireMaturity removes a matured timestamp from the traversal order and
// folds its net notional into the past-due aggregate. The bucket itself is
// retained for post-expiry settlement.
func (k *Keeper) ExpireMaturity(ctx sdk.Context, maturity, hint int64) error {
	if ctx.BlockTime().Unix() < maturity {
		return types.ErrMaturityNotReached.Wrapf("maturity %d", maturity)
	}
	if !k.IsActive(ctx, maturity) {
		return types.ErrMaturityNotActive.Wrapf("maturity %d", maturity)
	}

	cacheCtx, write := ctx.CacheContext()

	bucket := k.GetBucket(cacheCtx, maturity)
	head := k.GetHead(cacheCtx)

	if maturity == head {
		k.setHead(cacheCtx, bucket.Next)
		if bucket.Next == 0 {
			k.setTail(cacheCtx, 0)
		}
	} else {
		if hint == NoHint || !k.IsActive(cacheCtx, hint) {
			return types.ErrInvalidHint.Wrapf("hint %d not active", hint)
		}
		hintBucket := k.GetBucket(cacheCtx, hint)
		if hintBucket.Next != maturity {
			return types.ErrInvalidHint.Wrapf("hint %d is not the predecessor of %d", hint, maturity)
		}
		hintBucket.Next = bucket.Next
		k.SetBucket(cacheCtx, hintBucket)
		if k.GetTail(cacheCtx) == maturity {
			k.setTail(cacheCtx, hint)
		}
	}

	// Unlink but retain notionals; the net rolls into the past-due aggregate
	// atomically with removal.
	net := bucket.Net()
	bucket.Next = 0
	k.SetBucket(cacheCtx, bucket)

	state := k.GetPoolState(cacheCtx)
	state.PastDueAggregate = state.PastDueAggregate.Add(net)
	k.SetPoolState(cacheCtx, state)

	write()

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"bondmarket_maturity_expired",
			sdk.NewAttribute("maturity", strconv.FormatInt(maturity, 10)),
			sdk.NewAttribute("net_notional", net.String()),
		),
	)
	k.logger.Info("Maturity expired", "maturity", maturity, "net_notional", net.String())
	return nil
}

// ActiveMaturities returns the active set in ascending order
func (k *Keeper) ActiveMaturities(ctx sdk.Context) []int64 {
	var out []int64
	for maturity := k.GetHead(ctx); maturity != 0; {
		bucket := k.GetBucket(ctx, maturity)
		if bucket == nil {
			break
		}
		out = append(out, maturity)
		maturity = bucket.Next
	}
	return out
}
