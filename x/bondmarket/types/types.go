package types

import (
	"cosmossdk.io/math"
)

// Module name and store key
const (
	ModuleName = "bondmarket"
	StoreKey   = ModuleName
)

// SecondsPerYear converts maturity offsets to the year units the rate
// formulas use (365-day year).
const SecondsPerYear = 365 * 24 * 3600

// PoolState is the single aggregate mutated by the pool controller. All
// amounts are WAD-scale (18 decimals); native cash precision exists only at
// the token boundary.
type PoolState struct {
	// ShadowReserve tracks aggregate bond-side exposure (X). Non-negative.
	ShadowReserve math.LegacyDec `json:"shadow_reserve"`
	// LiquidPrincipal is cash available for immediate settlement.
	LiquidPrincipal math.LegacyDec `json:"liquid_principal"`
	// RealizedPnl accumulates settlement surplus/deficit. Signed.
	RealizedPnl math.LegacyDec `json:"realized_pnl"`
	// VaultPrincipal is principal parked in an external yield vault.
	VaultPrincipal math.LegacyDec `json:"vault_principal"`
	// PastDueAggregate is the net (borrower - lender) notional rolled off
	// from expired maturities. Signed, adjusted only by deltas.
	PastDueAggregate math.LegacyDec `json:"past_due_aggregate"`
}

// NewPoolState returns an empty pool state
func NewPoolState() *PoolState {
	return &PoolState{
		ShadowReserve:    math.LegacyZeroDec(),
		LiquidPrincipal:  math.LegacyZeroDec(),
		RealizedPnl:      math.LegacyZeroDec(),
		VaultPrincipal:   math.LegacyZeroDec(),
		PastDueAggregate: math.LegacyZeroDec(),
	}
}

// Principal returns the pricing principal y = liquid + vault
func (ps *PoolState) Principal() math.LegacyDec {
	return ps.LiquidPrincipal.Add(ps.VaultPrincipal)
}

// MaturityBucket carries the running notionals for one maturity timestamp.
// Buckets are never deleted: expiry only unlinks them from the registry
// traversal order, the notionals stay behind for post-expiry settlement.
type MaturityBucket struct {
	// Maturity is the unix timestamp keying this bucket.
	Maturity int64 `json:"maturity"`
	// Next is the successor maturity in ascending order; 0 means none.
	Next int64 `json:"next"`
	// BorrowerNotional is WAD face value sold to the pool (b).
	BorrowerNotional math.LegacyDec `json:"borrower_notional"`
	// LenderNotional is WAD face value bought from the pool (l).
	LenderNotional math.LegacyDec `json:"lender_notional"`
}

// NewMaturityBucket creates an empty bucket for a maturity timestamp
func NewMaturityBucket(maturity int64) *MaturityBucket {
	return &MaturityBucket{
		Maturity:         maturity,
		Next:             0,
		BorrowerNotional: math.LegacyZeroDec(),
		LenderNotional:   math.LegacyZeroDec(),
	}
}

// Net returns borrower minus lender notional (signed)
func (mb *MaturityBucket) Net() math.LegacyDec {
	return mb.BorrowerNotional.Sub(mb.LenderNotional)
}
