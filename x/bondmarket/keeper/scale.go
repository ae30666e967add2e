package keeper

import (
	"cosmossdk.io/math"
)

// nativeFactor returns 10^decimals as a Dec
func (k *Keeper) nativeFactor() math.LegacyDec {
	return math.LegacyNewDec(10).Power(uint64(k.cashKeeper.Decimals()))
}

// NativeFromWadFloor converts a WAD cash amount to native precision, rounding
// down. Used when cash leaves the pool so the dust stays with the pool.
func (k *Keeper) NativeFromWadFloor(wad math.LegacyDec) math.Int {
	return wad.Mul(k.nativeFactor()).TruncateInt()
}

// NativeFromWadCeil converts a WAD cash amount to native precision, rounding
// up. Used when cash enters the pool so the dust favors the pool.
func (k *Keeper) NativeFromWadCeil(wad math.LegacyDec) math.Int {
	return wad.Mul(k.nativeFactor()).Ceil().TruncateInt()
}

// WadFromNative converts a native cash amount to WAD; exact for any token
// with 18 or fewer decimals.
func (k *Keeper) WadFromNative(native math.Int) math.LegacyDec {
	return math.LegacyNewDecFromInt(native).Quo(k.nativeFactor())
}
