package types

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// CashKeeper defines the expected interface for the cash token. Amounts are
// in the token's native precision; Decimals reports that precision so the
// controller can scale WAD quantities at the boundary.
type CashKeeper interface {
	TransferToPool(ctx context.Context, from sdk.AccAddress, amount math.Int) error
	TransferFromPool(ctx context.Context, to sdk.AccAddress, amount math.Int) error
	BalanceOf(ctx context.Context, owner sdk.AccAddress) math.Int
	Decimals() uint8
}

// BondKeeper defines the expected interface for the bond position token.
// Amounts are WAD face value, keyed per maturity timestamp.
type BondKeeper interface {
	Mint(ctx context.Context, to sdk.AccAddress, maturity int64, amount math.LegacyDec) error
	Burn(ctx context.Context, from sdk.AccAddress, maturity int64, amount math.LegacyDec) error
}

// ShareKeeper defines the expected interface for the LP share token.
type ShareKeeper interface {
	Mint(ctx context.Context, to sdk.AccAddress, amount math.LegacyDec) error
	Burn(ctx context.Context, from sdk.AccAddress, amount math.LegacyDec) error
	TotalSupply(ctx context.Context) math.LegacyDec
}
