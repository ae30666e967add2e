package keeper

import (
	"context"
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	"github.com/cosmos/cosmos-sdk/testutil"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/bond-amm/x/bondmarket/types"
)

// Fixed genesis block time for tests
var testT0 = time.Unix(1_700_000_000, 0)

var testAddr = sdk.AccAddress([]byte("test-trader-addr-----"))

// mockCash is an in-memory cash token with configurable native precision
type mockCash struct {
	decimals uint8
	pulled   []math.Int // transfers into the pool
	pushed   []math.Int // transfers out of the pool
	failNext bool
}

func (m *mockCash) TransferToPool(_ context.Context, _ sdk.AccAddress, amount math.Int) error {
	if m.failNext {
		m.failNext = false
		return types.ErrInsufficientLiquidPrincipal.Wrap("mock transfer failure")
	}
	m.pulled = append(m.pulled, amount)
	return nil
}

func (m *mockCash) TransferFromPool(_ context.Context, _ sdk.AccAddress, amount math.Int) error {
	if m.failNext {
		m.failNext = false
		return types.ErrInsufficientLiquidPrincipal.Wrap("mock transfer failure")
	}
	m.pushed = append(m.pushed, amount)
	return nil
}

func (m *mockCash) BalanceOf(_ context.Context, _ sdk.AccAddress) math.Int {
	return math.ZeroInt()
}

func (m *mockCash) Decimals() uint8 {
	return m.decimals
}

// mockBond records per-maturity mints and burns
type mockBond struct {
	minted map[int64]math.LegacyDec
	burned map[int64]math.LegacyDec
}

func newMockBond() *mockBond {
	return &mockBond{
		minted: make(map[int64]math.LegacyDec),
		burned: make(map[int64]math.LegacyDec),
	}
}

func (m *mockBond) Mint(_ context.Context, _ sdk.AccAddress, maturity int64, amount math.LegacyDec) error {
	prev, ok := m.minted[maturity]
	if !ok {
		prev = math.LegacyZeroDec()
	}
	m.minted[maturity] = prev.Add(amount)
	return nil
}

func (m *mockBond) Burn(_ context.Context, _ sdk.AccAddress, maturity int64, amount math.LegacyDec) error {
	prev, ok := m.burned[maturity]
	if !ok {
		prev = math.LegacyZeroDec()
	}
	m.burned[maturity] = prev.Add(amount)
	return nil
}

// mockShare tracks LP share supply
type mockShare struct {
	supply math.LegacyDec
}

func newMockShare() *mockShare {
	return &mockShare{supply: math.LegacyZeroDec()}
}

func (m *mockShare) Mint(_ context.Context, _ sdk.AccAddress, amount math.LegacyDec) error {
	m.supply = m.supply.Add(amount)
	return nil
}

func (m *mockShare) Burn(_ context.Context, _ sdk.AccAddress, amount math.LegacyDec) error {
	m.supply = m.supply.Sub(amount)
	return nil
}

func (m *mockShare) TotalSupply(_ context.Context) math.LegacyDec {
	return m.supply
}

func setupKeeper(t *testing.T, params types.Params) (*Keeper, sdk.Context, *mockCash, *mockBond, *mockShare) {
	t.Helper()

	key := storetypes.NewKVStoreKey(types.StoreKey)
	ctx := testutil.DefaultContext(key, storetypes.NewTransientStoreKey("transient_test"))
	ctx = ctx.WithBlockTime(testT0)

	cash := &mockCash{decimals: 6}
	bond := newMockBond()
	share := newMockShare()

	k, err := NewKeeper(key, params, cash, bond, share, log.NewNopLogger())
	if err != nil {
		t.Fatalf("NewKeeper: %v", err)
	}
	return k, ctx, cash, bond, share
}

func dec(t *testing.T, s string) math.LegacyDec {
	t.Helper()
	return math.LegacyMustNewDecFromStr(s)
}

// relClose checks |got - want| <= relTol * |want|
func relClose(t *testing.T, name string, got, want math.LegacyDec, relTol string) {
	t.Helper()
	tol := math.LegacyMustNewDecFromStr(relTol).Mul(want.Abs())
	if got.Sub(want).Abs().GT(tol) {
		t.Errorf("%s: got %s, want %s (rel tol %s)", name, got, want, relTol)
	}
}

func TestNewKeeperRejectsBadParams(t *testing.T) {
	params := types.DefaultParams()
	params.Pricing.PsiMin = math.LegacyZeroDec()

	key := storetypes.NewKVStoreKey(types.StoreKey)
	if _, err := NewKeeper(key, params, &mockCash{decimals: 6}, newMockBond(), newMockShare(), log.NewNopLogger()); err == nil {
		t.Error("expected error for non-positive psi min")
	}
}

func TestPoolStateRoundTrip(t *testing.T) {
	k, ctx, _, _, _ := setupKeeper(t, types.DefaultParams())

	state := k.GetPoolState(ctx)
	if !state.ShadowReserve.IsZero() || !state.LiquidPrincipal.IsZero() {
		t.Fatal("expected empty initial pool state")
	}

	state.ShadowReserve = dec(t, "10000")
	state.LiquidPrincipal = dec(t, "9500")
	state.VaultPrincipal = dec(t, "500")
	state.PastDueAggregate = dec(t, "-25.5")
	k.SetPoolState(ctx, state)

	got := k.GetPoolState(ctx)
	if !got.ShadowReserve.Equal(dec(t, "10000")) {
		t.Errorf("shadow reserve: got %s", got.ShadowReserve)
	}
	if !got.Principal().Equal(dec(t, "10000")) {
		t.Errorf("principal: got %s", got.Principal())
	}
	if !got.PastDueAggregate.Equal(dec(t, "-25.5")) {
		t.Errorf("past due: got %s", got.PastDueAggregate)
	}
}
