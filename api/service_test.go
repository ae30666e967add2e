package api

import (
	"context"
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/bond-amm/api/types"
	bmtypes "github.com/openalpha/bond-amm/x/bondmarket/types"
)

func traderAddr(name string) sdk.AccAddress {
	return sdk.AccAddress([]byte(name))
}

func newTestService(t *testing.T) *KeeperService {
	t.Helper()
	svc, err := NewKeeperService(bmtypes.DefaultParams(), log.NewNopLogger())
	if err != nil {
		t.Fatalf("NewKeeperService: %v", err)
	}
	return svc
}

func TestKeeperServiceLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// 10,000 cash at 6 decimals
	svc.Faucet("alice", math.NewInt(10_000_000_000))

	dep, err := svc.Deposit(ctx, &types.DepositRequest{Depositor: "alice", Amount: "10000"})
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if dep.SharesMinted != "10000.000000000000000000" {
		t.Errorf("bootstrap shares: expected 10000, got %s", dep.SharesMinted)
	}

	snap, err := svc.GetPoolSnapshot(ctx)
	if err != nil {
		t.Fatalf("GetPoolSnapshot: %v", err)
	}
	if snap.ActiveMaturities != 0 {
		t.Errorf("expected no active maturities, got %d", snap.ActiveMaturities)
	}
	if snap.ShareSupply != "10000.000000000000000000" {
		t.Errorf("unexpected share supply %s", snap.ShareSupply)
	}

	maturity := time.Now().Unix() + bmtypes.SecondsPerYear
	if err := svc.AddMaturity(ctx, &types.MaturityRequest{Maturity: maturity}); err != nil {
		t.Fatalf("AddMaturity: %v", err)
	}

	mats, err := svc.GetMaturities(ctx)
	if err != nil {
		t.Fatalf("GetMaturities: %v", err)
	}
	if len(mats) != 1 || mats[0].Maturity != maturity {
		t.Fatalf("unexpected maturities: %+v", mats)
	}
	if !mats[0].Active {
		t.Errorf("maturity should be active")
	}

	quote, err := svc.Quote(ctx, &types.QuoteRequest{
		Operation:  "borrow",
		Maturity:   maturity,
		BondAmount: "100",
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	proceeds, ok := math.NewIntFromString(quote.CashNative)
	if !ok || !proceeds.IsPositive() {
		t.Fatalf("expected positive quoted proceeds, got %s", quote.CashNative)
	}

	trade, err := svc.Trade(ctx, &types.TradeRequest{
		Trader:     "bob",
		Operation:  "borrow",
		Maturity:   maturity,
		BondAmount: "100",
	})
	if err != nil {
		t.Fatalf("Trade: %v", err)
	}
	// The clock may tick between quote and trade, so allow a few native units
	tradeProceeds, ok := math.NewIntFromString(trade.CashNative)
	if !ok || !tradeProceeds.IsPositive() {
		t.Fatalf("expected positive trade proceeds, got %s", trade.CashNative)
	}
	if diff := tradeProceeds.Sub(proceeds).Abs(); diff.GT(math.NewInt(10)) {
		t.Errorf("trade proceeds %s too far from quote %s", trade.CashNative, quote.CashNative)
	}

	// Borrowing leaves bob with a 100-face debt position
	if pos := svc.bond.PositionOf(traderAddr("bob"), maturity); !pos.Equal(math.LegacyNewDec(-100)) {
		t.Errorf("expected bob position -100, got %s", pos)
	}

	// Settlement before expiry must be refused
	if _, err := svc.Settle(ctx, &types.SettleRequest{
		Caller:     "bob",
		Operation:  "repay",
		Maturity:   maturity,
		BondAmount: "100",
	}); err == nil {
		t.Errorf("expected settlement on active maturity to fail")
	}
}

func TestQuoteRejectsOutOfBand(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Quote(ctx, &types.QuoteRequest{
		Operation:  "borrow",
		Maturity:   time.Now().Unix() + 1800, // inside the one-hour minimum
		BondAmount: "100",
	})
	if err == nil {
		t.Errorf("expected quote below tau band to fail")
	}

	_, err = svc.Quote(ctx, &types.QuoteRequest{
		Operation:  "borrow",
		Maturity:   time.Now().Unix() + 11*bmtypes.SecondsPerYear,
		BondAmount: "100",
	})
	if err == nil {
		t.Errorf("expected quote above tau band to fail")
	}
}

func TestGetCurveDefaultLadder(t *testing.T) {
	svc := newTestService(t)

	curve, err := svc.GetCurve(context.Background(), &types.CurveRequest{})
	if err != nil {
		t.Fatalf("GetCurve: %v", err)
	}
	if len(curve.Points) == 0 {
		t.Fatalf("expected default tenor ladder")
	}
	for _, p := range curve.Points {
		if p.Rate == "" {
			t.Errorf("tenor %d missing rate", p.TauSeconds)
		}
	}
}

func TestDepositWithoutFunds(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Deposit(context.Background(), &types.DepositRequest{
		Depositor: "carol",
		Amount:    "100",
	})
	if err == nil {
		t.Errorf("expected unfunded deposit to fail")
	}
}
