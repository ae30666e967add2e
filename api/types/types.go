package types

import (
	"context"
)

// PoolService exposes the bond pool to the API layer
type PoolService interface {
	// Read-only queries
	GetPoolSnapshot(ctx context.Context) (*PoolSnapshot, error)
	GetMaturities(ctx context.Context) ([]*MaturityInfo, error)
	GetCurve(ctx context.Context, req *CurveRequest) (*CurveResponse, error)
	Quote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error)

	// State-changing operations
	Deposit(ctx context.Context, req *DepositRequest) (*DepositResponse, error)
	Trade(ctx context.Context, req *TradeRequest) (*TradeResponse, error)
	Settle(ctx context.Context, req *SettleRequest) (*SettleResponse, error)
	AddMaturity(ctx context.Context, req *MaturityRequest) error
	ExpireMaturity(ctx context.Context, req *MaturityRequest) error
}

// PoolSnapshot is the full observable pool state
type PoolSnapshot struct {
	ShadowReserve    string `json:"shadow_reserve"`
	LiquidPrincipal  string `json:"liquid_principal"`
	VaultPrincipal   string `json:"vault_principal"`
	RealizedPnl      string `json:"realized_pnl"`
	PastDueAggregate string `json:"past_due_aggregate"`
	Utilization      string `json:"utilization"`
	ShareSupply      string `json:"share_supply"`
	ActiveMaturities int    `json:"active_maturities"`
	Timestamp        int64  `json:"timestamp"`
}

// MaturityInfo describes one maturity bucket
type MaturityInfo struct {
	Maturity         int64  `json:"maturity"`
	TauSeconds       int64  `json:"tau_seconds"`
	BorrowerNotional string `json:"borrower_notional"`
	LenderNotional   string `json:"lender_notional"`
	AnchorRate       string `json:"anchor_rate"`
	Active           bool   `json:"active"`
}

// CurveRequest samples the parametric curve at the given tenors (seconds)
type CurveRequest struct {
	Tenors []int64 `json:"tenors"`
}

// CurvePoint is one sampled point on the curve
type CurvePoint struct {
	TauSeconds int64  `json:"tau_seconds"`
	Rate       string `json:"rate"`
}

// CurveResponse contains the sampled curve
type CurveResponse struct {
	Points    []CurvePoint `json:"points"`
	Timestamp int64        `json:"timestamp"`
}

// QuoteRequest prices a hypothetical trade without committing it
type QuoteRequest struct {
	Maturity   int64  `json:"maturity"`
	Operation  string `json:"operation"` // "borrow" or "lend"
	BondAmount string `json:"bond_amount"`
}

// QuoteResponse is a dry-run trade result
type QuoteResponse struct {
	BondAmount  string `json:"bond_amount"`
	CashNative  string `json:"cash_native"`
	Utilization string `json:"utilization"`
	Timestamp   int64  `json:"timestamp"`
}

// DepositRequest adds LP principal
type DepositRequest struct {
	Depositor string `json:"depositor"`
	Amount    string `json:"amount"`
}

// DepositResponse reports the committed deposit
type DepositResponse struct {
	SharesMinted string `json:"shares_minted"`
	CashNative   string `json:"cash_native"`
	Timestamp    int64  `json:"timestamp"`
}

// TradeRequest executes a borrow or lend against the pool
type TradeRequest struct {
	Trader     string `json:"trader"`
	Maturity   int64  `json:"maturity"`
	Operation  string `json:"operation"` // "borrow" or "lend"
	BondAmount string `json:"bond_amount"`
}

// TradeResponse reports the committed trade
type TradeResponse struct {
	BondAmount  string `json:"bond_amount"`
	CashNative  string `json:"cash_native"`
	Utilization string `json:"utilization"`
	Timestamp   int64  `json:"timestamp"`
}

// SettleRequest closes expired notional at face value
type SettleRequest struct {
	Caller     string `json:"caller"`
	Maturity   int64  `json:"maturity"`
	Operation  string `json:"operation"` // "repay" or "redeem"
	BondAmount string `json:"bond_amount"`
}

// SettleResponse reports the committed settlement
type SettleResponse struct {
	BondAmount string `json:"bond_amount"`
	CashNative string `json:"cash_native"`
	Timestamp  int64  `json:"timestamp"`
}

// MaturityRequest lists or expires a maturity; Hint is the predecessor
// timestamp, zero for none
type MaturityRequest struct {
	Maturity int64 `json:"maturity"`
	Hint     int64 `json:"hint"`
}
