package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"cosmossdk.io/store"
	storemetrics "cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	tmproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/bond-amm/api/types"
	"github.com/openalpha/bond-amm/api/websocket"
	"github.com/openalpha/bond-amm/metrics"
	"github.com/openalpha/bond-amm/x/bondmarket/keeper"
	bmtypes "github.com/openalpha/bond-amm/x/bondmarket/types"
)

// KeeperService bridges the API layer to the pool keeper over an in-memory
// store. This is the standalone mode: token balances live in this process.
type KeeperService struct {
	keeper *keeper.Keeper
	cms    storetypes.CommitMultiStore
	logger log.Logger

	cash  *memCash
	bond  *memBond
	share *memShare

	hub *websocket.Hub

	mu sync.Mutex
}

// CashDecimals is the native precision of the standalone cash token
const CashDecimals uint8 = 6

// ============ In-memory token collaborators ============

// memCash tracks native cash balances per address; the pool's own balance
// is the counterparty of every transfer
type memCash struct {
	balances map[string]math.Int
	pool     math.Int
	mu       sync.Mutex
}

func newMemCash() *memCash {
	return &memCash{
		balances: make(map[string]math.Int),
		pool:     math.ZeroInt(),
	}
}

func (m *memCash) balance(addr sdk.AccAddress) math.Int {
	if b, ok := m.balances[addr.String()]; ok {
		return b
	}
	return math.ZeroInt()
}

func (m *memCash) TransferToPool(_ context.Context, from sdk.AccAddress, amount math.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.balance(from)
	if b.LT(amount) {
		return fmt.Errorf("insufficient cash balance: have %s, need %s", b, amount)
	}
	m.balances[from.String()] = b.Sub(amount)
	m.pool = m.pool.Add(amount)
	return nil
}

func (m *memCash) TransferFromPool(_ context.Context, to sdk.AccAddress, amount math.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pool.LT(amount) {
		return fmt.Errorf("insufficient pool cash: have %s, need %s", m.pool, amount)
	}
	m.pool = m.pool.Sub(amount)
	m.balances[to.String()] = m.balance(to).Add(amount)
	return nil
}

func (m *memCash) BalanceOf(_ context.Context, addr sdk.AccAddress) math.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance(addr)
}

func (m *memCash) Decimals() uint8 {
	return CashDecimals
}

// Faucet credits an address, for standalone bootstrapping
func (m *memCash) Faucet(addr sdk.AccAddress, amount math.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[addr.String()] = m.balance(addr).Add(amount)
}

// memBond tracks signed bond positions per address and maturity. A negative
// balance is borrower debt: borrowing burns below zero, repaying mints back.
type memBond struct {
	balances map[string]map[int64]math.LegacyDec
	mu       sync.Mutex
}

func newMemBond() *memBond {
	return &memBond{balances: make(map[string]map[int64]math.LegacyDec)}
}

func (m *memBond) Mint(_ context.Context, to sdk.AccAddress, maturity int64, amount math.LegacyDec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byMaturity, ok := m.balances[to.String()]
	if !ok {
		byMaturity = make(map[int64]math.LegacyDec)
		m.balances[to.String()] = byMaturity
	}
	prev, ok := byMaturity[maturity]
	if !ok {
		prev = math.LegacyZeroDec()
	}
	byMaturity[maturity] = prev.Add(amount)
	return nil
}

func (m *memBond) Burn(_ context.Context, from sdk.AccAddress, maturity int64, amount math.LegacyDec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byMaturity, ok := m.balances[from.String()]
	if !ok {
		byMaturity = make(map[int64]math.LegacyDec)
		m.balances[from.String()] = byMaturity
	}
	prev, ok := byMaturity[maturity]
	if !ok {
		prev = math.LegacyZeroDec()
	}
	byMaturity[maturity] = prev.Sub(amount)
	return nil
}

// PositionOf returns the signed bond position for an address and maturity
func (m *memBond) PositionOf(addr sdk.AccAddress, maturity int64) math.LegacyDec {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pos, ok := m.balances[addr.String()][maturity]; ok {
		return pos
	}
	return math.LegacyZeroDec()
}

// memShare tracks LP shares per address plus the total supply
type memShare struct {
	balances map[string]math.LegacyDec
	supply   math.LegacyDec
	mu       sync.Mutex
}

func newMemShare() *memShare {
	return &memShare{
		balances: make(map[string]math.LegacyDec),
		supply:   math.LegacyZeroDec(),
	}
}

func (m *memShare) Mint(_ context.Context, to sdk.AccAddress, amount math.LegacyDec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.balances[to.String()]
	if !ok {
		prev = math.LegacyZeroDec()
	}
	m.balances[to.String()] = prev.Add(amount)
	m.supply = m.supply.Add(amount)
	return nil
}

func (m *memShare) Burn(_ context.Context, from sdk.AccAddress, amount math.LegacyDec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.balances[from.String()]
	if !ok || prev.LT(amount) {
		return fmt.Errorf("insufficient share balance")
	}
	m.balances[from.String()] = prev.Sub(amount)
	m.supply = m.supply.Sub(amount)
	return nil
}

func (m *memShare) TotalSupply(_ context.Context) math.LegacyDec {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.supply
}

// ============ Service ============

// NewKeeperService creates a standalone pool service with an in-memory store
func NewKeeperService(params bmtypes.Params, logger log.Logger) (*KeeperService, error) {
	db := dbm.NewMemDB()
	storeKey := storetypes.NewKVStoreKey(bmtypes.StoreKey)

	cms := store.NewCommitMultiStore(db, logger, storemetrics.NewNoOpMetrics())
	cms.MountStoreWithDB(storeKey, storetypes.StoreTypeIAVL, db)
	if err := cms.LoadLatestVersion(); err != nil {
		return nil, fmt.Errorf("failed to load store: %w", err)
	}

	cash := newMemCash()
	bond := newMemBond()
	share := newMemShare()

	k, err := keeper.NewKeeper(storeKey, params, cash, bond, share, logger)
	if err != nil {
		return nil, err
	}

	return &KeeperService{
		keeper: k,
		cms:    cms,
		logger: logger.With("module", "api"),
		cash:   cash,
		bond:   bond,
		share:  share,
	}, nil
}

// SetHub attaches a WebSocket hub for push updates
func (s *KeeperService) SetHub(hub *websocket.Hub) {
	s.hub = hub
}

// Faucet credits native cash to an address, for standalone bootstrapping
func (s *KeeperService) Faucet(addr string, amount math.Int) {
	s.cash.Faucet(sdk.AccAddress([]byte(addr)), amount)
}

// ctx builds a fresh SDK context stamped with wall-clock time
func (s *KeeperService) ctx() sdk.Context {
	header := tmproto.Header{Height: 1, Time: time.Now()}
	return sdk.NewContext(s.cms, header, false, s.logger).WithBlockTime(time.Now())
}

func parseAmount(raw string) (math.LegacyDec, error) {
	amount, err := math.LegacyNewDecFromStr(raw)
	if err != nil {
		return math.LegacyDec{}, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return amount, nil
}

// GetPoolSnapshot returns the observable pool state
func (s *KeeperService) GetPoolSnapshot(_ context.Context) (*types.PoolSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(s.ctx()), nil
}

func (s *KeeperService) snapshotLocked(ctx sdk.Context) *types.PoolSnapshot {
	state := s.keeper.GetPoolState(ctx)
	active := s.keeper.ActiveMaturities(ctx)

	utilization := math.LegacyZeroDec()
	if state.Principal().IsPositive() {
		utilization = state.ShadowReserve.Quo(state.Principal())
	}

	return &types.PoolSnapshot{
		ShadowReserve:    state.ShadowReserve.String(),
		LiquidPrincipal:  state.LiquidPrincipal.String(),
		VaultPrincipal:   state.VaultPrincipal.String(),
		RealizedPnl:      state.RealizedPnl.String(),
		PastDueAggregate: state.PastDueAggregate.String(),
		Utilization:      utilization.String(),
		ShareSupply:      s.share.TotalSupply(ctx).String(),
		ActiveMaturities: len(active),
		Timestamp:        ctx.BlockTime().Unix(),
	}
}

// GetMaturities lists the active maturity buckets
func (s *KeeperService) GetMaturities(_ context.Context) ([]*types.MaturityInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.ctx()
	now := ctx.BlockTime().Unix()
	cp := s.keeper.Params().Curve

	var out []*types.MaturityInfo
	for _, maturity := range s.keeper.ActiveMaturities(ctx) {
		bucket := s.keeper.GetBucket(ctx, maturity)
		tau := maturity - now
		if tau < 0 {
			tau = 0
		}
		rate, err := keeper.AnchorRate(tau, cp)
		if err != nil {
			return nil, err
		}
		out = append(out, &types.MaturityInfo{
			Maturity:         maturity,
			TauSeconds:       tau,
			BorrowerNotional: bucket.BorrowerNotional.String(),
			LenderNotional:   bucket.LenderNotional.String(),
			AnchorRate:       rate.String(),
			Active:           true,
		})
	}
	return out, nil
}

// GetCurve samples the parametric curve at the requested tenors
func (s *KeeperService) GetCurve(_ context.Context, req *types.CurveRequest) (*types.CurveResponse, error) {
	cp := s.keeper.Params().Curve

	tenors := req.Tenors
	if len(tenors) == 0 {
		// Default ladder: 1d, 1w, 1m, 3m, 6m, 1y, 2y, 5y, 10y
		tenors = []int64{
			86400, 7 * 86400, 30 * 86400, 91 * 86400, 182 * 86400,
			bmtypes.SecondsPerYear, 2 * bmtypes.SecondsPerYear,
			5 * bmtypes.SecondsPerYear, 10 * bmtypes.SecondsPerYear,
		}
	}

	points := make([]types.CurvePoint, 0, len(tenors))
	for _, tau := range tenors {
		if tau < 0 {
			return nil, fmt.Errorf("negative tenor %d", tau)
		}
		rate, err := keeper.AnchorRate(tau, cp)
		if err != nil {
			return nil, err
		}
		points = append(points, types.CurvePoint{TauSeconds: tau, Rate: rate.String()})
	}

	return &types.CurveResponse{
		Points:    points,
		Timestamp: time.Now().Unix(),
	}, nil
}

// Quote prices a trade without committing it
func (s *KeeperService) Quote(_ context.Context, req *types.QuoteRequest) (*types.QuoteResponse, error) {
	amount, err := parseAmount(req.BondAmount)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.ctx()
	params := s.keeper.Params()

	tau := req.Maturity - ctx.BlockTime().Unix()
	if tau < params.Pricing.TauMin {
		return nil, bmtypes.ErrMaturityTooSoon
	}
	if tau > params.Pricing.TauMax {
		return nil, bmtypes.ErrMaturityTooFar
	}

	delta := amount
	if req.Operation == "lend" {
		delta = amount.Neg()
	}

	state := s.keeper.GetPoolState(ctx)
	result, err := keeper.ComputeSwap(tau, delta, state.ShadowReserve, state.Principal(), state.LiquidPrincipal, params)
	if err != nil {
		return nil, err
	}

	var cashNative math.Int
	if req.Operation == "borrow" {
		cashNative = s.keeper.NativeFromWadFloor(result.CashDelta.Neg())
	} else {
		cashNative = s.keeper.NativeFromWadCeil(result.CashDelta)
	}

	return &types.QuoteResponse{
		BondAmount:  amount.String(),
		CashNative:  cashNative.String(),
		Utilization: result.PsiNew.String(),
		Timestamp:   ctx.BlockTime().Unix(),
	}, nil
}

// Deposit adds LP principal
func (s *KeeperService) Deposit(_ context.Context, req *types.DepositRequest) (*types.DepositResponse, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.ctx()
	result, err := s.keeper.Deposit(ctx, sdk.AccAddress([]byte(req.Depositor)), amount)
	if err != nil {
		return nil, err
	}

	amountF, _ := amount.Float64()
	metrics.GetCollector().RecordDeposit(amountF)
	s.publishLocked(ctx)

	return &types.DepositResponse{
		SharesMinted: result.SharesToMint.String(),
		CashNative:   result.CashNative.String(),
		Timestamp:    ctx.BlockTime().Unix(),
	}, nil
}

// Trade executes a borrow or lend
func (s *KeeperService) Trade(_ context.Context, req *types.TradeRequest) (*types.TradeResponse, error) {
	amount, err := parseAmount(req.BondAmount)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	timer := metrics.NewTimer()
	ctx := s.ctx()
	trader := sdk.AccAddress([]byte(req.Trader))

	var result *keeper.TradeResult
	switch req.Operation {
	case "borrow":
		result, err = s.keeper.Borrow(ctx, trader, req.Maturity, amount)
	case "lend":
		result, err = s.keeper.Lend(ctx, trader, req.Maturity, amount)
	default:
		return nil, fmt.Errorf("unknown operation %q", req.Operation)
	}
	if err != nil {
		return nil, err
	}

	amountF, _ := amount.Float64()
	metrics.GetCollector().RecordTrade(req.Operation, amountF, timer.ElapsedMs())
	s.publishLocked(ctx)

	if s.hub != nil {
		s.hub.BroadcastTrade(&websocket.TradeMessage{
			Operation:   req.Operation,
			Maturity:    req.Maturity,
			BondAmount:  result.BondAmount.String(),
			CashNative:  result.CashNative.String(),
			Utilization: result.PsiNew.String(),
			Timestamp:   ctx.BlockTime().Unix(),
		})
	}

	return &types.TradeResponse{
		BondAmount:  result.BondAmount.String(),
		CashNative:  result.CashNative.String(),
		Utilization: result.PsiNew.String(),
		Timestamp:   ctx.BlockTime().Unix(),
	}, nil
}

// Settle closes expired notional at face value
func (s *KeeperService) Settle(_ context.Context, req *types.SettleRequest) (*types.SettleResponse, error) {
	amount, err := parseAmount(req.BondAmount)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.ctx()
	caller := sdk.AccAddress([]byte(req.Caller))

	var result *keeper.TradeResult
	switch req.Operation {
	case "repay":
		result, err = s.keeper.Repay(ctx, caller, req.Maturity, amount)
	case "redeem":
		result, err = s.keeper.Redeem(ctx, caller, req.Maturity, amount)
	default:
		return nil, fmt.Errorf("unknown operation %q", req.Operation)
	}
	if err != nil {
		return nil, err
	}

	amountF, _ := amount.Float64()
	metrics.GetCollector().RecordSettlement(req.Operation, amountF)
	s.publishLocked(ctx)

	return &types.SettleResponse{
		BondAmount: result.BondAmount.String(),
		CashNative: result.CashNative.String(),
		Timestamp:  ctx.BlockTime().Unix(),
	}, nil
}

// AddMaturity lists a maturity for trading
func (s *KeeperService) AddMaturity(_ context.Context, req *types.MaturityRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.ctx()
	if err := s.keeper.AddMaturity(ctx, req.Maturity, req.Hint); err != nil {
		return err
	}
	s.publishLocked(ctx)
	return nil
}

// ExpireMaturity removes a matured timestamp from the tradeable set
func (s *KeeperService) ExpireMaturity(_ context.Context, req *types.MaturityRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.ctx()
	if err := s.keeper.ExpireMaturity(ctx, req.Maturity, req.Hint); err != nil {
		return err
	}
	s.publishLocked(ctx)
	return nil
}

// publishLocked refreshes gauges and the WebSocket pool buffer; callers hold
// the service mutex
func (s *KeeperService) publishLocked(ctx sdk.Context) {
	state := s.keeper.GetPoolState(ctx)
	active := s.keeper.ActiveMaturities(ctx)

	utilization := 0.0
	if state.Principal().IsPositive() {
		utilization, _ = state.ShadowReserve.Quo(state.Principal()).Float64()
	}
	liquid, _ := state.LiquidPrincipal.Float64()
	vault, _ := state.VaultPrincipal.Float64()
	pastDue, _ := state.PastDueAggregate.Float64()
	metrics.GetCollector().UpdatePoolState(utilization, liquid, vault, pastDue, len(active))

	supply, _ := s.share.TotalSupply(ctx).Float64()
	metrics.GetCollector().ShareSupply.Set(supply)

	if s.hub != nil {
		s.hub.UpdatePool(s.snapshotLocked(ctx))
	}
}
