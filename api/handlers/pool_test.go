package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openalpha/bond-amm/api/types"
)

// stubService returns canned responses and records the last request it saw
type stubService struct {
	snapshot   *types.PoolSnapshot
	maturities []*types.MaturityInfo
	curve      *types.CurveResponse
	quote      *types.QuoteResponse
	trade      *types.TradeResponse
	settle     *types.SettleResponse
	deposit    *types.DepositResponse
	err        error

	lastTrade    *types.TradeRequest
	lastMaturity *types.MaturityRequest
}

func (s *stubService) GetPoolSnapshot(context.Context) (*types.PoolSnapshot, error) {
	return s.snapshot, s.err
}

func (s *stubService) GetMaturities(context.Context) ([]*types.MaturityInfo, error) {
	return s.maturities, s.err
}

func (s *stubService) GetCurve(_ context.Context, req *types.CurveRequest) (*types.CurveResponse, error) {
	return s.curve, s.err
}

func (s *stubService) Quote(_ context.Context, req *types.QuoteRequest) (*types.QuoteResponse, error) {
	return s.quote, s.err
}

func (s *stubService) Deposit(_ context.Context, req *types.DepositRequest) (*types.DepositResponse, error) {
	return s.deposit, s.err
}

func (s *stubService) Trade(_ context.Context, req *types.TradeRequest) (*types.TradeResponse, error) {
	s.lastTrade = req
	return s.trade, s.err
}

func (s *stubService) Settle(_ context.Context, req *types.SettleRequest) (*types.SettleResponse, error) {
	return s.settle, s.err
}

func (s *stubService) AddMaturity(_ context.Context, req *types.MaturityRequest) error {
	s.lastMaturity = req
	return s.err
}

func (s *stubService) ExpireMaturity(_ context.Context, req *types.MaturityRequest) error {
	s.lastMaturity = req
	return s.err
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestHandlePool(t *testing.T) {
	svc := &stubService{
		snapshot: &types.PoolSnapshot{
			ShadowReserve:    "10000.5",
			LiquidPrincipal:  "9900",
			Utilization:      "1.01",
			ActiveMaturities: 3,
		},
	}
	h := NewPoolHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/pool", nil)
	w := httptest.NewRecorder()
	h.HandlePool(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got types.PoolSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.ShadowReserve != "10000.5" || got.ActiveMaturities != 3 {
		t.Errorf("unexpected snapshot: %+v", got)
	}
}

func TestHandlePoolMethodNotAllowed(t *testing.T) {
	h := NewPoolHandler(&stubService{})

	req := httptest.NewRequest(http.MethodDelete, "/v1/pool", nil)
	w := httptest.NewRecorder()
	h.HandlePool(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestHandleTradeValidation(t *testing.T) {
	testCases := []struct {
		name string
		req  types.TradeRequest
	}{
		{
			name: "missing trader",
			req:  types.TradeRequest{Operation: "borrow", BondAmount: "100", Maturity: 1800000000},
		},
		{
			name: "bad operation",
			req:  types.TradeRequest{Trader: "alice", Operation: "short", BondAmount: "100", Maturity: 1800000000},
		},
		{
			name: "missing amount",
			req:  types.TradeRequest{Trader: "alice", Operation: "borrow", Maturity: 1800000000},
		},
		{
			name: "missing maturity",
			req:  types.TradeRequest{Trader: "alice", Operation: "borrow", BondAmount: "100"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{trade: &types.TradeResponse{}}
			h := NewPoolHandler(svc)

			w := postJSON(t, h.HandleTrade, "/v1/trade", tc.req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if svc.lastTrade != nil {
				t.Errorf("service should not have been called")
			}
		})
	}
}

func TestHandleTradeSuccess(t *testing.T) {
	svc := &stubService{
		trade: &types.TradeResponse{
			BondAmount:  "100",
			CashNative:  "96148585",
			Utilization: "1.003",
		},
	}
	h := NewPoolHandler(svc)

	w := postJSON(t, h.HandleTrade, "/v1/trade", types.TradeRequest{
		Trader:     "alice",
		Operation:  "borrow",
		BondAmount: "100",
		Maturity:   1800000000,
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if svc.lastTrade == nil || svc.lastTrade.Trader != "alice" {
		t.Errorf("trade request not forwarded: %+v", svc.lastTrade)
	}
	var got types.TradeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.CashNative != "96148585" {
		t.Errorf("expected cash 96148585, got %s", got.CashNative)
	}
}

func TestHandleTradeHeaderFallback(t *testing.T) {
	svc := &stubService{trade: &types.TradeResponse{}}
	h := NewPoolHandler(svc)

	body, _ := json.Marshal(types.TradeRequest{
		Operation:  "lend",
		BondAmount: "50",
		Maturity:   1800000000,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/trade", bytes.NewReader(body))
	req.Header.Set("X-Trader-Address", "bob")
	w := httptest.NewRecorder()
	h.HandleTrade(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if svc.lastTrade == nil || svc.lastTrade.Trader != "bob" {
		t.Errorf("expected trader from header, got %+v", svc.lastTrade)
	}
}

func TestHandleTradeServiceError(t *testing.T) {
	svc := &stubService{err: errors.New("utilization outside band")}
	h := NewPoolHandler(svc)

	w := postJSON(t, h.HandleTrade, "/v1/trade", types.TradeRequest{
		Trader:     "alice",
		Operation:  "borrow",
		BondAmount: "1000000",
		Maturity:   1800000000,
	})

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
}

func TestHandleQuote(t *testing.T) {
	svc := &stubService{
		quote: &types.QuoteResponse{BondAmount: "100", CashNative: "96148585"},
	}
	h := NewPoolHandler(svc)

	w := postJSON(t, h.HandleQuote, "/v1/quote", types.QuoteRequest{
		Operation:  "borrow",
		BondAmount: "100",
		Maturity:   1800000000,
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleSettleValidation(t *testing.T) {
	svc := &stubService{settle: &types.SettleResponse{}}
	h := NewPoolHandler(svc)

	w := postJSON(t, h.HandleSettle, "/v1/settle", types.SettleRequest{
		Caller:     "alice",
		Operation:  "borrow", // settlement only accepts repay or redeem
		BondAmount: "100",
		Maturity:   1800000000,
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleMaturities(t *testing.T) {
	svc := &stubService{
		maturities: []*types.MaturityInfo{
			{Maturity: 1800000000, TauSeconds: 86400, AnchorRate: "0.03", Active: true},
		},
	}
	h := NewPoolHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/pool/maturities", nil)
	w := httptest.NewRecorder()
	h.HandleMaturities(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var got struct {
		Maturities []*types.MaturityInfo `json:"maturities"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(got.Maturities) != 1 || got.Maturities[0].Maturity != 1800000000 {
		t.Errorf("unexpected maturities: %+v", got.Maturities)
	}
}

func TestHandleAddMaturity(t *testing.T) {
	svc := &stubService{}
	h := NewPoolHandler(svc)

	w := postJSON(t, h.HandleMaturities, "/v1/pool/maturities", types.MaturityRequest{
		Maturity: 1800000000,
		Hint:     1790000000,
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if svc.lastMaturity == nil || svc.lastMaturity.Hint != 1790000000 {
		t.Errorf("maturity request not forwarded: %+v", svc.lastMaturity)
	}
}

func TestHandleAddMaturityMissingField(t *testing.T) {
	svc := &stubService{}
	h := NewPoolHandler(svc)

	w := postJSON(t, h.HandleMaturities, "/v1/pool/maturities", types.MaturityRequest{})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if svc.lastMaturity != nil {
		t.Errorf("service should not have been called")
	}
}

func TestParseTenors(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want []int64
	}{
		{name: "empty", raw: "", want: nil},
		{name: "single", raw: "86400", want: []int64{86400}},
		{name: "multiple", raw: "86400,604800,31536000", want: []int64{86400, 604800, 31536000}},
		{name: "spaces", raw: " 86400 , 604800 ", want: []int64{86400, 604800}},
		{name: "skips garbage", raw: "86400,abc,604800", want: []int64{86400, 604800}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseTenors(tc.raw)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("tenor %d: expected %d, got %d", i, tc.want[i], got[i])
				}
			}
		})
	}
}
