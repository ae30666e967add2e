package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/openalpha/bond-amm/api/types"
)

// PoolHandler handles pool-related HTTP requests
type PoolHandler struct {
	service types.PoolService
}

// NewPoolHandler creates a new pool handler
func NewPoolHandler(service types.PoolService) *PoolHandler {
	return &PoolHandler{service: service}
}

// HandlePool handles GET /v1/pool
func (h *PoolHandler) HandlePool(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	snapshot, err := h.service.GetPoolSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// HandleMaturities handles GET /v1/pool/maturities and POST /v1/pool/maturities
func (h *PoolHandler) HandleMaturities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getMaturities(w, r)
	case http.MethodPost:
		h.addMaturity(w, r)
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	}
}

func (h *PoolHandler) getMaturities(w http.ResponseWriter, r *http.Request) {
	maturities, err := h.service.GetMaturities(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"maturities": maturities,
	})
}

func (h *PoolHandler) addMaturity(w http.ResponseWriter, r *http.Request) {
	var req types.MaturityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}
	if req.Maturity <= 0 {
		writeError(w, http.StatusBadRequest, "missing_maturity", "maturity is required")
		return
	}

	if err := h.service.AddMaturity(r.Context(), &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "add_maturity_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"maturity": req.Maturity,
		"status":   "listed",
	})
}

// HandleExpire handles POST /v1/pool/maturities/expire
func (h *PoolHandler) HandleExpire(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	var req types.MaturityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}
	if req.Maturity <= 0 {
		writeError(w, http.StatusBadRequest, "missing_maturity", "maturity is required")
		return
	}

	if err := h.service.ExpireMaturity(r.Context(), &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "expire_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"maturity": req.Maturity,
		"status":   "expired",
	})
}

// HandleCurve handles GET /v1/curve?tenors=86400,604800
func (h *PoolHandler) HandleCurve(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	req := &types.CurveRequest{Tenors: parseTenors(r.URL.Query().Get("tenors"))}
	curve, err := h.service.GetCurve(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "curve_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, curve)
}

// HandleQuote handles POST /v1/quote (dry-run pricing, no state change)
func (h *PoolHandler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	var req types.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}
	if err := validateTradeFields(req.Operation, req.BondAmount, req.Maturity); err != "" {
		writeError(w, http.StatusBadRequest, "invalid_request", err)
		return
	}

	quote, err := h.service.Quote(r.Context(), &req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "quote_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// HandleTrade handles POST /v1/trade
func (h *PoolHandler) HandleTrade(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	var req types.TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}
	if req.Trader == "" {
		req.Trader = r.Header.Get("X-Trader-Address")
	}
	if req.Trader == "" {
		writeError(w, http.StatusBadRequest, "missing_trader", "trader is required")
		return
	}
	if err := validateTradeFields(req.Operation, req.BondAmount, req.Maturity); err != "" {
		writeError(w, http.StatusBadRequest, "invalid_request", err)
		return
	}

	result, err := h.service.Trade(r.Context(), &req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "trade_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleSettle handles POST /v1/settle
func (h *PoolHandler) HandleSettle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	var req types.SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}
	if req.Caller == "" {
		req.Caller = r.Header.Get("X-Trader-Address")
	}
	if req.Caller == "" {
		writeError(w, http.StatusBadRequest, "missing_caller", "caller is required")
		return
	}
	if req.Operation != "repay" && req.Operation != "redeem" {
		writeError(w, http.StatusBadRequest, "invalid_operation", "operation must be repay or redeem")
		return
	}
	if req.BondAmount == "" || req.Maturity <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "bond_amount and maturity are required")
		return
	}

	result, err := h.service.Settle(r.Context(), &req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "settle_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleDeposit handles POST /v1/deposit
func (h *PoolHandler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	var req types.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}
	if req.Depositor == "" {
		req.Depositor = r.Header.Get("X-Trader-Address")
	}
	if req.Depositor == "" {
		writeError(w, http.StatusBadRequest, "missing_depositor", "depositor is required")
		return
	}
	if req.Amount == "" {
		writeError(w, http.StatusBadRequest, "missing_amount", "amount is required")
		return
	}

	result, err := h.service.Deposit(r.Context(), &req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "deposit_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func validateTradeFields(operation, bondAmount string, maturity int64) string {
	if operation != "borrow" && operation != "lend" {
		return "operation must be borrow or lend"
	}
	if bondAmount == "" {
		return "bond_amount is required"
	}
	if maturity <= 0 {
		return "maturity is required"
	}
	return ""
}

func parseTenors(raw string) []int64 {
	if raw == "" {
		return nil
	}
	var tenors []int64
	for _, part := range strings.Split(raw, ",") {
		tau, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		tenors = append(tenors, tau)
	}
	return tenors
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}
