package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	clog "cosmossdk.io/log"
	"cosmossdk.io/math"

	"github.com/openalpha/bond-amm/api/handlers"
	"github.com/openalpha/bond-amm/api/middleware"
	"github.com/openalpha/bond-amm/api/types"
	"github.com/openalpha/bond-amm/api/websocket"
	"github.com/openalpha/bond-amm/metrics"
	bmtypes "github.com/openalpha/bond-amm/x/bondmarket/types"
)

// Server represents the API server
type Server struct {
	httpServer *http.Server
	hub        *websocket.Hub
	config     *Config

	service types.PoolService
	handler *handlers.PoolHandler

	rateLimiter *middleware.RateLimiter
}

// Config contains server configuration
type Config struct {
	Host             string
	Port             int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	DisableRateLimit bool // For testing purposes
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// NewServer creates a standalone API server backed by an in-memory pool
func NewServer(config *Config) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}

	logger := clog.NewNopLogger()
	service, err := NewKeeperService(bmtypes.DefaultParams(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool service: %w", err)
	}

	return NewServerWithService(config, service), nil
}

// NewServerWithService creates an API server over an existing pool service
func NewServerWithService(config *Config, service types.PoolService) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	hub := websocket.NewHub(websocket.DefaultHubConfig())
	if ks, ok := service.(*KeeperService); ok {
		ks.SetHub(hub)
	}

	return &Server{
		config:      config,
		hub:         hub,
		service:     service,
		handler:     handlers.NewPoolHandler(service),
		rateLimiter: middleware.NewRateLimiter(middleware.DefaultRateLimitConfig()),
	}
}

// Service returns the underlying pool service
func (s *Server) Service() types.PoolService {
	return s.service
}

// Start starts the API server
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/health", s.handleHealth)

	// Pool state and maturity registry
	mux.HandleFunc("/v1/pool", s.handler.HandlePool)
	mux.HandleFunc("/v1/pool/maturities", s.handler.HandleMaturities)
	mux.HandleFunc("/v1/pool/maturities/expire", s.handler.HandleExpire)

	// Curve sampling and dry-run pricing
	mux.HandleFunc("/v1/curve", s.handler.HandleCurve)
	mux.HandleFunc("/v1/quote", s.handler.HandleQuote)

	// State-changing operations; trades carry a stricter per-trader limit
	tradeLimit := middleware.TradeRateLimitMiddleware(s.rateLimiter)
	mux.Handle("/v1/trade", tradeLimit(http.HandlerFunc(s.handler.HandleTrade)))
	mux.Handle("/v1/settle", tradeLimit(http.HandlerFunc(s.handler.HandleSettle)))
	mux.HandleFunc("/v1/deposit", s.handler.HandleDeposit)

	// Dev faucet, only available in standalone mode
	if ks, ok := s.service.(*KeeperService); ok {
		mux.HandleFunc("/v1/faucet", s.handleFaucet(ks))
	}

	// Observability
	mux.Handle("/metrics", metrics.Handler())

	// WebSocket
	mux.HandleFunc("/ws", s.hub.ServeWS)

	// Middleware chain: CORS -> RateLimit -> Handler
	var handler http.Handler
	if s.config.DisableRateLimit {
		handler = corsMiddleware(mux)
	} else {
		handler = corsMiddleware(
			middleware.RateLimitMiddleware(s.rateLimiter)(mux),
		)
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	go s.hub.Run()

	log.Printf("API server starting on %s", addr)
	if s.config.DisableRateLimit {
		log.Printf("Rate limiting DISABLED (for testing)")
	}
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.rateLimiter.Stop()
	return s.httpServer.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"warning":   "This API uses in-memory storage. For production, connect to a running Cosmos chain.",
	})
}

// handleFaucet credits native cash to an address so standalone deposits and
// settlements can be exercised without a chain
func (s *Server) handleFaucet(ks *KeeperService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Address string `json:"address"`
			Amount  string `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Address == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		amount, ok := math.NewIntFromString(req.Amount)
		if !ok || !amount.IsPositive() {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		ks.Faucet(req.Address, amount)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"address": req.Address,
			"amount":  amount.String(),
		})
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Trader-Address")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
