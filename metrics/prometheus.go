package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Bond pool metrics collector

var (
	// Singleton collector
	collector     *Collector
	collectorOnce sync.Once
)

// Collector holds all bond pool metrics
type Collector struct {
	// Trade metrics
	TradesTotal  *prometheus.CounterVec
	TradeVolume  *prometheus.CounterVec
	TradeLatency *prometheus.HistogramVec

	// Settlement metrics
	SettlementsTotal *prometheus.CounterVec
	SettlementVolume *prometheus.CounterVec

	// LP metrics
	DepositsTotal  prometheus.Counter
	DepositVolume  prometheus.Counter
	ShareSupply    prometheus.Gauge

	// Pool state metrics
	Utilization      prometheus.Gauge
	LiquidPrincipal  prometheus.Gauge
	VaultPrincipal   prometheus.Gauge
	PastDueAggregate prometheus.Gauge
	ActiveMaturities prometheus.Gauge

	// Curve metrics
	AnchorRate *prometheus.GaugeVec

	// Solvency metrics
	SolvencyRejections *prometheus.CounterVec

	// WebSocket metrics
	WSConnectionsActive prometheus.Gauge
	WSMessagesTotal     *prometheus.CounterVec

	// API metrics
	APIRequestsTotal  *prometheus.CounterVec
	APIRequestLatency *prometheus.HistogramVec
	RateLimitHits     *prometheus.CounterVec
}

// GetCollector returns the singleton metrics collector
func GetCollector() *Collector {
	collectorOnce.Do(func() {
		collector = newCollector()
	})
	return collector
}

func newCollector() *Collector {
	c := &Collector{}

	c.TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bondamm",
			Subsystem: "trades",
			Name:      "total",
			Help:      "Total number of trades executed",
		},
		[]string{"operation"},
	)

	c.TradeVolume = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bondamm",
			Subsystem: "trades",
			Name:      "volume",
			Help:      "Total face value traded",
		},
		[]string{"operation"},
	)

	c.TradeLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bondamm",
			Subsystem: "trades",
			Name:      "latency_ms",
			Help:      "Trade processing latency in milliseconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50},
		},
		[]string{"operation"},
	)

	c.SettlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bondamm",
			Subsystem: "settlements",
			Name:      "total",
			Help:      "Total number of post-maturity settlements",
		},
		[]string{"operation"},
	)

	c.SettlementVolume = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bondamm",
			Subsystem: "settlements",
			Name:      "volume",
			Help:      "Total face value settled",
		},
		[]string{"operation"},
	)

	c.DepositsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bondamm",
			Subsystem: "lp",
			Name:      "deposits_total",
			Help:      "Total number of LP deposits",
		},
	)

	c.DepositVolume = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bondamm",
			Subsystem: "lp",
			Name:      "deposit_volume",
			Help:      "Total cash deposited by LPs",
		},
	)

	c.ShareSupply = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bondamm",
			Subsystem: "lp",
			Name:      "share_supply",
			Help:      "Outstanding LP shares",
		},
	)

	c.Utilization = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bondamm",
			Subsystem: "pool",
			Name:      "utilization",
			Help:      "Current utilization ratio (shadow reserve / principal)",
		},
	)

	c.LiquidPrincipal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bondamm",
			Subsystem: "pool",
			Name:      "liquid_principal",
			Help:      "Cash available for outflows",
		},
	)

	c.VaultPrincipal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bondamm",
			Subsystem: "pool",
			Name:      "vault_principal",
			Help:      "Principal deployed to the external vault",
		},
	)

	c.PastDueAggregate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bondamm",
			Subsystem: "pool",
			Name:      "past_due_aggregate",
			Help:      "Net expired notional awaiting settlement",
		},
	)

	c.ActiveMaturities = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bondamm",
			Subsystem: "pool",
			Name:      "active_maturities",
			Help:      "Number of tradeable maturities",
		},
	)

	c.AnchorRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "bondamm",
			Subsystem: "curve",
			Name:      "anchor_rate",
			Help:      "Parametric anchor rate by tenor",
		},
		[]string{"tenor"},
	)

	c.SolvencyRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bondamm",
			Subsystem: "solvency",
			Name:      "rejections_total",
			Help:      "Operations rejected by the solvency check",
		},
		[]string{"operation"},
	)

	c.WSConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bondamm",
			Subsystem: "websocket",
			Name:      "connections_active",
			Help:      "Number of active WebSocket connections",
		},
	)

	c.WSMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bondamm",
			Subsystem: "websocket",
			Name:      "messages_total",
			Help:      "Total WebSocket messages sent",
		},
		[]string{"channel"},
	)

	c.APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bondamm",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total API requests",
		},
		[]string{"method", "path", "status"},
	)

	c.APIRequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bondamm",
			Subsystem: "api",
			Name:      "request_latency_ms",
			Help:      "API request latency in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"method", "path"},
	)

	c.RateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bondamm",
			Subsystem: "api",
			Name:      "rate_limit_hits",
			Help:      "Total rate limit hits",
		},
		[]string{"limit_type"},
	)

	c.registerAll()

	return c
}

func (c *Collector) registerAll() {
	prometheus.MustRegister(c.TradesTotal)
	prometheus.MustRegister(c.TradeVolume)
	prometheus.MustRegister(c.TradeLatency)

	prometheus.MustRegister(c.SettlementsTotal)
	prometheus.MustRegister(c.SettlementVolume)

	prometheus.MustRegister(c.DepositsTotal)
	prometheus.MustRegister(c.DepositVolume)
	prometheus.MustRegister(c.ShareSupply)

	prometheus.MustRegister(c.Utilization)
	prometheus.MustRegister(c.LiquidPrincipal)
	prometheus.MustRegister(c.VaultPrincipal)
	prometheus.MustRegister(c.PastDueAggregate)
	prometheus.MustRegister(c.ActiveMaturities)

	prometheus.MustRegister(c.AnchorRate)
	prometheus.MustRegister(c.SolvencyRejections)

	prometheus.MustRegister(c.WSConnectionsActive)
	prometheus.MustRegister(c.WSMessagesTotal)

	prometheus.MustRegister(c.APIRequestsTotal)
	prometheus.MustRegister(c.APIRequestLatency)
	prometheus.MustRegister(c.RateLimitHits)
}

// ============ Recording Helpers ============

// RecordTrade records a committed trade
func (c *Collector) RecordTrade(operation string, faceValue float64, latencyMs float64) {
	c.TradesTotal.WithLabelValues(operation).Inc()
	c.TradeVolume.WithLabelValues(operation).Add(faceValue)
	c.TradeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordSettlement records a post-maturity settlement
func (c *Collector) RecordSettlement(operation string, faceValue float64) {
	c.SettlementsTotal.WithLabelValues(operation).Inc()
	c.SettlementVolume.WithLabelValues(operation).Add(faceValue)
}

// RecordDeposit records an LP deposit
func (c *Collector) RecordDeposit(amount float64) {
	c.DepositsTotal.Inc()
	c.DepositVolume.Add(amount)
}

// RecordSolvencyRejection counts an operation blocked by the solvency check
func (c *Collector) RecordSolvencyRejection(operation string) {
	c.SolvencyRejections.WithLabelValues(operation).Inc()
}

// UpdatePoolState updates the pool state gauges
func (c *Collector) UpdatePoolState(utilization, liquid, vault, pastDue float64, activeMaturities int) {
	c.Utilization.Set(utilization)
	c.LiquidPrincipal.Set(liquid)
	c.VaultPrincipal.Set(vault)
	c.PastDueAggregate.Set(pastDue)
	c.ActiveMaturities.Set(float64(activeMaturities))
}

// RecordAPIRequest records an API request
func (c *Collector) RecordAPIRequest(method, path, status string, latencyMs float64) {
	c.APIRequestsTotal.WithLabelValues(method, path, status).Inc()
	c.APIRequestLatency.WithLabelValues(method, path).Observe(latencyMs)
}

// RecordWSConnection records WebSocket connection changes
func (c *Collector) RecordWSConnection(delta int) {
	c.WSConnectionsActive.Add(float64(delta))
}

// RecordWSMessage records a WebSocket message
func (c *Collector) RecordWSMessage(channel string) {
	c.WSMessagesTotal.WithLabelValues(channel).Inc()
}

// ============ HTTP Handler ============

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for measuring latency
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ElapsedMs returns the elapsed time in milliseconds
func (t *Timer) ElapsedMs() float64 {
	return float64(time.Since(t.start).Microseconds()) / 1000.0
}
