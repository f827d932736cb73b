package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the scan engine.
type Metrics struct {
	CyclesTotal   prometheus.Counter
	CyclesSkipped prometheus.Counter
	CycleDur      prometheus.Histogram
	LastCycleUnix prometheus.Gauge
	Instruments   prometheus.Gauge

	// Provider metrics
	FetchDur      prometheus.Histogram
	FetchErrors   *prometheus.CounterVec // labels: symbol
	BarsFetched   *prometheus.CounterVec // labels: symbol
	BreakerState  prometheus.Gauge       // 0=closed, 1=open, 2=half-open
	BreakerTrips  prometheus.Counter

	// Detection metrics
	Crossovers *prometheus.CounterVec // labels: symbol, kind

	// Alert metrics
	AlertsSent   *prometheus.CounterVec // labels: channel
	AlertsFailed *prometheus.CounterVec // labels: channel

	// Store metrics
	RedisPublishDur prometheus.Histogram
	SQLiteCommitDur prometheus.Histogram
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crosswatch_cycles_total",
			Help: "Total refresh cycles completed",
		}),
		CyclesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crosswatch_cycles_skipped_total",
			Help: "Cycles skipped because the market was closed",
		}),
		CycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crosswatch_cycle_duration_seconds",
			Help:    "Wall time of one full refresh cycle across all instruments",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		LastCycleUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crosswatch_last_cycle_timestamp_seconds",
			Help: "Unix time of the last completed cycle",
		}),
		Instruments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crosswatch_instruments_watched",
			Help: "Number of instruments in the current watchlist",
		}),

		// Provider
		FetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crosswatch_provider_request_duration_seconds",
			Help:    "Chart provider request latency",
			Buckets: prometheus.DefBuckets,
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crosswatch_fetch_errors_total",
			Help: "Failed bar fetches per symbol",
		}, []string{"symbol"}),
		BarsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crosswatch_bars_fetched_total",
			Help: "Bars retrieved from the provider per symbol",
		}, []string{"symbol"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crosswatch_provider_circuit_breaker_state",
			Help: "Provider circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		BreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crosswatch_provider_circuit_breaker_trips_total",
			Help: "Times the provider circuit breaker tripped open",
		}),

		// Detection
		Crossovers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crosswatch_crossovers_total",
			Help: "Crossover verdicts per symbol and kind",
		}, []string{"symbol", "kind"}),

		// Alerts
		AlertsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crosswatch_alerts_sent_total",
			Help: "Alerts delivered per channel",
		}, []string{"channel"}),
		AlertsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crosswatch_alerts_failed_total",
			Help: "Alert deliveries that failed per channel",
		}, []string{"channel"}),

		// Stores
		RedisPublishDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crosswatch_redis_publish_duration_seconds",
			Help:    "Redis report publish latency",
			Buckets: prometheus.DefBuckets,
		}),
		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crosswatch_sqlite_commit_duration_seconds",
			Help:    "SQLite batch commit latency",
			Buckets: prometheus.DefBuckets,
		}),
	}

	prometheus.MustRegister(
		m.CyclesTotal,
		m.CyclesSkipped,
		m.CycleDur,
		m.LastCycleUnix,
		m.Instruments,
		m.FetchDur,
		m.FetchErrors,
		m.BarsFetched,
		m.BreakerState,
		m.BreakerTrips,
		m.Crossovers,
		m.AlertsSent,
		m.AlertsFailed,
		m.RedisPublishDur,
		m.SQLiteCommitDur,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	ProviderOK     bool      `json:"provider_ok"`
	LastCycleTime  time.Time `json:"last_cycle_time"`
	CycleCount     int64     `json:"cycle_count"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	MarketOpen     bool      `json:"market_open"`
	Symbols        []string  `json:"symbols"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status. Stores start healthy and
// stay that way unless a probe fails, so a deployment without Redis or
// SQLite configured is not reported degraded.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		ProviderOK:     true,
		RedisConnected: true,
		SQLiteOK:       true,
		StartedAt:      time.Now(),
	}
}

func (h *HealthStatus) SetProviderOK(v bool) {
	h.mu.Lock()
	h.ProviderOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastCycle(t time.Time, count int64) {
	h.mu.Lock()
	h.LastCycleTime = t
	h.CycleCount = count
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetMarketOpen(v bool) {
	h.mu.Lock()
	h.MarketOpen = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSymbols(symbols []string) {
	h.mu.Lock()
	h.Symbols = symbols
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Nil dependencies
// are skipped, so disabled stores never probe.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Determine overall status
	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.ProviderOK || !h.RedisConnected || !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.ProviderOK && !h.RedisConnected {
		overallStatus = "unhealthy"
	}

	// Cycle age
	cycleAge := ""
	if !h.LastCycleTime.IsZero() {
		cycleAge = time.Since(h.LastCycleTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string   `json:"status"`
		Uptime          string   `json:"uptime"`
		ProviderOK      bool     `json:"provider_ok"`
		LastCycleTime   string   `json:"last_cycle_time"`
		CycleAge        string   `json:"cycle_age"`
		CycleCount      int64    `json:"cycle_count"`
		RedisConnected  bool     `json:"redis_connected"`
		RedisLatencyMs  float64  `json:"redis_latency_ms"`
		SQLiteOK        bool     `json:"sqlite_ok"`
		SQLiteLatencyMs float64  `json:"sqlite_latency_ms"`
		MarketOpen      bool     `json:"market_open"`
		Symbols         []string `json:"symbols"`
		LastCheckAt     string   `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		ProviderOK:      h.ProviderOK,
		LastCycleTime:   h.LastCycleTime.Format(time.RFC3339),
		CycleAge:        cycleAge,
		CycleCount:      h.CycleCount,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		MarketOpen:      h.MarketOpen,
		Symbols:         h.Symbols,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
