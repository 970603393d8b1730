// Package metrics exposes Prometheus metrics and a health endpoint for the
// trading engine.
package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trading engine.
type Metrics struct {
	ScansTotal   prometheus.Counter
	ScanErrors   prometheus.Counter
	Signals      *prometheus.CounterVec // labels: side
	OrdersQueued prometheus.Counter
	Confirms     *prometheus.CounterVec // labels: outcome=placed|empty|unauthorized|failed
	EntryOrders  *prometheus.CounterVec // labels: variety=NORMAL|AMO
	ExitOrders   *prometheus.CounterVec // labels: reason=TP|SL
	ExitFailures prometheus.Counter

	MonitorPasses  prometheus.Counter
	MonitorPassDur prometheus.Histogram

	PendingDepth  prometheus.Gauge
	OpenPositions prometheus.Gauge
	RealizedPnL   prometheus.Gauge
}

// New registers and returns all engine metrics.
func New() *Metrics {
	m := &Metrics{
		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "daytrader_scans_total",
			Help: "Total scan batches executed",
		}),
		ScanErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "daytrader_scan_errors_total",
			Help: "Total per-instrument scan failures",
		}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daytrader_signals_total",
			Help: "Total signals produced by the scanner",
		}, []string{"side"}),
		OrdersQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "daytrader_orders_queued_total",
			Help: "Total orders accepted into the pending queue",
		}),
		Confirms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daytrader_confirms_total",
			Help: "Total confirm calls by outcome",
		}, []string{"outcome"}),
		EntryOrders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daytrader_entry_orders_total",
			Help: "Total entry orders placed, by variety",
		}, []string{"variety"}),
		ExitOrders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daytrader_exit_orders_total",
			Help: "Total exit orders placed, by reason",
		}, []string{"reason"}),
		ExitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "daytrader_exit_failures_total",
			Help: "Total failed exit evaluations (retried next pass)",
		}),
		MonitorPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "daytrader_monitor_passes_total",
			Help: "Total completed exit-monitor passes",
		}),
		MonitorPassDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "daytrader_monitor_pass_duration_seconds",
			Help:    "Duration of full exit-monitor passes",
			Buckets: prometheus.DefBuckets,
		}),
		PendingDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "daytrader_pending_orders",
			Help: "Current depth of the pending-order queue",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "daytrader_open_positions",
			Help: "Current number of open positions",
		}),
		RealizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "daytrader_realized_pnl_rupees",
			Help: "Cumulative realized PnL of closed trades",
		}),
	}

	prometheus.MustRegister(
		m.ScansTotal, m.ScanErrors, m.Signals, m.OrdersQueued, m.Confirms,
		m.EntryOrders, m.ExitOrders, m.ExitFailures,
		m.MonitorPasses, m.MonitorPassDur,
		m.PendingDepth, m.OpenPositions, m.RealizedPnL,
	)
	return m
}

// HealthStatus tracks dependency health for the /healthz endpoint.
type HealthStatus struct {
	mu sync.RWMutex

	BrokerLoggedIn bool      `json:"broker_logged_in"`
	FeedConnected  bool      `json:"feed_connected"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	MonitorRunning bool      `json:"monitor_running"`
	StartedAt      time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetBrokerLoggedIn(v bool) { h.set(func() { h.BrokerLoggedIn = v }) }
func (h *HealthStatus) SetFeedConnected(v bool)  { h.set(func() { h.FeedConnected = v }) }
func (h *HealthStatus) SetRedisConnected(v bool) { h.set(func() { h.RedisConnected = v }) }
func (h *HealthStatus) SetSQLiteOK(v bool)       { h.set(func() { h.SQLiteOK = v }) }
func (h *HealthStatus) SetMonitorRunning(v bool) { h.set(func() { h.MonitorRunning = v }) }

func (h *HealthStatus) set(fn func()) {
	h.mu.Lock()
	fn()
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	status := struct {
		Status         string `json:"status"`
		Uptime         string `json:"uptime"`
		BrokerLoggedIn bool   `json:"broker_logged_in"`
		FeedConnected  bool   `json:"feed_connected"`
		RedisConnected bool   `json:"redis_connected"`
		SQLiteOK       bool   `json:"sqlite_ok"`
		MonitorRunning bool   `json:"monitor_running"`
	}{
		Status:         "healthy",
		Uptime:         time.Since(h.StartedAt).Round(time.Second).String(),
		BrokerLoggedIn: h.BrokerLoggedIn,
		FeedConnected:  h.FeedConnected,
		RedisConnected: h.RedisConnected,
		SQLiteOK:       h.SQLiteOK,
		MonitorRunning: h.MonitorRunning,
	}
	code := http.StatusOK
	if !h.BrokerLoggedIn || !h.MonitorRunning {
		status.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	h.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)
	return &Server{addr: addr, srv: &http.Server{Addr: addr, Handler: mux}}
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
