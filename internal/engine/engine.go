// Package engine is the concurrent core of the trading system: the
// confirmation-gated pending-order queue, the position tracker, and the
// background exit monitor.
//
// One Engine is constructed per process and shared by the request layer
// and the monitor goroutine. All shared mutable state (pending queue, open-position map,
// closed-trade history) lives behind a
// single mutex so that enqueue, dequeue, open, and close each appear
// atomic to every observer. Status reads take a point-in-time snapshot
// rather than holding the lock for the duration of a response.
package engine

import (
	"context"
	"sync"
	"time"

	"daytrader-systemv1/internal/markethours"
	"daytrader-systemv1/internal/metrics"
	"daytrader-systemv1/internal/model"
	"daytrader-systemv1/internal/risk"
)

// Broker is the engine's view of the brokerage collaborator. Every call
// must carry a bounded timeout so no engine operation blocks indefinitely.
type Broker interface {
	// Quote returns the last traded price for a symbol in rupees.
	Quote(ctx context.Context, symbol string) (float64, error)

	// PlaceOrder submits an order and returns the broker order id.
	PlaceOrder(ctx context.Context, req model.OrderRequest) (string, error)
}

const (
	defaultMonitorInterval = 5 * time.Second
	limitOffsetFrac        = 0.001 // 0.1% price improvement on LIMIT entries
)

// Options configures a new Engine. Broker and ConfirmToken are required;
// everything else has sensible defaults or is optional.
type Options struct {
	Broker          Broker
	ConfirmToken    string
	MonitorInterval time.Duration

	Metrics *metrics.Metrics // optional
	Sinks   []Sink           // optional event fan-out
	Risk    *risk.Limits     // optional pre-trade limits

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// Engine owns the pending queue, open positions, and closed-trade history.
type Engine struct {
	mu        sync.Mutex
	pending   []model.PendingOrder
	positions map[string]*model.Position
	placing   map[string]bool // symbols with an entry order in flight
	closed    []model.ClosedTrade

	broker       Broker
	confirmToken string
	interval     time.Duration

	metrics *metrics.Metrics
	sinks   []Sink
	risk    *risk.Limits
	events  *eventLog

	now func() time.Time

	monitorOnce    sync.Once
	monitorStarted bool
}

// New constructs an Engine. Call StartMonitor to launch the exit monitor.
func New(opts Options) *Engine {
	e := &Engine{
		positions:    make(map[string]*model.Position),
		placing:      make(map[string]bool),
		broker:       opts.Broker,
		confirmToken: opts.ConfirmToken,
		interval:     opts.MonitorInterval,
		metrics:      opts.Metrics,
		sinks:        opts.Sinks,
		risk:         opts.Risk,
		events:       newEventLog(defaultLogCap),
		now:          opts.Now,
	}
	if e.interval <= 0 {
		e.interval = defaultMonitorInterval
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// MarketLive reports whether the market is in its live session right now.
func (e *Engine) MarketLive() bool { return markethours.IsLive(e.now()) }

// Status is a consistent point-in-time snapshot of engine state.
type Status struct {
	Live          bool                 `json:"live"`
	Market        string               `json:"market"`
	OpenPositions []model.Position     `json:"positions"`
	ClosedTrades  []model.ClosedTrade  `json:"closed_trades"`
	RealizedPnL   float64              `json:"realized_pnl"`
	Pending       []model.PendingOrder `json:"pending"`
}

// Status returns a snapshot of open positions, closed trades, realized
// PnL, and the pending queue. Everything is copied under one lock
// acquisition so the pieces are mutually consistent.
func (e *Engine) Status() Status {
	now := e.now()

	e.mu.Lock()
	positions := make([]model.Position, 0, len(e.positions))
	for _, p := range e.positions {
		positions = append(positions, *p)
	}
	closed := make([]model.ClosedTrade, len(e.closed))
	copy(closed, e.closed)
	pending := make([]model.PendingOrder, len(e.pending))
	copy(pending, e.pending)
	e.mu.Unlock()

	var realized float64
	for _, c := range closed {
		realized += c.PnL
	}

	return Status{
		Live:          markethours.IsLive(now),
		Market:        markethours.StatusString(now),
		OpenPositions: positions,
		ClosedTrades:  closed,
		RealizedPnL:   realized,
		Pending:       pending,
	}
}

// Logs returns recent engine log entries, newest last.
// kind is "trade" or "error".
func (e *Engine) Logs(kind string, limit int) []LogEntry {
	return e.events.tail(kind, limit)
}
