package engine

import (
	"context"
	"log"
	"time"

	"daytrader-systemv1/internal/model"
)

// EventType identifies an engine lifecycle event.
type EventType string

const (
	EventOrderQueued    EventType = "ORDER_QUEUED"
	EventOrderPlaced    EventType = "ORDER_PLACED" // entry or exit submission accepted by broker
	EventPositionOpened EventType = "POSITION_OPENED"
	EventPositionClosed EventType = "POSITION_CLOSED"
	EventExitFailed     EventType = "EXIT_FAILED"
)

// Event is an engine lifecycle event fanned out to the configured sinks
// (journal, redis publisher, notifier adapters).
type Event struct {
	Type     EventType           `json:"type"`
	TS       time.Time           `json:"ts"`
	Symbol   string              `json:"symbol,omitempty"`
	Order    *model.PendingOrder `json:"order,omitempty"`
	Request  *model.OrderRequest `json:"request,omitempty"`
	OrderID  string              `json:"order_id,omitempty"`
	Position *model.Position     `json:"position,omitempty"`
	Err      string              `json:"error,omitempty"`
}

// Sink receives engine events. Implementations must be safe for concurrent
// use; delivery is best-effort and must not block the trading path for long.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, ev Event) error

// Publish implements Sink.
func (f SinkFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }

// emit fans an event out to all sinks. Sink errors are logged, never
// propagated, since a broken dashboard must not fail a trade.
func (e *Engine) emit(ctx context.Context, ev Event) {
	if ev.TS.IsZero() {
		ev.TS = e.now()
	}
	for _, s := range e.sinks {
		if err := s.Publish(ctx, ev); err != nil {
			log.Printf("[engine] event sink error: type=%s symbol=%s err=%v", ev.Type, ev.Symbol, err)
		}
	}
}
