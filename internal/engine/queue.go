package engine

import (
	"context"
	"log"

	"daytrader-systemv1/internal/model"
)

// Enqueue validates an entry candidate, stamps it, and appends it to the
// tail of the pending queue. O(1), never blocks on the broker.
func (e *Engine) Enqueue(ctx context.Context, sig model.Signal) (model.PendingOrder, error) {
	sig.Normalize()

	var missing []string
	if sig.Symbol == "" {
		missing = append(missing, "symbol")
	}
	if !sig.Side.Valid() {
		missing = append(missing, "side")
	}
	if sig.Qty <= 0 {
		missing = append(missing, "qty")
	}
	if !sig.EntryType.Valid() {
		missing = append(missing, "entry_type")
	}
	if sig.TPPct <= 0 {
		missing = append(missing, "tp_pct")
	}
	if sig.SLPct <= 0 {
		missing = append(missing, "sl_pct")
	}
	if !sig.ExitPref.Valid() {
		missing = append(missing, "exit_pref")
	}
	if len(missing) > 0 {
		return model.PendingOrder{}, &ValidationError{Missing: missing}
	}

	po := model.PendingOrder{Signal: sig, QueuedAt: e.now()}

	e.mu.Lock()
	e.pending = append(e.pending, po)
	depth := len(e.pending)
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.OrdersQueued.Inc()
		e.metrics.PendingDepth.Set(float64(depth))
	}
	e.logTrade(po.Symbol, "queued %s %s qty=%d tp=%.2f%% sl=%.2f%%",
		po.Side, po.EntryType, po.Qty, po.TPPct, po.SLPct)
	e.emit(ctx, Event{Type: EventOrderQueued, Symbol: po.Symbol, Order: &po})

	return po, nil
}

// Pending returns the queue contents in insertion order.
func (e *Engine) Pending() []model.PendingOrder {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.PendingOrder, len(e.pending))
	copy(out, e.pending)
	return out
}

// ConfirmResult is the outcome of a successful (or empty) Confirm call.
type ConfirmResult struct {
	// Empty is true when the queue had nothing to confirm. That is a
	// normal outcome, not an error: the auto-confirm sidecar polls
	// Confirm in a tight loop and an empty queue must be safe.
	Empty bool `json:"empty,omitempty"`

	OrderID  string         `json:"order_id,omitempty"`
	Position model.Position `json:"position,omitempty"`
}

// Confirm authenticates the caller, atomically removes the queue head, and
// places it as an entry order. Concurrent calls never pop the same head
// and never drop an element: the pop happens under the engine lock, and
// only the goroutine that won the pop proceeds to the broker.
//
// The broker call itself runs outside the lock; a confirmed order that
// fails placement is surfaced as an error to the caller (the caller
// decides whether to re-queue).
func (e *Engine) Confirm(ctx context.Context, token string) (ConfirmResult, error) {
	if token != e.confirmToken {
		e.countConfirm("unauthorized")
		return ConfirmResult{}, ErrUnauthorized
	}

	e.mu.Lock()
	if len(e.pending) == 0 {
		e.mu.Unlock()
		e.countConfirm("empty")
		return ConfirmResult{Empty: true}, nil
	}
	po := e.pending[0]
	e.pending = e.pending[1:]
	depth := len(e.pending)
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.PendingDepth.Set(float64(depth))
	}

	orderID, pos, err := e.place(ctx, po)
	if err != nil {
		e.countConfirm("failed")
		e.logError(po.Symbol, "confirm->place failed: %v", err)
		log.Printf("[engine] confirm: place failed symbol=%s err=%v", po.Symbol, err)
		return ConfirmResult{}, err
	}

	e.countConfirm("placed")
	return ConfirmResult{OrderID: orderID, Position: pos}, nil
}

func (e *Engine) countConfirm(outcome string) {
	if e.metrics != nil {
		e.metrics.Confirms.WithLabelValues(outcome).Inc()
	}
}
