package model

import "time"

// ExitReason says which threshold closed a position.
type ExitReason string

const (
	ExitReasonTP ExitReason = "TP"
	ExitReasonSL ExitReason = "SL"
)

// Position is a tracked open trade, keyed by symbol. The engine holds at
// most one open Position per symbol. A Position transitions open → closed
// exactly once; once closed it leaves the active set and is never reopened.
type Position struct {
	Symbol       string         `json:"symbol"`
	Side         Side           `json:"side"`
	Qty          int64          `json:"qty"`
	EntryPrice   float64        `json:"entry_price"`
	EntryOrderID string         `json:"entry_order_id"`
	TPPct        float64        `json:"tp_pct"` // percent, e.g. 0.8 = 0.8%
	SLPct        float64        `json:"sl_pct"`
	ExitPref     ExitPreference `json:"exit_pref"`
	Open         bool           `json:"open"`
	CreatedAt    time.Time      `json:"created_at"`

	// Set at close time.
	ClosedAt    time.Time  `json:"closed_at,omitempty"`
	ExitReason  ExitReason `json:"exit_reason,omitempty"`
	ExitOrderID string     `json:"exit_order_id,omitempty"`
	ExitPrice   float64    `json:"exit_price,omitempty"` // observed LTP at trigger time
	PnL         float64    `json:"pnl,omitempty"`
}

// Targets returns the take-profit and stop-loss trigger prices.
// Percentages become fractions only here, at the point of use.
func (p *Position) Targets() (tp, sl float64) {
	tpFrac := p.TPPct / 100.0
	slFrac := p.SLPct / 100.0
	if p.Side == SideLong {
		return p.EntryPrice * (1 + tpFrac), p.EntryPrice * (1 - slFrac)
	}
	return p.EntryPrice * (1 - tpFrac), p.EntryPrice * (1 + slFrac)
}

// RealizedPnL computes profit at the given exit price:
// (exit − entry) × qty for LONG, (entry − exit) × qty for SHORT.
func (p *Position) RealizedPnL(exitPrice float64) float64 {
	if p.Side == SideLong {
		return (exitPrice - p.EntryPrice) * float64(p.Qty)
	}
	return (p.EntryPrice - exitPrice) * float64(p.Qty)
}

// ClosedTrade is an immutable snapshot of a Position at close time.
// The closed-trade history is append-only, ordered by close time.
type ClosedTrade Position
