// Package model defines the core domain types shared across the engine:
// signals, pending orders, positions, and closed trades.
package model

import "strings"

// Side is the direction of a trade.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Valid reports whether s is a known side.
func (s Side) Valid() bool { return s == SideLong || s == SideShort }

// OrderType is the broker order type for an entry or exit.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool { return t == OrderTypeMarket || t == OrderTypeLimit }

// ExitPreference controls how the exit order type is chosen when a
// TP/SL threshold is breached.
//
// AUTO resolves to MARKET during live market hours and to a LIMIT order
// at the breached target price off-hours. An explicit MARKET or LIMIT
// preference pins the type regardless of session.
type ExitPreference string

const (
	ExitAuto   ExitPreference = "AUTO"
	ExitMarket ExitPreference = "MARKET"
	ExitLimit  ExitPreference = "LIMIT"
)

// Valid reports whether p is a known exit preference.
func (p ExitPreference) Valid() bool {
	return p == ExitAuto || p == ExitMarket || p == ExitLimit
}

// Signal is an immutable entry candidate produced by the scanner (or
// submitted directly through the queue API).
//
// TPPct and SLPct are stored as percentages (0.8 means 0.8%) and
// converted to fractions only at the point of use.
type Signal struct {
	Symbol    string         `json:"symbol"`
	Side      Side           `json:"side"`
	LTP       float64        `json:"ltp"` // last traded price at signal time
	Qty       int64          `json:"qty"`
	TPPct     float64        `json:"tp_pct"`
	SLPct     float64        `json:"sl_pct"`
	EntryType OrderType      `json:"entry_type"`
	ExitPref  ExitPreference `json:"exit_pref"`
	Interval  string         `json:"interval,omitempty"` // candle interval the signal was scanned on
}

// Normalize upper-cases the enum-ish fields and defaults ExitPref to AUTO,
// so JSON payloads with lowercase values behave like the documented enums.
func (s *Signal) Normalize() {
	s.Symbol = strings.ToUpper(strings.TrimSpace(s.Symbol))
	s.Side = Side(strings.ToUpper(string(s.Side)))
	s.EntryType = OrderType(strings.ToUpper(string(s.EntryType)))
	s.ExitPref = ExitPreference(strings.ToUpper(string(s.ExitPref)))
	if s.ExitPref == "" {
		s.ExitPref = ExitAuto
	}
}
