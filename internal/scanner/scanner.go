// Package scanner classifies instruments into bullish/bearish entry
// candidates from recent candles, using EMA crossover, Wilder RSI, and the
// prior-session classic pivot.
package scanner

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"daytrader-systemv1/internal/indicator"
	"daytrader-systemv1/internal/metrics"
	"daytrader-systemv1/internal/model"
)

const (
	emaFastSpan = 5
	emaSlowSpan = 10
	rsiPeriod   = 14

	// minBars is what the indicators need: RSI(14) requires period+2
	// closes to compare the latest value against the prior one.
	minBars = rsiPeriod + 2
)

// CandleSource fetches recent OHLC bars for an instrument.
type CandleSource interface {
	Candles(ctx context.Context, symbol, interval string, bars int) ([]model.Candle, error)
}

// Config describes one scan batch.
type Config struct {
	Symbols      []string
	Interval     string  // broker candle interval, e.g. "FIVE_MINUTE"
	Bars         int     // lookback depth; must span the prior session for pivots
	InvestAmount float64 // rupee budget per position, sets suggested qty
	TPPct        float64
	SLPct        float64
	EntryType    model.OrderType
	ExitPref     model.ExitPreference
}

// ScanError records a single instrument's failure. Failures never abort
// the batch; the scan returns partial results plus errors.
type ScanError struct {
	Symbol string `json:"symbol"`
	Err    string `json:"error"`
}

// Result is the outcome of one scan batch.
type Result struct {
	Long   []model.Signal `json:"long"`
	Short  []model.Signal `json:"short"`
	Errors []ScanError    `json:"errors"`
}

// Scanner scans a symbol universe for entry signals.
type Scanner struct {
	source  CandleSource
	metrics *metrics.Metrics // optional
	now     func() time.Time
}

// New creates a Scanner over the given candle source. m may be nil.
func New(source CandleSource, m *metrics.Metrics) *Scanner {
	return &Scanner{source: source, metrics: m, now: time.Now}
}

// Scan evaluates every symbol in cfg and collects signals and per-symbol
// errors. One bad instrument never takes down the batch.
func (s *Scanner) Scan(ctx context.Context, cfg Config) Result {
	var res Result
	for _, symbol := range cfg.Symbols {
		sig, side, err := s.scanSymbol(ctx, cfg, symbol)
		if err != nil {
			res.Errors = append(res.Errors, ScanError{Symbol: symbol, Err: err.Error()})
			continue
		}
		switch side {
		case model.SideLong:
			res.Long = append(res.Long, sig)
		case model.SideShort:
			res.Short = append(res.Short, sig)
		}
	}
	if s.metrics != nil {
		s.metrics.ScansTotal.Inc()
		s.metrics.ScanErrors.Add(float64(len(res.Errors)))
		s.metrics.Signals.WithLabelValues(string(model.SideLong)).Add(float64(len(res.Long)))
		s.metrics.Signals.WithLabelValues(string(model.SideShort)).Add(float64(len(res.Short)))
	}
	log.Printf("[scanner] scanned %d symbols: long=%d short=%d errors=%d",
		len(cfg.Symbols), len(res.Long), len(res.Short), len(res.Errors))
	return res
}

// scanSymbol fetches bars and classifies one instrument. side is empty
// when no signal fires.
func (s *Scanner) scanSymbol(ctx context.Context, cfg Config, symbol string) (model.Signal, model.Side, error) {
	bars, err := s.source.Candles(ctx, symbol, cfg.Interval, cfg.Bars)
	if err != nil {
		return model.Signal{}, "", err
	}
	if len(bars) < minBars {
		return model.Signal{}, "", errInsufficientData{symbol: symbol, have: len(bars), want: minBars}
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	last := closes[len(closes)-1]

	emaFast := indicator.EMA(closes, emaFastSpan)
	emaSlow := indicator.EMA(closes, emaSlowSpan)
	rsis := indicator.RSISeries(closes, rsiPeriod)
	rsiLast := rsis[len(rsis)-1]
	rsiPrev := rsis[len(rsis)-2]
	pivot, havePivot := indicator.Pivot(bars, s.now())

	bullish := emaFast > emaSlow && rsiLast > 50 && rsiLast > rsiPrev &&
		(!havePivot || last > pivot)
	bearish := emaFast < emaSlow && rsiLast < 50 && rsiLast < rsiPrev &&
		(!havePivot || last < pivot)

	var side model.Side
	switch {
	case bullish:
		side = model.SideLong
	case bearish:
		side = model.SideShort
	default:
		return model.Signal{}, "", nil
	}

	return model.Signal{
		Symbol:    symbol,
		Side:      side,
		LTP:       last,
		Qty:       suggestedQty(cfg.InvestAmount, last),
		TPPct:     cfg.TPPct,
		SLPct:     cfg.SLPct,
		EntryType: cfg.EntryType,
		ExitPref:  cfg.ExitPref,
		Interval:  cfg.Interval,
	}, side, nil
}

// suggestedQty sizes a position to the investment budget, never below one
// share.
func suggestedQty(invest, price float64) int64 {
	if price <= 0 {
		return 1
	}
	qty := int64(math.Floor(invest / price))
	if qty < 1 {
		return 1
	}
	return qty
}

type errInsufficientData struct {
	symbol     string
	have, want int
}

func (e errInsufficientData) Error() string {
	return fmt.Sprintf("insufficient candle data for %s: have %d bars, need %d", e.symbol, e.have, e.want)
}
