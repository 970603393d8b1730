package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"daytrader-systemv1/internal/markethours"
	"daytrader-systemv1/internal/metrics"
	"daytrader-systemv1/internal/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	bars map[string][]model.Candle
	errs map[string]error
}

func (f *fakeSource) Candles(ctx context.Context, symbol, interval string, bars int) ([]model.Candle, error) {
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	return f.bars[symbol], nil
}

var (
	prevDay = time.Date(2026, 8, 24, 10, 0, 0, 0, markethours.IST)
	scanDay = time.Date(2026, 8, 25, 13, 0, 0, 0, markethours.IST)
)

// priorSession builds four flat bars on the previous day so the pivot is
// exactly level.
func priorSession(level float64) []model.Candle {
	bars := make([]model.Candle, 4)
	for i := range bars {
		bars[i] = model.Candle{
			TS:    prevDay.Add(time.Duration(i) * 5 * time.Minute),
			Open:  level,
			High:  level,
			Low:   level,
			Close: level,
		}
	}
	return bars
}

// trendSession builds today's bars: start, one counter-move, then a steady
// trend of step per bar. The counter-move keeps Wilder RSI strictly
// monotonic along the trend instead of pinned at 0 or 100.
func trendSession(start, counter, step float64, n int) []model.Candle {
	bars := make([]model.Candle, 0, n)
	ts := time.Date(2026, 8, 25, 9, 15, 0, 0, markethours.IST)
	closes := []float64{start, counter}
	for len(closes) < n {
		closes = append(closes, closes[len(closes)-1]+step)
	}
	for i, c := range closes {
		bars = append(bars, model.Candle{
			TS:    ts.Add(time.Duration(i) * 5 * time.Minute),
			Open:  c,
			High:  c,
			Low:   c,
			Close: c,
		})
	}
	return bars
}

func bullishBars() []model.Candle {
	return append(priorSession(95), trendSession(100, 99, 0.5, 30)...)
}

func bearishBars() []model.Candle {
	return append(priorSession(130), trendSession(125, 126, -0.5, 30)...)
}

func flatBars() []model.Candle {
	return append(priorSession(100), trendSession(100, 100, 0, 30)...)
}

func testConfig(symbols ...string) Config {
	return Config{
		Symbols:      symbols,
		Interval:     "FIVE_MINUTE",
		Bars:         60,
		InvestAmount: 10000,
		TPPct:        0.8,
		SLPct:        0.4,
		EntryType:    model.OrderTypeMarket,
		ExitPref:     model.ExitAuto,
	}
}

func newTestScanner(src CandleSource) *Scanner {
	s := New(src, nil)
	s.now = func() time.Time { return scanDay }
	return s
}

func TestScan_BullishSignal(t *testing.T) {
	src := &fakeSource{bars: map[string][]model.Candle{"INFY": bullishBars()}}
	s := newTestScanner(src)

	res := s.Scan(context.Background(), testConfig("INFY"))
	if len(res.Long) != 1 {
		t.Fatalf("long signals = %d, want 1 (short=%d errs=%v)", len(res.Long), len(res.Short), res.Errors)
	}
	sig := res.Long[0]
	if sig.Symbol != "INFY" || sig.Side != model.SideLong {
		t.Errorf("unexpected signal: %+v", sig)
	}
	if sig.LTP != 113 {
		t.Errorf("signal LTP = %v, want last close 113", sig.LTP)
	}
	if sig.Qty != 88 { // floor(10000 / 113)
		t.Errorf("qty = %d, want 88", sig.Qty)
	}
	if sig.TPPct != 0.8 || sig.SLPct != 0.4 {
		t.Errorf("tp/sl pct not carried from config: %+v", sig)
	}
}

func TestScan_BearishSignal(t *testing.T) {
	src := &fakeSource{bars: map[string][]model.Candle{"TCS": bearishBars()}}
	s := newTestScanner(src)

	res := s.Scan(context.Background(), testConfig("TCS"))
	if len(res.Short) != 1 {
		t.Fatalf("short signals = %d, want 1 (long=%d errs=%v)", len(res.Short), len(res.Long), res.Errors)
	}
	if res.Short[0].Side != model.SideShort {
		t.Errorf("side = %s, want SHORT", res.Short[0].Side)
	}
}

func TestScan_FlatMarketNoSignal(t *testing.T) {
	src := &fakeSource{bars: map[string][]model.Candle{"SBIN": flatBars()}}
	s := newTestScanner(src)

	res := s.Scan(context.Background(), testConfig("SBIN"))
	if len(res.Long)+len(res.Short) != 0 {
		t.Errorf("flat series produced signals: long=%v short=%v", res.Long, res.Short)
	}
	if len(res.Errors) != 0 {
		t.Errorf("unexpected errors: %v", res.Errors)
	}
}

func TestScan_PartialFailures(t *testing.T) {
	src := &fakeSource{
		bars: map[string][]model.Candle{
			"INFY": bullishBars(),
			"TCS":  {{Close: 100}}, // insufficient bars
		},
		errs: map[string]error{"SBIN": errors.New("rate limited")},
	}
	s := newTestScanner(src)

	res := s.Scan(context.Background(), testConfig("INFY", "TCS", "SBIN"))
	if len(res.Long) != 1 {
		t.Errorf("healthy symbol must still scan: long=%d", len(res.Long))
	}
	if len(res.Errors) != 2 {
		t.Fatalf("errors = %d, want 2: %v", len(res.Errors), res.Errors)
	}
	bad := map[string]bool{}
	for _, e := range res.Errors {
		bad[e.Symbol] = true
	}
	if !bad["TCS"] || !bad["SBIN"] {
		t.Errorf("wrong failing symbols: %v", res.Errors)
	}
}

func TestScan_RecordsMetrics(t *testing.T) {
	src := &fakeSource{
		bars: map[string][]model.Candle{"INFY": bullishBars()},
		errs: map[string]error{"SBIN": errors.New("rate limited")},
	}
	prom := metrics.New()
	s := New(src, prom)
	s.now = func() time.Time { return scanDay }

	s.Scan(context.Background(), testConfig("INFY", "SBIN"))

	if got := testutil.ToFloat64(prom.ScansTotal); got != 1 {
		t.Errorf("scans total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(prom.ScanErrors); got != 1 {
		t.Errorf("scan errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(prom.Signals.WithLabelValues(string(model.SideLong))); got != 1 {
		t.Errorf("long signals = %v, want 1", got)
	}
	if got := testutil.ToFloat64(prom.Signals.WithLabelValues(string(model.SideShort))); got != 0 {
		t.Errorf("short signals = %v, want 0", got)
	}
}

func TestSuggestedQty(t *testing.T) {
	cases := []struct {
		invest, price float64
		want          int64
	}{
		{10000, 250, 40},
		{100, 250, 1},  // never below one share
		{10000, 0, 1},  // bad price defaults to one
		{999, 1000, 1}, // cannot afford one, still one
	}
	for _, tc := range cases {
		if got := suggestedQty(tc.invest, tc.price); got != tc.want {
			t.Errorf("suggestedQty(%v, %v) = %d, want %d", tc.invest, tc.price, got, tc.want)
		}
	}
}
