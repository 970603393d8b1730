package indicator

import (
	"math"
	"testing"
	"time"

	"daytrader-systemv1/internal/markethours"
	"daytrader-systemv1/internal/model"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEMASeries_ConstantSeries(t *testing.T) {
	values := []float64{10, 10, 10, 10, 10}
	out := EMASeries(values, 5)
	if len(out) != len(values) {
		t.Fatalf("length mismatch: got %d want %d", len(out), len(values))
	}
	for i, v := range out {
		if !almostEqual(v, 10) {
			t.Errorf("out[%d] = %v, want 10", i, v)
		}
	}
	if !almostEqual(EMA(values, 5), 10) {
		t.Errorf("EMA = %v, want 10", EMA(values, 5))
	}
}

func TestEMASeries_HandComputed(t *testing.T) {
	// span 3 gives alpha = 0.5, easy to follow by hand.
	out := EMASeries([]float64{1, 2, 3}, 3)
	want := []float64{1, 1.5, 2.25}
	for i := range want {
		if !almostEqual(out[i], want[i]) {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestEMASeries_Empty(t *testing.T) {
	if out := EMASeries(nil, 5); out != nil {
		t.Errorf("expected nil for empty input, got %v", out)
	}
	if v := EMA(nil, 5); v != 0 {
		t.Errorf("EMA of empty = %v, want 0", v)
	}
}

func TestRSI_AllGains(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	if got := RSI(values, 14); !almostEqual(got, 100) {
		t.Errorf("RSI of strictly increasing series = %v, want 100", got)
	}
}

func TestRSI_AllLosses(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = 100 - float64(i)
	}
	if got := RSI(values, 14); !almostEqual(got, 0) {
		t.Errorf("RSI of strictly decreasing series = %v, want 0", got)
	}
}

func TestRSISeries_HandComputed(t *testing.T) {
	// period 2: deltas +1,-1 seed avgGain=avgLoss=0.5 so RSI=50, then the
	// +1 delta smooths to avgGain=0.75 avgLoss=0.25, RS=3, RSI=75.
	out := RSISeries([]float64{1, 2, 1, 2}, 2)
	if !almostEqual(out[2], 50) {
		t.Errorf("out[2] = %v, want 50", out[2])
	}
	if !almostEqual(out[3], 75) {
		t.Errorf("out[3] = %v, want 75", out[3])
	}
}

func TestRSISeries_TooShort(t *testing.T) {
	out := RSISeries([]float64{1, 2, 3}, 14)
	for i, v := range out {
		if v != 0 {
			t.Errorf("out[%d] = %v, want 0 for insufficient data", i, v)
		}
	}
}

func bar(ts time.Time, h, l, c float64) model.Candle {
	return model.Candle{TS: ts, Open: c, High: h, Low: l, Close: c}
}

func TestPivot_PriorSession(t *testing.T) {
	prev := time.Date(2026, 8, 24, 10, 0, 0, 0, markethours.IST)
	asOf := time.Date(2026, 8, 25, 11, 0, 0, 0, markethours.IST)

	bars := []model.Candle{
		bar(prev, 105, 95, 98),
		bar(prev.Add(5*time.Minute), 110, 90, 100), // session: H=110 L=90 C=100
		bar(asOf.Add(-time.Hour), 200, 150, 180),   // today's bars must be ignored
	}
	pivot, ok := Pivot(bars, asOf)
	if !ok {
		t.Fatal("expected pivot to be available")
	}
	if !almostEqual(pivot, 100) {
		t.Errorf("pivot = %v, want 100", pivot)
	}
}

func TestPivot_LatestPriorSessionWins(t *testing.T) {
	old := time.Date(2026, 8, 21, 10, 0, 0, 0, markethours.IST)
	prev := time.Date(2026, 8, 24, 10, 0, 0, 0, markethours.IST)
	asOf := time.Date(2026, 8, 25, 11, 0, 0, 0, markethours.IST)

	bars := []model.Candle{
		bar(old, 60, 40, 50),
		bar(prev, 120, 90, 90), // (120+90+90)/3 = 100
	}
	pivot, ok := Pivot(bars, asOf)
	if !ok {
		t.Fatal("expected pivot to be available")
	}
	if !almostEqual(pivot, 100) {
		t.Errorf("pivot = %v, want 100 from the latest prior session", pivot)
	}
}

func TestPivot_NoPriorSession(t *testing.T) {
	asOf := time.Date(2026, 8, 25, 11, 0, 0, 0, markethours.IST)
	bars := []model.Candle{
		bar(asOf.Add(-2*time.Hour), 110, 90, 100),
		bar(asOf.Add(-time.Hour), 110, 90, 100),
	}
	if _, ok := Pivot(bars, asOf); ok {
		t.Error("expected no pivot when bars only cover asOf's own session")
	}
	if _, ok := Pivot(nil, asOf); ok {
		t.Error("expected no pivot for empty bars")
	}
}
