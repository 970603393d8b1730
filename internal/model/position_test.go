package model

import (
	"math"
	"testing"
)

func TestTargets(t *testing.T) {
	long := Position{Side: SideLong, EntryPrice: 100, TPPct: 0.8, SLPct: 0.4}
	tp, sl := long.Targets()
	if math.Abs(tp-100.8) > 1e-9 || math.Abs(sl-99.6) > 1e-9 {
		t.Errorf("long targets = %v/%v, want 100.8/99.6", tp, sl)
	}

	short := Position{Side: SideShort, EntryPrice: 200, TPPct: 1.0, SLPct: 0.5}
	tp, sl = short.Targets()
	if math.Abs(tp-198) > 1e-9 || math.Abs(sl-201) > 1e-9 {
		t.Errorf("short targets = %v/%v, want 198/201", tp, sl)
	}
}

func TestRealizedPnL(t *testing.T) {
	long := Position{Side: SideLong, EntryPrice: 100, Qty: 10}
	if got := long.RealizedPnL(100.9); math.Abs(got-9) > 1e-9 {
		t.Errorf("long pnl = %v, want 9", got)
	}
	if got := long.RealizedPnL(99.5); math.Abs(got+5) > 1e-9 {
		t.Errorf("long loss = %v, want -5", got)
	}

	short := Position{Side: SideShort, EntryPrice: 200, Qty: 5}
	if got := short.RealizedPnL(197); math.Abs(got-15) > 1e-9 {
		t.Errorf("short pnl = %v, want 15", got)
	}
	if got := short.RealizedPnL(202); math.Abs(got+10) > 1e-9 {
		t.Errorf("short loss = %v, want -10", got)
	}
}

func TestSignalNormalize(t *testing.T) {
	s := Signal{Symbol: " reliance ", Side: "short", EntryType: "limit", ExitPref: ""}
	s.Normalize()
	if s.Symbol != "RELIANCE" || s.Side != SideShort || s.EntryType != OrderTypeLimit {
		t.Errorf("normalize failed: %+v", s)
	}
	if s.ExitPref != ExitAuto {
		t.Errorf("ExitPref = %q, want AUTO default", s.ExitPref)
	}
}

func TestWatchlist(t *testing.T) {
	w := NewWatchlist([]string{"INFY", "TCS"})
	if !w.Contains("INFY") || w.Contains("WIPRO") {
		t.Error("membership checks failed")
	}
	if len(w.Symbols()) != 2 {
		t.Errorf("symbols = %v, want 2", w.Symbols())
	}
	if !NewWatchlist(Nifty50).Contains("RELIANCE") {
		t.Error("NIFTY 50 list should contain RELIANCE")
	}
}
