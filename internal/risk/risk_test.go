package risk

import (
	"strings"
	"testing"
)

func TestAllow_WithinLimits(t *testing.T) {
	l := DefaultLimits()
	err := l.Allow(Check{Qty: 10, Price: 100, OpenPositions: 1, Exposure: 5000, RealizedPnL: -100})
	if err != nil {
		t.Errorf("expected trade to pass, got %v", err)
	}
}

func TestAllow_MaxQty(t *testing.T) {
	l := Limits{MaxQty: 100}
	if err := l.Allow(Check{Qty: 101}); err == nil {
		t.Error("expected qty breach")
	}
	if err := l.Allow(Check{Qty: 100}); err != nil {
		t.Errorf("qty at the limit should pass, got %v", err)
	}
}

func TestAllow_MaxOpenPositions(t *testing.T) {
	l := Limits{MaxOpenPositions: 2}
	if err := l.Allow(Check{OpenPositions: 2}); err == nil {
		t.Error("expected open-positions breach")
	}
	if err := l.Allow(Check{OpenPositions: 1}); err != nil {
		t.Errorf("below the limit should pass, got %v", err)
	}
}

func TestAllow_MaxExposure(t *testing.T) {
	l := Limits{MaxExposure: 10000}
	// 5000 existing + 60*100 proposed = 11000 > 10000
	err := l.Allow(Check{Qty: 60, Price: 100, Exposure: 5000})
	if err == nil {
		t.Fatal("expected exposure breach")
	}
	if !strings.Contains(err.Error(), "exposure") {
		t.Errorf("error = %q, want exposure reason", err.Error())
	}
	if err := l.Allow(Check{Qty: 50, Price: 100, Exposure: 5000}); err != nil {
		t.Errorf("exactly at the limit should pass, got %v", err)
	}
}

func TestAllow_MaxDailyLoss(t *testing.T) {
	l := Limits{MaxDailyLoss: 1000}
	if err := l.Allow(Check{RealizedPnL: -1000}); err == nil {
		t.Error("expected daily-loss stop")
	}
	if err := l.Allow(Check{RealizedPnL: -999}); err != nil {
		t.Errorf("below the loss limit should pass, got %v", err)
	}
}

func TestAllow_ZeroDisablesChecks(t *testing.T) {
	var l Limits
	err := l.Allow(Check{Qty: 1 << 40, Price: 1e9, OpenPositions: 1000, Exposure: 1e12, RealizedPnL: -1e9})
	if err != nil {
		t.Errorf("zero limits must disable every check, got %v", err)
	}
}
