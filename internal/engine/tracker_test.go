package engine

import (
	"context"
	"errors"
	"testing"

	"daytrader-systemv1/internal/model"
	"daytrader-systemv1/internal/risk"
)

func TestPlace_MarketEntryLive(t *testing.T) {
	b := newFakeBroker()
	b.setQuote("INFY", 1500)
	e := newTestEngine(b, liveClock)
	ctx := context.Background()

	e.Enqueue(ctx, signalFor("INFY"))
	res, err := e.Confirm(ctx, testToken)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if res.OrderID != "ORD-1" {
		t.Errorf("order id = %q, want ORD-1", res.OrderID)
	}
	if res.Position.EntryPrice != 1500 {
		t.Errorf("entry price = %v, want quote 1500", res.Position.EntryPrice)
	}
	if !res.Position.Open {
		t.Error("position should be open")
	}

	orders := b.placedOrders()
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	req := orders[0]
	if req.TransactionType != model.TxnBuy {
		t.Errorf("txn = %s, want BUY for LONG", req.TransactionType)
	}
	if req.Variety != model.VarietyNormal {
		t.Errorf("variety = %s, want NORMAL during live hours", req.Variety)
	}
	if req.Product != model.ProductIntraday || req.Validity != model.ValidityDay {
		t.Errorf("product/validity = %s/%s, want INTRADAY/DAY", req.Product, req.Validity)
	}
	if req.Price != 0 {
		t.Errorf("market order price = %v, want 0", req.Price)
	}
}

func TestPlace_LimitEntryPricing(t *testing.T) {
	cases := []struct {
		side      model.Side
		wantPrice float64
	}{
		{model.SideLong, 99.9},   // 0.1% below quote
		{model.SideShort, 100.1}, // 0.1% above quote
	}
	for _, tc := range cases {
		b := newFakeBroker()
		b.setQuote("TCS", 100)
		e := newTestEngine(b, liveClock)
		ctx := context.Background()

		sig := signalFor("TCS")
		sig.Side = tc.side
		sig.EntryType = model.OrderTypeLimit
		e.Enqueue(ctx, sig)

		res, err := e.Confirm(ctx, testToken)
		if err != nil {
			t.Fatalf("%s: confirm: %v", tc.side, err)
		}
		if res.Position.EntryPrice != tc.wantPrice {
			t.Errorf("%s: entry = %v, want %v", tc.side, res.Position.EntryPrice, tc.wantPrice)
		}
		req := b.placedOrders()[0]
		if req.Price != tc.wantPrice {
			t.Errorf("%s: limit price = %v, want %v", tc.side, req.Price, tc.wantPrice)
		}
	}
}

func TestPlace_AMOVarietyOffHours(t *testing.T) {
	b := newFakeBroker()
	b.setQuote("INFY", 1500)
	e := newTestEngine(b, amoClock)
	ctx := context.Background()

	e.Enqueue(ctx, signalFor("INFY"))
	if _, err := e.Confirm(ctx, testToken); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if v := b.placedOrders()[0].Variety; v != model.VarietyAMO {
		t.Errorf("variety = %s, want AMO off-hours", v)
	}
}

func TestPlace_ShortEntrySells(t *testing.T) {
	b := newFakeBroker()
	b.setQuote("SBIN", 600)
	e := newTestEngine(b, liveClock)
	ctx := context.Background()

	sig := signalFor("SBIN")
	sig.Side = model.SideShort
	e.Enqueue(ctx, sig)
	if _, err := e.Confirm(ctx, testToken); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if txn := b.placedOrders()[0].TransactionType; txn != model.TxnSell {
		t.Errorf("txn = %s, want SELL for SHORT entry", txn)
	}
}

func TestPlace_DuplicateSymbolRejected(t *testing.T) {
	b := newFakeBroker()
	b.setQuote("INFY", 1500)
	e := newTestEngine(b, liveClock)
	ctx := context.Background()

	e.Enqueue(ctx, signalFor("INFY"))
	if _, err := e.Confirm(ctx, testToken); err != nil {
		t.Fatalf("first confirm: %v", err)
	}

	e.Enqueue(ctx, signalFor("INFY"))
	_, err := e.Confirm(ctx, testToken)
	if !errors.Is(err, ErrPositionOpen) {
		t.Fatalf("expected ErrPositionOpen, got %v", err)
	}
	if len(b.placedOrders()) != 1 {
		t.Error("second entry must not reach the broker")
	}
}

func TestPlace_BrokerFailureLeavesNoPosition(t *testing.T) {
	b := newFakeBroker()
	b.setQuote("INFY", 1500)
	b.setPlaceErr(errors.New("exchange rejected"))
	e := newTestEngine(b, liveClock)
	ctx := context.Background()

	e.Enqueue(ctx, signalFor("INFY"))
	_, err := e.Confirm(ctx, testToken)
	if !IsBrokerError(err) {
		t.Fatalf("expected BrokerError, got %v", err)
	}
	if n := len(e.Status().OpenPositions); n != 0 {
		t.Errorf("open positions = %d, want 0 after failed placement", n)
	}

	// The symbol reservation must be released so a retry can succeed.
	b.setPlaceErr(nil)
	e.Enqueue(ctx, signalFor("INFY"))
	if _, err := e.Confirm(ctx, testToken); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestPlace_RiskLimits(t *testing.T) {
	b := newFakeBroker()
	b.setQuote("INFY", 100)
	b.setQuote("TCS", 100)
	e := New(Options{
		Broker:       b,
		ConfirmToken: testToken,
		Now:          liveClock,
		Risk:         &risk.Limits{MaxOpenPositions: 1},
	})
	ctx := context.Background()

	e.Enqueue(ctx, signalFor("INFY"))
	if _, err := e.Confirm(ctx, testToken); err != nil {
		t.Fatalf("first confirm: %v", err)
	}

	e.Enqueue(ctx, signalFor("TCS"))
	_, err := e.Confirm(ctx, testToken)
	var lerr *risk.LimitError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected risk.LimitError, got %v", err)
	}
	if len(b.placedOrders()) != 1 {
		t.Error("risk-rejected entry must not reach the broker")
	}
}

func TestPlace_RiskMaxQty(t *testing.T) {
	b := newFakeBroker()
	b.setQuote("INFY", 100)
	e := New(Options{
		Broker:       b,
		ConfirmToken: testToken,
		Now:          liveClock,
		Risk:         &risk.Limits{MaxQty: 5},
	})
	ctx := context.Background()

	e.Enqueue(ctx, signalFor("INFY")) // qty 10 > max 5
	_, err := e.Confirm(ctx, testToken)
	var lerr *risk.LimitError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected risk.LimitError, got %v", err)
	}
}
