package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"daytrader-systemv1/internal/engine"
	"daytrader-systemv1/internal/model"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := New(filepath.Join(t.TempDir(), "trades.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournal_RecordsOrders(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	ev := engine.Event{
		Type:    engine.EventOrderPlaced,
		TS:      time.Now(),
		Symbol:  "INFY",
		OrderID: "ORD-1",
		Request: &model.OrderRequest{
			Symbol:          "INFY",
			TransactionType: model.TxnBuy,
			Qty:             10,
			OrderType:       model.OrderTypeMarket,
			Variety:         model.VarietyNormal,
			Tag:             "entry",
		},
	}
	if err := j.Publish(ctx, ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var count int
	if err := j.DB().QueryRow("SELECT COUNT(*) FROM orders").Scan(&count); err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 1 {
		t.Errorf("orders = %d, want 1", count)
	}
}

func TestJournal_RecordsClosedTrades(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	pos := &model.Position{
		Symbol:       "TCS",
		Side:         model.SideShort,
		Qty:          5,
		EntryPrice:   200,
		ExitPrice:    197,
		EntryOrderID: "ORD-1",
		ExitOrderID:  "ORD-2",
		ExitReason:   model.ExitReasonTP,
		PnL:          15,
		CreatedAt:    time.Now().Add(-time.Hour),
		ClosedAt:     time.Now(),
	}
	ev := engine.Event{Type: engine.EventPositionClosed, TS: time.Now(), Symbol: "TCS", Position: pos}
	if err := j.Publish(ctx, ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	trades, err := j.ClosedTrades(10)
	if err != nil {
		t.Fatalf("closed trades: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(trades))
	}
	got := trades[0]
	if got.Symbol != "TCS" || got.Side != "SHORT" || got.PnL != 15 || got.ExitReason != "TP" {
		t.Errorf("unexpected trade record: %+v", got)
	}
}

func TestJournal_IgnoresOtherEvents(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	events := []engine.Event{
		{Type: engine.EventOrderQueued, Symbol: "INFY"},
		{Type: engine.EventPositionOpened, Symbol: "INFY"},
		{Type: engine.EventExitFailed, Symbol: "INFY", Err: "boom"},
		{Type: engine.EventOrderPlaced}, // nil Request is skipped, not an error
	}
	for _, ev := range events {
		if err := j.Publish(ctx, ev); err != nil {
			t.Errorf("publish %s: %v", ev.Type, err)
		}
	}

	var count int
	j.DB().QueryRow("SELECT COUNT(*) FROM orders").Scan(&count)
	if count != 0 {
		t.Errorf("orders = %d, want 0", count)
	}
}

func TestJournal_ClosedTradesNewestFirst(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	for i, sym := range []string{"A", "B", "C"} {
		pos := &model.Position{
			Symbol: sym, Side: model.SideLong, Qty: 1,
			EntryPrice: 100, ExitPrice: 101, PnL: float64(i),
			ExitReason: model.ExitReasonTP,
			CreatedAt:  time.Now(), ClosedAt: time.Now(),
		}
		j.Publish(ctx, engine.Event{Type: engine.EventPositionClosed, Symbol: sym, Position: pos})
	}

	trades, err := j.ClosedTrades(2)
	if err != nil {
		t.Fatalf("closed trades: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("trades = %d, want limit 2", len(trades))
	}
	if trades[0].Symbol != "C" || trades[1].Symbol != "B" {
		t.Errorf("order = %s,%s want C,B (newest first)", trades[0].Symbol, trades[1].Symbol)
	}
}
