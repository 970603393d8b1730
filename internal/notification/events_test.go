package notification

import (
	"context"
	"strings"
	"testing"

	"daytrader-systemv1/internal/engine"
	"daytrader-systemv1/internal/model"
)

type captureNotifier struct {
	alerts []Alert
}

func (c *captureNotifier) Send(ctx context.Context, a Alert) error {
	c.alerts = append(c.alerts, a)
	return nil
}

func TestSink_PositionLifecycle(t *testing.T) {
	cap := &captureNotifier{}
	sink := Sink(cap)
	ctx := context.Background()

	pos := &model.Position{Symbol: "INFY", Side: model.SideLong, Qty: 10, EntryPrice: 1500, EntryOrderID: "ORD-1"}
	sink.Publish(ctx, engine.Event{Type: engine.EventPositionOpened, Symbol: "INFY", Position: pos})

	closed := *pos
	closed.ExitPrice = 1512
	closed.ExitReason = model.ExitReasonTP
	closed.PnL = 120
	sink.Publish(ctx, engine.Event{Type: engine.EventPositionClosed, Symbol: "INFY", Position: &closed})

	if len(cap.alerts) != 2 {
		t.Fatalf("alerts = %d, want 2", len(cap.alerts))
	}
	if !strings.Contains(cap.alerts[0].Title, "Entered LONG INFY") {
		t.Errorf("open alert title = %q", cap.alerts[0].Title)
	}
	if cap.alerts[1].Level != AlertInfo {
		t.Errorf("profitable close level = %s, want INFO", cap.alerts[1].Level)
	}
}

func TestSink_LossAndFailureLevels(t *testing.T) {
	cap := &captureNotifier{}
	sink := Sink(cap)
	ctx := context.Background()

	loser := &model.Position{Symbol: "TCS", Side: model.SideLong, Qty: 5, EntryPrice: 3200, ExitPrice: 3180, ExitReason: model.ExitReasonSL, PnL: -100}
	sink.Publish(ctx, engine.Event{Type: engine.EventPositionClosed, Symbol: "TCS", Position: loser})
	sink.Publish(ctx, engine.Event{Type: engine.EventExitFailed, Symbol: "TCS", Err: "exchange down"})

	if len(cap.alerts) != 2 {
		t.Fatalf("alerts = %d, want 2", len(cap.alerts))
	}
	if cap.alerts[0].Level != AlertWarning {
		t.Errorf("losing close level = %s, want WARNING", cap.alerts[0].Level)
	}
	if cap.alerts[1].Level != AlertCritical {
		t.Errorf("exit failure level = %s, want CRITICAL", cap.alerts[1].Level)
	}
}

func TestSink_IgnoresQueueTraffic(t *testing.T) {
	cap := &captureNotifier{}
	sink := Sink(cap)

	sink.Publish(context.Background(), engine.Event{Type: engine.EventOrderQueued, Symbol: "INFY"})
	sink.Publish(context.Background(), engine.Event{Type: engine.EventOrderPlaced, Symbol: "INFY"})

	if len(cap.alerts) != 0 {
		t.Errorf("queue events should not alert: %v", cap.alerts)
	}
}
