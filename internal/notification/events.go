package notification

import (
	"context"
	"fmt"

	"daytrader-systemv1/internal/engine"
)

// Sink adapts a Notifier into an engine event sink. Fills and failures
// become alerts; queue traffic stays quiet.
func Sink(n Notifier) engine.SinkFunc {
	return func(ctx context.Context, ev engine.Event) error {
		alert, ok := fromEvent(ev)
		if !ok {
			return nil
		}
		return n.Send(ctx, alert)
	}
}

func fromEvent(ev engine.Event) (Alert, bool) {
	switch ev.Type {
	case engine.EventPositionOpened:
		p := ev.Position
		if p == nil {
			return Alert{}, false
		}
		return Alert{
			Level:   AlertInfo,
			Title:   fmt.Sprintf("Entered %s %s", p.Side, p.Symbol),
			Message: fmt.Sprintf("%d @ %.2f, order %s", p.Qty, p.EntryPrice, p.EntryOrderID),
		}, true
	case engine.EventPositionClosed:
		p := ev.Position
		if p == nil {
			return Alert{}, false
		}
		level := AlertInfo
		if p.PnL < 0 {
			level = AlertWarning
		}
		return Alert{
			Level:   level,
			Title:   fmt.Sprintf("Closed %s %s (%s)", p.Side, p.Symbol, p.ExitReason),
			Message: fmt.Sprintf("%d @ %.2f -> %.2f, pnl %.2f", p.Qty, p.EntryPrice, p.ExitPrice, p.PnL),
		}, true
	case engine.EventExitFailed:
		return Alert{
			Level:   AlertCritical,
			Title:   fmt.Sprintf("Exit failed for %s", ev.Symbol),
			Message: ev.Err,
		}, true
	default:
		return Alert{}, false
	}
}
