package engine

import (
	"context"
	"log"
	"time"

	"daytrader-systemv1/internal/markethours"
	"daytrader-systemv1/internal/model"
)

// StartMonitor launches the background exit monitor exactly once. Further
// calls are no-ops, so engine startup stays idempotent no matter how many
// times the caller wires it. The monitor stops when ctx is cancelled; it
// finishes the pass in flight and exits between passes.
func (e *Engine) StartMonitor(ctx context.Context) {
	e.monitorOnce.Do(func() {
		e.monitorStarted = true
		go e.monitorLoop(ctx)
	})
}

// MonitorRunning reports whether the monitor goroutine has been started.
func (e *Engine) MonitorRunning() bool { return e.monitorStarted }

func (e *Engine) monitorLoop(ctx context.Context) {
	log.Printf("[monitor] started, interval=%s", e.interval)
	for {
		start := time.Now()
		e.runPass(ctx)
		if e.metrics != nil {
			e.metrics.MonitorPasses.Inc()
			e.metrics.MonitorPassDur.Observe(time.Since(start).Seconds())
		}

		// Sleep the full interval between complete passes; the only
		// suspension point is here, never mid-pass.
		select {
		case <-ctx.Done():
			log.Printf("[monitor] stopped: %v", ctx.Err())
			return
		case <-time.After(e.interval):
		}
	}
}

// runPass re-evaluates every open position once. A single symbol's
// failure is recorded and skipped; it never prevents evaluation of the
// remaining positions in the pass.
func (e *Engine) runPass(ctx context.Context) {
	e.mu.Lock()
	symbols := make([]string, 0, len(e.positions))
	for sym := range e.positions {
		symbols = append(symbols, sym)
	}
	e.mu.Unlock()

	for _, sym := range symbols {
		if err := e.evaluate(ctx, sym); err != nil {
			if e.metrics != nil {
				e.metrics.ExitFailures.Inc()
			}
			e.logError(sym, "exit evaluation failed: %v", err)
			log.Printf("[monitor] %s: %v (will retry next pass)", sym, err)
		}
	}
}

// evaluate checks one position against its TP/SL thresholds and submits
// an exit order if breached. A position closed since the pass snapshot was
// taken is skipped, so close happens exactly once.
func (e *Engine) evaluate(ctx context.Context, symbol string) error {
	e.mu.Lock()
	p, ok := e.positions[symbol]
	if !ok || !p.Open {
		e.mu.Unlock()
		return nil
	}
	pos := *p // work on a snapshot outside the lock
	e.mu.Unlock()

	price, err := e.broker.Quote(ctx, symbol)
	if err != nil {
		return &BrokerError{Op: "quote", Err: err}
	}

	tp, sl := pos.Targets()

	// TP is checked first: on the (degenerate) tie both thresholds
	// allow, the profitable exit wins.
	var reason model.ExitReason
	var target float64
	switch pos.Side {
	case model.SideLong:
		if price >= tp {
			reason, target = model.ExitReasonTP, tp
		} else if price <= sl {
			reason, target = model.ExitReasonSL, sl
		}
	case model.SideShort:
		if price <= tp {
			reason, target = model.ExitReasonTP, tp
		} else if price >= sl {
			reason, target = model.ExitReasonSL, sl
		}
	}
	if reason == "" {
		return nil
	}

	orderType, limitPrice := e.resolveExitType(pos.ExitPref, target)

	txn := model.TxnSell
	if pos.Side == model.SideShort {
		txn = model.TxnBuy
	}
	variety := model.VarietyAMO
	if markethours.IsLive(e.now()) {
		variety = model.VarietyNormal
	}

	req := model.OrderRequest{
		Symbol:          symbol,
		TransactionType: txn,
		Qty:             pos.Qty,
		OrderType:       orderType,
		Variety:         variety,
		Product:         model.ProductIntraday,
		Validity:        model.ValidityDay,
		Price:           limitPrice,
		Tag:             "exit-" + string(reason),
	}

	exitOrderID, err := e.broker.PlaceOrder(ctx, req)
	if err != nil {
		// Leave the position open; the next pass re-evaluates it.
		e.emit(ctx, Event{Type: EventExitFailed, Symbol: symbol, Request: &req, Err: err.Error()})
		return &BrokerError{Op: "exit order", Err: err}
	}

	e.closePosition(ctx, symbol, reason, exitOrderID, price, req)
	return nil
}

// resolveExitType maps an exit preference to a concrete order type.
// AUTO: MARKET during live hours, else LIMIT at the breached target.
func (e *Engine) resolveExitType(pref model.ExitPreference, target float64) (model.OrderType, float64) {
	switch pref {
	case model.ExitMarket:
		return model.OrderTypeMarket, 0
	case model.ExitLimit:
		return model.OrderTypeLimit, round2(target)
	default:
		if markethours.IsLive(e.now()) {
			return model.OrderTypeMarket, 0
		}
		return model.OrderTypeLimit, round2(target)
	}
}

// closePosition transitions a position open → closed exactly once, appends
// the immutable ClosedTrade snapshot, and removes the position from the
// active set.
func (e *Engine) closePosition(ctx context.Context, symbol string, reason model.ExitReason, exitOrderID string, exitPrice float64, req model.OrderRequest) {
	e.mu.Lock()
	p, ok := e.positions[symbol]
	if !ok || !p.Open {
		// Already closed by a prior evaluation; nothing to do.
		e.mu.Unlock()
		return
	}
	p.Open = false
	p.ClosedAt = e.now()
	p.ExitReason = reason
	p.ExitOrderID = exitOrderID
	p.ExitPrice = exitPrice
	p.PnL = round2(p.RealizedPnL(exitPrice))
	snapshot := *p
	delete(e.positions, symbol)
	e.closed = append(e.closed, model.ClosedTrade(snapshot))
	open := len(e.positions)
	var realized float64
	for _, c := range e.closed {
		realized += c.PnL
	}
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.ExitOrders.WithLabelValues(string(reason)).Inc()
		e.metrics.OpenPositions.Set(float64(open))
		e.metrics.RealizedPnL.Set(realized)
	}
	log.Printf("[monitor] position closed: %s %s reason=%s exit=%.2f pnl=%.2f order=%s",
		symbol, snapshot.Side, reason, exitPrice, snapshot.PnL, exitOrderID)
	e.logTrade(symbol, "position closed %s reason=%s exit=%.2f pnl=%.2f", snapshot.Side, reason, exitPrice, snapshot.PnL)
	e.emit(ctx, Event{Type: EventOrderPlaced, Symbol: symbol, Request: &req, OrderID: exitOrderID})
	e.emit(ctx, Event{Type: EventPositionClosed, Symbol: symbol, Position: &snapshot, OrderID: exitOrderID})
}
