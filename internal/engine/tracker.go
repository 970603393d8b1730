package engine

import (
	"context"
	"log"
	"math"

	"daytrader-systemv1/internal/markethours"
	"daytrader-systemv1/internal/model"
	"daytrader-systemv1/internal/risk"
)

// place turns a confirmed pending order into a submitted entry order and a
// tracked Position. On any failure state is left unchanged; no partial
// position is ever created.
func (e *Engine) place(ctx context.Context, po model.PendingOrder) (string, model.Position, error) {
	symbol := po.Symbol

	// Reserve the symbol before touching the broker so two concurrent
	// confirms for the same symbol cannot both open a position.
	e.mu.Lock()
	if _, open := e.positions[symbol]; open || e.placing[symbol] {
		e.mu.Unlock()
		return "", model.Position{}, ErrPositionOpen
	}
	e.placing[symbol] = true
	e.mu.Unlock()

	release := func() {
		e.mu.Lock()
		delete(e.placing, symbol)
		e.mu.Unlock()
	}

	ltp, err := e.broker.Quote(ctx, symbol)
	if err != nil {
		release()
		return "", model.Position{}, &BrokerError{Op: "quote", Err: err}
	}

	if err := e.checkRisk(po, ltp); err != nil {
		release()
		e.logError(symbol, "entry rejected: %v", err)
		return "", model.Position{}, err
	}

	// MARKET enters at the quote; LIMIT biases 0.1% in the trade's favor
	// (below quote for LONG, above for SHORT) to help the fill while
	// protecting the intended side.
	entryPrice := ltp
	limitPrice := 0.0
	if po.EntryType == model.OrderTypeLimit {
		if po.Side == model.SideLong {
			entryPrice = round2(ltp * (1 - limitOffsetFrac))
		} else {
			entryPrice = round2(ltp * (1 + limitOffsetFrac))
		}
		limitPrice = entryPrice
	}

	variety := model.VarietyAMO
	if markethours.IsLive(e.now()) {
		variety = model.VarietyNormal
	}

	txn := model.TxnBuy
	if po.Side == model.SideShort {
		txn = model.TxnSell
	}

	req := model.OrderRequest{
		Symbol:          symbol,
		TransactionType: txn,
		Qty:             po.Qty,
		OrderType:       po.EntryType,
		Variety:         variety,
		Product:         model.ProductIntraday,
		Validity:        model.ValidityDay,
		Price:           limitPrice,
		Tag:             "entry",
	}

	orderID, err := e.broker.PlaceOrder(ctx, req)
	if err != nil {
		release()
		return "", model.Position{}, &BrokerError{Op: "entry order", Err: err}
	}

	pos := model.Position{
		Symbol:       symbol,
		Side:         po.Side,
		Qty:          po.Qty,
		EntryPrice:   entryPrice,
		EntryOrderID: orderID,
		TPPct:        po.TPPct,
		SLPct:        po.SLPct,
		ExitPref:     po.ExitPref,
		Open:         true,
		CreatedAt:    e.now(),
	}

	e.mu.Lock()
	e.positions[symbol] = &pos
	delete(e.placing, symbol)
	open := len(e.positions)
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.EntryOrders.WithLabelValues(variety).Inc()
		e.metrics.OpenPositions.Set(float64(open))
	}
	log.Printf("[engine] position opened: %s %s qty=%d entry=%.2f variety=%s order=%s",
		symbol, pos.Side, pos.Qty, pos.EntryPrice, variety, orderID)
	e.logTrade(symbol, "position opened %s qty=%d entry=%.2f order=%s", pos.Side, pos.Qty, pos.EntryPrice, orderID)
	e.emit(ctx, Event{Type: EventOrderPlaced, Symbol: symbol, Request: &req, OrderID: orderID})
	e.emit(ctx, Event{Type: EventPositionOpened, Symbol: symbol, Position: &pos, OrderID: orderID})

	return orderID, pos, nil
}

// checkRisk judges a proposed entry against the configured limits using a
// snapshot of open exposure and today's realized PnL.
func (e *Engine) checkRisk(po model.PendingOrder, price float64) error {
	if e.risk == nil {
		return nil
	}

	e.mu.Lock()
	open := len(e.positions)
	var exposure float64
	for _, p := range e.positions {
		exposure += p.EntryPrice * float64(p.Qty)
	}
	var realized float64
	for _, c := range e.closed {
		realized += c.PnL
	}
	e.mu.Unlock()

	return e.risk.Allow(risk.Check{
		Qty:           po.Qty,
		Price:         price,
		OpenPositions: open,
		Exposure:      exposure,
		RealizedPnL:   realized,
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
