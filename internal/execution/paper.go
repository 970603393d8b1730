// Package execution provides order-execution backends. The live path is
// the broker SDK via the market-data service; PaperBroker simulates fills
// locally so the whole queue/confirm/monitor flow can run against real
// quotes without sending real orders.
package execution

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"daytrader-systemv1/internal/model"
)

// QuoteSource serves last traded prices, normally the live quote cache.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (float64, error)
}

// Fill is one simulated execution.
type Fill struct {
	OrderID         string    `json:"order_id"`
	Symbol          string    `json:"symbol"`
	TransactionType string    `json:"transaction_type"`
	Qty             int64     `json:"qty"`
	Price           float64   `json:"price"`
	Slippage        float64   `json:"slippage"`
	FilledAt        time.Time `json:"filled_at"`
}

// PaperBroker satisfies the engine's broker contract with simulated fills.
// Quotes pass through to the real source; orders fill immediately at the
// quote (or limit price) with configurable slippage against the trade.
type PaperBroker struct {
	quotes      QuoteSource
	slippageBps float64

	mu    sync.Mutex
	seq   int64
	fills []Fill
}

// NewPaperBroker wraps a quote source in a simulated execution venue.
// slippageBps is in basis points; 5 means 0.05% against the trade.
func NewPaperBroker(quotes QuoteSource, slippageBps float64) *PaperBroker {
	return &PaperBroker{quotes: quotes, slippageBps: slippageBps}
}

// Quote passes through to the underlying source.
func (p *PaperBroker) Quote(ctx context.Context, symbol string) (float64, error) {
	return p.quotes.Quote(ctx, symbol)
}

// PlaceOrder simulates an immediate fill and returns a synthetic order id.
func (p *PaperBroker) PlaceOrder(ctx context.Context, req model.OrderRequest) (string, error) {
	price := req.Price
	if req.OrderType == model.OrderTypeMarket || price <= 0 {
		ltp, err := p.quotes.Quote(ctx, req.Symbol)
		if err != nil {
			return "", fmt.Errorf("paper fill %s: %w", req.Symbol, err)
		}
		price = ltp
	}

	slip := 0.0
	if p.slippageBps > 0 {
		slip = price * p.slippageBps / 10000
		if req.TransactionType == model.TxnBuy {
			price += slip
		} else {
			price -= slip
		}
	}

	p.mu.Lock()
	p.seq++
	orderID := fmt.Sprintf("PAPER-%d", p.seq)
	p.fills = append(p.fills, Fill{
		OrderID:         orderID,
		Symbol:          req.Symbol,
		TransactionType: req.TransactionType,
		Qty:             req.Qty,
		Price:           price,
		Slippage:        slip,
		FilledAt:        time.Now(),
	})
	p.mu.Unlock()

	log.Printf("[paper] %s %s x%d filled at %.2f (slip %.4f) order=%s tag=%s",
		req.TransactionType, req.Symbol, req.Qty, price, slip, orderID, req.Tag)
	return orderID, nil
}

// Fills returns a snapshot of every simulated fill.
func (p *PaperBroker) Fills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]Fill, len(p.fills))
	copy(cp, p.fills)
	return cp
}
