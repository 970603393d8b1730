// Package marketdata bridges the broker SDK and the trading engine: it
// resolves symbols to instrument tokens, serves quotes from the live feed
// with a REST fallback, fetches historical candles for the scanner, and
// maps engine order requests onto broker order placement.
package marketdata

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"daytrader-systemv1/internal/model"
	"daytrader-systemv1/pkg/smartconnect"
)

const nseSuffix = "-EQ"

// Resolver maps trading symbols to NSE instrument tokens via scrip search.
// Lookups are cached for the life of the process; tokens do not change
// intraday.
type Resolver struct {
	client *smartconnect.Client

	mu    sync.RWMutex
	cache map[string]model.Instrument
}

// NewResolver creates a Resolver over the broker client.
func NewResolver(client *smartconnect.Client) *Resolver {
	return &Resolver{client: client, cache: make(map[string]model.Instrument)}
}

// Resolve returns the NSE equity instrument for a symbol like "RELIANCE".
func (r *Resolver) Resolve(ctx context.Context, symbol string) (model.Instrument, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	r.mu.RLock()
	inst, ok := r.cache[symbol]
	r.mu.RUnlock()
	if ok {
		return inst, nil
	}

	scrips, err := r.client.SearchScrip(ctx, "NSE", symbol)
	if err != nil {
		return model.Instrument{}, fmt.Errorf("resolve %s: %w", symbol, err)
	}
	want := symbol + nseSuffix
	for _, s := range scrips {
		if s.TradingSymbol == want {
			inst = model.Instrument{
				Token:         s.SymbolToken,
				Exchange:      s.Exchange,
				TradingSymbol: s.TradingSymbol,
			}
			r.mu.Lock()
			r.cache[symbol] = inst
			r.mu.Unlock()
			log.Printf("[resolver] %s -> token %s", symbol, inst.Token)
			return inst, nil
		}
	}
	return model.Instrument{}, fmt.Errorf("resolve %s: no NSE equity scrip found", symbol)
}

// Preload resolves a batch of symbols up front, logging failures instead of
// aborting. Returns the token list for feed subscription.
func (r *Resolver) Preload(ctx context.Context, symbols []string) []string {
	tokens := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		inst, err := r.Resolve(ctx, sym)
		if err != nil {
			log.Printf("[resolver] preload %s: %v", sym, err)
			continue
		}
		tokens = append(tokens, inst.Token)
	}
	return tokens
}

// Symbol reverse-maps a token back to the trading symbol, without the
// exchange suffix. Only finds instruments already resolved.
func (r *Resolver) Symbol(token string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for sym, inst := range r.cache {
		if inst.Token == token {
			return sym, true
		}
	}
	return "", false
}
