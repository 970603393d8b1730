package marketdata

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"daytrader-systemv1/internal/model"
	"daytrader-systemv1/pkg/smartconnect"
)

const (
	defaultQuoteMaxAge = 5 * time.Second
	candleTimeLayout   = "2006-01-02 15:04"
)

// intervalMinutes maps broker candle intervals to their bar width.
var intervalMinutes = map[string]int{
	"ONE_MINUTE":     1,
	"THREE_MINUTE":   3,
	"FIVE_MINUTE":    5,
	"TEN_MINUTE":     10,
	"FIFTEEN_MINUTE": 15,
	"THIRTY_MINUTE":  30,
	"ONE_HOUR":       60,
}

// quoteEntry is one cached price with its arrival time.
type quoteEntry struct {
	price float64
	ts    time.Time
}

// Service serves quotes, candles, and order placement over the broker.
// Quotes come from the live tick cache when fresh; stale or missing
// entries fall back to the REST LTP endpoint. Implements the engine's
// broker contract and the scanner's candle source.
type Service struct {
	client   *smartconnect.Client
	resolver *Resolver
	maxAge   time.Duration
	loc      *time.Location
	now      func() time.Time

	mu     sync.RWMutex
	quotes map[string]quoteEntry // keyed by bare symbol
}

// NewService creates the market-data service. maxAge bounds how old a
// cached tick may be before a REST refetch; zero means the default.
func NewService(client *smartconnect.Client, resolver *Resolver, maxAge time.Duration) *Service {
	if maxAge <= 0 {
		maxAge = defaultQuoteMaxAge
	}
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", 5*3600+1800)
	}
	return &Service{
		client:   client,
		resolver: resolver,
		maxAge:   maxAge,
		loc:      loc,
		now:      time.Now,
		quotes:   make(map[string]quoteEntry),
	}
}

// Put stores a live tick price for a symbol. Called by the feed drainer.
func (s *Service) Put(symbol string, price float64, ts time.Time) {
	s.mu.Lock()
	s.quotes[symbol] = quoteEntry{price: price, ts: ts}
	s.mu.Unlock()
}

// Quote returns the last traded price for a symbol, preferring the live
// cache and falling back to REST when the cached tick is stale.
func (s *Service) Quote(ctx context.Context, symbol string) (float64, error) {
	s.mu.RLock()
	entry, ok := s.quotes[symbol]
	s.mu.RUnlock()
	if ok && s.now().Sub(entry.ts) <= s.maxAge {
		return entry.price, nil
	}

	inst, err := s.resolver.Resolve(ctx, symbol)
	if err != nil {
		return 0, err
	}
	ltp, err := s.client.GetLTP(ctx, inst.Exchange, inst.TradingSymbol, inst.Token)
	if err != nil {
		return 0, fmt.Errorf("ltp %s: %w", symbol, err)
	}
	s.Put(symbol, ltp, s.now())
	return ltp, nil
}

// Candles fetches the most recent bars for a symbol at the given interval.
// The request window reaches back far enough to cross the prior trading
// session, so pivot levels always have a previous day to work from.
func (s *Service) Candles(ctx context.Context, symbol, interval string, bars int) ([]model.Candle, error) {
	minutes, ok := intervalMinutes[interval]
	if !ok {
		return nil, fmt.Errorf("candles %s: unsupported interval %q", symbol, interval)
	}
	inst, err := s.resolver.Resolve(ctx, symbol)
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	// Weekends and holidays leave gaps; five calendar days always covers
	// the requested bar count plus the prior session.
	lookback := time.Duration(bars*minutes)*time.Minute + 5*24*time.Hour

	rows, err := s.client.GetCandleData(ctx, smartconnect.CandleParams{
		Exchange:    inst.Exchange,
		SymbolToken: inst.Token,
		Interval:    interval,
		From:        now.Add(-lookback).Format(candleTimeLayout),
		To:          now.Format(candleTimeLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("candles %s: %w", symbol, err)
	}

	out := make([]model.Candle, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Candle{
			TS:     r.TS,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	if len(out) > bars {
		out = out[len(out)-bars:]
	}
	return out, nil
}

// PlaceOrder maps an engine order request onto broker placement and
// returns the broker order id.
func (s *Service) PlaceOrder(ctx context.Context, req model.OrderRequest) (string, error) {
	inst, err := s.resolver.Resolve(ctx, req.Symbol)
	if err != nil {
		return "", err
	}
	orderID, err := s.client.PlaceOrder(ctx, smartconnect.OrderParams{
		Variety:         req.Variety,
		TradingSymbol:   inst.TradingSymbol,
		SymbolToken:     inst.Token,
		TransactionType: req.TransactionType,
		Exchange:        inst.Exchange,
		OrderType:       string(req.OrderType),
		ProductType:     req.Product,
		Duration:        req.Validity,
		Price:           req.Price,
		Quantity:        req.Qty,
		Tag:             req.Tag,
	})
	if err != nil {
		return "", err
	}
	log.Printf("[marketdata] placed %s %s %s x%d variety=%s order_id=%s",
		req.TransactionType, string(req.OrderType), req.Symbol, req.Qty, req.Variety, orderID)
	return orderID, nil
}
