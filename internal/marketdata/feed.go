package marketdata

import (
	"context"
	"log"
	"time"

	"daytrader-systemv1/internal/model"
	"daytrader-systemv1/internal/ringbuf"
	"daytrader-systemv1/pkg/smartconnect"
)

const (
	feedRingCapacity = 8192
	drainIdleSleep   = 10 * time.Millisecond
)

// Feed plumbs the WebSocket LTP stream into the quote cache. The stream's
// read goroutine pushes raw ticks into a ring buffer and the drain
// goroutine resolves tokens and updates the cache, keeping the socket
// reader free of lock contention.
type Feed struct {
	stream   *smartconnect.Stream
	resolver *Resolver
	cache    *Service
	ring     *ringbuf.Ring
}

// NewFeed wires the broker stream into the quote cache.
func NewFeed(client *smartconnect.Client, resolver *Resolver, cache *Service) *Feed {
	f := &Feed{
		resolver: resolver,
		cache:    cache,
		ring:     ringbuf.New(feedRingCapacity),
	}
	f.stream = smartconnect.NewStream(client, f.onTick)
	return f
}

func (f *Feed) onTick(st smartconnect.StreamTick) {
	f.ring.Push(model.Tick{Token: st.Token, Price: st.Price, TS: st.ExchangeTS})
}

// Subscribe sets the symbols to stream. Symbols must already be resolved
// (or resolvable) to tokens.
func (f *Feed) Subscribe(ctx context.Context, symbols []string) error {
	tokens := f.resolver.Preload(ctx, symbols)
	return f.stream.Subscribe(tokens)
}

// Healthy reports whether the underlying stream connection is up.
func (f *Feed) Healthy() bool { return f.stream.Healthy() }

// Run starts the stream and the drain loop, blocking until ctx ends.
func (f *Feed) Run(ctx context.Context) {
	go f.drain(ctx)
	f.stream.Run(ctx)
}

func (f *Feed) drain(ctx context.Context) {
	var dropped uint64
	for {
		if ctx.Err() != nil {
			return
		}
		tick, ok := f.ring.Pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(drainIdleSleep):
			}
			continue
		}
		symbol, ok := f.resolver.Symbol(tick.Token)
		if !ok {
			continue // tick for a token we never resolved
		}
		f.cache.Put(symbol, tick.Price, tick.TS)

		if ov := f.ring.Overflow(); ov > dropped {
			log.Printf("[feed] ring overflow: %d ticks dropped", ov-dropped)
			dropped = ov
		}
	}
}
