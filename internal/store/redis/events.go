// Package redis publishes engine lifecycle events to Redis PubSub channels
// so dashboards and other consumers can follow trades in real time.
// The publisher is optional: the engine runs fine without Redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"daytrader-systemv1/internal/engine"
)

// Channel layout: pub:trades carries every event; pub:trades:<type> carries
// one event type for selective subscribers.
const channelPrefix = "pub:trades"

// Publisher fans engine events out to Redis PubSub.
type Publisher struct {
	client *goredis.Client
}

// Config configures the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// New connects to Redis and verifies the connection with a ping.
func New(cfg Config) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Publisher{client: client}, nil
}

// Publish implements engine.Sink.
func (p *Publisher) Publish(ctx context.Context, ev engine.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, channelPrefix, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	typed := channelPrefix + ":" + strings.ToLower(string(ev.Type))
	if err := p.client.Publish(ctx, typed, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", typed, err)
	}
	return nil
}

// Client exposes the handle for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// Close releases the connection.
func (p *Publisher) Close() error { return p.client.Close() }
