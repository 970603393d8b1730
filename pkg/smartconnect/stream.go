package smartconnect

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamURL         = "wss://smartapisocket.angelone.in/smart-stream"
	heartbeatInterval = 10 * time.Second
	reconnectBase     = 2 * time.Second
	reconnectMax      = 30 * time.Second

	// Subscription modes.
	modeLTP = 1

	exchangeNSECM = 1
)

// StreamTick is one decoded LTP packet from the market feed.
type StreamTick struct {
	Token      string
	Price      float64 // rupees
	ExchangeTS time.Time
}

// Stream maintains the SmartAPI WebSocket market feed. It reconnects with
// backoff on failure and resubscribes the token list after each connect.
type Stream struct {
	client *Client
	onTick func(StreamTick)

	mu      sync.Mutex
	tokens  []string
	conn    *websocket.Conn
	healthy bool
}

// NewStream creates a market-data stream backed by the client's session.
// onTick is called from the read goroutine; it must not block.
func NewStream(client *Client, onTick func(StreamTick)) *Stream {
	return &Stream{client: client, onTick: onTick}
}

// Subscribe sets the NSE token list to stream. Takes effect on the next
// connect; if already connected the subscription is sent immediately.
func (s *Stream) Subscribe(tokens []string) error {
	s.mu.Lock()
	s.tokens = append([]string(nil), tokens...)
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		return s.sendSubscribe(conn, tokens)
	}
	return nil
}

// Healthy reports whether the stream currently holds a live connection.
func (s *Stream) Healthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.healthy
}

// Run connects and pumps ticks until ctx is cancelled. Reconnects with
// exponential backoff on any failure.
func (s *Stream) Run(ctx context.Context) {
	backoff := reconnectBase
	for {
		if err := s.connectAndRead(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[stream] disconnected: %v, reconnecting in %s", err, backoff)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

func (s *Stream) connectAndRead(ctx context.Context) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.client.AccessToken())
	header.Set("x-api-key", s.client.APIKey())
	header.Set("x-client-code", s.client.ClientCode())
	header.Set("x-feed-token", s.client.FeedToken())

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, streamURL, header)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	s.mu.Lock()
	s.conn = conn
	s.healthy = true
	tokens := append([]string(nil), s.tokens...)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.healthy = false
		s.mu.Unlock()
	}()

	log.Printf("[stream] connected, subscribing %d tokens", len(tokens))
	if len(tokens) > 0 {
		if err := s.sendSubscribe(conn, tokens); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}

	// Heartbeat keeps the feed alive; the server drops idle connections.
	hbCtx, hbCancel := context.WithCancel(ctx)
	defer hbCancel()
	go s.heartbeat(hbCtx, conn)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn.SetReadDeadline(time.Now().Add(heartbeatInterval * 3))
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if msgType != websocket.BinaryMessage {
			continue // "pong" and JSON acks
		}
		tick, ok := parseBinaryTick(data)
		if !ok {
			continue
		}
		if s.onTick != nil {
			s.onTick(tick)
		}
	}
}

func (s *Stream) heartbeat(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
				return
			}
		}
	}
}

func (s *Stream) sendSubscribe(conn *websocket.Conn, tokens []string) error {
	req := map[string]any{
		"correlationID": "daytrader",
		"action":        1,
		"params": map[string]any{
			"mode": modeLTP,
			"tokenList": []map[string]any{
				{"exchangeType": exchangeNSECM, "tokens": tokens},
			},
		},
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// parseBinaryTick decodes a mode-1 LTP packet. Layout (little endian):
//
//	[0]     subscription mode
//	[1]     exchange type
//	[2:27]  token, null padded ascii
//	[35:43] exchange timestamp, epoch millis
//	[43:51] LTP in paise
func parseBinaryTick(data []byte) (StreamTick, bool) {
	if len(data) < 51 || data[0] != modeLTP {
		return StreamTick{}, false
	}
	token := strings.TrimRight(string(data[2:27]), "\x00")
	tsMillis := int64(binary.LittleEndian.Uint64(data[35:43]))
	ltpPaise := int64(binary.LittleEndian.Uint64(data[43:51]))
	return StreamTick{
		Token:      token,
		Price:      float64(ltpPaise) / 100,
		ExchangeTS: time.UnixMilli(tsMillis),
	}, true
}
