// Package sqlite persists the engine's audit trail of order submissions and
// closed trades to a local SQLite database. The journal is best-effort:
// engine state lives in memory and survives without it.
package sqlite

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"daytrader-systemv1/internal/engine"
)

// Journal records orders and closed trades for later analysis.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// New opens (or creates) the journal database.
func New(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS orders (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id   TEXT NOT NULL,
		symbol     TEXT NOT NULL,
		txn        TEXT NOT NULL,
		qty        INTEGER NOT NULL,
		order_type TEXT NOT NULL,
		variety    TEXT NOT NULL,
		price      REAL,
		tag        TEXT,
		placed_at  DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol);

	CREATE TABLE IF NOT EXISTS closed_trades (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol         TEXT NOT NULL,
		side           TEXT NOT NULL,
		qty            INTEGER NOT NULL,
		entry_price    REAL NOT NULL,
		exit_price     REAL NOT NULL,
		entry_order_id TEXT NOT NULL,
		exit_order_id  TEXT NOT NULL,
		exit_reason    TEXT NOT NULL,
		pnl            REAL NOT NULL,
		opened_at      DATETIME NOT NULL,
		closed_at      DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_closed_trades_symbol ON closed_trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_closed_trades_closed_at ON closed_trades(closed_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[journal] opened trade journal at %s", dbPath)
	return &Journal{db: db}, nil
}

// Publish implements engine.Sink: order submissions and position closes
// are written through; other event types are ignored.
func (j *Journal) Publish(ctx context.Context, ev engine.Event) error {
	switch ev.Type {
	case engine.EventOrderPlaced:
		if ev.Request == nil {
			return nil
		}
		return j.recordOrder(ev)
	case engine.EventPositionClosed:
		if ev.Position == nil {
			return nil
		}
		return j.recordClosedTrade(ev)
	default:
		return nil
	}
}

func (j *Journal) recordOrder(ev engine.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	req := ev.Request
	_, err := j.db.Exec(
		`INSERT INTO orders (order_id, symbol, txn, qty, order_type, variety, price, tag, placed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.OrderID, req.Symbol, req.TransactionType, req.Qty,
		string(req.OrderType), req.Variety, req.Price, req.Tag,
		ev.TS.Format(time.RFC3339),
	)
	return err
}

func (j *Journal) recordClosedTrade(ev engine.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	p := ev.Position
	_, err := j.db.Exec(
		`INSERT INTO closed_trades (symbol, side, qty, entry_price, exit_price,
		   entry_order_id, exit_order_id, exit_reason, pnl, opened_at, closed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Symbol, string(p.Side), p.Qty, p.EntryPrice, p.ExitPrice,
		p.EntryOrderID, p.ExitOrderID, string(p.ExitReason), p.PnL,
		p.CreatedAt.Format(time.RFC3339), p.ClosedAt.Format(time.RFC3339),
	)
	return err
}

// TradeRecord is a row from the closed_trades table.
type TradeRecord struct {
	ID         int64   `json:"id"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Qty        int64   `json:"qty"`
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
	ExitReason string  `json:"exit_reason"`
	PnL        float64 `json:"pnl"`
	ClosedAt   string  `json:"closed_at"`
}

// ClosedTrades returns the last N closed trades, newest first.
func (j *Journal) ClosedTrades(limit int) ([]TradeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	rows, err := j.db.Query(
		`SELECT id, symbol, side, qty, entry_price, exit_price, exit_reason, pnl, closed_at
		 FROM closed_trades ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Side, &t.Qty,
			&t.EntryPrice, &t.ExitPrice, &t.ExitReason, &t.PnL, &t.ClosedAt); err != nil {
			continue
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// DB exposes the handle for health checks.
func (j *Journal) DB() *sql.DB { return j.db }

// Close closes the journal database.
func (j *Journal) Close() error { return j.db.Close() }
