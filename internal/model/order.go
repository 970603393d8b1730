package model

import "time"

// PendingOrder is a queued entry candidate awaiting confirmation.
// It has no stable external ID: a pending order is identified only by its
// queue position, and confirmation always consumes the head. That removes
// the whole class of stale-index bugs an index-addressed queue would have
// under concurrent confirmers.
type PendingOrder struct {
	Signal
	QueuedAt time.Time `json:"queued_at"`
}

// Broker order constants (Angel One SmartAPI vocabulary).
const (
	TxnBuy  = "BUY"
	TxnSell = "SELL"

	VarietyNormal = "NORMAL" // regular order during live hours
	VarietyAMO    = "AMO"    // after-market order off-hours

	ProductIntraday = "INTRADAY" // MIS: margin intraday square-off
	ValidityDay     = "DAY"
)

// OrderRequest is a fully-resolved order handed to the broker collaborator.
type OrderRequest struct {
	Symbol          string    `json:"symbol"`
	TransactionType string    `json:"transaction_type"` // BUY, SELL
	Qty             int64     `json:"qty"`
	OrderType       OrderType `json:"order_type"`
	Variety         string    `json:"variety"`  // NORMAL, AMO
	Product         string    `json:"product"`  // INTRADAY
	Validity        string    `json:"validity"` // DAY
	Price           float64   `json:"price"`    // limit price in rupees, 0 for market
	Tag             string    `json:"tag"`
}

// Instrument maps a tradingsymbol to its exchange token.
type Instrument struct {
	Token         string `json:"token"`
	Exchange      string `json:"exchange"`
	TradingSymbol string `json:"trading_symbol"`
}
