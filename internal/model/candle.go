package model

import "time"

// Candle is a single OHLC bar returned by the historical data collaborator.
// Prices are in rupees, as delivered by the broker's candle API.
type Candle struct {
	TS     time.Time `json:"ts"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Tick is a single streamed price update from the broker WebSocket feed.
type Tick struct {
	Token  string    `json:"token"`
	Symbol string    `json:"symbol,omitempty"`
	Price  float64   `json:"price"` // rupees
	TS     time.Time `json:"ts"`
}
