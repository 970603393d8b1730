// Package risk holds pre-trade risk limits. The engine consults them
// before every entry order; a breached limit rejects the trade instead of
// sending it to the broker.
package risk

import "fmt"

// Limits defines configurable risk thresholds. Zero values disable the
// corresponding check.
type Limits struct {
	MaxQty           int64   `json:"max_qty"`            // max shares per entry
	MaxOpenPositions int     `json:"max_open_positions"` // max concurrent positions
	MaxExposure      float64 `json:"max_exposure"`       // max total entry value in rupees
	MaxDailyLoss     float64 `json:"max_daily_loss"`     // stop trading after losing this much, rupees
}

// DefaultLimits returns conservative defaults for an intraday account.
func DefaultLimits() Limits {
	return Limits{
		MaxQty:           500,
		MaxOpenPositions: 5,
		MaxExposure:      100000,
		MaxDailyLoss:     5000,
	}
}

// Check is the point-in-time state a proposed entry is judged against.
type Check struct {
	Qty           int64
	Price         float64 // expected entry price, rupees
	OpenPositions int
	Exposure      float64 // entry value of currently open positions
	RealizedPnL   float64 // today's realized PnL, negative when losing
}

// LimitError reports which limit a proposed trade would breach.
type LimitError struct {
	Reason string
}

func (e *LimitError) Error() string { return "risk limit: " + e.Reason }

// Allow returns nil when the proposed entry passes every configured limit.
func (l Limits) Allow(c Check) error {
	if l.MaxQty > 0 && c.Qty > l.MaxQty {
		return &LimitError{Reason: fmt.Sprintf("qty %d exceeds max %d", c.Qty, l.MaxQty)}
	}
	if l.MaxOpenPositions > 0 && c.OpenPositions >= l.MaxOpenPositions {
		return &LimitError{Reason: fmt.Sprintf("max open positions (%d) reached", l.MaxOpenPositions)}
	}
	if l.MaxExposure > 0 {
		proposed := c.Exposure + float64(c.Qty)*c.Price
		if proposed > l.MaxExposure {
			return &LimitError{Reason: fmt.Sprintf("exposure %.2f would exceed max %.2f", proposed, l.MaxExposure)}
		}
	}
	if l.MaxDailyLoss > 0 && c.RealizedPnL <= -l.MaxDailyLoss {
		return &LimitError{Reason: fmt.Sprintf("daily loss limit %.2f reached", l.MaxDailyLoss)}
	}
	return nil
}
