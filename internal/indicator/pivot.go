package indicator

import (
	"time"

	"daytrader-systemv1/internal/markethours"
	"daytrader-systemv1/internal/model"
)

// Pivot computes the classic pivot P = (H+L+C)/3 of the previous completed
// trading session, derived from intraday bars grouped by IST calendar date.
//
// Bars belonging to asOf's own date are ignored; only a session strictly
// before it counts as completed. Returns ok=false when the bars do not
// cover an earlier session.
func Pivot(bars []model.Candle, asOf time.Time) (pivot float64, ok bool) {
	today := asOf.In(markethours.IST).Format("2006-01-02")

	type session struct {
		high, low, close float64
	}
	sessions := make(map[string]*session)
	var latest string

	for _, b := range bars {
		day := b.TS.In(markethours.IST).Format("2006-01-02")
		if day >= today {
			continue
		}
		s := sessions[day]
		if s == nil {
			s = &session{high: b.High, low: b.Low}
			sessions[day] = s
			if day > latest {
				latest = day
			}
		}
		if b.High > s.high {
			s.high = b.High
		}
		if b.Low < s.low {
			s.low = b.Low
		}
		s.close = b.Close // bars arrive in time order; last one wins
	}

	if latest == "" {
		return 0, false
	}
	s := sessions[latest]
	return (s.high + s.low + s.close) / 3.0, true
}
