// Package indicator provides technical indicator calculations over price
// series: EMA, Wilder RSI, and the prior-session classic pivot.
//
// All functions are pure: they take a slice of closes (rupees) and return
// values without keeping state, so the scanner can recompute per batch.
package indicator

// EMASeries computes the exponential moving average of values with the
// given span. The recursion is seeded with the first value:
//
//	out[0] = x[0]
//	out[i] = alpha*x[i] + (1-alpha)*out[i-1],  alpha = 2/(span+1)
//
// The returned slice has the same length as values.
func EMASeries(values []float64, span int) []float64 {
	if len(values) == 0 {
		return nil
	}
	alpha := 2.0 / float64(span+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// EMA returns the final EMA value of the series, or 0 for an empty series.
func EMA(values []float64, span int) float64 {
	s := EMASeries(values, span)
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}
