package indicator

// RSISeries computes the Relative Strength Index with Wilder smoothing.
//
// The first `period` deltas seed the average gain/loss; from there:
//
//	avgGain = (avgGain*(period-1) + gain) / period   (loss symmetric)
//	RSI     = 100 - 100/(1+RS),  RS = avgGain/avgLoss
//
// When avgLoss is 0 the 100/(1+RS) term is taken at its limit, giving
// RSI = 100 (an all-gains window is maximally overbought).
//
// The returned slice is aligned with values; entries before index `period`
// are 0 and carry no meaning. Callers should check Len >= period+2 when
// they need both the latest RSI and the one before it.
func RSISeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if period <= 0 || len(values) < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss += -delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiFrom(avgGain, avgLoss)

	p := float64(period)
	for i := period + 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out[i] = rsiFrom(avgGain, avgLoss)
	}
	return out
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// RSI returns the final RSI value of the series, or 0 if the series is
// shorter than period+1.
func RSI(values []float64, period int) float64 {
	s := RSISeries(values, period)
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}
