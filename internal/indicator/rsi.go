package indicator

import "math"

// zeroLossEpsilon replaces an exactly-zero average loss so the RSI quotient
// never divides by zero. A loss-free series then reads as RSI ~= 100.
const zeroLossEpsilon = 1e-10

// RSI computes the Relative Strength Index using Wilder smoothing.
//
// The average gain/loss seed is the simple mean of the first `period` deltas;
// later indices apply avg = (avg*(period-1) + x) / period. Indices <= period
// are undefined and returned as NaN. Output is positionally aligned with the
// input series.
func RSI(series []float64, period int) []float64 {
	out := make([]float64, len(series))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(series) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := series[i] - series[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	p := float64(period)
	for i := period + 1; i < len(series); i++ {
		delta := series[i] - series[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}

		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p

		denom := avgLoss
		if denom == 0 {
			denom = zeroLossEpsilon
		}
		out[i] = 100.0 - 100.0/(1.0+avgGain/denom)
	}
	return out
}
