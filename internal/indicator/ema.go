// Package indicator provides the momentum computations over the close-price
// series derived from the candle history.
//
// All functions recompute over the full series on every call. The history is
// capped at 500 entries, so a full pass per closed candle stays cheap and
// avoids carrying incremental state that can drift from the series.
package indicator

import "math"

// EMA computes the exponential moving average of series with the given length.
// The output is positionally aligned with the input and has no undefined
// leading entries: the seed is the raw first element, not an SMA warm-up.
func EMA(series []float64, length int) []float64 {
	if len(series) == 0 {
		return nil
	}

	out := make([]float64, len(series))
	k := 2.0 / float64(length+1)

	out[0] = series[0]
	for i := 1; i < len(series); i++ {
		out[i] = series[i]*k + out[i-1]*(1-k)
	}
	return out
}

// IsDefined reports whether v is a defined indicator value.
func IsDefined(v float64) bool {
	return !math.IsNaN(v)
}
