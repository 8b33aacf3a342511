package indicator

// Default parameters for the signal pipeline.
const (
	DefaultShortLength = 9
	DefaultLongLength  = 21
	DefaultRSIPeriod   = 14
)

// Snapshot holds the three indicator series computed over one close-price
// series. All slices are positionally aligned 1:1 with the input.
type Snapshot struct {
	EMAShort []float64 `json:"emaShort"`
	EMALong  []float64 `json:"emaLong"`
	RSI      []float64 `json:"rsi"`
}

// Compute runs a full recomputation of all three indicators over closes.
func Compute(closes []float64, shortLen, longLen, rsiPeriod int) Snapshot {
	return Snapshot{
		EMAShort: EMA(closes, shortLen),
		EMALong:  EMA(closes, longLen),
		RSI:      RSI(closes, rsiPeriod),
	}
}
