package model

import "encoding/json"

// Kind represents a trading decision.
type Kind string

const (
	KindBuy  Kind = "BUY"
	KindSell Kind = "SELL"
	KindHold Kind = "HOLD"
)

// Signal is the decision produced for a closed candle. Entry, StopLoss and
// TakeProfit are populated only for BUY/SELL. A single last signal is retained
// process-wide and overwritten on every decision; signals are never historized.
type Signal struct {
	Kind       Kind    `json:"kind"`
	Entry      float64 `json:"entry,omitempty"`
	StopLoss   float64 `json:"stopLoss,omitempty"`
	TakeProfit float64 `json:"takeProfit,omitempty"`
	Confidence float64 `json:"confidence"` // [0, 0.95], rounded to 2 decimals
	Reason     string  `json:"reason"`
	Price      float64 `json:"price"`
	RSI        float64 `json:"rsi"`
	Symbol     string  `json:"symbol"`
	Timestamp  int64   `json:"timestamp"` // decision time, Unix milliseconds
}

// JSON returns the JSON-encoded signal.
func (s *Signal) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
