package model

import (
	"encoding/json"
	"time"
)

// Candle represents one OHLCV candlestick for the configured symbol/interval.
// Final marks a closed candle; non-final candles are in-progress updates from
// the upstream stream and are never appended to history.
type Candle struct {
	OpenTime int64   `json:"openTime"` // bucket open time, Unix milliseconds
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
	Final    bool    `json:"isFinal"`
}

// Time returns the candle open time as a UTC time.Time.
func (c *Candle) Time() time.Time {
	return time.Unix(0, c.OpenTime*int64(time.Millisecond)).UTC()
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// PriceUpdate is the payload broadcast to subscribers for every inbound
// frame, closed or not.
type PriceUpdate struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"` // latest close of the forming candle
	Time   int64   `json:"time"`  // candle open time, Unix milliseconds
}
