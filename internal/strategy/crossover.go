// Package strategy derives the trading decision from the latest indicator
// values.
//
// Buy signal: EMA(short) crosses above EMA(long) with RSI below the buy
// threshold. Sell signal: EMA(short) crosses below EMA(long) with RSI above
// the sell threshold. Everything else holds.
package strategy

import (
	"fmt"
	"math"
	"time"

	"signalstreamv1/internal/indicator"
	"signalstreamv1/internal/model"
)

// Default RSI thresholds.
const (
	DefaultRSIBuy  = 45.0
	DefaultRSISell = 65.0
)

// Crossover evaluates the crossover + threshold rules. It carries no state
// between invocations beyond its fixed parameters; crossover detection reads
// the previous index from the indicator arrays themselves.
type Crossover struct {
	symbol  string
	longLen int
	rsiBuy  float64
	rsiSell float64
}

// NewCrossover creates a generator for the given symbol using the default
// EMA(21) data precondition and RSI thresholds.
func NewCrossover(symbol string) *Crossover {
	return &Crossover{
		symbol:  symbol,
		longLen: indicator.DefaultLongLength,
		rsiBuy:  DefaultRSIBuy,
		rsiSell: DefaultRSISell,
	}
}

// Evaluate produces the decision for the latest closed candle. closes and the
// snapshot arrays must be positionally aligned; both come from the same
// recompute pass.
func (s *Crossover) Evaluate(closes []float64, snap indicator.Snapshot) model.Signal {
	i := len(closes) - 1
	now := time.Now().UnixMilli()

	if i <= s.longLen {
		return model.Signal{
			Kind:      model.KindHold,
			Reason:    "not enough data",
			Symbol:    s.symbol,
			Timestamp: now,
		}
	}

	price := closes[i]
	rsi := snap.RSI[i]
	emaS, emaL := snap.EMAShort, snap.EMALong

	crossedUp := emaS[i-1] <= emaL[i-1] && emaS[i] > emaL[i]
	crossedDown := emaS[i-1] >= emaL[i-1] && emaS[i] < emaL[i]

	switch {
	case crossedUp && rsi < s.rsiBuy:
		gap := gapOrFloor(emaS[i], emaL[i])
		return model.Signal{
			Kind:       model.KindBuy,
			Entry:      price,
			StopLoss:   price - 0.5*gap,
			TakeProfit: price + 1.5*gap,
			Confidence: confidence((s.rsiBuy - rsi) / 100),
			Reason:     "EMA crossover up",
			Price:      price,
			RSI:        rsi,
			Symbol:     s.symbol,
			Timestamp:  now,
		}

	case crossedDown && rsi > s.rsiSell:
		gap := gapOrFloor(emaS[i], emaL[i])
		return model.Signal{
			Kind:       model.KindSell,
			Entry:      price,
			StopLoss:   price + 0.5*gap,
			TakeProfit: price - 1.5*gap,
			Confidence: confidence((rsi - s.rsiSell) / 100),
			Reason:     "EMA crossover down",
			Price:      price,
			RSI:        rsi,
			Symbol:     s.symbol,
			Timestamp:  now,
		}
	}

	return model.Signal{
		Kind:      model.KindHold,
		Reason:    fmt.Sprintf("no crossover edge (RSI %.2f)", rsi),
		Price:     price,
		RSI:       rsi,
		Symbol:    s.symbol,
		Timestamp: now,
	}
}

// gapOrFloor returns the EMA gap, floored to 1.0 when the EMAs are exactly
// equal so stop and target never collapse onto the entry.
func gapOrFloor(emaShort, emaLong float64) float64 {
	gap := math.Abs(emaShort - emaLong)
	if gap == 0 {
		return 1.0
	}
	return gap
}

// confidence maps an RSI margin to [.., 0.95], rounded to 2 decimals.
func confidence(margin float64) float64 {
	c := math.Min(0.95, 0.6+margin)
	return math.Round(c*100) / 100
}
