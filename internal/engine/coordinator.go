// Package engine orchestrates the streaming pipeline: feed events in, candle
// history and indicator recomputation, signal decisions, and event
// publication out.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"signalstreamv1/internal/history"
	"signalstreamv1/internal/indicator"
	"signalstreamv1/internal/model"
	"signalstreamv1/internal/strategy"
)

// Publisher receives every event the coordinator emits. The websocket hub is
// the primary implementation; the optional Redis mirror is another.
type Publisher interface {
	Publish(eventType string, payload any)
}

// Event types emitted by the coordinator.
const (
	EventPrice  = "price"
	EventSignal = "signal"
)

// Coordinator owns the candle history and the last-signal singleton. A single
// Run goroutine consumes feed events in arrival order; the REST surface reads
// and overwrites through the exported operations.
type Coordinator struct {
	symbol string
	hist   *history.History
	gen    *strategy.Crossover
	pubs   []Publisher

	shortLen  int
	longLen   int
	rsiPeriod int

	mu         sync.RWMutex
	lastSignal model.Signal
	hasSignal  bool

	// Optional hooks for metrics.
	OnFrame        func(candle model.Candle)
	OnClosedCandle func(elapsed time.Duration)
	OnSignal       func(kind model.Kind)
}

// New creates a coordinator with the default indicator parameters.
func New(symbol string, hist *history.History, pubs ...Publisher) *Coordinator {
	return &Coordinator{
		symbol:    symbol,
		hist:      hist,
		gen:       strategy.NewCrossover(symbol),
		pubs:      pubs,
		shortLen:  indicator.DefaultShortLength,
		longLen:   indicator.DefaultLongLength,
		rsiPeriod: indicator.DefaultRSIPeriod,
	}
}

// Run consumes candles from the feed channel. Every event publishes a price
// update; closed candles additionally run the append → recompute → decide →
// publish path. Blocks until ctx is cancelled or candleCh is closed.
func (c *Coordinator) Run(ctx context.Context, candleCh <-chan model.Candle) {
	for {
		select {
		case <-ctx.Done():
			return
		case candle, ok := <-candleCh:
			if !ok {
				return
			}
			if c.OnFrame != nil {
				c.OnFrame(candle)
			}
			c.publish(EventPrice, model.PriceUpdate{
				Symbol: c.symbol,
				Price:  candle.Close,
				Time:   candle.OpenTime,
			})
			if candle.Final {
				c.onClosedCandle(candle)
			}
		}
	}
}

// onClosedCandle appends, recomputes all indicators over the retained series,
// decides, stores the result as the last signal and publishes it.
func (c *Coordinator) onClosedCandle(candle model.Candle) {
	start := time.Now()

	c.hist.Append(candle)

	closes := c.hist.Closes()
	snap := indicator.Compute(closes, c.shortLen, c.longLen, c.rsiPeriod)
	sig := c.gen.Evaluate(closes, snap)

	c.mu.Lock()
	c.lastSignal = sig
	c.hasSignal = true
	c.mu.Unlock()

	if c.OnClosedCandle != nil {
		c.OnClosedCandle(time.Since(start))
	}
	if c.OnSignal != nil {
		c.OnSignal(sig.Kind)
	}
	if sig.Kind != model.KindHold {
		log.Printf("[engine] %s %s @ %.4f (confidence %.2f): %s",
			sig.Kind, sig.Symbol, sig.Price, sig.Confidence, sig.Reason)
	}

	c.publish(EventSignal, sig)
}

func (c *Coordinator) publish(eventType string, payload any) {
	for _, p := range c.pubs {
		p.Publish(eventType, payload)
	}
}

// LastSignal returns the most recent decision; ok is false before the first
// closed candle has been processed.
func (c *Coordinator) LastSignal() (model.Signal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSignal, c.hasSignal
}

// Candles returns the last n retained closed candles (n <= 0 for all).
func (c *Coordinator) Candles(n int) []model.Candle {
	return c.hist.Snapshot(n)
}

// OverwriteCandles replaces the candle history, truncated to the newest
// entries within capacity. Debug/testing affordance: it can interleave with
// live updates and is not part of the streaming path.
func (c *Coordinator) OverwriteCandles(candles []model.Candle) {
	c.hist.Overwrite(candles)
}
