package strategy

import (
	"math"
	"strings"
	"testing"

	"signalstreamv1/internal/indicator"
	"signalstreamv1/internal/model"
)

// buildSnapshot constructs aligned indicator arrays for n candles with a flat
// baseline, then lets the caller shape the last two indices.
func buildSnapshot(n int, rsiLast float64) ([]float64, indicator.Snapshot) {
	closes := make([]float64, n)
	emaS := make([]float64, n)
	emaL := make([]float64, n)
	rsi := make([]float64, n)

	for i := 0; i < n; i++ {
		closes[i] = 100
		emaS[i] = 99
		emaL[i] = 100
		rsi[i] = math.NaN()
	}
	rsi[n-1] = rsiLast

	return closes, indicator.Snapshot{EMAShort: emaS, EMALong: emaL, RSI: rsi}
}

func TestCrossover_BuyOnCrossUp(t *testing.T) {
	// 25 candles; emaShort crosses above emaLong exactly at the last index,
	// RSI there is 40 (below the 45 buy threshold).
	closes, snap := buildSnapshot(25, 40)
	i := len(closes) - 1
	closes[i] = 105
	snap.EMAShort[i] = 101 // was <= emaLong at i-1, now above
	snap.EMALong[i] = 100

	sig := NewCrossover("BTCUSDT").Evaluate(closes, snap)

	if sig.Kind != model.KindBuy {
		t.Fatalf("kind=%s, want BUY (reason=%q)", sig.Kind, sig.Reason)
	}
	if sig.Entry != 105 {
		t.Errorf("entry=%v, want last close 105", sig.Entry)
	}
	if !(sig.StopLoss < sig.Entry && sig.Entry < sig.TakeProfit) {
		t.Errorf("want stopLoss < entry < takeProfit, got %v < %v < %v",
			sig.StopLoss, sig.Entry, sig.TakeProfit)
	}
	if sig.Confidence > 0.95 {
		t.Errorf("confidence=%v, want <= 0.95", sig.Confidence)
	}
	// gap = 1.0: SL = 105 - 0.5, TP = 105 + 1.5
	if sig.StopLoss != 104.5 || sig.TakeProfit != 106.5 {
		t.Errorf("SL/TP = %v/%v, want 104.5/106.5", sig.StopLoss, sig.TakeProfit)
	}
	// confidence = min(0.95, 0.6 + (45-40)/100) = 0.65
	if sig.Confidence != 0.65 {
		t.Errorf("confidence=%v, want 0.65", sig.Confidence)
	}
	if sig.RSI != 40 || sig.Symbol != "BTCUSDT" {
		t.Errorf("rsi=%v symbol=%q, want 40 / BTCUSDT", sig.RSI, sig.Symbol)
	}
}

func TestCrossover_SellOnCrossDown(t *testing.T) {
	closes, snap := buildSnapshot(25, 70)
	i := len(closes) - 1
	for j := range snap.EMAShort {
		snap.EMAShort[j] = 101 // above emaLong until the cross
	}
	closes[i] = 95
	snap.EMAShort[i] = 99
	snap.EMALong[i] = 100

	sig := NewCrossover("BTCUSDT").Evaluate(closes, snap)

	if sig.Kind != model.KindSell {
		t.Fatalf("kind=%s, want SELL (reason=%q)", sig.Kind, sig.Reason)
	}
	if !(sig.TakeProfit < sig.Entry && sig.Entry < sig.StopLoss) {
		t.Errorf("want takeProfit < entry < stopLoss, got %v < %v < %v",
			sig.TakeProfit, sig.Entry, sig.StopLoss)
	}
	// confidence = min(0.95, 0.6 + (70-65)/100) = 0.65
	if sig.Confidence != 0.65 {
		t.Errorf("confidence=%v, want 0.65", sig.Confidence)
	}
}

func TestCrossover_HoldWhenNotEnoughData(t *testing.T) {
	// last index 21 is not strictly beyond the EMA(21) period
	closes, snap := buildSnapshot(22, 40)

	sig := NewCrossover("BTCUSDT").Evaluate(closes, snap)

	if sig.Kind != model.KindHold {
		t.Fatalf("kind=%s, want HOLD", sig.Kind)
	}
	if sig.Reason != "not enough data" {
		t.Errorf("reason=%q, want %q", sig.Reason, "not enough data")
	}
	if sig.Entry != 0 || sig.StopLoss != 0 || sig.TakeProfit != 0 {
		t.Errorf("HOLD must not carry entry/SL/TP: %+v", sig)
	}
}

func TestCrossover_HoldWhenRSIFilterBlocksBuy(t *testing.T) {
	closes, snap := buildSnapshot(25, 55) // cross up but RSI >= 45
	i := len(closes) - 1
	snap.EMAShort[i] = 101
	snap.EMALong[i] = 100

	sig := NewCrossover("BTCUSDT").Evaluate(closes, snap)

	if sig.Kind != model.KindHold {
		t.Fatalf("kind=%s, want HOLD", sig.Kind)
	}
	if !strings.Contains(sig.Reason, "55.00") {
		t.Errorf("reason=%q, want current RSI cited", sig.Reason)
	}
}

func TestCrossover_HoldWithoutCross(t *testing.T) {
	closes, snap := buildSnapshot(25, 30) // emaShort stays below emaLong

	sig := NewCrossover("BTCUSDT").Evaluate(closes, snap)

	if sig.Kind != model.KindHold {
		t.Fatalf("kind=%s, want HOLD", sig.Kind)
	}
}

func TestCrossover_ConfidenceCapped(t *testing.T) {
	closes, snap := buildSnapshot(25, 2) // deep oversold: 0.6 + 0.43 > 0.95
	i := len(closes) - 1
	snap.EMAShort[i] = 101
	snap.EMALong[i] = 100

	sig := NewCrossover("BTCUSDT").Evaluate(closes, snap)

	if sig.Kind != model.KindBuy {
		t.Fatalf("kind=%s, want BUY", sig.Kind)
	}
	if sig.Confidence != 0.95 {
		t.Errorf("confidence=%v, want capped at 0.95", sig.Confidence)
	}
}

func TestGapOrFloor(t *testing.T) {
	if got := gapOrFloor(100, 100); got != 1.0 {
		t.Errorf("zero gap: got %v, want floor 1.0", got)
	}
	if got := gapOrFloor(102.5, 100); got != 2.5 {
		t.Errorf("gap: got %v, want 2.5", got)
	}
	if got := gapOrFloor(100, 102.5); got != 2.5 {
		t.Errorf("gap must be absolute: got %v, want 2.5", got)
	}
}
