package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"signalstreamv1/internal/history"
	"signalstreamv1/internal/model"
)

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	Type    string
	Payload any
}

func (r *recordingPublisher) Publish(eventType string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Type: eventType, Payload: payload})
}

func (r *recordingPublisher) snapshot() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedEvent, len(r.events))
	copy(out, r.events)
	return out
}

func candle(i int, closePx float64, final bool) model.Candle {
	return model.Candle{
		OpenTime: int64(i) * 60_000,
		Open:     closePx,
		High:     closePx + 1,
		Low:      closePx - 1,
		Close:    closePx,
		Volume:   1,
		Final:    final,
	}
}

// run starts a coordinator over a channel, feeds it candles, then shuts down
// and waits for the run loop to drain everything.
func run(t *testing.T, c *Coordinator, candles []model.Candle) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	candleCh := make(chan model.Candle)
	done := make(chan struct{})
	go func() {
		c.Run(ctx, candleCh)
		close(done)
	}()

	for _, cd := range candles {
		candleCh <- cd
	}
	close(candleCh)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not stop after channel close")
	}
}

func TestCoordinator_PublishesPricePerTick(t *testing.T) {
	rec := &recordingPublisher{}
	c := New("BTCUSDT", history.New(0), rec)

	run(t, c, []model.Candle{
		candle(0, 100, false),
		candle(0, 101, false),
	})

	events := rec.snapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}
	for i, ev := range events {
		if ev.Type != EventPrice {
			t.Errorf("event %d: type=%q, want price", i, ev.Type)
		}
	}
	pu, ok := events[1].Payload.(model.PriceUpdate)
	if !ok {
		t.Fatalf("payload type %T, want PriceUpdate", events[1].Payload)
	}
	if pu.Symbol != "BTCUSDT" || pu.Price != 101 {
		t.Errorf("price update %+v, want symbol=BTCUSDT price=101", pu)
	}

	if _, ok := c.LastSignal(); ok {
		t.Error("no closed candle processed, LastSignal must report ok=false")
	}
}

func TestCoordinator_ClosedCandleProducesSignal(t *testing.T) {
	rec := &recordingPublisher{}
	c := New("BTCUSDT", history.New(0), rec)

	var closed, signals int
	c.OnClosedCandle = func(time.Duration) { closed++ }
	c.OnSignal = func(model.Kind) { signals++ }

	run(t, c, []model.Candle{
		candle(0, 100, false),
		candle(0, 100.5, true),
	})

	events := rec.snapshot()
	// price for each frame, then one signal for the closed candle
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}
	if events[2].Type != EventSignal {
		t.Fatalf("last event type=%q, want signal", events[2].Type)
	}

	sig, ok := events[2].Payload.(model.Signal)
	if !ok {
		t.Fatalf("payload type %T, want Signal", events[2].Payload)
	}
	if sig.Kind != model.KindHold || sig.Reason != "not enough data" {
		t.Errorf("one-candle history must hold: %+v", sig)
	}

	last, ok := c.LastSignal()
	if !ok {
		t.Fatal("LastSignal must report ok=true after a closed candle")
	}
	if last.Kind != sig.Kind || last.Timestamp != sig.Timestamp {
		t.Errorf("stored signal %+v differs from published %+v", last, sig)
	}

	if closed != 1 || signals != 1 {
		t.Errorf("hooks: closed=%d signals=%d, want 1/1", closed, signals)
	}
}

func TestCoordinator_LastSignalOverwrittenPerClose(t *testing.T) {
	rec := &recordingPublisher{}
	c := New("BTCUSDT", history.New(0), rec)

	candles := make([]model.Candle, 30)
	for i := range candles {
		candles[i] = candle(i, 100+float64(i)*0.1, true)
	}
	run(t, c, candles)

	last, ok := c.LastSignal()
	if !ok {
		t.Fatal("expected a stored signal")
	}
	// 30 closed candles is past the EMA(21) precondition: the reason must
	// cite the current RSI, not "not enough data".
	if last.Reason == "not enough data" {
		t.Errorf("last signal still reports warm-up after 30 closes: %+v", last)
	}
	if c.Candles(0)[len(c.Candles(0))-1].Close != candles[29].Close {
		t.Error("history does not end at the newest closed candle")
	}

	var signalCount int
	for _, ev := range rec.snapshot() {
		if ev.Type == EventSignal {
			signalCount++
		}
	}
	if signalCount != 30 {
		t.Errorf("signal events=%d, want one per closed candle (30)", signalCount)
	}
}

func TestCoordinator_QuerySurface(t *testing.T) {
	c := New("BTCUSDT", history.New(5))

	run(t, c, []model.Candle{
		candle(0, 100, true),
		candle(1, 101, true),
		candle(2, 102, true),
	})

	if got := len(c.Candles(2)); got != 2 {
		t.Errorf("Candles(2) returned %d, want 2", got)
	}
	if got := len(c.Candles(0)); got != 3 {
		t.Errorf("Candles(0) returned %d, want all 3", got)
	}

	c.OverwriteCandles([]model.Candle{candle(10, 200, true)})
	snap := c.Candles(0)
	if len(snap) != 1 || snap[0].Close != 200 {
		t.Errorf("overwrite not applied: %+v", snap)
	}
}
