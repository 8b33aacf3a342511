// Package feed owns the single upstream candlestick stream connection.
//
// The connector dials the configured kline websocket channel, decodes inbound
// frames into model.Candle values (forming and closed), and pushes them into
// the coordinator's channel in arrival order. On any transport close or error
// it reconnects after a fixed delay — no backoff growth, no attempt cap — and
// keeps retrying for as long as failures persist. Cancelling the context is
// the only way to stop the loop.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"time"

	"signalstreamv1/internal/model"

	"github.com/gorilla/websocket"
)

// DefaultReconnectDelay is the fixed wait between reconnection attempts.
const DefaultReconnectDelay = 3000 * time.Millisecond

// Config holds configuration for the feed connector.
type Config struct {
	// URL of the kline stream, e.g.
	// "wss://stream.binance.com:9443/ws/btcusdt@kline_1m".
	URL string

	// ReconnectDelay is the fixed delay before each reconnection attempt.
	// Defaults to 3000ms if zero. There is deliberately no backoff and no
	// maximum attempt count.
	ReconnectDelay time.Duration
}

func (c *Config) defaults() {
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
}

// Connector streams candles from the upstream websocket into a channel.
type Connector struct {
	cfg Config

	// Optional hook — called after each successful dial.
	OnConnect func()

	// Optional hook — called each time a reconnection is scheduled.
	OnReconnect func()

	// Optional hook — called for each frame that fails to decode.
	OnMalformed func()
}

// New creates a new Connector. Returns an error if the URL is unparseable.
func New(cfg Config) (*Connector, error) {
	cfg.defaults()
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("feed: parse url: %w", err)
	}
	return &Connector{cfg: cfg}, nil
}

// Start connects to the upstream stream and pushes candles into candleCh.
// Blocks until ctx is cancelled. Reconnects automatically on disconnect.
func (c *Connector) Start(ctx context.Context, candleCh chan<- model.Candle) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		err := c.runOnce(ctx, candleCh)
		if err == nil {
			// Context cancelled cleanly
			return nil
		}
		if ctx.Err() != nil {
			// Cancellation surfaced as a dial/read error; not a disconnect.
			return nil
		}

		log.Printf("[feed] disconnected (%v), reconnecting in %s...", err, c.cfg.ReconnectDelay)
		if c.OnReconnect != nil {
			c.OnReconnect()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

// runOnce makes a single connection attempt and reads until disconnect or ctx cancel.
func (c *Connector) runOnce(ctx context.Context, candleCh chan<- model.Candle) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Printf("[feed] connected to %s", c.cfg.URL)
	if c.OnConnect != nil {
		c.OnConnect()
	}

	// Async context watcher — closes the connection when ctx is cancelled.
	go func() {
		<-ctx.Done()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		candle, err := parseFrame(raw)
		if err != nil {
			// Malformed frames are dropped; the connection stays open.
			log.Printf("[feed] malformed frame: %v (raw: %.120s)", err, raw)
			if c.OnMalformed != nil {
				c.OnMalformed()
			}
			continue
		}

		// Blocking send: candles must reach the coordinator in arrival order
		// with nothing skipped, so backpressure pauses the read loop instead
		// of dropping.
		select {
		case candleCh <- candle:
		case <-ctx.Done():
			return nil
		}
	}
}

// klineFrame mirrors the upstream kline event layout. Prices arrive as
// decimal strings.
type klineFrame struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Kline  struct {
		OpenTime int64  `json:"t"`
		Open     string `json:"o"`
		High     string `json:"h"`
		Low      string `json:"l"`
		Close    string `json:"c"`
		Volume   string `json:"v"`
		Final    bool   `json:"x"`
	} `json:"k"`
}

// parseFrame decodes a raw websocket frame into a candle.
func parseFrame(raw []byte) (model.Candle, error) {
	var frame klineFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return model.Candle{}, err
	}
	if frame.Event != "kline" {
		return model.Candle{}, fmt.Errorf("unexpected event type %q", frame.Event)
	}

	k := frame.Kline
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return model.Candle{}, fmt.Errorf("open: %w", err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return model.Candle{}, fmt.Errorf("high: %w", err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return model.Candle{}, fmt.Errorf("low: %w", err)
	}
	closePx, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return model.Candle{}, fmt.Errorf("close: %w", err)
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return model.Candle{}, fmt.Errorf("volume: %w", err)
	}

	return model.Candle{
		OpenTime: k.OpenTime,
		Open:     open,
		High:     high,
		Low:      low,
		Close:    closePx,
		Volume:   volume,
		Final:    k.Final,
	}, nil
}
