// Package redis mirrors the live signal and price state to Redis so other
// processes can observe the stream without holding a websocket session.
//
// This is a transport mirror, not persistence: the engine never reads any of
// it back, and nothing survives a Redis flush or a process restart.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"signalstreamv1/internal/engine"

	goredis "github.com/go-redis/redis/v8"
)

const (
	defaultLatestTTL = 30 * time.Minute
	writeTimeout     = 2 * time.Second
)

// Config configures the Redis mirror.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	Symbol   string
}

// Mirror implements engine.Publisher over Redis: signals are SET (latest) and
// PUBLISHed, price updates are PUBLISHed only.
type Mirror struct {
	client *goredis.Client
	symbol string
}

// Client returns the underlying Redis client for health checks.
func (m *Mirror) Client() *goredis.Client { return m.client }

// New creates a new Mirror and pings the server.
func New(cfg Config) (*Mirror, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Mirror{client: client, symbol: cfg.Symbol}, nil
}

// Publish mirrors one engine event. Failures are logged and dropped; the
// mirror never blocks or fails the processing path.
func (m *Mirror) Publish(eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[redis] marshal %q payload: %v", eventType, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	switch eventType {
	case engine.EventSignal:
		pipe := m.client.Pipeline()
		pipe.Set(ctx, "signal:latest:"+m.symbol, data, defaultLatestTTL)
		pipe.Publish(ctx, "pub:signal:"+m.symbol, data)
		if _, err := pipe.Exec(ctx); err != nil {
			log.Printf("[redis] signal pipeline error: %v", err)
		}

	case engine.EventPrice:
		if err := m.client.Publish(ctx, "pub:price:"+m.symbol, data).Err(); err != nil {
			log.Printf("[redis] price publish error: %v", err)
		}
	}
}

// Close releases the underlying client.
func (m *Mirror) Close() error {
	return m.client.Close()
}
