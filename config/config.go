package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// defaultFeedEndpoint is the upstream kline stream base URL.
const defaultFeedEndpoint = "wss://stream.binance.com:9443/ws"

// Config holds all application configuration loaded from environment variables.
// Everything is in memory; no state is persisted across restarts.
type Config struct {
	// Market subscription
	Symbol   string
	Interval string

	// Feed
	FeedWSURL      string // full stream URL override; derived when empty
	ReconnectDelay time.Duration

	// Serving
	ListenAddr  string
	MetricsAddr string

	// Optional Redis mirror ("" = disabled)
	RedisAddr     string
	RedisPassword string

	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Symbol:   getEnv("SYMBOL", "btcusdt"),
		Interval: getEnv("INTERVAL", "1m"),

		FeedWSURL:      getEnv("FEED_WS_URL", ""),
		ReconnectDelay: getEnvMillis("RECONNECT_DELAY_MS", 3000),

		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// StreamURL returns the kline stream URL for the configured symbol/interval,
// honoring the FEED_WS_URL override.
func (c *Config) StreamURL() string {
	if c.FeedWSURL != "" {
		return c.FeedWSURL
	}
	return defaultFeedEndpoint + "/" + strings.ToLower(c.Symbol) + "@kline_" + c.Interval
}

// DisplaySymbol returns the symbol in upstream ticker casing (e.g. BTCUSDT).
func (c *Config) DisplaySymbol() string {
	return strings.ToUpper(c.Symbol)
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvMillis(key string, fallback int) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(fallback) * time.Millisecond
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[config] invalid %s value %q, using %dms", key, v, fallback)
		return time.Duration(fallback) * time.Millisecond
	}
	return time.Duration(n) * time.Millisecond
}
