package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signalstreamv1/config"
	"signalstreamv1/internal/engine"
	"signalstreamv1/internal/feed"
	"signalstreamv1/internal/gateway"
	"signalstreamv1/internal/history"
	"signalstreamv1/internal/logger"
	"signalstreamv1/internal/metrics"
	"signalstreamv1/internal/model"
	redisstore "signalstreamv1/internal/store/redis"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[sigengine] starting...")

	// ---- Load config from env ----
	cfg := config.Load()
	logger.Init("sigengine", logger.ParseLevel(cfg.LogLevel))

	// ---- Setup metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Setup context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Broadcast hub ----
	hub := gateway.NewHub(cfg.DisplaySymbol(), cfg.Interval)
	hub.OnClientCount = func(n int) {
		prom.Subscribers.Set(float64(n))
	}

	// ---- Optional Redis mirror ----
	pubs := []engine.Publisher{hub}
	var mirror *redisstore.Mirror
	if cfg.RedisAddr != "" {
		health.SetRedisEnabled(true)
		m, err := redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Symbol:   cfg.DisplaySymbol(),
		})
		if err != nil {
			log.Printf("[sigengine] WARNING: redis init failed: %v (continuing without redis)", err)
			health.SetRedisConnected(false)
		} else {
			mirror = m
			pubs = append(pubs, mirror)
			health.SetRedisConnected(true)
			log.Println("[sigengine] redis mirror ready")
		}
	}

	// ---- Pipeline: feed → coordinator → publishers ----
	hist := history.New(history.DefaultCapacity)
	coord := engine.New(cfg.DisplaySymbol(), hist, pubs...)
	coord.OnFrame = func(model.Candle) {
		prom.FramesTotal.Inc()
		health.SetLastCandleTime(time.Now())
	}
	coord.OnClosedCandle = func(elapsed time.Duration) {
		prom.ClosedCandles.Inc()
		prom.RecomputeDur.Observe(elapsed.Seconds())
	}
	coord.OnSignal = func(kind model.Kind) {
		prom.SignalsTotal.WithLabelValues(string(kind)).Inc()
	}

	candleCh := make(chan model.Candle, 1000)
	go coord.Run(ctx, candleCh)

	streamURL := cfg.StreamURL()
	connector, err := feed.New(feed.Config{
		URL:            streamURL,
		ReconnectDelay: cfg.ReconnectDelay,
	})
	if err != nil {
		log.Fatalf("[sigengine] feed init failed: %v", err)
	}
	connector.OnConnect = func() {
		health.SetFeedConnected(true)
	}
	connector.OnReconnect = func() {
		prom.FeedReconnects.Inc()
		health.SetFeedConnected(false)
	}
	connector.OnMalformed = func() {
		prom.MalformedFrames.Inc()
	}

	go func() {
		if err := connector.Start(ctx, candleCh); err != nil {
			log.Printf("[sigengine] feed stopped: %v", err)
			health.SetFeedConnected(false)
		}
	}()

	// ---- HTTP server (websocket + REST) ----
	mux := http.NewServeMux()
	gateway.RegisterRoutes(mux, hub, coord)
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}
	go func() {
		log.Printf("[sigengine] gateway listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[sigengine] gateway server error: %v", err)
		}
	}()

	log.Printf("[sigengine] pipeline ready: %s @ %s (stream %s)",
		cfg.DisplaySymbol(), cfg.Interval, streamURL)

	// ---- Wait for shutdown signal ----
	<-sigCh
	log.Println("[sigengine] shutdown signal received, cleaning up...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)

	if mirror != nil {
		mirror.Close()
	}

	log.Println("[sigengine] shutdown complete.")
}
