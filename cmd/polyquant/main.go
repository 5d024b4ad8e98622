package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/liamashdown/polyquant/internal/ai"
	"github.com/liamashdown/polyquant/internal/anchor"
	"github.com/liamashdown/polyquant/internal/api"
	"github.com/liamashdown/polyquant/internal/artifacts"
	"github.com/liamashdown/polyquant/internal/catalog"
	"github.com/liamashdown/polyquant/internal/config"
	"github.com/liamashdown/polyquant/internal/discovery"
	"github.com/liamashdown/polyquant/internal/engine"
	"github.com/liamashdown/polyquant/internal/metrics"
	"github.com/liamashdown/polyquant/internal/polymarket/clobapi"
	"github.com/liamashdown/polyquant/internal/polymarket/gammaapi"
	"github.com/liamashdown/polyquant/internal/pricecache"
)

func main() {
	// Local development convenience; ignored when no .env exists
	_ = godotenv.Load()

	// Initialize logger
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	log.Info("Starting polyquant service...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	log.WithFields(logrus.Fields{
		"environment":         cfg.Environment,
		"ai_provider":         cfg.AIProvider,
		"relevance_threshold": cfg.RelevanceThreshold,
		"min_points":          cfg.MinPoints,
		"history_days":        cfg.HistoryDays,
		"artifact_modes":      cfg.ArtifactModes,
	}).Info("Configuration loaded")

	// Initialize database
	store, err := catalog.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer store.Close()

	// Run auto-migration
	if err := store.AutoMigrate(); err != nil {
		log.WithError(err).Fatal("Failed to run database migrations")
	}

	log.Info("Database migrations complete")

	// Initialize API clients
	gammaClient := gammaapi.NewClient(cfg)
	clobClient := clobapi.NewClient(cfg, log)

	// Initialize AI provider with mock fallback
	provider := ai.WithFallback(ai.New(cfg), log)
	log.WithField("provider", provider.Name()).Info("AI provider initialized")

	// Assemble the pipeline
	discoverer := discovery.New(store, provider, discovery.Options{
		Threshold:      cfg.RelevanceThreshold,
		MaxProxyRounds: cfg.MaxProxyRounds,
		Limit:          cfg.DiscoveryLimit,
		MinVolumeUSD:   cfg.MinVolumeUSD,
	}, log)

	cache := pricecache.New(cfg.PriceCacheTTL)

	eng := engine.New(discoverer, anchor.New(nil), clobClient, cache, engine.Options{
		HistoryDays:       cfg.HistoryDays,
		MinPoints:         cfg.MinPoints,
		RollingWindows:    cfg.RollingWindows,
		MinAbsCorrelation: cfg.MinAbsCorrelation,
		MinVolumeUSD:      cfg.MinVolumeUSD,
		TopN:              cfg.PortfolioTopN,
		Workers:           cfg.PriceFetchWorkers,
	}, log)

	// Initialize artifact writers
	writer := createArtifactWriter(cfg, log)
	log.WithField("artifact_modes", cfg.ArtifactModes).Info("Artifact writers initialized")

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Background catalog sync
	syncer := catalog.NewSyncer(store, gammaClient, cfg.SyncPageSize, log)
	go syncer.Run(ctx, time.Duration(cfg.SyncIntervalMins)*time.Minute)

	// Periodic price cache cleanup
	go func() {
		ticker := time.NewTicker(cfg.PriceCacheTTL)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cache.Purge()
			}
		}
	}()

	// Health + metrics server on its own port
	go startHealthServer(cfg.HealthPort, store, log)

	// Main API server
	srv := api.New(eng, store, writer, cfg.ArtifactDir, log)
	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.APIPort),
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.APIPort).Info("Starting API server")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("API server failed")
		}
	}()

	sig := <-sigChan
	log.WithField("signal", sig).Info("Received shutdown signal")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("API server shutdown failed")
	}

	log.Info("Graceful shutdown complete")
}

func createArtifactWriter(cfg *config.Config, log *logrus.Logger) artifacts.Writer {
	modes := strings.Split(cfg.ArtifactModes, ",")
	for i, mode := range modes {
		modes[i] = strings.TrimSpace(mode)
	}

	writers := []artifacts.Writer{}
	for _, mode := range modes {
		switch mode {
		case "json":
			writers = append(writers, artifacts.NewJSONWriter(cfg.ArtifactDir, log))
		case "csv":
			writers = append(writers, artifacts.NewCSVWriter(cfg.ArtifactDir, log))
		case "log":
			writers = append(writers, artifacts.NewLogWriter(log))
		default:
			log.WithField("mode", mode).Warn("Unknown artifact mode, skipping")
		}
	}

	if len(writers) == 0 {
		log.Warn("No valid artifact writers configured, using log")
		return artifacts.NewLogWriter(log)
	}
	if len(writers) == 1 {
		return writers[0]
	}
	return artifacts.NewMultiWriter(writers...)
}

func startHealthServer(port int, store *catalog.Store, log *logrus.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		metrics.RecordHealthCheck(true)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy"}`)
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			metrics.RecordHealthCheck(false)
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"degraded"}`)
			return
		}
		metrics.RecordHealthCheck(true)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ready"}`)
	})

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	log.WithField("port", port).Info("Starting HTTP server (health + metrics)")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("HTTP server failed")
	}
}
