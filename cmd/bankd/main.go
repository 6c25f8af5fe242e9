package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prasanna192005/ObservoAI/internal/alerts"
	"github.com/prasanna192005/ObservoAI/internal/anomaly"
	"github.com/prasanna192005/ObservoAI/internal/api"
	"github.com/prasanna192005/ObservoAI/internal/bank"
	"github.com/prasanna192005/ObservoAI/internal/config"
	"github.com/prasanna192005/ObservoAI/internal/metrics"
	"github.com/prasanna192005/ObservoAI/internal/middleware"
	"github.com/prasanna192005/ObservoAI/internal/store"
	"github.com/prasanna192005/ObservoAI/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("bankd starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Bank.HTTPPort,
		"auth_mode", cfg.Bank.Auth.Mode,
		"snapshot_ttl", cfg.Bank.SnapshotTTL,
		"alert_rules", len(cfg.Bank.Alerts.Rules),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Anomaly signal engine with thresholds from config.
	engine := anomaly.NewEngine(engineOptions(cfg.Bank.Engine))

	// Prometheus registry with the bank series plus process/runtime collectors.
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewRecorder(reg)

	// Snapshot store with background TTL eviction.
	st := store.New(cfg.Bank.SnapshotTTL)
	go st.Run(ctx)

	// Alerts engine — evaluates rules on every observation result.
	alertEngine := alerts.New(cfg.Bank.Alerts)

	// Telemetry middleware feeding engine, metrics, store and alerts.
	tel := middleware.NewTelemetry(engine, recorder, st, alertEngine)
	wrap := func(template string, next http.Handler) http.Handler {
		return tel.Wrap(template, middleware.Recovery(next))
	}

	// WebSocket hub — broadcasts route snapshots to clients every 5 seconds.
	hub := ws.New(st, 5*time.Second)
	go hub.Run(ctx)

	// Hot reload: engine thresholds and alert rules follow the config file.
	go func() {
		watcher := config.NewWatcher(*configPath)
		err := watcher.Run(ctx, func(next *config.Config) {
			engine.SetOptions(engineOptions(next.Bank.Engine))
			alertEngine.SetRules(next.Bank.Alerts)
			slog.Info("config reloaded", "alert_rules", len(next.Bank.Alerts.Rules))
		})
		if err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	opsAPI := api.APIKey(
		cfg.Bank.Auth.Mode,
		cfg.Bank.Auth.EffectiveHeader(),
		cfg.Bank.Auth.Key(),
		api.New(st, alertEngine),
	)

	bankRoutes := bank.Routes(bank.NewService(), wrap)

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/customers/", bankRoutes)
	httpMux.Handle("/api/accounts/", bankRoutes)
	httpMux.Handle("/health", bankRoutes)
	httpMux.Handle("/api/v1/", opsAPI)
	httpMux.Handle("/ws/stream", hub)
	httpMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Bank.HTTPPort),
		Handler: middleware.RequestID(httpMux),
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Bank.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("bankd shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}

func engineOptions(cfg config.EngineConfig) anomaly.Options {
	return anomaly.Options{
		WindowSize:         cfg.WindowSize,
		AnomalyThreshold:   cfg.AnomalyThreshold,
		ErrorRateThreshold: cfg.ErrorRateThreshold,
		WarningFactor:      cfg.WarningFactor,
		MinSamples:         cfg.MinSamples,
	}
}
