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

	"github.com/prasanna192005/ObservoAI/internal/config"
	"github.com/prasanna192005/ObservoAI/internal/predict"
	"github.com/prasanna192005/ObservoAI/internal/scrape"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("predictor starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Predictor.HTTPPort,
		"metrics_endpoint", cfg.Predictor.MetricsEndpoint,
		"poll_interval", cfg.Predictor.PollInterval,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	analyzer := predict.New(scrape.NewClient(cfg.Predictor.MetricsEndpoint), cfg.Predictor)
	go analyzer.Run(ctx)

	// Run one cycle up front so /predictions has data before the first tick.
	if _, err := analyzer.Analyze(ctx); err != nil {
		slog.Warn("initial analysis failed, will retry on schedule", "err", err)
	}

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Predictor.HTTPPort),
		Handler: predict.Handler(analyzer),
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Predictor.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("predictor shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
