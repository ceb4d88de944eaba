package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leadpilot/leadpilot/internal/api"
	"github.com/leadpilot/leadpilot/internal/config"
	"github.com/leadpilot/leadpilot/internal/export"
	"github.com/leadpilot/leadpilot/internal/history"
	"github.com/leadpilot/leadpilot/internal/provider"
	"github.com/leadpilot/leadpilot/internal/status"
	"github.com/leadpilot/leadpilot/internal/survey"
	"github.com/leadpilot/leadpilot/internal/webhook"
	"github.com/leadpilot/leadpilot/internal/wizard"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	store, err := survey.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		slog.Error("store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	steps, err := wizard.LoadSteps()
	if err != nil {
		slog.Error("steps", "error", err)
		os.Exit(1)
	}

	client := provider.New(cfg.StatusURL, cfg.ResultsURL, cfg.ProviderTimeout)
	tracker := status.NewTracker(client, cfg.StatusCacheTTL, logger)
	monitor := status.NewMonitor(tracker, cfg.PollInterval, logger)
	defer monitor.StopAll()

	notifier := webhook.NewNotifier(cfg.WebhookURL, cfg.NotifyEmail, logger)
	manager := wizard.NewManager(wizard.NewEngine(steps), store, notifier, cfg.MaxContactRows, logger)

	mux := http.NewServeMux()
	h := api.NewHandler(
		manager,
		store,
		tracker,
		monitor,
		history.NewReconciler(steps),
		export.NewExporter(tracker, logger),
		cfg,
	)
	h.RegisterRoutes(mux)

	middlewares := []api.Middleware{
		api.CORSMiddleware(cfg.CORSOrigins),
		api.RequestIDMiddleware,
		api.LoggingMiddleware(logger),
		api.RateLimit(cfg.RateLimitRPS),
	}
	if len(cfg.APIKeys) > 0 {
		middlewares = append(middlewares, api.AuthMiddleware(cfg.APIKeys))
	}
	handler := api.Chain(mux, middlewares...)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Info("shutting down")
		monitor.StopAll()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("leadpilot listening", "addr", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
