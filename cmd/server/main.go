package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payshield/internal/app"
	"payshield/internal/config"
	"payshield/internal/logger"
)

const shutdownTimeout = 10 * time.Second

// The profile service backs the client sync layer: profile lookup and
// creation for the resolver, and the password provider's credential
// endpoints.
func main() {
	cfg := config.Load()
	logger.Init(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatal("profile service failed", map[string]any{
			"error": err.Error(),
		})
	}
	logger.Info("profile service stopped", nil)
}

func run(ctx context.Context, cfg config.Config) error {
	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- application.Run() }()

	logger.Info("profile service started", map[string]any{
		"port":      cfg.AppPort,
		"origin":    cfg.Origin,
		"profiles":  profileBackend(cfg),
		"throttled": cfg.RedisAddr != "" && cfg.SignInMaxAttempts > 0,
	})

	select {
	case err := <-serveErr:
		// the listener died before any signal
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func profileBackend(cfg config.Config) string {
	if cfg.DatabaseDSN == "" {
		return "memory"
	}
	return "postgres"
}
