// Command cortex-grants runs the dashboard server: a web UI and JSON API for
// checking role readiness and generating least-privilege grant scripts for
// Snowflake Cortex agents.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cortex-grants/internal/app"
	"cortex-grants/internal/config"
	"cortex-grants/internal/metadata"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	for _, warning := range cfg.Warnings {
		logger.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := metadata.Connect(ctx, cfg)
	if err != nil {
		logger.Error("snowflake connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close() //nolint:errcheck

	a := app.New(app.Deps{
		Cfg:    cfg,
		Reader: metadata.NewReader(db, logger),
		Logger: logger,
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           a.Router(cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("server listening", "addr", cfg.ListenAddr, "env", cfg.Env)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
