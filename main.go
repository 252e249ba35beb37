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

	"palpite-api/internal"
)

func main() {
	if err := internal.LoadDotEnv(".env"); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("storage setup failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	app := internal.NewApp(cfg, store, logger)
	if err := app.Seed(ctx); err != nil {
		logger.Error("seeding failed", "error", err)
		os.Exit(1)
	}
	go app.Run(ctx)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           internal.NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		app.Hub.Close()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("listening", "port", cfg.Port, "storage", cfg.Storage)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server closed", "error", err)
		os.Exit(1)
	}
	logger.Info("server closed")
}

func openStore(cfg internal.Config, logger *slog.Logger) (internal.Store, error) {
	if cfg.Storage == internal.StorageMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		return internal.NewMemStore(), nil
	}
	if cfg.MigrateOnStart {
		if err := internal.Migrate(cfg.DatabaseURL, cfg.MigrationsDir, false, logger); err != nil {
			return nil, err
		}
	}
	db, err := internal.OpenDB(cfg.DatabaseURL, cfg.DBMaxConns, logger)
	if err != nil {
		return nil, err
	}
	return internal.NewPGStore(db, logger), nil
}
