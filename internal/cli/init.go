// Package cli provides common process initialization utilities shared by
// cmd/pairledger and cmd/recurring-worker.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"pairledger/internal/amqp"
	"pairledger/internal/config"
	applog "pairledger/internal/log"
	"pairledger/internal/services"
	"pairledger/internal/sheets"
	"pairledger/internal/sheets/google"
	"pairledger/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default. Invalid settings fall back to an info
// console logger; Validate reports them.
func SetupLogger(cfg *config.Config, component string) *slog.Logger {
	logger, err := applog.FromSettings(cfg.LogLevel, cfg.LogFormat, component)
	if err != nil {
		logger, _ = applog.New(applog.Config{Level: slog.LevelInfo, Component: component})
	}
	applog.SetDefault(logger)
	return logger.Logger
}

// LoadConfig loads the environment, configures logging and validates.
func LoadConfig(component string) (*config.Config, *slog.Logger, error) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	if err := cfg.Validate(); err != nil {
		return nil, logger, err
	}
	return cfg, logger, nil
}

// InitSQLite opens the repository at dbPath and applies migrations.
func InitSQLite(logger *slog.Logger, dbPath string) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		return nil, err
	}
	logger.Debug("SQLite repository ready", "path", dbPath)
	return repo, nil
}

// InitPublisher connects to AMQP when configured. The returned publisher is
// a nil interface when events are disabled or the broker is unreachable, so
// callers keep working in SQLite-only mode. cleanup is never nil.
func InitPublisher(logger *slog.Logger, cfg *config.Config) (services.EventPublisher, func()) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - ledger events will not be published")
		return nil, func() {}
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing in SQLite-only mode", "error", err)
		return nil, func() {}
	}

	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", "error", err)
		}
	}
}

// InitExporter returns the Google Sheets exporter, or nil when no spreadsheet
// is configured.
func InitExporter(ctx context.Context, cfg *config.Config) (sheets.LedgerExporter, error) {
	if !cfg.SheetsEnabled() {
		return nil, nil
	}
	client, err := google.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	if err != nil {
		return nil, fmt.Errorf("init sheets exporter: %w", err)
	}
	return client, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	// registered before returning so an early signal is never lost
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
