package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"pairledger/internal/amqp"
	"pairledger/internal/cli"
	"pairledger/internal/config"
	applog "pairledger/internal/log"
	"pairledger/internal/services"
	"pairledger/internal/storage"
	"pairledger/internal/worker"
)

// sheetsSyncInterval coalesces event bursts into one export per household.
const sheetsSyncInterval = 30 * time.Second

func main() {
	cfg, logger, err := cli.LoadConfig(applog.ComponentWorker)
	if err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting recurring-worker",
		applog.FieldOperation, applog.OpStartup,
		"interval", cfg.RecurringInterval,
		"concurrency", cfg.RecurringConcurrency,
		"sqlite_db", cfg.SQLiteDBPath)

	repo, err := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		os.Exit(1)
	}
	defer repo.Close()

	// Publisher is a nil interface when AMQP is disabled
	publisher, closePublisher := cli.InitPublisher(logger, cfg)
	defer closePublisher()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.NewMetrics(reg)

	materializer := services.NewMaterializer(repo, publisher, metrics, cfg.RecurringConcurrency)
	recurring := worker.NewRecurringWorker(materializer, cfg.RecurringInterval, cfg.RecurringRunOnStart)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	metricsSrv := startMetricsServer(logger, cfg.MetricsAddr, reg)
	startSheetsSync(ctx, logger, cfg, repo, publisher)

	if err := recurring.Start(ctx); err != nil {
		logger.Error("Failed to start recurring worker", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down recurring-worker...", applog.FieldOperation, applog.OpShutdown)
	if err := recurring.Stop(shutdownCtx); err != nil {
		logger.Warn("Shutdown timeout reached", "error", err)
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown failed", "error", err)
		}
	}
	logger.Info("Recurring-worker shutdown complete")
}

func startMetricsServer(logger *slog.Logger, addr string, reg *prometheus.Registry) *http.Server {
	if addr == "" {
		return nil
	}

	logger = logger.With(applog.FieldComponent, applog.ComponentMetrics)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Serving metrics", "addr", addr, "path", "/metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()
	return srv
}

// startSheetsSync consumes ledger events and re-exports the affected
// household when both AMQP and a spreadsheet are configured.
func startSheetsSync(ctx context.Context, logger *slog.Logger, cfg *config.Config, repo *storage.SQLiteRepository, publisher services.EventPublisher) {
	client, ok := publisher.(*amqp.Client)
	if !ok || !cfg.SheetsEnabled() {
		logger.Info("Sheets sync disabled", "amqp", ok, "sheets", cfg.SheetsEnabled())
		return
	}

	exporter, err := cli.InitExporter(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize Google Sheets exporter, sheets sync disabled", "error", err)
		return
	}

	syncer := worker.NewSheetsSyncWorker(services.NewExportService(repo, exporter), sheetsSyncInterval)
	go func() {
		err := client.ConsumeEvents(ctx, func(ev *amqp.LedgerEvent) error {
			return syncer.HandleEvent(ctx, ev)
		})
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, amqp.ErrClientClosed) {
			logger.Error("Ledger event consumer stopped", "error", err)
		}
	}()
}
