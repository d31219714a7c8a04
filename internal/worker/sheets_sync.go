package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pairledger/internal/amqp"
	applog "pairledger/internal/log"
)

// SheetExporter rewrites a household's spreadsheet from the current ledger.
type SheetExporter interface {
	ExportSheet(ctx context.Context, householdID string) (string, error)
}

// SheetsSyncWorker keeps exported spreadsheets in step with ledger events.
// Each event re-exports the whole household, so bursts (a catch-up run that
// materializes many occurrences) are coalesced within minInterval.
type SheetsSyncWorker struct {
	exporter    SheetExporter
	minInterval time.Duration
	now         func() time.Time

	mu       sync.Mutex
	lastSync map[string]time.Time
}

func NewSheetsSyncWorker(exporter SheetExporter, minInterval time.Duration) *SheetsSyncWorker {
	return &SheetsSyncWorker{
		exporter:    exporter,
		minInterval: minInterval,
		now:         time.Now,
		lastSync:    make(map[string]time.Time),
	}
}

// HandleEvent processes a single ledger event from AMQP. Returning an error
// requeues the message.
func (w *SheetsSyncWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if ev.HouseholdID == "" {
		slog.WarnContext(ctx, "Ledger event without household, skipping",
			"type", ev.Type,
			"entity_id", ev.EntityID)
		return nil
	}

	if !w.due(ev.HouseholdID, ev.Timestamp) {
		slog.DebugContext(ctx, "Household exported recently, skipping",
			applog.FieldHousehold, ev.HouseholdID,
			applog.FieldEventType, ev.Type)
		return nil
	}

	ref, err := w.exporter.ExportSheet(ctx, ev.HouseholdID)
	if err != nil {
		w.forget(ev.HouseholdID)
		return fmt.Errorf("export household %s: %w", ev.HouseholdID, err)
	}

	slog.InfoContext(ctx, "Successfully synced household sheet",
		applog.FieldHousehold, ev.HouseholdID,
		applog.FieldEventType, ev.Type,
		applog.FieldSheetsRef, ref)
	return nil
}

// due reports whether the household needs a new export for an event emitted
// at ts, and records the export time when it does. Events emitted before the
// last export are already reflected in it.
func (w *SheetsSyncWorker) due(householdID string, ts time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	last, ok := w.lastSync[householdID]
	if ok && !ts.IsZero() && ts.Before(last) && now.Sub(last) < w.minInterval {
		return false
	}
	w.lastSync[householdID] = now
	return true
}

func (w *SheetsSyncWorker) forget(householdID string) {
	w.mu.Lock()
	delete(w.lastSync, householdID)
	w.mu.Unlock()
}
