package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"pairledger/internal/core"
	applog "pairledger/internal/log"
	"pairledger/internal/services"
)

// Runner materializes every active template up to a date.
type Runner interface {
	Run(ctx context.Context, asOf core.Date) (services.RunSummary, error)
}

var ErrAlreadyRunning = errors.New("worker already running")

// RecurringWorker drives the materializer: once on start, then on every tick.
type RecurringWorker struct {
	runner     Runner
	interval   time.Duration
	runOnStart bool
	now        func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRecurringWorker(runner Runner, interval time.Duration, runOnStart bool) *RecurringWorker {
	return &RecurringWorker{
		runner:     runner,
		interval:   interval,
		runOnStart: runOnStart,
		now:        time.Now,
	}
}

// RunOnce materializes templates up to today.
func (w *RecurringWorker) RunOnce(ctx context.Context) (services.RunSummary, error) {
	start := w.now()
	summary, err := w.runner.Run(ctx, core.DateOf(start))

	fields := applog.NewFields().
		WithComponent(applog.ComponentWorker).
		WithOperation(applog.OpMaterialize).
		WithRun(summary.Templates, summary.Inserted, summary.Failed).
		WithDuration(time.Since(start)).
		WithError(err)
	if err != nil {
		slog.ErrorContext(ctx, "Recurring run failed", fields.Args()...)
		return summary, err
	}
	slog.InfoContext(ctx, "Recurring run complete", fields.Args()...)
	return summary, nil
}

// Start launches the ticker loop. It returns after the initial run, if any.
func (w *RecurringWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	slog.InfoContext(ctx, "Recurring worker started",
		"interval", w.interval,
		"run_on_start", w.runOnStart)

	if w.runOnStart {
		_, _ = w.RunOnce(ctx)
	}

	go w.loop(ctx, w.done)
	return nil
}

func (w *RecurringWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = w.RunOnce(ctx)
			slog.DebugContext(ctx, "Next recurring run scheduled",
				"next_check", w.now().Add(w.interval).Format("15:04:05"))
		}
	}
}

// Stop cancels the loop and waits for an in-flight run to finish or ctx to
// expire.
func (w *RecurringWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		slog.Info("Recurring worker stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
