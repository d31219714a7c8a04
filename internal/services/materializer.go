package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pairledger/internal/amqp"
	"pairledger/internal/core"
	applog "pairledger/internal/log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultConcurrency bounds how many templates materialize at once.
	DefaultConcurrency = 4
	maxStaleRetries    = 3
)

// occurrenceNamespace seeds the deterministic id of a materialized expense.
var occurrenceNamespace = uuid.MustParse("6f1c7b52-3d8e-4a0b-9a5e-2f7d1c4e8b90")

// TemplateStore is the persistence the materializer needs.
type TemplateStore interface {
	ListActiveTemplates(ctx context.Context) ([]core.RecurringTemplate, error)
	GetTemplate(ctx context.Context, id string) (core.RecurringTemplate, error)
	// MaterializeOccurrences moves the cursor from expected to through and
	// inserts expenses atomically, or returns core.ErrStaleCursor.
	MaterializeOccurrences(ctx context.Context, templateID string, expected, through core.Date, expenses []core.Expense) (int, error)
}

// EventPublisher announces committed ledger changes.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// TemplateResult reports one template's materialization.
type TemplateResult struct {
	TemplateID string
	Inserted   int
	Through    core.Date // cursor after the run; zero if nothing was due
}

// RunSummary aggregates a pass over all active templates.
type RunSummary struct {
	Templates int
	Inserted  int
	Failed    int
}

// ExpenseID is the stable identity of a template's occurrence on date.
// Retried inserts of the same occurrence collide on it.
func ExpenseID(templateID string, date core.Date) string {
	return uuid.NewSHA1(occurrenceNamespace, []byte(templateID+"|"+date.String())).String()
}

// Plan computes the expenses a template owes up to asOf and the cursor value
// that covers them. It has no side effects.
func Plan(t core.RecurringTemplate, asOf core.Date) ([]core.Expense, core.Date, error) {
	dates, err := Occurrences(t, asOf)
	if err != nil {
		return nil, core.Date{}, err
	}
	if len(dates) == 0 {
		return nil, core.Date{}, nil
	}

	expenses := make([]core.Expense, 0, len(dates))
	for _, d := range dates {
		expenses = append(expenses, core.Expense{
			ID:          ExpenseID(t.ID, d),
			HouseholdID: t.HouseholdID,
			PaidBy:      t.PaidBy,
			Amount:      t.Amount,
			Date:        d,
			SplitType:   t.SplitType,
			Description: t.Description,
			CategoryID:  t.CategoryID,
			RecurringID: t.ID,
		})
	}
	return expenses, dates[len(dates)-1], nil
}

// Materializer turns due template occurrences into expenses.
type Materializer struct {
	store       TemplateStore
	publisher   EventPublisher
	metrics     *Metrics
	concurrency int
	group       singleflight.Group
}

// NewMaterializer creates a materializer. publisher and metrics may be nil.
func NewMaterializer(store TemplateStore, publisher EventPublisher, metrics *Metrics, concurrency int) *Materializer {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Materializer{
		store:       store,
		publisher:   publisher,
		metrics:     metrics,
		concurrency: concurrency,
	}
}

// Run materializes every active template up to asOf. A failing template is
// logged and counted, the others still run. Only failing to list templates is
// returned as an error.
func (m *Materializer) Run(ctx context.Context, asOf core.Date) (RunSummary, error) {
	if m.store == nil {
		return RunSummary{}, fmt.Errorf("materializer not properly initialized")
	}

	templates, err := m.store.ListActiveTemplates(ctx)
	if err != nil {
		return RunSummary{}, fmt.Errorf("list active templates: %w", err)
	}
	m.metrics.Runs.Inc()

	slog.InfoContext(ctx, "Processing recurring templates",
		"total_active", len(templates),
		"as_of", asOf.String())

	var (
		mu      sync.Mutex
		summary = RunSummary{Templates: len(templates)}
		g       errgroup.Group
	)
	g.SetLimit(m.concurrency)

	for _, t := range templates {
		g.Go(func() error {
			res, err := m.MaterializeTemplate(ctx, t.ID, asOf)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				slog.ErrorContext(ctx, "Failed to materialize recurring template",
					applog.FieldComponent, applog.ComponentMaterializer,
					applog.FieldTemplate, t.ID,
					"description", t.Description,
					applog.FieldError, err)
				return nil
			}
			summary.Inserted += res.Inserted
			return nil
		})
	}
	_ = g.Wait()

	slog.InfoContext(ctx, "Recurring materialization complete",
		applog.FieldComponent, applog.ComponentMaterializer,
		applog.FieldInserted, summary.Inserted,
		applog.FieldFailed, summary.Failed,
		"total_checked", summary.Templates)
	return summary, nil
}

// MaterializeTemplate brings one template up to date. Concurrent calls for the
// same template and date share one execution; calls from other processes are
// resolved by the store's cursor check, retrying on a stale cursor.
func (m *Materializer) MaterializeTemplate(ctx context.Context, templateID string, asOf core.Date) (TemplateResult, error) {
	v, err, _ := m.group.Do(templateID+"@"+asOf.String(), func() (any, error) {
		start := time.Now()
		defer func() { m.metrics.TemplateRunDur.Observe(time.Since(start).Seconds()) }()
		return m.materialize(ctx, templateID, asOf)
	})
	if err != nil {
		m.metrics.Failures.Inc()
		return TemplateResult{TemplateID: templateID}, err
	}
	return v.(TemplateResult), nil
}

func (m *Materializer) materialize(ctx context.Context, templateID string, asOf core.Date) (TemplateResult, error) {
	res := TemplateResult{TemplateID: templateID}

	for attempt := 0; attempt < maxStaleRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		t, err := m.store.GetTemplate(ctx, templateID)
		if err != nil {
			return res, fmt.Errorf("get template: %w", err)
		}
		res.Through = t.LastMaterializedThrough

		expenses, through, err := Plan(t, asOf)
		if err != nil {
			return res, err
		}
		if len(expenses) == 0 {
			return res, nil
		}

		inserted, err := m.store.MaterializeOccurrences(ctx, t.ID, t.LastMaterializedThrough, through, expenses)
		if errors.Is(err, core.ErrStaleCursor) {
			m.metrics.StaleCursors.Inc()
			slog.WarnContext(ctx, "Template cursor moved, re-reading",
				applog.FieldComponent, applog.ComponentMaterializer,
				applog.FieldTemplate, t.ID,
				"attempt", attempt+1)
			continue
		}
		if err != nil {
			return res, fmt.Errorf("persist occurrences: %w", err)
		}

		m.metrics.Emitted.Add(float64(inserted))
		res.Inserted = inserted
		res.Through = through

		slog.InfoContext(ctx, "Created expenses from recurring template",
			applog.FieldComponent, applog.ComponentMaterializer,
			applog.FieldTemplate, t.ID,
			"description", t.Description,
			"occurrences", len(expenses),
			applog.FieldInserted, inserted,
			applog.FieldThrough, through.String(),
			"frequency", t.Frequency)

		for _, e := range expenses {
			m.publish(ctx, amqp.NewExpenseEvent(amqp.EventExpenseMaterialized, e))
		}
		return res, nil
	}
	return res, fmt.Errorf("template %s after %d attempts: %w", templateID, maxStaleRetries, core.ErrStaleCursor)
}

func (m *Materializer) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if m.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping event", "type", ev.Type)
		return
	}
	if err := m.publisher.PublishEvent(ctx, ev); err != nil {
		// the expense is committed; the event is best effort
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", ev.Type,
			"entity_id", ev.EntityID,
			"error", err)
	}
}
