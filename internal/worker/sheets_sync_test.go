package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairledger/internal/amqp"
)

type fakeExporter struct {
	households []string
	err        error
}

func (f *fakeExporter) ExportSheet(_ context.Context, householdID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.households = append(f.households, householdID)
	return "Ledger!A1:H10", nil
}

func TestSheetsSyncWorker_HandleEvent(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := base

	exp := &fakeExporter{}
	w := NewSheetsSyncWorker(exp, time.Minute)
	w.now = func() time.Time { return clock }
	ctx := context.Background()

	// first event exports
	require.NoError(t, w.HandleEvent(ctx, &amqp.LedgerEvent{Type: amqp.EventExpenseCreated, HouseholdID: "h1", Timestamp: base.Add(-time.Second)}))
	assert.Equal(t, []string{"h1"}, exp.households)

	// an event older than the export is already reflected
	clock = base.Add(10 * time.Second)
	require.NoError(t, w.HandleEvent(ctx, &amqp.LedgerEvent{Type: amqp.EventExpenseMaterialized, HouseholdID: "h1", Timestamp: base.Add(-500 * time.Millisecond)}))
	assert.Len(t, exp.households, 1)

	// a newer event exports again
	require.NoError(t, w.HandleEvent(ctx, &amqp.LedgerEvent{Type: amqp.EventExpenseDeleted, HouseholdID: "h1", Timestamp: base.Add(5 * time.Second)}))
	assert.Len(t, exp.households, 2)

	// other households are independent
	require.NoError(t, w.HandleEvent(ctx, &amqp.LedgerEvent{Type: amqp.EventSettlementRecorded, HouseholdID: "h2", Timestamp: base}))
	assert.Equal(t, []string{"h1", "h1", "h2"}, exp.households)
}

func TestSheetsSyncWorker_SkipsEventsWithoutHousehold(t *testing.T) {
	exp := &fakeExporter{}
	w := NewSheetsSyncWorker(exp, time.Minute)

	require.NoError(t, w.HandleEvent(context.Background(), &amqp.LedgerEvent{Type: amqp.EventExpenseCreated}))
	assert.Empty(t, exp.households)
}

func TestSheetsSyncWorker_ErrorRequeuesAndRetries(t *testing.T) {
	exp := &fakeExporter{err: errors.New("quota exceeded")}
	w := NewSheetsSyncWorker(exp, time.Minute)
	ev := &amqp.LedgerEvent{Type: amqp.EventExpenseCreated, HouseholdID: "h1", Timestamp: time.Now().Add(-time.Hour)}

	err := w.HandleEvent(context.Background(), ev)
	require.Error(t, err)
	assert.ErrorIs(t, err, exp.err)

	// a failed export is not remembered, so the redelivery exports
	exp.err = nil
	require.NoError(t, w.HandleEvent(context.Background(), ev))
	assert.Equal(t, []string{"h1"}, exp.households)
}
