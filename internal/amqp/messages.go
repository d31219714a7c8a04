package amqp

import (
	"encoding/json"
	"time"

	"pairledger/internal/core"
)

type EventType string

const (
	EventExpenseCreated      EventType = "expense.created"
	EventExpenseUpdated      EventType = "expense.updated"
	EventExpenseDeleted      EventType = "expense.deleted"
	EventExpenseMaterialized EventType = "expense.materialized"
	EventSettlementRecorded  EventType = "settlement.recorded"
)

// LedgerEvent announces a committed ledger change. It carries enough to
// route and display the change; consumers re-read the entity for details.
type LedgerEvent struct {
	Type        EventType `json:"type"`
	HouseholdID string    `json:"household_id"`
	EntityID    string    `json:"entity_id"`
	RecurringID string    `json:"recurring_id,omitempty"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	Date        string    `json:"date,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewExpenseEvent builds an event for an expense change.
func NewExpenseEvent(t EventType, e core.Expense) *LedgerEvent {
	return &LedgerEvent{
		Type:        t,
		HouseholdID: e.HouseholdID,
		EntityID:    e.ID,
		RecurringID: e.RecurringID,
		AmountCents: e.Amount.Cents,
		Date:        e.Date.String(),
		Timestamp:   time.Now(),
	}
}

func NewSettlementEvent(s core.Settlement) *LedgerEvent {
	return &LedgerEvent{
		Type:        EventSettlementRecorded,
		HouseholdID: s.HouseholdID,
		EntityID:    s.ID,
		AmountCents: s.Amount.Cents,
		Date:        s.Date.String(),
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
