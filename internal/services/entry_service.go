package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"pairledger/internal/amqp"
	"pairledger/internal/core"
)

const (
	// InviteCodeLength is the number of characters in an invite code.
	InviteCodeLength = 8
	// no 0/O, 1/I/L
	inviteAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

// EntryStore is the write side of the household store.
type EntryStore interface {
	LedgerReader

	CreateHousehold(ctx context.Context, h *core.Household) error
	FindHouseholdByMember(ctx context.Context, userID string) (core.Household, error)
	JoinHousehold(ctx context.Context, inviteCode, userID string) (core.Household, error)
	SetInviteCode(ctx context.Context, householdID, code string) error
	RenameHousehold(ctx context.Context, householdID, name string) error

	AddIncome(ctx context.Context, in *core.IncomeObservation) error
	DeleteIncome(ctx context.Context, householdID, id string) error

	CreateCategory(ctx context.Context, c *core.Category) error
	DeleteCategory(ctx context.Context, householdID, id string) error

	CreateExpense(ctx context.Context, e *core.Expense) error
	UpdateExpense(ctx context.Context, e core.Expense) error
	GetExpense(ctx context.Context, householdID, id string) (core.Expense, error)
	DeleteExpense(ctx context.Context, householdID, id string) error

	CreateSettlement(ctx context.Context, s *core.Settlement) error
	DeleteSettlement(ctx context.Context, householdID, id string) error

	CreateTemplate(ctx context.Context, t *core.RecurringTemplate) error
	GetTemplate(ctx context.Context, id string) (core.RecurringTemplate, error)
	ListTemplates(ctx context.Context, householdID string) ([]core.RecurringTemplate, error)
	UpdateTemplate(ctx context.Context, t core.RecurringTemplate) error
	SetTemplateActive(ctx context.Context, householdID, id string, active bool) error
	DeleteTemplate(ctx context.Context, householdID, id string) error

	Close() error
}

// EntryService validates ledger writes, persists them and announces them
// over AMQP once committed.
type EntryService struct {
	storage   EntryStore
	publisher EventPublisher
}

// NewEntryService creates an entry service. publisher may be nil.
func NewEntryService(storage EntryStore, publisher EventPublisher) *EntryService {
	return &EntryService{
		storage:   storage,
		publisher: publisher,
	}
}

// CreateHousehold starts a household with userID as member A and a fresh
// invite code for the partner.
func (s *EntryService) CreateHousehold(ctx context.Context, userID, name string) (core.Household, error) {
	if err := s.ensureUnaffiliated(ctx, userID); err != nil {
		return core.Household{}, err
	}
	code, err := NewInviteCode()
	if err != nil {
		return core.Household{}, err
	}

	h := core.Household{Name: strings.TrimSpace(name), MemberA: userID, InviteCode: code}
	if err := h.Validate(); err != nil {
		return core.Household{}, err
	}
	if err := s.storage.CreateHousehold(ctx, &h); err != nil {
		return core.Household{}, fmt.Errorf("save household: %w", err)
	}
	return h, nil
}

// JoinHousehold makes userID member B of the household holding code.
func (s *EntryService) JoinHousehold(ctx context.Context, code, userID string) (core.Household, error) {
	if strings.TrimSpace(userID) == "" {
		return core.Household{}, core.ErrNotMember
	}
	code = NormalizeInviteCode(code)
	if len(code) != InviteCodeLength {
		return core.Household{}, core.ErrInvalidInviteCode
	}
	if err := s.ensureUnaffiliated(ctx, userID); err != nil {
		return core.Household{}, err
	}
	return s.storage.JoinHousehold(ctx, code, userID)
}

// RegenerateInvite replaces the invite code of a household still waiting for
// its partner.
func (s *EntryService) RegenerateInvite(ctx context.Context, householdID string) (string, error) {
	h, err := s.storage.GetHousehold(ctx, householdID)
	if err != nil {
		return "", err
	}
	if h.HasPartner() {
		return "", core.ErrHouseholdFull
	}
	code, err := NewInviteCode()
	if err != nil {
		return "", err
	}
	if err := s.storage.SetInviteCode(ctx, householdID, code); err != nil {
		return "", err
	}
	return code, nil
}

func (s *EntryService) RenameHousehold(ctx context.Context, householdID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		name = core.DefaultHouseholdName
	}
	if err := core.ValidateHouseholdName(name); err != nil {
		return err
	}
	return s.storage.RenameHousehold(ctx, householdID, name)
}

func (s *EntryService) ensureUnaffiliated(ctx context.Context, userID string) error {
	_, err := s.storage.FindHouseholdByMember(ctx, userID)
	switch {
	case err == nil:
		return core.ErrAlreadyMember
	case errors.Is(err, core.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("find household: %w", err)
	}
}

// AddIncome records an income observation. Incomes for B require a partner.
func (s *EntryService) AddIncome(ctx context.Context, in *core.IncomeObservation) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if _, err := s.householdWith(ctx, in.HouseholdID, in.Member); err != nil {
		return err
	}
	return s.storage.AddIncome(ctx, in)
}

func (s *EntryService) DeleteIncome(ctx context.Context, householdID, id string) error {
	return s.storage.DeleteIncome(ctx, householdID, id)
}

func (s *EntryService) AddCategory(ctx context.Context, c *core.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return err
	}
	return s.storage.CreateCategory(ctx, c)
}

func (s *EntryService) DeleteCategory(ctx context.Context, householdID, id string) error {
	return s.storage.DeleteCategory(ctx, householdID, id)
}

// AddExpense saves an expense and publishes expense.created.
func (s *EntryService) AddExpense(ctx context.Context, e *core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, err := s.householdWith(ctx, e.HouseholdID, e.PaidBy); err != nil {
		return err
	}
	if err := s.storage.CreateExpense(ctx, e); err != nil {
		return fmt.Errorf("save expense: %w", err)
	}

	s.publish(ctx, amqp.NewExpenseEvent(amqp.EventExpenseCreated, *e))
	return nil
}

func (s *EntryService) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, err := s.householdWith(ctx, e.HouseholdID, e.PaidBy); err != nil {
		return err
	}
	if err := s.storage.UpdateExpense(ctx, e); err != nil {
		return err
	}

	s.publish(ctx, amqp.NewExpenseEvent(amqp.EventExpenseUpdated, e))
	return nil
}

// DeleteExpense removes an expense and publishes expense.deleted.
func (s *EntryService) DeleteExpense(ctx context.Context, householdID, id string) error {
	e, err := s.storage.GetExpense(ctx, householdID, id)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteExpense(ctx, householdID, id); err != nil {
		return err
	}

	s.publish(ctx, amqp.NewExpenseEvent(amqp.EventExpenseDeleted, e))
	return nil
}

// RecordSettlement saves a transfer between the two members.
func (s *EntryService) RecordSettlement(ctx context.Context, st *core.Settlement) error {
	if err := st.Validate(); err != nil {
		return err
	}
	h, err := s.storage.GetHousehold(ctx, st.HouseholdID)
	if err != nil {
		return fmt.Errorf("get household: %w", err)
	}
	if !h.HasPartner() {
		return core.ErrNoPartner
	}
	if err := s.storage.CreateSettlement(ctx, st); err != nil {
		return fmt.Errorf("save settlement: %w", err)
	}

	s.publish(ctx, amqp.NewSettlementEvent(*st))
	return nil
}

func (s *EntryService) DeleteSettlement(ctx context.Context, householdID, id string) error {
	return s.storage.DeleteSettlement(ctx, householdID, id)
}

// AddTemplate creates an active recurring template.
func (s *EntryService) AddTemplate(ctx context.Context, t *core.RecurringTemplate) error {
	t.Active = true
	if err := t.Validate(); err != nil {
		return err
	}
	if _, err := s.householdWith(ctx, t.HouseholdID, t.PaidBy); err != nil {
		return err
	}
	return s.storage.CreateTemplate(ctx, t)
}

// UpdateTemplate changes a template's definition; its cursor is kept.
func (s *EntryService) UpdateTemplate(ctx context.Context, t core.RecurringTemplate) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, err := s.householdWith(ctx, t.HouseholdID, t.PaidBy); err != nil {
		return err
	}
	if t.StartDate.IsZero() {
		current, err := s.storage.GetTemplate(ctx, t.ID)
		if err != nil {
			return err
		}
		t.StartDate = current.Anchor()
	}
	return s.storage.UpdateTemplate(ctx, t)
}

// PauseTemplate stops materialization, keeping the cursor.
func (s *EntryService) PauseTemplate(ctx context.Context, householdID, id string) error {
	return s.storage.SetTemplateActive(ctx, householdID, id, false)
}

// ResumeTemplate restarts materialization. Occurrences missed while paused
// are caught up on the next run.
func (s *EntryService) ResumeTemplate(ctx context.Context, householdID, id string) error {
	return s.storage.SetTemplateActive(ctx, householdID, id, true)
}

func (s *EntryService) DeleteTemplate(ctx context.Context, householdID, id string) error {
	return s.storage.DeleteTemplate(ctx, householdID, id)
}

// householdWith loads the household and checks the role is filled.
func (s *EntryService) householdWith(ctx context.Context, householdID string, m core.Member) (core.Household, error) {
	h, err := s.storage.GetHousehold(ctx, householdID)
	if err != nil {
		return core.Household{}, fmt.Errorf("get household: %w", err)
	}
	if !h.Present(m) {
		return core.Household{}, core.ErrNoPartner
	}
	return h, nil
}

func (s *EntryService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping event", "type", ev.Type)
		return
	}
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		// Don't fail the request - the entry is saved locally
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", ev.Type,
			"entity_id", ev.EntityID,
			"error", err)
	}
}

// Close closes storage and, when it owns a connection, the publisher.
func (s *EntryService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close entry service: %w", errors.Join(errs...))
	}
	return nil
}

// NewInviteCode returns a random code over an alphabet without look-alike characters.
func NewInviteCode() (string, error) {
	var b strings.Builder
	size := big.NewInt(int64(len(inviteAlphabet)))
	for range InviteCodeLength {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		b.WriteByte(inviteAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeInviteCode trims and upper-cases user input.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
