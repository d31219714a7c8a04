package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pairledger/internal/amqp"
	"pairledger/internal/core"

	"github.com/google/uuid"
)

// memStore is an in-memory EntryStore with the same cursor semantics as the
// SQLite repository.
type memStore struct {
	mu          sync.Mutex
	households  map[string]core.Household
	incomes     []core.IncomeObservation
	categories  []core.Category
	expenses    []core.Expense
	settlements []core.Settlement
	templates   map[string]core.RecurringTemplate

	persistErr error
	persisted  int
}

func newMemStore() *memStore {
	return &memStore{
		households: map[string]core.Household{},
		templates:  map[string]core.RecurringTemplate{},
	}
}

func (s *memStore) CreateHousehold(_ context.Context, h *core.Household) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.Name == "" {
		h.Name = core.DefaultHouseholdName
	}
	s.households[h.ID] = *h
	return nil
}

func (s *memStore) GetHousehold(_ context.Context, id string) (core.Household, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.households[id]
	if !ok {
		return core.Household{}, fmt.Errorf("household %s: %w", id, core.ErrNotFound)
	}
	return h, nil
}

func (s *memStore) FindHouseholdByMember(_ context.Context, userID string) (core.Household, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.households {
		if h.MemberA == userID || h.MemberB == userID {
			return h, nil
		}
	}
	return core.Household{}, core.ErrNotFound
}

func (s *memStore) JoinHousehold(_ context.Context, code, userID string) (core.Household, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, h := range s.households {
		if h.InviteCode != code || code == "" {
			continue
		}
		if h.HasPartner() {
			return core.Household{}, core.ErrHouseholdFull
		}
		h.MemberB = userID
		h.InviteCode = ""
		s.households[id] = h
		return h, nil
	}
	return core.Household{}, core.ErrInvalidInviteCode
}

func (s *memStore) SetInviteCode(_ context.Context, householdID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.households[householdID]
	h.InviteCode = code
	s.households[householdID] = h
	return nil
}

func (s *memStore) RenameHousehold(_ context.Context, householdID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.households[householdID]
	if !ok {
		return core.ErrNotFound
	}
	h.Name = name
	s.households[householdID] = h
	return nil
}

func (s *memStore) AddIncome(_ context.Context, in *core.IncomeObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	s.incomes = append(s.incomes, *in)
	return nil
}

func (s *memStore) ListIncomes(_ context.Context, householdID string) ([]core.IncomeObservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.IncomeObservation
	for _, in := range s.incomes {
		if in.HouseholdID == householdID {
			out = append(out, in)
		}
	}
	return out, nil
}

func (s *memStore) DeleteIncome(_ context.Context, householdID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, in := range s.incomes {
		if in.ID == id && in.HouseholdID == householdID {
			s.incomes = append(s.incomes[:i], s.incomes[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *memStore) CreateCategory(_ context.Context, c *core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.categories = append(s.categories, *c)
	return nil
}

func (s *memStore) ListCategories(_ context.Context, householdID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.HouseholdID == householdID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) DeleteCategory(_ context.Context, householdID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.categories {
		if c.ID == id && c.HouseholdID == householdID {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *memStore) CreateExpense(_ context.Context, e *core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Tags = core.NormalizeTags(e.Tags)
	s.expenses = append(s.expenses, *e)
	return nil
}

func (s *memStore) UpdateExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.expenses {
		if cur.ID == e.ID && cur.HouseholdID == e.HouseholdID {
			s.expenses[i] = e
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *memStore) GetExpense(_ context.Context, householdID, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.expenses {
		if e.ID == id && e.HouseholdID == householdID {
			return e, nil
		}
	}
	return core.Expense{}, core.ErrNotFound
}

func (s *memStore) DeleteExpense(_ context.Context, householdID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.expenses {
		if e.ID == id && e.HouseholdID == householdID {
			s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *memStore) ListExpenses(_ context.Context, householdID string, f core.ExpenseFilter) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if e.HouseholdID == householdID && f.Matches(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *memStore) CreateSettlement(_ context.Context, st *core.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	s.settlements = append(s.settlements, *st)
	return nil
}

func (s *memStore) ListSettlements(_ context.Context, householdID string) ([]core.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Settlement
	for _, st := range s.settlements {
		if st.HouseholdID == householdID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *memStore) LedgerSnapshot(ctx context.Context, householdID string) (core.LedgerSnapshot, error) {
	h, err := s.GetHousehold(ctx, householdID)
	if err != nil {
		return core.LedgerSnapshot{}, err
	}
	incomes, _ := s.ListIncomes(ctx, householdID)
	expenses, _ := s.ListExpenses(ctx, householdID, core.ExpenseFilter{})
	settlements, _ := s.ListSettlements(ctx, householdID)
	return core.LedgerSnapshot{Household: h, Incomes: incomes, Expenses: expenses, Settlements: settlements}, nil
}

func (s *memStore) DeleteSettlement(_ context.Context, householdID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, st := range s.settlements {
		if st.ID == id && st.HouseholdID == householdID {
			s.settlements = append(s.settlements[:i], s.settlements[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *memStore) CreateTemplate(_ context.Context, t *core.RecurringTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	s.templates[t.ID] = *t
	return nil
}

func (s *memStore) GetTemplate(_ context.Context, id string) (core.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return core.RecurringTemplate{}, fmt.Errorf("recurring template %s: %w", id, core.ErrNotFound)
	}
	return t, nil
}

func (s *memStore) ListTemplates(_ context.Context, householdID string) ([]core.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RecurringTemplate
	for _, t := range s.templates {
		if t.HouseholdID == householdID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ListActiveTemplates(_ context.Context) ([]core.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RecurringTemplate
	for _, t := range s.templates {
		if t.Active {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) UpdateTemplate(_ context.Context, t core.RecurringTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.templates[t.ID]
	if !ok {
		return core.ErrNotFound
	}
	t.Active = cur.Active
	t.LastMaterializedThrough = cur.LastMaterializedThrough
	s.templates[t.ID] = t
	return nil
}

func (s *memStore) SetTemplateActive(_ context.Context, _ string, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return core.ErrNotFound
	}
	t.Active = active
	s.templates[id] = t
	return nil
}

func (s *memStore) DeleteTemplate(_ context.Context, _ string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.templates, id)
	return nil
}

func (s *memStore) MaterializeOccurrences(_ context.Context, templateID string, expected, through core.Date, expenses []core.Expense) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persistErr != nil {
		return 0, s.persistErr
	}
	t, ok := s.templates[templateID]
	if !ok || !t.Active || !t.LastMaterializedThrough.Equal(expected) {
		return 0, core.ErrStaleCursor
	}

	existing := make(map[string]bool, len(s.expenses))
	for _, e := range s.expenses {
		existing[e.ID] = true
	}
	inserted := 0
	for _, e := range expenses {
		if existing[e.ID] {
			continue
		}
		s.expenses = append(s.expenses, e)
		existing[e.ID] = true
		inserted++
	}
	t.LastMaterializedThrough = through
	s.templates[templateID] = t
	s.persisted++
	return inserted, nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) expenseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expenses)
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}
