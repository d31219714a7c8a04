package services

import (
	"context"
	"fmt"

	"pairledger/internal/core"
	"pairledger/internal/ledger"
)

// LedgerReader is the read side of the household store.
type LedgerReader interface {
	GetHousehold(ctx context.Context, id string) (core.Household, error)
	ListIncomes(ctx context.Context, householdID string) ([]core.IncomeObservation, error)
	ListCategories(ctx context.Context, householdID string) ([]core.Category, error)
	ListExpenses(ctx context.Context, householdID string, f core.ExpenseFilter) ([]core.Expense, error)
	ListSettlements(ctx context.Context, householdID string) ([]core.Settlement, error)
	// LedgerSnapshot reads the household, its incomes, all expenses and all
	// settlements as of a single point in time.
	LedgerSnapshot(ctx context.Context, householdID string) (core.LedgerSnapshot, error)
}

// LedgerService answers balance, ratio and reporting queries for a household.
// Every query reloads its inputs, so answers always reflect the current incomes.
type LedgerService struct {
	store LedgerReader
}

func NewLedgerService(store LedgerReader) *LedgerService {
	return &LedgerService{store: store}
}

func (s *LedgerService) snapshot(ctx context.Context, householdID string) (core.LedgerSnapshot, error) {
	snap, err := s.store.LedgerSnapshot(ctx, householdID)
	if err != nil {
		return core.LedgerSnapshot{}, fmt.Errorf("read ledger snapshot: %w", err)
	}
	return snap, nil
}

// Ratio returns the split ratio in force on date.
func (s *LedgerService) Ratio(ctx context.Context, householdID string, date core.Date) (core.SplitRatio, error) {
	h, err := s.store.GetHousehold(ctx, householdID)
	if err != nil {
		return core.SplitRatio{}, fmt.Errorf("get household: %w", err)
	}
	incomes, err := s.store.ListIncomes(ctx, householdID)
	if err != nil {
		return core.SplitRatio{}, fmt.Errorf("list incomes: %w", err)
	}
	return ledger.NewTimeline(h, incomes).RatioAt(date), nil
}

// Balance computes the household's current net position.
func (s *LedgerService) Balance(ctx context.Context, householdID string) (core.Balance, error) {
	snap, err := s.snapshot(ctx, householdID)
	if err != nil {
		return core.Balance{}, err
	}
	tl := ledger.NewTimeline(snap.Household, snap.Incomes)
	return ledger.BalanceFor(snap.Household, tl, snap.Expenses, snap.Settlements), nil
}

// Attributions lists the filtered expenses with their fair shares.
func (s *LedgerService) Attributions(ctx context.Context, householdID string, f core.ExpenseFilter) ([]ledger.Attribution, error) {
	h, err := s.store.GetHousehold(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	incomes, err := s.store.ListIncomes(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	expenses, err := s.store.ListExpenses(ctx, householdID, f)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	tl := ledger.NewTimeline(h, incomes)
	out := make([]ledger.Attribution, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, ledger.Attribute(tl, e))
	}
	return out, nil
}

func (s *LedgerService) MonthlySummary(ctx context.Context, householdID string, year, month int) (core.MonthlySummary, error) {
	if month < 1 || month > 12 {
		return core.MonthlySummary{}, core.ErrInvalidMonth
	}
	first := core.NewDate(year, month, 1)
	expenses, categories, err := s.expensesAndCategories(ctx, householdID, core.ExpenseFilter{
		From: first,
		To:   core.ClampedDate(year, first.Time.Month(), 31),
	})
	if err != nil {
		return core.MonthlySummary{}, err
	}
	return ledger.MonthlySummary(expenses, categories, year, month), nil
}

// CategorySpending rolls expenses up by category. year and month are optional (zero).
func (s *LedgerService) CategorySpending(ctx context.Context, householdID string, year, month int) ([]core.CategorySpending, error) {
	if month < 0 || month > 12 {
		return nil, core.ErrInvalidMonth
	}
	expenses, categories, err := s.expensesAndCategories(ctx, householdID, core.ExpenseFilter{})
	if err != nil {
		return nil, err
	}
	return ledger.CategorySpending(expenses, categories, year, month), nil
}

func (s *LedgerService) Trends(ctx context.Context, householdID string, months int, asOf core.Date) ([]core.MonthlyTrend, error) {
	expenses, err := s.store.ListExpenses(ctx, householdID, core.ExpenseFilter{To: asOf})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return ledger.Trends(expenses, months, asOf), nil
}

func (s *LedgerService) expensesAndCategories(ctx context.Context, householdID string, f core.ExpenseFilter) ([]core.Expense, []core.Category, error) {
	expenses, err := s.store.ListExpenses(ctx, householdID, f)
	if err != nil {
		return nil, nil, fmt.Errorf("list expenses: %w", err)
	}
	categories, err := s.store.ListCategories(ctx, householdID)
	if err != nil {
		return nil, nil, fmt.Errorf("list categories: %w", err)
	}
	return expenses, categories, nil
}
