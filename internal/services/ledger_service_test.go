package services

import (
	"context"
	"testing"

	"pairledger/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedHousehold builds Scenario A: incomes 3000/1000 from day 1 and a shared
// 100 expense paid by A on day 5.
func seedHousehold(t *testing.T) (*memStore, core.Household) {
	t.Helper()
	ctx := context.Background()
	store := newMemStore()
	h := core.Household{ID: "h1", MemberA: "alice", MemberB: "bob"}
	require.NoError(t, store.CreateHousehold(ctx, &h))

	for _, in := range []core.IncomeObservation{
		{HouseholdID: h.ID, Member: core.MemberA, Amount: core.Money{Cents: 300000}, EffectiveFrom: core.NewDate(2024, 1, 1)},
		{HouseholdID: h.ID, Member: core.MemberB, Amount: core.Money{Cents: 100000}, EffectiveFrom: core.NewDate(2024, 1, 1)},
	} {
		require.NoError(t, store.AddIncome(ctx, &in))
	}
	e := core.Expense{HouseholdID: h.ID, PaidBy: core.MemberA, Amount: core.Money{Cents: 10000},
		Date: core.NewDate(2024, 1, 5), SplitType: core.SplitShared, Description: "Groceries"}
	require.NoError(t, store.CreateExpense(ctx, &e))
	return store, h
}

func TestLedgerService_Balance(t *testing.T) {
	ctx := context.Background()
	store, h := seedHousehold(t)
	svc := NewLedgerService(store)

	ratio, err := svc.Ratio(ctx, h.ID, core.NewDate(2024, 1, 5))
	require.NoError(t, err)
	assert.Equal(t, "0.75", ratio.A.String())
	assert.Equal(t, "0.25", ratio.B.String())

	bal, err := svc.Balance(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "75.00", core.FormatAmount(bal.AFairShare))
	assert.Equal(t, "25.00", core.FormatAmount(bal.BFairShare))
	assert.Equal(t, "-25.00", core.FormatAmount(bal.NetBalance))

	// Scenario D
	require.NoError(t, store.CreateSettlement(ctx, &core.Settlement{HouseholdID: h.ID, From: core.MemberB, To: core.MemberA,
		Amount: core.Money{Cents: 2500}, Date: core.NewDate(2024, 1, 6)}))
	bal, err = svc.Balance(ctx, h.ID)
	require.NoError(t, err)
	assert.True(t, bal.NetBalance.IsZero())
	assert.Equal(t, int64(2500), bal.SettlementsTotal.Cents)
}

func TestLedgerService_RatioFollowsIncomeChanges(t *testing.T) {
	ctx := context.Background()
	store, h := seedHousehold(t)
	svc := NewLedgerService(store)

	require.NoError(t, store.AddIncome(ctx, &core.IncomeObservation{HouseholdID: h.ID, Member: core.MemberB,
		Amount: core.Money{Cents: 300000}, EffectiveFrom: core.NewDate(2024, 2, 1)}))

	before, err := svc.Ratio(ctx, h.ID, core.NewDate(2024, 1, 31))
	require.NoError(t, err)
	after, err := svc.Ratio(ctx, h.ID, core.NewDate(2024, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, "0.75", before.A.String())
	assert.Equal(t, "0.5", after.A.String())

	// the January expense keeps the January ratio
	attrs, err := svc.Attributions(ctx, h.ID, core.ExpenseFilter{})
	require.NoError(t, err)
	require.Len(t, attrs, 1)
	assert.Equal(t, "75", attrs[0].AAmount.String())
}

func TestLedgerService_Stats(t *testing.T) {
	ctx := context.Background()
	store, h := seedHousehold(t)
	svc := NewLedgerService(store)

	budget := core.Money{Cents: 5000}
	cat := core.Category{HouseholdID: h.ID, Name: "Transport", BudgetMonthly: &budget}
	require.NoError(t, store.CreateCategory(ctx, &cat))
	require.NoError(t, store.CreateExpense(ctx, &core.Expense{HouseholdID: h.ID, PaidBy: core.MemberB, Amount: core.Money{Cents: 6000},
		Date: core.NewDate(2024, 1, 20), SplitType: core.SplitEqual, Description: "Train", CategoryID: cat.ID}))
	require.NoError(t, store.CreateExpense(ctx, &core.Expense{HouseholdID: h.ID, PaidBy: core.MemberA, Amount: core.Money{Cents: 700},
		Date: core.NewDate(2024, 3, 2), SplitType: core.SplitPersonal, Description: "Book"}))

	sum, err := svc.MonthlySummary(ctx, h.ID, 2024, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(16000), sum.Total.Cents)
	assert.Equal(t, int64(6000), sum.EqualTotal.Cents)
	assert.Equal(t, int64(6000), sum.BPaid.Cents)

	_, err = svc.MonthlySummary(ctx, h.ID, 2024, 13)
	assert.ErrorIs(t, err, core.ErrInvalidMonth)

	spending, err := svc.CategorySpending(ctx, h.ID, 2024, 1)
	require.NoError(t, err)
	require.Len(t, spending, 2)
	assert.Equal(t, "Uncategorized", spending[0].Name)
	assert.Equal(t, "Transport", spending[1].Name)
	assert.True(t, spending[1].OverBudget)

	trends, err := svc.Trends(ctx, h.ID, 3, core.NewDate(2024, 3, 31))
	require.NoError(t, err)
	require.Len(t, trends, 3)
	assert.Equal(t, "2024-01", trends[0].Month)
	assert.Equal(t, int64(16000), trends[0].Total.Cents)
	assert.Zero(t, trends[1].Total.Cents)
	assert.Equal(t, int64(700), trends[2].Personal.Cents)
}
