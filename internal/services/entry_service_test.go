package services

import (
	"context"
	"strings"
	"testing"

	"pairledger/internal/amqp"
	"pairledger/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntryFixture(t *testing.T) (*EntryService, *memStore, *recordingPublisher, core.Household) {
	t.Helper()
	store := newMemStore()
	pub := &recordingPublisher{}
	svc := NewEntryService(store, pub)

	h, err := svc.CreateHousehold(context.Background(), "alice", "  Home  ")
	require.NoError(t, err)
	return svc, store, pub, h
}

func TestNewEntryService(t *testing.T) {
	service := NewEntryService(nil, nil)
	if service == nil {
		t.Fatal("NewEntryService should return a non-nil service")
	}
	if err := service.Close(); err != nil {
		t.Fatalf("Close should not return error with nil components: %v", err)
	}
}

func TestEntryService_HouseholdLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _, _, h := newEntryFixture(t)

	assert.Equal(t, "Home", h.Name)
	assert.Len(t, h.InviteCode, InviteCodeLength)
	assert.False(t, h.HasPartner())

	_, err := svc.CreateHousehold(ctx, "alice", "Second")
	assert.ErrorIs(t, err, core.ErrAlreadyMember)

	_, err = svc.JoinHousehold(ctx, "short", "bob")
	assert.ErrorIs(t, err, core.ErrInvalidInviteCode)

	code, err := svc.RegenerateInvite(ctx, h.ID)
	require.NoError(t, err)
	assert.NotEqual(t, h.InviteCode, code)

	joined, err := svc.JoinHousehold(ctx, strings.ToLower(" "+code+" "), "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", joined.MemberB)

	_, err = svc.RegenerateInvite(ctx, h.ID)
	assert.ErrorIs(t, err, core.ErrHouseholdFull)

	require.NoError(t, svc.RenameHousehold(ctx, h.ID, ""))
	renamed, err := svc.storage.GetHousehold(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultHouseholdName, renamed.Name)
	assert.Error(t, svc.RenameHousehold(ctx, h.ID, strings.Repeat("x", 201)))
}

func TestNewInviteCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := NewInviteCode()
		require.NoError(t, err)
		require.Len(t, code, InviteCodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(inviteAlphabet, r), "unexpected rune %q", r)
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestEntryService_PartnerRequired(t *testing.T) {
	ctx := context.Background()
	svc, _, pub, h := newEntryFixture(t)

	e := core.Expense{
		HouseholdID: h.ID, PaidBy: core.MemberB, Amount: core.Money{Cents: 100},
		Date: core.NewDate(2024, 1, 1), SplitType: core.SplitShared, Description: "Lunch",
	}
	assert.ErrorIs(t, svc.AddExpense(ctx, &e), core.ErrNoPartner)

	in := core.IncomeObservation{HouseholdID: h.ID, Member: core.MemberB, Amount: core.Money{Cents: 100}, EffectiveFrom: core.NewDate(2024, 1, 1)}
	assert.ErrorIs(t, svc.AddIncome(ctx, &in), core.ErrNoPartner)

	st := core.Settlement{HouseholdID: h.ID, From: core.MemberA, To: core.MemberB, Amount: core.Money{Cents: 100}, Date: core.NewDate(2024, 1, 1)}
	assert.ErrorIs(t, svc.RecordSettlement(ctx, &st), core.ErrNoPartner)

	assert.Empty(t, pub.types())
}

func TestEntryService_ExpenseEvents(t *testing.T) {
	ctx := context.Background()
	svc, store, pub, h := newEntryFixture(t)
	_, err := svc.JoinHousehold(ctx, h.InviteCode, "bob")
	require.NoError(t, err)

	e := core.Expense{
		HouseholdID: h.ID, PaidBy: core.MemberA, Amount: core.Money{Cents: 10000},
		Date: core.NewDate(2024, 1, 5), SplitType: core.SplitShared, Description: "Groceries",
		Tags: []string{"Food", "food "},
	}
	require.NoError(t, svc.AddExpense(ctx, &e))
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, []string{"food"}, e.Tags)

	e.Amount = core.Money{Cents: 12000}
	require.NoError(t, svc.UpdateExpense(ctx, e))

	st := core.Settlement{HouseholdID: h.ID, From: core.MemberB, To: core.MemberA, Amount: core.Money{Cents: 2500}, Date: core.NewDate(2024, 1, 6)}
	require.NoError(t, svc.RecordSettlement(ctx, &st))

	require.NoError(t, svc.DeleteExpense(ctx, h.ID, e.ID))
	assert.Zero(t, store.expenseCount())

	assert.Equal(t, []amqp.EventType{
		amqp.EventExpenseCreated,
		amqp.EventExpenseUpdated,
		amqp.EventSettlementRecorded,
		amqp.EventExpenseDeleted,
	}, pub.types())
	assert.Equal(t, int64(12000), pub.events[3].AmountCents)
}

func TestEntryService_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _, _, h := newEntryFixture(t)

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{
			name: "zero amount expense",
			run: func() error {
				return svc.AddExpense(ctx, &core.Expense{HouseholdID: h.ID, PaidBy: core.MemberA, Date: core.NewDate(2024, 1, 1),
					SplitType: core.SplitShared, Description: "x"})
			},
			want: core.ErrInvalidAmount,
		},
		{
			name: "unknown split type",
			run: func() error {
				return svc.AddExpense(ctx, &core.Expense{HouseholdID: h.ID, PaidBy: core.MemberA, Amount: core.Money{Cents: 1},
					Date: core.NewDate(2024, 1, 1), SplitType: "half", Description: "x"})
			},
			want: core.ErrInvalidSplitType,
		},
		{
			name: "self settlement",
			run: func() error {
				return svc.RecordSettlement(ctx, &core.Settlement{HouseholdID: h.ID, From: core.MemberA, To: core.MemberA,
					Amount: core.Money{Cents: 1}, Date: core.NewDate(2024, 1, 1)})
			},
			want: core.ErrSelfSettlement,
		},
		{
			name: "day of month on weekly template",
			run: func() error {
				return svc.AddTemplate(ctx, &core.RecurringTemplate{HouseholdID: h.ID, PaidBy: core.MemberA, Amount: core.Money{Cents: 1},
					Description: "x", SplitType: core.SplitShared, Frequency: core.Weekly, DayOfMonth: 3})
			},
			want: core.ErrInvalidDayOfMonth,
		},
		{
			name: "bad category color",
			run: func() error {
				return svc.AddCategory(ctx, &core.Category{HouseholdID: h.ID, Name: "Food", Color: "red"})
			},
			want: core.ErrInvalidColor,
		},
		{
			name: "negative income",
			run: func() error {
				return svc.AddIncome(ctx, &core.IncomeObservation{HouseholdID: h.ID, Member: core.MemberA,
					Amount: core.Money{Cents: -1}, EffectiveFrom: core.NewDate(2024, 1, 1)})
			},
			want: core.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.want)
		})
	}
}

func TestEntryService_Templates(t *testing.T) {
	ctx := context.Background()
	svc, store, _, h := newEntryFixture(t)

	tmpl := core.RecurringTemplate{
		HouseholdID: h.ID, PaidBy: core.MemberA, Amount: core.Money{Cents: 90000}, Description: "Rent",
		SplitType: core.SplitShared, Frequency: core.Monthly, StartDate: core.NewDate(2024, 1, 1),
	}
	require.NoError(t, svc.AddTemplate(ctx, &tmpl))
	assert.True(t, tmpl.Active)

	require.NoError(t, svc.PauseTemplate(ctx, h.ID, tmpl.ID))
	got, err := store.GetTemplate(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	require.NoError(t, svc.ResumeTemplate(ctx, h.ID, tmpl.ID))

	update := tmpl
	update.StartDate = core.Date{}
	update.Amount = core.Money{Cents: 95000}
	require.NoError(t, svc.UpdateTemplate(ctx, update))
	got, err = store.GetTemplate(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(95000), got.Amount.Cents)
	assert.Equal(t, "2024-01-01", got.StartDate.String(), "a missing start date keeps the anchor")

	require.NoError(t, svc.DeleteTemplate(ctx, h.ID, tmpl.ID))
	_, err = store.GetTemplate(ctx, tmpl.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
