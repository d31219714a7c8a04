package ledger

import (
	"fmt"
	"math/rand"
	"testing"

	"pairledger/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var couple = core.Household{ID: "h1", MemberA: "user-a", MemberB: "user-b"}

func income(m core.Member, amount string, from core.Date) core.IncomeObservation {
	cents, err := core.ParseIncomeCents(amount)
	if err != nil {
		panic(err)
	}
	return core.IncomeObservation{Member: m, Amount: core.Money{Cents: cents}, EffectiveFrom: from}
}

func expense(paidBy core.Member, cents int64, date core.Date, split core.SplitType) core.Expense {
	return core.Expense{PaidBy: paidBy, Amount: core.Money{Cents: cents}, Date: date, SplitType: split, Description: "x"}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(d int) core.Date { return core.NewDate(2025, 1, d) }

func scenarioTimeline() *Timeline {
	return NewTimeline(couple, []core.IncomeObservation{
		income(core.MemberA, "3000", day(1)),
		income(core.MemberB, "1000", day(1)),
	})
}

func TestRatioAt(t *testing.T) {
	t.Run("income proportional", func(t *testing.T) {
		r := scenarioTimeline().RatioAt(day(5))
		assert.True(t, r.A.Equal(dec("0.75")), "a_ratio = %s", r.A)
		assert.True(t, r.B.Equal(dec("0.25")), "b_ratio = %s", r.B)
	})

	t.Run("before any observation falls back to equal", func(t *testing.T) {
		tl := NewTimeline(couple, []core.IncomeObservation{income(core.MemberA, "3000", day(10))})
		r := tl.RatioAt(day(5))
		assert.True(t, r.A.Equal(half))
		assert.True(t, r.B.Equal(half))
	})

	t.Run("one member without income", func(t *testing.T) {
		tl := NewTimeline(couple, []core.IncomeObservation{income(core.MemberA, "3000", day(1))})
		r := tl.RatioAt(day(5))
		assert.True(t, r.A.Equal(one))
		assert.True(t, r.B.IsZero())
	})

	t.Run("both zero", func(t *testing.T) {
		tl := NewTimeline(couple, []core.IncomeObservation{
			income(core.MemberA, "0", day(1)),
			income(core.MemberB, "0", day(1)),
		})
		r := tl.RatioAt(day(5))
		assert.True(t, r.A.Equal(half))
		assert.True(t, r.B.Equal(half))
	})

	t.Run("no partner", func(t *testing.T) {
		solo := core.Household{ID: "h2", MemberA: "user-a"}
		tl := NewTimeline(solo, []core.IncomeObservation{
			income(core.MemberA, "0", day(1)),
			income(core.MemberB, "5000", day(1)),
		})
		r := tl.RatioAt(day(5))
		assert.True(t, r.A.Equal(one))
		assert.True(t, r.B.IsZero())
		assert.Zero(t, r.BIncome.Cents)
	})

	t.Run("latest effective observation wins", func(t *testing.T) {
		tl := NewTimeline(couple, []core.IncomeObservation{
			income(core.MemberA, "2000", core.NewDate(2025, 3, 1)),
			income(core.MemberA, "1000", day(1)),
			income(core.MemberB, "1000", day(1)),
		})
		assert.True(t, tl.RatioAt(core.NewDate(2025, 2, 28)).A.Equal(half))
		assert.True(t, tl.RatioAt(core.NewDate(2025, 3, 1)).A.Equal(dec("2").Div(dec("3"))))
	})

	t.Run("same effective date resolved by insertion order", func(t *testing.T) {
		tl := NewTimeline(couple, []core.IncomeObservation{
			income(core.MemberA, "1000", day(1)),
			income(core.MemberA, "3000", day(1)),
			income(core.MemberB, "1000", day(1)),
		})
		assert.Equal(t, int64(300000), tl.IncomeAt(core.MemberA, day(2)).Cents)
	})

	t.Run("ratios sum to one", func(t *testing.T) {
		tl := NewTimeline(couple, []core.IncomeObservation{
			income(core.MemberA, "1000", day(1)),
			income(core.MemberB, "2000", day(1)),
		})
		r := tl.RatioAt(day(2))
		assert.True(t, r.A.Add(r.B).Equal(one))
	})
}

func TestSharesFor(t *testing.T) {
	ratio := core.SplitRatio{A: dec("0.75"), B: dec("0.25")}
	cases := []struct {
		name  string
		e     core.Expense
		wantA string
		wantB string
	}{
		{"shared follows ratio", expense(core.MemberB, 100, day(1), core.SplitShared), "0.75", "0.25"},
		{"equal ignores ratio", expense(core.MemberA, 100, day(1), core.SplitEqual), "0.5", "0.5"},
		{"personal paid by A", expense(core.MemberA, 100, day(1), core.SplitPersonal), "1", "0"},
		{"personal paid by B", expense(core.MemberB, 100, day(1), core.SplitPersonal), "0", "1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, b := SharesFor(tc.e, ratio)
			assert.True(t, a.Equal(dec(tc.wantA)), "a = %s", a)
			assert.True(t, b.Equal(dec(tc.wantB)), "b = %s", b)
		})
	}

	assert.Panics(t, func() {
		SharesFor(expense(core.MemberA, 100, day(1), "half"), ratio)
	})
}

func TestBalanceScenarios(t *testing.T) {
	tl := scenarioTimeline()

	t.Run("A: shared expense", func(t *testing.T) {
		bal := BalanceFor(couple, tl, []core.Expense{expense(core.MemberA, 10000, day(5), core.SplitShared)}, nil)
		assert.Equal(t, int64(10000), bal.APaid.Cents)
		assert.True(t, bal.AFairShare.Equal(dec("75")), "a fair %s", bal.AFairShare)
		assert.True(t, bal.BFairShare.Equal(dec("25")), "b fair %s", bal.BFairShare)
		assert.True(t, bal.NetBalance.Equal(dec("-25")), "net %s", bal.NetBalance)
	})

	t.Run("B: equal expense", func(t *testing.T) {
		bal := BalanceFor(couple, tl, []core.Expense{expense(core.MemberA, 10000, day(5), core.SplitEqual)}, nil)
		assert.True(t, bal.NetBalance.Equal(dec("-50")), "net %s", bal.NetBalance)
	})

	t.Run("C: personal expense", func(t *testing.T) {
		bal := BalanceFor(couple, tl, []core.Expense{expense(core.MemberA, 10000, day(5), core.SplitPersonal)}, nil)
		assert.True(t, bal.NetBalance.IsZero(), "net %s", bal.NetBalance)
		assert.True(t, bal.AFairShare.Equal(dec("100")))
	})

	t.Run("D: settled by B", func(t *testing.T) {
		bal := BalanceFor(couple, tl,
			[]core.Expense{expense(core.MemberA, 10000, day(5), core.SplitShared)},
			[]core.Settlement{{From: core.MemberB, To: core.MemberA, Amount: core.Money{Cents: 2500}, Date: day(6)}},
		)
		assert.True(t, bal.NetBalance.IsZero(), "net %s", bal.NetBalance)
		assert.Equal(t, int64(2500), bal.SettlementsTotal.Cents)
		assert.True(t, Settled(bal, dec("0.01")))
	})

	t.Run("settlement volume counts both directions", func(t *testing.T) {
		bal := BalanceFor(couple, tl, nil, []core.Settlement{
			{From: core.MemberA, To: core.MemberB, Amount: core.Money{Cents: 1000}},
			{From: core.MemberB, To: core.MemberA, Amount: core.Money{Cents: 400}},
		})
		assert.Equal(t, int64(1400), bal.SettlementsTotal.Cents)
		// A paid B 10, B paid A 4: A over-settled by 6, so B owes A.
		assert.True(t, bal.NetBalance.Equal(dec("-6")), "net %s", bal.NetBalance)
	})
}

func TestBalanceUsesRatioAtExpenseDate(t *testing.T) {
	tl := NewTimeline(couple, []core.IncomeObservation{
		income(core.MemberA, "1000", day(1)),
		income(core.MemberB, "1000", day(1)),
		income(core.MemberA, "3000", core.NewDate(2025, 2, 1)),
	})
	expenses := []core.Expense{
		expense(core.MemberB, 10000, day(15), core.SplitShared),                   // 50/50
		expense(core.MemberB, 10000, core.NewDate(2025, 2, 15), core.SplitShared), // 75/25
	}
	bal := BalanceFor(couple, tl, expenses, nil)
	assert.True(t, bal.AFairShare.Equal(dec("125")), "a fair %s", bal.AFairShare)
	assert.True(t, bal.NetBalance.Equal(dec("125")), "net %s", bal.NetBalance)
}

func TestBalanceWithoutPartner(t *testing.T) {
	solo := core.Household{ID: "h2", MemberA: "user-a"}
	tl := NewTimeline(solo, nil)
	bal := BalanceFor(solo, tl, []core.Expense{
		expense(core.MemberA, 4200, day(3), core.SplitShared),
		expense(core.MemberA, 800, day(4), core.SplitEqual),
	}, nil)
	assert.Equal(t, int64(5000), bal.APaid.Cents)
	assert.True(t, bal.AFairShare.Equal(dec("46")), "a fair %s", bal.AFairShare)
	assert.True(t, bal.NetBalance.IsZero())
}

func randomLedger(rng *rand.Rand) ([]core.IncomeObservation, []core.Expense, []core.Settlement) {
	members := []core.Member{core.MemberA, core.MemberB}
	splits := []core.SplitType{core.SplitShared, core.SplitEqual, core.SplitPersonal}

	var incomes []core.IncomeObservation
	for i := 0; i < 1+rng.Intn(6); i++ {
		incomes = append(incomes, core.IncomeObservation{
			Member:        members[rng.Intn(2)],
			Amount:        core.Money{Cents: int64(rng.Intn(900000))},
			EffectiveFrom: core.NewDate(2024, 1+rng.Intn(12), 1+rng.Intn(28)),
		})
	}
	var expenses []core.Expense
	for i := 0; i < rng.Intn(40); i++ {
		expenses = append(expenses, expense(
			members[rng.Intn(2)],
			1+int64(rng.Intn(100000)),
			core.NewDate(2024, 1+rng.Intn(12), 1+rng.Intn(28)),
			splits[rng.Intn(3)],
		))
	}
	var settlements []core.Settlement
	for i := 0; i < rng.Intn(5); i++ {
		from := members[rng.Intn(2)]
		settlements = append(settlements, core.Settlement{
			From: from, To: from.Other(),
			Amount: core.Money{Cents: 1 + int64(rng.Intn(50000))},
			Date:   core.NewDate(2024, 1+rng.Intn(12), 1+rng.Intn(28)),
		})
	}
	return incomes, expenses, settlements
}

func swapRoles(incomes []core.IncomeObservation, expenses []core.Expense, settlements []core.Settlement) ([]core.IncomeObservation, []core.Expense, []core.Settlement) {
	si := make([]core.IncomeObservation, len(incomes))
	for i, o := range incomes {
		o.Member = o.Member.Other()
		si[i] = o
	}
	se := make([]core.Expense, len(expenses))
	for i, e := range expenses {
		e.PaidBy = e.PaidBy.Other()
		se[i] = e
	}
	ss := make([]core.Settlement, len(settlements))
	for i, s := range settlements {
		s.From, s.To = s.To, s.From
		ss[i] = s
	}
	return si, se, ss
}

func TestBalanceProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	epsilon := dec("0.000000001")

	for i := 0; i < 200; i++ {
		incomes, expenses, settlements := randomLedger(rng)
		t.Run(fmt.Sprintf("ledger_%d", i), func(t *testing.T) {
			tl := NewTimeline(couple, incomes)

			var total int64
			for _, e := range expenses {
				total += e.Amount.Cents
				a, b := SharesFor(e, tl.RatioAt(e.Date))
				require.True(t, a.Add(b).Sub(one).Abs().LessThan(epsilon), "shares %s + %s", a, b)
			}

			bal := BalanceFor(couple, tl, expenses, settlements)
			require.True(t, bal.AFairShare.Add(bal.BFairShare).Equal(core.Money{Cents: total}.Decimal()),
				"fair shares %s + %s != %d cents", bal.AFairShare, bal.BFairShare, total)

			si, se, ss := swapRoles(incomes, expenses, settlements)
			swapped := BalanceFor(couple, NewTimeline(couple, si), se, ss)
			require.True(t, bal.NetBalance.Add(swapped.NetBalance).Abs().LessThan(epsilon),
				"net %s should negate %s", bal.NetBalance, swapped.NetBalance)
		})
	}
}

func TestMonthlySummary(t *testing.T) {
	budget := core.Money{Cents: 20000}
	categories := []core.Category{
		{ID: "c-food", Name: "Food", BudgetMonthly: &budget},
		{ID: "c-home", Name: "Home"},
	}
	food := expense(core.MemberA, 15000, day(3), core.SplitShared)
	food.CategoryID = "c-food"
	rent := expense(core.MemberB, 90000, day(1), core.SplitEqual)
	rent.CategoryID = "c-home"
	misc := expense(core.MemberB, 2000, day(9), core.SplitPersonal)
	other := expense(core.MemberA, 7000, core.NewDate(2025, 2, 1), core.SplitShared)

	sum := MonthlySummary([]core.Expense{food, rent, misc, other}, categories, 2025, 1)
	assert.Equal(t, int64(107000), sum.Total.Cents)
	assert.Equal(t, int64(15000), sum.SharedTotal.Cents)
	assert.Equal(t, int64(90000), sum.EqualTotal.Cents)
	assert.Equal(t, int64(2000), sum.PersonalTotal.Cents)
	assert.Equal(t, int64(15000), sum.APaid.Cents)
	assert.Equal(t, int64(92000), sum.BPaid.Cents)
	require.Len(t, sum.ByCategory, 3)
	assert.Equal(t, "Home", sum.ByCategory[0].Name)
	assert.Equal(t, "Food", sum.ByCategory[1].Name)
	assert.Equal(t, UncategorizedName, sum.ByCategory[2].Name)

	spending := CategorySpending([]core.Expense{food, food, rent, other}, categories, 2025, 1)
	require.Len(t, spending, 2)
	assert.Equal(t, "Home", spending[0].Name)
	assert.Equal(t, 2, spending[1].Count)
	require.NotNil(t, spending[1].Budget)
	assert.True(t, spending[1].OverBudget)

	allTime := CategorySpending([]core.Expense{food, food, rent, other}, categories, 0, 0)
	for _, cs := range allTime {
		assert.False(t, cs.OverBudget, "budgets only compare within a month")
	}
}

func TestTrends(t *testing.T) {
	expenses := []core.Expense{
		expense(core.MemberA, 1000, core.NewDate(2024, 11, 30), core.SplitShared),
		expense(core.MemberA, 500, core.NewDate(2025, 1, 15), core.SplitPersonal),
		expense(core.MemberB, 250, core.NewDate(2025, 1, 31), core.SplitEqual),
		expense(core.MemberB, 9999, core.NewDate(2025, 2, 1), core.SplitShared),   // after window
		expense(core.MemberB, 9999, core.NewDate(2024, 10, 31), core.SplitShared), // before window
	}
	rows := Trends(expenses, 3, core.NewDate(2025, 1, 20))
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"2024-11", "2024-12", "2025-01"}, []string{rows[0].Month, rows[1].Month, rows[2].Month})
	assert.Equal(t, int64(1000), rows[0].Shared.Cents)
	assert.Zero(t, rows[1].Total.Cents)
	assert.Equal(t, int64(750), rows[2].Total.Cents)
	assert.Equal(t, int64(500), rows[2].Personal.Cents)
	assert.Equal(t, int64(250), rows[2].Equal.Cents)

	assert.Len(t, Trends(nil, 0, core.NewDate(2025, 1, 1)), DefaultTrendMonths)
	assert.Len(t, Trends(nil, 61, core.NewDate(2025, 1, 1)), DefaultTrendMonths)
}
