package ledger

import (
	"sort"
	"time"

	"pairledger/internal/core"
)

// UncategorizedName labels expenses without a category.
const UncategorizedName = "Uncategorized"

const (
	DefaultTrendMonths = 12
	MaxTrendMonths     = 60
)

// MonthlySummary totals the expenses dated in year/month.
func MonthlySummary(expenses []core.Expense, categories []core.Category, year, month int) core.MonthlySummary {
	sum := core.MonthlySummary{Year: year, Month: month}
	byCategory := map[string]int64{}

	for _, e := range expenses {
		if e.Date.Year() != year || e.Date.Month() != month {
			continue
		}
		sum.Total.Cents += e.Amount.Cents
		switch e.SplitType {
		case core.SplitShared:
			sum.SharedTotal.Cents += e.Amount.Cents
		case core.SplitPersonal:
			sum.PersonalTotal.Cents += e.Amount.Cents
		case core.SplitEqual:
			sum.EqualTotal.Cents += e.Amount.Cents
		}
		if e.PaidBy == core.MemberA {
			sum.APaid.Cents += e.Amount.Cents
		} else {
			sum.BPaid.Cents += e.Amount.Cents
		}
		byCategory[e.CategoryID] += e.Amount.Cents
	}

	names := categoryNames(categories)
	for id, cents := range byCategory {
		sum.ByCategory = append(sum.ByCategory, core.CategoryAmount{
			CategoryID: id,
			Name:       names.lookup(id),
			Amount:     core.Money{Cents: cents},
		})
	}
	sort.Slice(sum.ByCategory, func(i, j int) bool {
		a, b := sum.ByCategory[i], sum.ByCategory[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		return a.Name < b.Name
	})
	return sum
}

// CategorySpending groups expenses by category. year and month are optional
// filters (zero means any). Budgets are only compared when a month is chosen,
// since they are monthly.
func CategorySpending(expenses []core.Expense, categories []core.Category, year, month int) []core.CategorySpending {
	type agg struct {
		total int64
		count int
	}
	byCategory := map[string]*agg{}
	for _, e := range expenses {
		if year != 0 && e.Date.Year() != year {
			continue
		}
		if month != 0 && e.Date.Month() != month {
			continue
		}
		a, ok := byCategory[e.CategoryID]
		if !ok {
			a = &agg{}
			byCategory[e.CategoryID] = a
		}
		a.total += e.Amount.Cents
		a.count++
	}

	names := categoryNames(categories)
	out := make([]core.CategorySpending, 0, len(byCategory))
	for id, a := range byCategory {
		cs := core.CategorySpending{
			CategoryID: id,
			Name:       names.lookup(id),
			Total:      core.Money{Cents: a.total},
			Count:      a.count,
		}
		if c, ok := names[id]; ok && c.BudgetMonthly != nil {
			budget := *c.BudgetMonthly
			cs.Budget = &budget
			cs.OverBudget = month != 0 && a.total > budget.Cents
		}
		out = append(out, cs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total.Cents != out[j].Total.Cents {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Trends returns one row per calendar month for the trailing window of
// months ending with asOf's month, oldest first. Empty months are included.
// months outside 1..MaxTrendMonths falls back to DefaultTrendMonths.
func Trends(expenses []core.Expense, months int, asOf core.Date) []core.MonthlyTrend {
	if months < 1 || months > MaxTrendMonths {
		months = DefaultTrendMonths
	}
	first := time.Date(asOf.Year(), time.Month(asOf.Month()), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)
	end := time.Date(asOf.Year(), time.Month(asOf.Month())+1, 1, 0, 0, 0, 0, time.UTC)

	rows := make([]core.MonthlyTrend, months)
	index := make(map[string]int, months)
	for i := range rows {
		key := first.AddDate(0, i, 0).Format("2006-01")
		rows[i].Month = key
		index[key] = i
	}

	for _, e := range expenses {
		if e.Date.Time.Before(first) || !e.Date.Time.Before(end) {
			continue
		}
		row := &rows[index[e.Date.YearMonth()]]
		row.Total.Cents += e.Amount.Cents
		switch e.SplitType {
		case core.SplitShared:
			row.Shared.Cents += e.Amount.Cents
		case core.SplitPersonal:
			row.Personal.Cents += e.Amount.Cents
		case core.SplitEqual:
			row.Equal.Cents += e.Amount.Cents
		}
	}
	return rows
}

type categoryIndex map[string]core.Category

func categoryNames(categories []core.Category) categoryIndex {
	idx := make(categoryIndex, len(categories))
	for _, c := range categories {
		idx[c.ID] = c
	}
	return idx
}

func (idx categoryIndex) lookup(id string) string {
	if id == "" {
		return UncategorizedName
	}
	if c, ok := idx[id]; ok {
		return c.Name
	}
	return "Unknown"
}
