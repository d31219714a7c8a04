package core

import "github.com/shopspring/decimal"

// SplitRatio is the income-proportional division of shared costs on a date.
// A + B is exactly one.
type SplitRatio struct {
	AIncome Money
	BIncome Money
	A       decimal.Decimal
	B       decimal.Decimal
}

// Balance is the household ledger position. Fair shares and the net balance
// are exact; round with FormatAmount for display. A positive NetBalance means
// A owes B.
type Balance struct {
	APaid            Money
	BPaid            Money
	AFairShare       decimal.Decimal
	BFairShare       decimal.Decimal
	NetBalance       decimal.Decimal
	SettlementsTotal Money
}

// LedgerSnapshot is everything a balance needs, read from one consistent view
// of the store.
type LedgerSnapshot struct {
	Household   Household
	Incomes     []IncomeObservation
	Expenses    []Expense
	Settlements []Settlement
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	CategoryID string // empty for uncategorized
	Name       string
	Amount     Money
}

// MonthlySummary is a compact summary for a specific year+month.
type MonthlySummary struct {
	Year          int
	Month         int // 1-12
	Total         Money
	SharedTotal   Money
	PersonalTotal Money
	EqualTotal    Money
	APaid         Money
	BPaid         Money
	ByCategory    []CategoryAmount
}

// CategorySpending is a category rollup with an optional budget comparison.
type CategorySpending struct {
	CategoryID string
	Name       string
	Total      Money
	Count      int
	Budget     *Money
	OverBudget bool
}

// MonthlyTrend is one month of a trailing window, keyed "YYYY-MM".
type MonthlyTrend struct {
	Month    string
	Total    Money
	Shared   Money
	Personal Money
	Equal    Money
}
