package ledger

import (
	"fmt"

	"pairledger/internal/core"

	"github.com/shopspring/decimal"
)

// SharesFor returns the fractions of the expense attributed to A and B.
// They always sum to exactly one. ratio must be the ratio on the expense's
// own date and is only consulted for shared expenses.
func SharesFor(e core.Expense, ratio core.SplitRatio) (a, b decimal.Decimal) {
	switch e.SplitType {
	case core.SplitPersonal:
		if e.PaidBy == core.MemberA {
			return one, decimal.Zero
		}
		return decimal.Zero, one
	case core.SplitEqual:
		return half, half
	case core.SplitShared:
		return ratio.A, ratio.B
	}
	// Split types are validated on write; reaching this is a programming error.
	panic(fmt.Sprintf("ledger: unhandled split type %q", e.SplitType))
}

// Attribution is an expense with its resolved fair shares.
type Attribution struct {
	Expense core.Expense
	Ratio   core.SplitRatio
	AShare  decimal.Decimal
	BShare  decimal.Decimal
	// AAmount + BAmount == Expense.Amount exactly.
	AAmount decimal.Decimal
	BAmount decimal.Decimal
}

// Attribute resolves the expense against the timeline at its own date.
func Attribute(tl *Timeline, e core.Expense) Attribution {
	var ratio core.SplitRatio
	if e.SplitType == core.SplitShared {
		ratio = tl.RatioAt(e.Date)
	}
	a, b := SharesFor(e, ratio)
	amount := e.Amount.Decimal()
	aAmount := amount.Mul(a)
	return Attribution{
		Expense: e,
		Ratio:   ratio,
		AShare:  a,
		BShare:  b,
		AAmount: aAmount,
		BAmount: amount.Sub(aAmount),
	}
}
