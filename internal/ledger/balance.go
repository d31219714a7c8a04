package ledger

import (
	"pairledger/internal/core"

	"github.com/shopspring/decimal"
)

// BalanceFor folds every expense and settlement of the household into its
// balance. Each shared expense uses the ratio in force on its own date.
//
//	raw_imbalance   = a_fair_share - a_paid
//	settlements_net = sum(A->B) - sum(B->A)
//	net_balance     = raw_imbalance - settlements_net   (positive: A owes B)
//
// Without a partner the paid and fair totals are still reported but the net
// balance is zero.
func BalanceFor(h core.Household, tl *Timeline, expenses []core.Expense, settlements []core.Settlement) core.Balance {
	var (
		bal           core.Balance
		aFair, bFair  = decimal.Zero, decimal.Zero
		aToB, bToA    int64
		settledVolume int64
	)

	for _, e := range expenses {
		switch e.PaidBy {
		case core.MemberA:
			bal.APaid.Cents += e.Amount.Cents
		case core.MemberB:
			bal.BPaid.Cents += e.Amount.Cents
		}
		attr := Attribute(tl, e)
		aFair = aFair.Add(attr.AAmount)
		bFair = bFair.Add(attr.BAmount)
	}

	for _, s := range settlements {
		amount := s.Amount.Cents
		if amount < 0 {
			amount = -amount
		}
		settledVolume += amount
		switch {
		case s.From == core.MemberA && s.To == core.MemberB:
			aToB += s.Amount.Cents
		case s.From == core.MemberB && s.To == core.MemberA:
			bToA += s.Amount.Cents
		}
	}

	bal.AFairShare = aFair
	bal.BFairShare = bFair
	bal.SettlementsTotal = core.Money{Cents: settledVolume}

	if !h.HasPartner() {
		bal.NetBalance = decimal.Zero
		return bal
	}
	raw := aFair.Sub(bal.APaid.Decimal())
	settlementsNet := core.Money{Cents: aToB - bToA}.Decimal()
	bal.NetBalance = raw.Sub(settlementsNet)
	return bal
}

// Settled reports whether the balance is within tolerance of zero.
// Consumers decide the tolerance; one cent is the usual choice.
func Settled(b core.Balance, tolerance decimal.Decimal) bool {
	return b.NetBalance.Abs().LessThan(tolerance)
}
