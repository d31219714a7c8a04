// Package ledger holds the pure household accounting rules: income-weighted
// split ratios, per-expense fair shares, the netted balance and reporting
// rollups. Nothing here performs I/O or keeps state between calls.
package ledger

import (
	"sort"

	"pairledger/internal/core"

	"github.com/shopspring/decimal"
)

var (
	one  = decimal.NewFromInt(1)
	half = decimal.NewFromFloat(0.5)
)

// Timeline answers "what did each member earn as of date D" for one household.
// Build it per query from the current observations; ratios are never cached.
type Timeline struct {
	partner bool
	incomes map[core.Member][]core.IncomeObservation
}

// NewTimeline indexes observations by member. The input order is the
// insertion order and breaks ties between equal effective dates: the later
// entry wins. Observations for B are ignored while B is absent.
func NewTimeline(h core.Household, observations []core.IncomeObservation) *Timeline {
	tl := &Timeline{
		partner: h.HasPartner(),
		incomes: make(map[core.Member][]core.IncomeObservation, 2),
	}
	for _, o := range observations {
		if o.Member == core.MemberB && !tl.partner {
			continue
		}
		tl.incomes[o.Member] = append(tl.incomes[o.Member], o)
	}
	for m := range tl.incomes {
		obs := tl.incomes[m]
		sort.SliceStable(obs, func(i, j int) bool {
			return obs[i].EffectiveFrom.Before(obs[j].EffectiveFrom)
		})
	}
	return tl
}

// IncomeAt returns the member's income effective on date, zero when no
// observation starts on or before it.
func (tl *Timeline) IncomeAt(m core.Member, date core.Date) core.Money {
	obs := tl.incomes[m]
	// first observation that starts after date
	i := sort.Search(len(obs), func(i int) bool {
		return obs[i].EffectiveFrom.After(date)
	})
	if i == 0 {
		return core.Money{}
	}
	return obs[i-1].Amount
}

// RatioAt derives the split ratio on date. Without a partner A carries
// everything; with both incomes at zero the split falls back to 50/50.
func (tl *Timeline) RatioAt(date core.Date) core.SplitRatio {
	r := core.SplitRatio{AIncome: tl.IncomeAt(core.MemberA, date)}
	if !tl.partner {
		r.A, r.B = one, decimal.Zero
		return r
	}
	r.BIncome = tl.IncomeAt(core.MemberB, date)

	total := r.AIncome.Cents + r.BIncome.Cents
	if total <= 0 {
		r.A, r.B = half, half
		return r
	}
	r.A = decimal.NewFromInt(r.AIncome.Cents).Div(decimal.NewFromInt(total))
	r.B = one.Sub(r.A)
	return r
}
