package core

// ExpenseFilter narrows an expense listing. Zero fields do not filter.
type ExpenseFilter struct {
	From        Date // inclusive
	To          Date // inclusive
	PaidBy      Member
	SplitType   SplitType
	CategoryID  string
	Tag         string
	RecurringID string
	Limit       int
}

// Matches applies the filter in memory.
func (f ExpenseFilter) Matches(e Expense) bool {
	if !f.From.IsZero() && e.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Date.After(f.To) {
		return false
	}
	if f.PaidBy != "" && e.PaidBy != f.PaidBy {
		return false
	}
	if f.SplitType != "" && e.SplitType != f.SplitType {
		return false
	}
	if f.CategoryID != "" && e.CategoryID != f.CategoryID {
		return false
	}
	if f.RecurringID != "" && e.RecurringID != f.RecurringID {
		return false
	}
	if f.Tag != "" {
		found := false
		for _, t := range e.Tags {
			if t == f.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
