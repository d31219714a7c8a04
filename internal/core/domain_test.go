package core

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestClampedDate(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		day   int
		want  string
	}{
		{2025, time.February, 31, "2025-02-28"},
		{2024, time.February, 31, "2024-02-29"},
		{2024, time.February, 29, "2024-02-29"},
		{2025, time.April, 31, "2025-04-30"},
		{2025, time.March, 31, "2025-03-31"},
		{2025, time.March, 15, "2025-03-15"},
	}
	for _, tc := range cases {
		if got := ClampedDate(tc.year, tc.month, tc.day).String(); got != tc.want {
			t.Fatalf("ClampedDate(%d, %s, %d) = %s, want %s", tc.year, tc.month, tc.day, got, tc.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.Year() != 2024 || d.Month() != 2 || d.Day() != 29 {
		t.Fatalf("unexpected date %v", d)
	}
	if _, err := ParseDate("2025-02-29"); err == nil {
		t.Fatalf("expected error for non-leap Feb 29")
	}
	if got := DateOf(time.Date(2025, 3, 4, 23, 59, 0, 0, time.UTC)); !got.Equal(NewDate(2025, 3, 4)) {
		t.Fatalf("DateOf truncation: got %v", got)
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestHouseholdRole(t *testing.T) {
	h := Household{MemberA: "u-a", MemberB: "u-b"}
	if m, err := h.Role("u-a"); err != nil || m != MemberA {
		t.Fatalf("expected A, got %v %v", m, err)
	}
	if m, err := h.Role("u-b"); err != nil || m != MemberB {
		t.Fatalf("expected B, got %v %v", m, err)
	}
	if _, err := h.Role("stranger"); !errors.Is(err, ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}

	solo := Household{MemberA: "u-a"}
	if solo.HasPartner() || solo.Present(MemberB) {
		t.Fatalf("solo household should have no partner")
	}
	if _, err := solo.Role(""); !errors.Is(err, ErrNotMember) {
		t.Fatalf("empty user id must not match the absent B slot")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		PaidBy:      MemberA,
		Date:        NewDate(2025, 1, 1),
		Description: "ok",
		Amount:      Money{Cents: 100},
		SplitType:   SplitShared,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	mutate := func(f func(*Expense)) Expense {
		e := good
		f(&e)
		return e
	}
	bads := []Expense{
		mutate(func(e *Expense) { e.Date = Date{} }),
		mutate(func(e *Expense) { e.Description = "  " }),
		mutate(func(e *Expense) { e.Amount = Money{Cents: 0} }),
		mutate(func(e *Expense) { e.PaidBy = "C" }),
		mutate(func(e *Expense) { e.SplitType = "half" }),
		mutate(func(e *Expense) { e.Notes = string(make([]byte, 501)) }),
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestSettlementValidate(t *testing.T) {
	s := Settlement{From: MemberB, To: MemberA, Amount: Money{Cents: 2500}, Date: NewDate(2025, 1, 6)}
	if err := s.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	s.To = MemberB
	if err := s.Validate(); !errors.Is(err, ErrSelfSettlement) {
		t.Fatalf("expected ErrSelfSettlement, got %v", err)
	}
}

func TestRecurringTemplateValidate(t *testing.T) {
	base := RecurringTemplate{
		PaidBy:      MemberA,
		Amount:      Money{Cents: 120000},
		Description: "Rent",
		SplitType:   SplitShared,
		Frequency:   Monthly,
		DayOfMonth:  31,
		StartDate:   NewDate(2025, 1, 31),
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		mut  func(*RecurringTemplate)
		want error
	}{
		{"day out of range", func(r *RecurringTemplate) { r.DayOfMonth = 32 }, ErrInvalidDayOfMonth},
		{"day on weekly", func(r *RecurringTemplate) { r.Frequency = Weekly }, ErrInvalidDayOfMonth},
		{"unknown frequency", func(r *RecurringTemplate) { r.Frequency = "daily" }, ErrInvalidFrequency},
		{"unknown split", func(r *RecurringTemplate) { r.SplitType = "" }, ErrInvalidSplitType},
		{"empty description", func(r *RecurringTemplate) { r.Description = "" }, ErrEmptyDescription},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rt := base
			tc.mut(&rt)
			if err := rt.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRecurringTemplateAnchor(t *testing.T) {
	rt := RecurringTemplate{CreatedAt: time.Date(2025, 5, 17, 10, 30, 0, 0, time.UTC)}
	if got := rt.Anchor(); !got.Equal(NewDate(2025, 5, 17)) {
		t.Fatalf("expected creation date anchor, got %v", got)
	}
	rt.StartDate = NewDate(2025, 1, 31)
	if got := rt.Anchor(); !got.Equal(NewDate(2025, 1, 31)) {
		t.Fatalf("expected start date anchor, got %v", got)
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" Food ", "food", "", "Travel", "FOOD", "travel "})
	want := []string{"food", "travel"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeTags = %v, want %v", got, want)
	}
}

func TestParseEnums(t *testing.T) {
	if m, err := ParseMember("b"); err != nil || m != MemberB {
		t.Fatalf("ParseMember: %v %v", m, err)
	}
	if _, err := ParseSplitType("half"); !errors.Is(err, ErrInvalidSplitType) {
		t.Fatalf("ParseSplitType: expected ErrInvalidSplitType, got %v", err)
	}
	if f, err := ParseFrequency("Biweekly"); err != nil || f != Biweekly {
		t.Fatalf("ParseFrequency: %v %v", f, err)
	}
}
