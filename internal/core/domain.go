package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	MemberA Member = "A"
	MemberB Member = "B"
)

const (
	SplitShared   SplitType = "shared"
	SplitEqual    SplitType = "equal"
	SplitPersonal SplitType = "personal"
)

const (
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
	Yearly   Frequency = "yearly"
)

const (
	DefaultHouseholdName = "Our Household"

	maxNameLength        = 200
	maxDescriptionLength = 500
	maxNotesLength       = 500
)

type (
	// Member is one of the two household roles.
	Member string

	// SplitType is the policy that divides an expense between members.
	SplitType string

	// Frequency is the cadence of a recurring template.
	Frequency string

	Household struct {
		ID         string
		Name       string
		MemberA    string // user id, always present
		MemberB    string // user id, empty until a partner joins
		InviteCode string
		CreatedAt  time.Time
	}

	IncomeObservation struct {
		ID            string
		HouseholdID   string
		Member        Member
		Amount        Money
		EffectiveFrom Date
		Notes         string
		CreatedAt     time.Time
	}

	Category struct {
		ID            string
		HouseholdID   string
		Name          string
		Icon          string
		Color         string
		BudgetMonthly *Money
	}

	Expense struct {
		ID          string
		HouseholdID string
		PaidBy      Member
		Amount      Money
		Date        Date
		SplitType   SplitType
		Description string
		CategoryID  string
		Notes       string
		Tags        []string
		RecurringID string // set when materialized from a template
		CreatedAt   time.Time
	}

	Settlement struct {
		ID          string
		HouseholdID string
		From        Member
		To          Member
		Amount      Money
		Date        Date
		Notes       string
		CreatedAt   time.Time
	}

	RecurringTemplate struct {
		ID          string
		HouseholdID string
		PaidBy      Member
		Amount      Money
		Description string
		CategoryID  string
		SplitType   SplitType
		Frequency   Frequency
		DayOfMonth  int  // 0 means unset; monthly/yearly only
		StartDate   Date // schedule anchor; zero falls back to CreatedAt
		Active      bool
		// LastMaterializedThrough is the schedule cursor. Zero means nothing
		// has been materialized yet.
		LastMaterializedThrough Date
		CreatedAt               time.Time
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrInvalidMember      = errors.New("invalid member")
	ErrInvalidSplitType   = errors.New("invalid split type")
	ErrInvalidFrequency   = errors.New("invalid frequency")
	ErrInvalidDayOfMonth  = errors.New("invalid day of month")
	ErrNotMember          = errors.New("user is not a member of this household")
	ErrNoPartner          = errors.New("household has no second member")
	ErrSelfSettlement     = errors.New("settlement must be between different members")
	ErrHouseholdFull      = errors.New("household already has two members")
	ErrAlreadyMember      = errors.New("user already belongs to a household")
	ErrInvalidInviteCode  = errors.New("invalid invite code")
	ErrEmptyCategoryName  = errors.New("empty category name")
	ErrInvalidColor       = errors.New("invalid color")
	ErrNotesTooLong       = errors.New("notes too long (max 500 characters)")
	ErrDescriptionTooLong = errors.New("description too long (max 500 characters)")

	// ErrNotFound is returned by stores for missing records.
	ErrNotFound = errors.New("not found")
	// ErrStaleCursor means a template's cursor moved since it was read.
	ErrStaleCursor = errors.New("recurring template cursor changed concurrently")
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func (m Member) Valid() bool {
	return m == MemberA || m == MemberB
}

// Other returns the opposite role.
func (m Member) Other() Member {
	if m == MemberA {
		return MemberB
	}
	return MemberA
}

func ParseMember(s string) (Member, error) {
	m := Member(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMember, s)
	}
	return m, nil
}

func (s SplitType) Valid() bool {
	switch s {
	case SplitShared, SplitEqual, SplitPersonal:
		return true
	}
	return false
}

func ParseSplitType(s string) (SplitType, error) {
	st := SplitType(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSplitType, s)
	}
	return st, nil
}

func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Biweekly, Monthly, Yearly:
		return true
	}
	return false
}

// UsesDayOfMonth reports whether a day_of_month override applies.
func (f Frequency) UsesDayOfMonth() bool {
	return f == Monthly || f == Yearly
}

func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
	}
	return f, nil
}

// HasPartner reports whether member B has joined.
func (h Household) HasPartner() bool {
	return h.MemberB != ""
}

// UserID returns the user id holding the given role, or "" when absent.
func (h Household) UserID(m Member) string {
	switch m {
	case MemberA:
		return h.MemberA
	case MemberB:
		return h.MemberB
	}
	return ""
}

// Role maps a user id to its household role.
func (h Household) Role(userID string) (Member, error) {
	switch {
	case userID == "":
		return "", ErrNotMember
	case userID == h.MemberA:
		return MemberA, nil
	case userID == h.MemberB:
		return MemberB, nil
	}
	return "", ErrNotMember
}

// Present reports whether the role is filled in this household.
func (h Household) Present(m Member) bool {
	return h.UserID(m) != ""
}

func (h Household) Validate() error {
	if strings.TrimSpace(h.MemberA) == "" {
		return errors.New("household requires a first member")
	}
	if h.MemberB != "" && h.MemberB == h.MemberA {
		return errors.New("household members must be distinct")
	}
	return ValidateHouseholdName(h.Name)
}

func ValidateHouseholdName(name string) error {
	if len(name) > maxNameLength {
		return errors.New("household name too long (max 200 characters)")
	}
	return nil
}

func (i IncomeObservation) Validate() error {
	if !i.Member.Valid() {
		return ErrInvalidMember
	}
	if i.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if err := i.EffectiveFrom.Validate(); err != nil {
		return fmt.Errorf("invalid effective date: %w", err)
	}
	if len(i.Notes) > maxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategoryName
	}
	if len(c.Name) > maxNameLength {
		return errors.New("category name too long (max 200 characters)")
	}
	if c.Color != "" && !colorPattern.MatchString(c.Color) {
		return ErrInvalidColor
	}
	if c.BudgetMonthly != nil && c.BudgetMonthly.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if !e.PaidBy.Valid() {
		return ErrInvalidMember
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.SplitType.Valid() {
		return ErrInvalidSplitType
	}
	if err := validateDescription(e.Description); err != nil {
		return err
	}
	if len(e.Notes) > maxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}

func (s Settlement) Validate() error {
	if !s.From.Valid() || !s.To.Valid() {
		return ErrInvalidMember
	}
	if s.From == s.To {
		return ErrSelfSettlement
	}
	if err := s.Amount.Validate(); err != nil {
		return err
	}
	if err := s.Date.Validate(); err != nil {
		return err
	}
	if len(s.Notes) > maxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}

func (rt RecurringTemplate) Validate() error {
	if !rt.PaidBy.Valid() {
		return ErrInvalidMember
	}
	if err := rt.Amount.Validate(); err != nil {
		return err
	}
	if err := validateDescription(rt.Description); err != nil {
		return err
	}
	if !rt.SplitType.Valid() {
		return ErrInvalidSplitType
	}
	if !rt.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if rt.DayOfMonth != 0 {
		if !rt.Frequency.UsesDayOfMonth() {
			return fmt.Errorf("%w: only monthly and yearly templates take a day of month", ErrInvalidDayOfMonth)
		}
		if rt.DayOfMonth < 1 || rt.DayOfMonth > 31 {
			return ErrInvalidDayOfMonth
		}
	}
	if !rt.StartDate.IsZero() {
		if err := rt.StartDate.Validate(); err != nil {
			return errors.New("invalid start date: " + err.Error())
		}
	}
	return nil
}

// Anchor is the first scheduled date of the template.
func (rt RecurringTemplate) Anchor() Date {
	if !rt.StartDate.IsZero() {
		return rt.StartDate
	}
	return DateOf(rt.CreatedAt)
}

func validateDescription(d string) error {
	if len(strings.TrimSpace(d)) == 0 {
		return ErrEmptyDescription
	}
	if len(d) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

// NormalizeTags trims, lowercases and de-duplicates tags, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
