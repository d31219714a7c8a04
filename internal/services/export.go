package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"pairledger/internal/core"
	"pairledger/internal/ledger"
	"pairledger/internal/sheets"
)

const (
	ExportApp     = "pairledger"
	ExportVersion = "1.0.0"
)

// ExportReader is what a full household export reads.
type ExportReader interface {
	LedgerReader
	ListTemplates(ctx context.Context, householdID string) ([]core.RecurringTemplate, error)
}

// ExportDocument is the portable backup of a household. Amounts are decimal
// strings and categories are referenced by name.
type ExportDocument struct {
	App               string             `json:"app"`
	Version           string             `json:"version"`
	ExportedAt        time.Time          `json:"exported_at"`
	Household         ExportHousehold    `json:"household"`
	Categories        []ExportCategory   `json:"categories"`
	Incomes           []ExportIncome     `json:"incomes"`
	Expenses          []ExportExpense    `json:"expenses"`
	Settlements       []ExportSettlement `json:"settlements"`
	RecurringExpenses []ExportRecurring  `json:"recurring_expenses"`
}

type ExportHousehold struct {
	Name    string  `json:"name"`
	MemberA string  `json:"member_a"`
	MemberB *string `json:"member_b"`
}

type ExportCategory struct {
	Name          string  `json:"name"`
	Icon          string  `json:"icon"`
	Color         string  `json:"color"`
	BudgetMonthly *string `json:"budget_monthly"`
}

type ExportIncome struct {
	Member        core.Member `json:"member"`
	Amount        string      `json:"amount"`
	EffectiveFrom string      `json:"effective_from"`
	Notes         string      `json:"notes"`
}

type ExportExpense struct {
	PaidBy      core.Member    `json:"paid_by"`
	Category    *string        `json:"category"`
	Amount      string         `json:"amount"`
	Description string         `json:"description"`
	Date        string         `json:"date"`
	SplitType   core.SplitType `json:"split_type"`
	Notes       string         `json:"notes"`
	Tags        []string       `json:"tags"`
}

type ExportSettlement struct {
	From   core.Member `json:"from"`
	To     core.Member `json:"to"`
	Amount string      `json:"amount"`
	Date   string      `json:"date"`
	Notes  string      `json:"notes"`
}

type ExportRecurring struct {
	PaidBy      core.Member    `json:"paid_by"`
	Category    *string        `json:"category"`
	Amount      string         `json:"amount"`
	Description string         `json:"description"`
	SplitType   core.SplitType `json:"split_type"`
	Frequency   core.Frequency `json:"frequency"`
	DayOfMonth  *int           `json:"day_of_month"`
	StartDate   string         `json:"start_date"`
	Active      bool           `json:"active"`
}

// ExportService produces household backups and spreadsheet exports.
type ExportService struct {
	store    ExportReader
	exporter sheets.LedgerExporter
	now      func() time.Time
}

// NewExportService creates an export service. exporter may be nil when no
// spreadsheet is configured.
func NewExportService(store ExportReader, exporter sheets.LedgerExporter) *ExportService {
	return &ExportService{store: store, exporter: exporter, now: time.Now}
}

// Document assembles the full backup of a household.
func (s *ExportService) Document(ctx context.Context, householdID string) (ExportDocument, error) {
	h, err := s.store.GetHousehold(ctx, householdID)
	if err != nil {
		return ExportDocument{}, fmt.Errorf("get household: %w", err)
	}
	categories, err := s.store.ListCategories(ctx, householdID)
	if err != nil {
		return ExportDocument{}, fmt.Errorf("list categories: %w", err)
	}
	incomes, err := s.store.ListIncomes(ctx, householdID)
	if err != nil {
		return ExportDocument{}, fmt.Errorf("list incomes: %w", err)
	}
	expenses, err := s.store.ListExpenses(ctx, householdID, core.ExpenseFilter{})
	if err != nil {
		return ExportDocument{}, fmt.Errorf("list expenses: %w", err)
	}
	settlements, err := s.store.ListSettlements(ctx, householdID)
	if err != nil {
		return ExportDocument{}, fmt.Errorf("list settlements: %w", err)
	}
	templates, err := s.store.ListTemplates(ctx, householdID)
	if err != nil {
		return ExportDocument{}, fmt.Errorf("list recurring templates: %w", err)
	}

	names := make(map[string]string, len(categories))
	doc := ExportDocument{
		App:        ExportApp,
		Version:    ExportVersion,
		ExportedAt: s.now().UTC(),
		Household:  ExportHousehold{Name: h.Name, MemberA: h.MemberA, MemberB: optional(h.MemberB)},
		// empty collections encode as [] rather than null
		Categories:        make([]ExportCategory, 0, len(categories)),
		Incomes:           make([]ExportIncome, 0, len(incomes)),
		Expenses:          make([]ExportExpense, 0, len(expenses)),
		Settlements:       make([]ExportSettlement, 0, len(settlements)),
		RecurringExpenses: make([]ExportRecurring, 0, len(templates)),
	}

	for _, c := range categories {
		names[c.ID] = c.Name
		ec := ExportCategory{Name: c.Name, Icon: c.Icon, Color: c.Color}
		if c.BudgetMonthly != nil {
			ec.BudgetMonthly = optional(c.BudgetMonthly.String())
		}
		doc.Categories = append(doc.Categories, ec)
	}
	for _, in := range incomes {
		doc.Incomes = append(doc.Incomes, ExportIncome{
			Member:        in.Member,
			Amount:        in.Amount.String(),
			EffectiveFrom: in.EffectiveFrom.String(),
			Notes:         in.Notes,
		})
	}
	for _, e := range expenses {
		tags := e.Tags
		if tags == nil {
			tags = []string{}
		}
		doc.Expenses = append(doc.Expenses, ExportExpense{
			PaidBy:      e.PaidBy,
			Category:    optional(names[e.CategoryID]),
			Amount:      e.Amount.String(),
			Description: e.Description,
			Date:        e.Date.String(),
			SplitType:   e.SplitType,
			Notes:       e.Notes,
			Tags:        tags,
		})
	}
	for _, st := range settlements {
		doc.Settlements = append(doc.Settlements, ExportSettlement{
			From:   st.From,
			To:     st.To,
			Amount: st.Amount.String(),
			Date:   st.Date.String(),
			Notes:  st.Notes,
		})
	}
	for _, t := range templates {
		er := ExportRecurring{
			PaidBy:      t.PaidBy,
			Category:    optional(names[t.CategoryID]),
			Amount:      t.Amount.String(),
			Description: t.Description,
			SplitType:   t.SplitType,
			Frequency:   t.Frequency,
			StartDate:   t.Anchor().String(),
			Active:      t.Active,
		}
		if t.DayOfMonth != 0 {
			dom := t.DayOfMonth
			er.DayOfMonth = &dom
		}
		doc.RecurringExpenses = append(doc.RecurringExpenses, er)
	}
	return doc, nil
}

// WriteJSON writes the household backup as indented JSON.
func (s *ExportService) WriteJSON(ctx context.Context, householdID string, w io.Writer) error {
	doc, err := s.Document(ctx, householdID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// ExportSheet writes every expense with its fair shares and the current
// balance to the configured spreadsheet.
func (s *ExportService) ExportSheet(ctx context.Context, householdID string) (string, error) {
	if s.exporter == nil {
		return "", fmt.Errorf("spreadsheet export not configured")
	}

	h, err := s.store.GetHousehold(ctx, householdID)
	if err != nil {
		return "", fmt.Errorf("get household: %w", err)
	}
	incomes, err := s.store.ListIncomes(ctx, householdID)
	if err != nil {
		return "", fmt.Errorf("list incomes: %w", err)
	}
	expenses, err := s.store.ListExpenses(ctx, householdID, core.ExpenseFilter{})
	if err != nil {
		return "", fmt.Errorf("list expenses: %w", err)
	}
	settlements, err := s.store.ListSettlements(ctx, householdID)
	if err != nil {
		return "", fmt.Errorf("list settlements: %w", err)
	}
	categories, err := s.store.ListCategories(ctx, householdID)
	if err != nil {
		return "", fmt.Errorf("list categories: %w", err)
	}
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	tl := ledger.NewTimeline(h, incomes)
	l := sheets.Ledger{
		Household:   h,
		Entries:     make([]sheets.Entry, 0, len(expenses)),
		Balance:     ledger.BalanceFor(h, tl, expenses, settlements),
		GeneratedAt: s.now().UTC(),
	}
	for _, e := range expenses {
		a := ledger.Attribute(tl, e)
		l.Entries = append(l.Entries, sheets.Entry{
			Date:        e.Date,
			Description: e.Description,
			Category:    names[e.CategoryID],
			PaidBy:      e.PaidBy,
			SplitType:   e.SplitType,
			Amount:      e.Amount,
			AAmount:     a.AAmount,
			BAmount:     a.BAmount,
		})
	}
	return s.exporter.ExportLedger(ctx, l)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
