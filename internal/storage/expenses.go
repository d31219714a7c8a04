package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"pairledger/internal/core"
	applog "pairledger/internal/log"

	"github.com/google/uuid"
)

const expenseColumns = `id, household_id, paid_by, amount_cents, date, split_type, description,
	category_id, notes, tags, recurring_id, created_at`

// CreateExpense inserts e, assigning an ID and creation time when unset.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e *core.Expense) error {
	prepareExpense(e)
	args, err := expenseArgs(*e)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...); err != nil {
		return fmt.Errorf("create expense: %w", err)
	}

	logger().InfoContext(ctx, "Expense saved to SQLite",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldExpense, e.ID,
		"description", e.Description,
		applog.FieldAmountCents, e.Amount.Cents,
		"date", e.Date.String(),
		"split_type", e.SplitType)
	return nil
}

// UpdateExpense rewrites the mutable fields of an existing expense.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	tags, err := json.Marshal(core.NormalizeTags(e.Tags))
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses
		SET paid_by = ?, amount_cents = ?, date = ?, split_type = ?, description = ?,
		    category_id = ?, notes = ?, tags = ?
		WHERE id = ? AND household_id = ?`,
		string(e.PaidBy), e.Amount.Cents, e.Date.String(), string(e.SplitType), e.Description,
		nullString(e.CategoryID), e.Notes, string(tags), e.ID, e.HouseholdID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if err := expectOne(res, "expense "+e.ID); err != nil {
		return err
	}
	logger().InfoContext(ctx, "Expense updated in SQLite",
		applog.FieldOperation, applog.OpUpdate,
		applog.FieldExpense, e.ID,
		applog.FieldAmountCents, e.Amount.Cents)
	return nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, householdID, id string) (core.Expense, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND household_id = ?`, id, householdID)
	e, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, notFound(err, "expense "+id)
	}
	return e, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, householdID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND household_id = ?`, id, householdID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if err := expectOne(res, "expense "+id); err != nil {
		return err
	}
	logger().InfoContext(ctx, "Expense deleted from SQLite",
		applog.FieldOperation, applog.OpDelete,
		applog.FieldExpense, id)
	return nil
}

// ListExpenses returns the household's expenses oldest first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, householdID string, f core.ExpenseFilter) ([]core.Expense, error) {
	var (
		where = []string{"household_id = ?"}
		args  = []any{householdID}
	)
	if !f.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, f.To.String())
	}
	if f.PaidBy != "" {
		where = append(where, "paid_by = ?")
		args = append(args, string(f.PaidBy))
	}
	if f.SplitType != "" {
		where = append(where, "split_type = ?")
		args = append(args, string(f.SplitType))
	}
	if f.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.RecurringID != "" {
		where = append(where, "recurring_id = ?")
		args = append(args, f.RecurringID)
	}
	if f.Tag != "" {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(expenses.tags) WHERE json_each.value = ?)")
		args = append(args, strings.ToLower(f.Tag))
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` + strings.Join(where, " AND ") + ` ORDER BY date, rowid`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func prepareExpense(e *core.Expense) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	e.Tags = core.NormalizeTags(e.Tags)
}

func expenseArgs(e core.Expense) ([]any, error) {
	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	return []any{
		e.ID, e.HouseholdID, string(e.PaidBy), e.Amount.Cents, e.Date.String(), string(e.SplitType), e.Description,
		nullString(e.CategoryID), e.Notes, string(tags), nullString(e.RecurringID), formatTime(e.CreatedAt),
	}, nil
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e                                 core.Expense
		paidBy, date, splitType, tags, ts string
		categoryID, recurringID           sql.NullString
	)
	if err := row.Scan(&e.ID, &e.HouseholdID, &paidBy, &e.Amount.Cents, &date, &splitType, &e.Description,
		&categoryID, &e.Notes, &tags, &recurringID, &ts); err != nil {
		return core.Expense{}, err
	}
	e.PaidBy = core.Member(paidBy)
	e.SplitType = core.SplitType(splitType)
	e.CategoryID = categoryID.String
	e.RecurringID = recurringID.String

	var err error
	if e.Date, err = core.ParseDate(date); err != nil {
		return core.Expense{}, err
	}
	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return core.Expense{}, fmt.Errorf("decode tags: %w", err)
	}
	if e.CreatedAt, err = parseTime(ts); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}
