package storage

import (
	"context"
	"database/sql"
	"fmt"

	"pairledger/internal/core"
	applog "pairledger/internal/log"

	"github.com/google/uuid"
)

const templateColumns = `id, household_id, paid_by, amount_cents, description, category_id, split_type,
	frequency, day_of_month, start_date, active, last_materialized_through, created_at`

// CreateTemplate inserts t. A missing start date defaults to the creation day.
func (r *SQLiteRepository) CreateTemplate(ctx context.Context, t *core.RecurringTemplate) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now()
	}
	if t.StartDate.IsZero() {
		t.StartDate = core.DateOf(t.CreatedAt)
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO recurring_templates (`+templateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.HouseholdID, string(t.PaidBy), t.Amount.Cents, t.Description, nullString(t.CategoryID),
		string(t.SplitType), string(t.Frequency), nullDay(t.DayOfMonth), t.StartDate.String(), t.Active,
		nullDate(t.LastMaterializedThrough), formatTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("create recurring template: %w", err)
	}

	logger().InfoContext(ctx, "Recurring template saved to SQLite",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldTemplate, t.ID,
		"description", t.Description,
		"frequency", t.Frequency,
		"start_date", t.StartDate.String())
	return nil
}

func (r *SQLiteRepository) GetTemplate(ctx context.Context, id string) (core.RecurringTemplate, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM recurring_templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if err != nil {
		return core.RecurringTemplate{}, notFound(err, "recurring template "+id)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTemplates(ctx context.Context, householdID string) ([]core.RecurringTemplate, error) {
	return r.queryTemplates(ctx, `SELECT `+templateColumns+` FROM recurring_templates
		WHERE household_id = ? ORDER BY start_date, rowid`, householdID)
}

// ListActiveTemplates returns active templates across all households.
func (r *SQLiteRepository) ListActiveTemplates(ctx context.Context) ([]core.RecurringTemplate, error) {
	return r.queryTemplates(ctx, `SELECT `+templateColumns+` FROM recurring_templates
		WHERE active = 1 ORDER BY household_id, rowid`)
}

func (r *SQLiteRepository) queryTemplates(ctx context.Context, query string, args ...any) ([]core.RecurringTemplate, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTemplate rewrites the template's definition. The schedule cursor is
// left untouched so already materialized dates are never emitted twice.
func (r *SQLiteRepository) UpdateTemplate(ctx context.Context, t core.RecurringTemplate) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_templates
		SET paid_by = ?, amount_cents = ?, description = ?, category_id = ?, split_type = ?,
		    frequency = ?, day_of_month = ?, start_date = ?
		WHERE id = ? AND household_id = ?`,
		string(t.PaidBy), t.Amount.Cents, t.Description, nullString(t.CategoryID), string(t.SplitType),
		string(t.Frequency), nullDay(t.DayOfMonth), t.StartDate.String(), t.ID, t.HouseholdID)
	if err != nil {
		return fmt.Errorf("update recurring template: %w", err)
	}
	return expectOne(res, "recurring template "+t.ID)
}

func (r *SQLiteRepository) SetTemplateActive(ctx context.Context, householdID, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE recurring_templates SET active = ? WHERE id = ? AND household_id = ?`,
		active, id, householdID)
	if err != nil {
		return fmt.Errorf("set recurring template active: %w", err)
	}
	return expectOne(res, "recurring template "+id)
}

// DeleteTemplate removes a template. Expenses it produced stay, detached.
func (r *SQLiteRepository) DeleteTemplate(ctx context.Context, householdID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_templates WHERE id = ? AND household_id = ?`, id, householdID)
	if err != nil {
		return fmt.Errorf("delete recurring template: %w", err)
	}
	return expectOne(res, "recurring template "+id)
}

// MaterializeOccurrences advances the template cursor from expected to through
// and inserts the generated expenses in the same transaction. If the cursor no
// longer equals expected, or the template was paused, nothing is written and
// ErrStaleCursor is returned. Expenses whose ID already exists are skipped.
// It returns the number of expenses actually inserted.
func (r *SQLiteRepository) MaterializeOccurrences(ctx context.Context, templateID string, expected, through core.Date, expenses []core.Expense) (int, error) {
	inserted := 0
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE recurring_templates SET last_materialized_through = ?
			WHERE id = ? AND active = 1 AND last_materialized_through IS ?`,
			through.String(), templateID, nullDate(expected))
		if err != nil {
			return fmt.Errorf("advance template cursor: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("template %s: %w", templateID, core.ErrStaleCursor)
		}

		for i := range expenses {
			prepareExpense(&expenses[i])
			args, err := expenseArgs(expenses[i])
			if err != nil {
				return err
			}
			res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO expenses (`+expenseColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
			if err != nil {
				return fmt.Errorf("insert materialized expense: %w", err)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger().InfoContext(ctx, "Recurring template materialized",
		applog.FieldOperation, applog.OpMaterialize,
		applog.FieldTemplate, templateID,
		applog.FieldThrough, through.String(),
		applog.FieldInserted, inserted)
	return inserted, nil
}

func scanTemplate(row rowScanner) (core.RecurringTemplate, error) {
	var (
		t                                     core.RecurringTemplate
		paidBy, splitType, freq, start, stamp string
		categoryID, cursor                    sql.NullString
		day                                   sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.HouseholdID, &paidBy, &t.Amount.Cents, &t.Description, &categoryID,
		&splitType, &freq, &day, &start, &t.Active, &cursor, &stamp); err != nil {
		return core.RecurringTemplate{}, err
	}
	t.PaidBy = core.Member(paidBy)
	t.SplitType = core.SplitType(splitType)
	t.Frequency = core.Frequency(freq)
	t.CategoryID = categoryID.String
	if day.Valid {
		t.DayOfMonth = int(day.Int64)
	}

	var err error
	if t.StartDate, err = core.ParseDate(start); err != nil {
		return core.RecurringTemplate{}, err
	}
	if t.LastMaterializedThrough, err = parseNullDate(cursor); err != nil {
		return core.RecurringTemplate{}, err
	}
	if t.CreatedAt, err = parseTime(stamp); err != nil {
		return core.RecurringTemplate{}, err
	}
	return t, nil
}

func nullDay(d int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(d), Valid: d != 0}
}
