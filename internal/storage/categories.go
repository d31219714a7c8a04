package storage

import (
	"context"
	"database/sql"
	"fmt"

	"pairledger/internal/core"

	"github.com/google/uuid"
)

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c *core.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	var budget sql.NullInt64
	if c.BudgetMonthly != nil {
		budget = sql.NullInt64{Int64: c.BudgetMonthly.Cents, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, household_id, name, icon, color, budget_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.HouseholdID, c.Name, c.Icon, c.Color, budget, formatTime(now()))
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// ListCategories returns the household's categories by name.
func (r *SQLiteRepository) ListCategories(ctx context.Context, householdID string) ([]core.Category, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, household_id, name, icon, color, budget_cents
		FROM categories WHERE household_id = ? ORDER BY name`, householdID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var (
			c      core.Category
			budget sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.HouseholdID, &c.Name, &c.Icon, &c.Color, &budget); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if budget.Valid {
			c.BudgetMonthly = &core.Money{Cents: budget.Int64}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCategory removes a category; its expenses become uncategorized.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, householdID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND household_id = ?`, id, householdID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return expectOne(res, "category "+id)
}
