package storage

import (
	"context"
	"fmt"

	"pairledger/internal/core"
	applog "pairledger/internal/log"

	"github.com/google/uuid"
)

func (r *SQLiteRepository) AddIncome(ctx context.Context, in *core.IncomeObservation) error {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO incomes (id, household_id, member, amount_cents, effective_from, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.HouseholdID, string(in.Member), in.Amount.Cents, in.EffectiveFrom.String(), in.Notes, formatTime(in.CreatedAt))
	if err != nil {
		return fmt.Errorf("add income: %w", err)
	}

	logger().InfoContext(ctx, "Income saved to SQLite",
		applog.FieldOperation, applog.OpCreate,
		"id", in.ID,
		applog.FieldMember, in.Member,
		applog.FieldAmountCents, in.Amount.Cents,
		"effective_from", in.EffectiveFrom.String())
	return nil
}

// ListIncomes returns observations in insertion order.
func (r *SQLiteRepository) ListIncomes(ctx context.Context, householdID string) ([]core.IncomeObservation, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, household_id, member, amount_cents, effective_from, notes, created_at
		FROM incomes WHERE household_id = ? ORDER BY rowid`, householdID)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.IncomeObservation
	for rows.Next() {
		var (
			in                  core.IncomeObservation
			member, from, stamp string
		)
		if err := rows.Scan(&in.ID, &in.HouseholdID, &member, &in.Amount.Cents, &from, &in.Notes, &stamp); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		in.Member = core.Member(member)
		if in.EffectiveFrom, err = core.ParseDate(from); err != nil {
			return nil, err
		}
		if in.CreatedAt, err = parseTime(stamp); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// DeleteIncome removes an observation. Ratios are resolved live, so this
// changes balances for every date the observation was effective on.
func (r *SQLiteRepository) DeleteIncome(ctx context.Context, householdID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM incomes WHERE id = ? AND household_id = ?`, id, householdID)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	return expectOne(res, "income "+id)
}
