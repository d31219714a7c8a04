package storage

import (
	"context"
	"fmt"

	"pairledger/internal/core"
	applog "pairledger/internal/log"

	"github.com/google/uuid"
)

func (r *SQLiteRepository) CreateSettlement(ctx context.Context, s *core.Settlement) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settlements (id, household_id, from_member, to_member, amount_cents, date, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.HouseholdID, string(s.From), string(s.To), s.Amount.Cents, s.Date.String(), s.Notes, formatTime(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("create settlement: %w", err)
	}

	logger().InfoContext(ctx, "Settlement saved to SQLite",
		applog.FieldOperation, applog.OpCreate,
		"id", s.ID,
		"from", s.From,
		"to", s.To,
		applog.FieldAmountCents, s.Amount.Cents)
	return nil
}

// ListSettlements returns the household's settlements oldest first.
func (r *SQLiteRepository) ListSettlements(ctx context.Context, householdID string) ([]core.Settlement, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, household_id, from_member, to_member, amount_cents, date, notes, created_at
		FROM settlements WHERE household_id = ? ORDER BY date, rowid`, householdID)
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	defer rows.Close()

	var out []core.Settlement
	for rows.Next() {
		var (
			s                     core.Settlement
			from, to, date, stamp string
		)
		if err := rows.Scan(&s.ID, &s.HouseholdID, &from, &to, &s.Amount.Cents, &date, &s.Notes, &stamp); err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		s.From = core.Member(from)
		s.To = core.Member(to)
		if s.Date, err = core.ParseDate(date); err != nil {
			return nil, err
		}
		if s.CreatedAt, err = parseTime(stamp); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteSettlement(ctx context.Context, householdID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM settlements WHERE id = ? AND household_id = ?`, id, householdID)
	if err != nil {
		return fmt.Errorf("delete settlement: %w", err)
	}
	return expectOne(res, "settlement "+id)
}
