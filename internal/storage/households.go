package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pairledger/internal/core"
	applog "pairledger/internal/log"

	"github.com/google/uuid"
)

const householdColumns = `id, name, invite_code, member_a, member_b, created_at`

// CreateHousehold inserts h, filling in ID, name and creation time when unset.
func (r *SQLiteRepository) CreateHousehold(ctx context.Context, h *core.Household) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.Name == "" {
		h.Name = core.DefaultHouseholdName
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO households (id, name, invite_code, member_a, member_b, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		h.ID, h.Name, nullString(h.InviteCode), h.MemberA, nullString(h.MemberB), formatTime(h.CreatedAt))
	if err != nil {
		return fmt.Errorf("create household: %w", err)
	}

	logger().InfoContext(ctx, "Household saved to SQLite",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldHousehold, h.ID,
		"name", h.Name)
	return nil
}

func (r *SQLiteRepository) GetHousehold(ctx context.Context, id string) (core.Household, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+householdColumns+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if err != nil {
		return core.Household{}, notFound(err, "household "+id)
	}
	return h, nil
}

// FindHouseholdByMember returns the household the user belongs to.
func (r *SQLiteRepository) FindHouseholdByMember(ctx context.Context, userID string) (core.Household, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+householdColumns+` FROM households
		WHERE member_a = ? OR member_b = ?
		ORDER BY created_at LIMIT 1`, userID, userID)
	h, err := scanHousehold(row)
	if err != nil {
		return core.Household{}, notFound(err, "household for user "+userID)
	}
	return h, nil
}

// JoinHousehold fills member B of the household holding the invite code and
// consumes the code.
func (r *SQLiteRepository) JoinHousehold(ctx context.Context, inviteCode, userID string) (core.Household, error) {
	var joined core.Household
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+householdColumns+` FROM households WHERE invite_code = ?`, inviteCode)
		h, err := scanHousehold(row)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrInvalidInviteCode
		}
		if err != nil {
			return fmt.Errorf("find household by invite code: %w", err)
		}
		if h.HasPartner() {
			return core.ErrHouseholdFull
		}
		if h.MemberA == userID {
			return fmt.Errorf("user %s already owns household %s", userID, h.ID)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE households SET member_b = ?, invite_code = NULL
			WHERE id = ? AND member_b IS NULL`, userID, h.ID)
		if err != nil {
			return fmt.Errorf("join household: %w", err)
		}
		if err := expectOne(res, "household "+h.ID); err != nil {
			return err
		}
		h.MemberB = userID
		h.InviteCode = ""
		joined = h
		return nil
	})
	if err != nil {
		return core.Household{}, err
	}

	logger().InfoContext(ctx, "Member joined household", applog.FieldHousehold, joined.ID)
	return joined, nil
}

// SetInviteCode replaces the household's invite code.
func (r *SQLiteRepository) SetInviteCode(ctx context.Context, householdID, code string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE households SET invite_code = ? WHERE id = ?`, nullString(code), householdID)
	if err != nil {
		return fmt.Errorf("set invite code: %w", err)
	}
	return expectOne(res, "household "+householdID)
}

func (r *SQLiteRepository) RenameHousehold(ctx context.Context, householdID, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE households SET name = ? WHERE id = ?`, name, householdID)
	if err != nil {
		return fmt.Errorf("rename household: %w", err)
	}
	return expectOne(res, "household "+householdID)
}

func scanHousehold(row rowScanner) (core.Household, error) {
	var (
		h          core.Household
		inviteCode sql.NullString
		memberB    sql.NullString
		createdAt  string
	)
	if err := row.Scan(&h.ID, &h.Name, &inviteCode, &h.MemberA, &memberB, &createdAt); err != nil {
		return core.Household{}, err
	}
	h.InviteCode = inviteCode.String
	h.MemberB = memberB.String
	t, err := parseTime(createdAt)
	if err != nil {
		return core.Household{}, err
	}
	h.CreatedAt = t
	return h, nil
}
