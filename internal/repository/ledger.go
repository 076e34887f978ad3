package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/punchcard/backend/internal/model"
)

// ErrDuplicateIdempotencyKey is returned when an insert hits the partial
// unique index on ledger_entries.idempotency_key.
var ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

// HasIdempotencyKey is a cheap pre-check; the unique index on insert is
// the authoritative guard.
func (r *Repository) HasIdempotencyKey(ctx context.Context, key string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM ledger_entries WHERE idempotency_key = $1`, key)
	return count > 0, err
}

// RecordLedgerEntry performs the primary write of a transaction: the
// ledger insert and the member aggregate increments commit together, or
// not at all. Aggregates are bumped with in-SQL arithmetic so concurrent
// transactions for the same member never lose updates.
func (r *Repository) RecordLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, entry, `
		INSERT INTO ledger_entries (idempotency_key, member_id, branch_id, event_type, amount_spent, points_earned, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *`,
		entry.IdempotencyKey, entry.MemberID, entry.BranchID, entry.EventType,
		entry.AmountSpent, entry.PointsEarned, entry.Notes)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE members SET
			points = points + $1,
			lifetime_spent = lifetime_spent + $2,
			total_visits = total_visits + 1,
			updated_at = NOW()
		WHERE id = $3`,
		entry.PointsEarned, entry.AmountSpent, entry.MemberID)
	if err != nil {
		return fmt.Errorf("failed to update member aggregates: %w", err)
	}

	return tx.Commit()
}

// ListLedgerEntries returns a member's ledger page, newest first.
func (r *Repository) ListLedgerEntries(ctx context.Context, memberID uuid.UUID, limit, offset int) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM ledger_entries
		WHERE member_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, memberID, limit, offset)
	return entries, err
}
