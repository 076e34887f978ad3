package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/punchcard/backend/internal/model"
)

// CreateMember inserts a new member with zeroed aggregates.
func (r *Repository) CreateMember(ctx context.Context, member *model.Member) error {
	return r.db.GetContext(ctx, member, `
		INSERT INTO members (full_name, email, tier)
		VALUES ($1, $2, $3)
		RETURNING *`,
		member.FullName, member.Email, member.Tier)
}

// GetMemberByID retrieves a member by ID. Returns (nil, nil) when absent.
func (r *Repository) GetMemberByID(ctx context.Context, id uuid.UUID) (*model.Member, error) {
	var member model.Member
	err := r.db.GetContext(ctx, &member, `
		SELECT * FROM members WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// UpdateMemberTier records a tier transition: the member row and the
// tier_history audit row move together in one transaction.
func (r *Repository) UpdateMemberTier(ctx context.Context, memberID uuid.UUID, oldTier, newTier string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE members SET tier = $1, updated_at = NOW() WHERE id = $2`,
		newTier, memberID)
	if err != nil {
		return fmt.Errorf("failed to update member tier: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tier_history (member_id, old_tier, new_tier)
		VALUES ($1, $2, $3)`,
		memberID, oldTier, newTier)
	if err != nil {
		return fmt.Errorf("failed to record tier history: %w", err)
	}

	return tx.Commit()
}

// ListTierHistory returns the tier audit trail for a member, newest first.
func (r *Repository) ListTierHistory(ctx context.Context, memberID uuid.UUID, limit int) ([]model.TierHistory, error) {
	var history []model.TierHistory
	err := r.db.SelectContext(ctx, &history, `
		SELECT * FROM tier_history
		WHERE member_id = $1
		ORDER BY changed_at DESC
		LIMIT $2`, memberID, limit)
	return history, err
}

// DeactivateMember flags the member inactive. Pass voiding is handled by
// the wallet repository.
func (r *Repository) DeactivateMember(ctx context.Context, memberID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE members SET is_active = false, updated_at = NOW() WHERE id = $1`, memberID)
	return err
}

// SetHasWalletPush toggles the member's wallet-push flag.
func (r *Repository) SetHasWalletPush(ctx context.Context, memberID uuid.UUID, has bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE members SET has_wallet_push = $1, updated_at = NOW() WHERE id = $2`, has, memberID)
	return err
}
