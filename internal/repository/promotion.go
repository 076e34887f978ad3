package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/punchcard/backend/internal/model"
)

var (
	// ErrPromotionCapReached is returned when a redemption would exceed
	// the promotion's global or per-member usage cap.
	ErrPromotionCapReached = errors.New("promotion usage cap reached")
	// ErrAlreadyRedeemed is returned when the (ledger entry, promotion)
	// pair already has a redemption.
	ErrAlreadyRedeemed = errors.New("promotion already redeemed for this ledger entry")
)

// GetPromotionByID retrieves a promotion. Returns (nil, nil) when absent.
func (r *Repository) GetPromotionByID(ctx context.Context, id uuid.UUID) (*model.Promotion, error) {
	var promo model.Promotion
	err := r.db.GetContext(ctx, &promo, `
		SELECT * FROM promotions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

// CountRedemptions returns the global redemption count for a promotion.
func (r *Repository) CountRedemptions(ctx context.Context, promotionID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM redemptions WHERE promotion_id = $1`, promotionID)
	return count, err
}

// CountMemberRedemptions returns how many times a member has redeemed a
// promotion.
func (r *Repository) CountMemberRedemptions(ctx context.Context, promotionID, memberID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM redemptions
		WHERE promotion_id = $1 AND member_id = $2`, promotionID, memberID)
	return count, err
}

// RedeemPromotion inserts a redemption with the cap checks race-closed:
// the promotion row is locked for the duration of the transaction, so
// concurrent redemptions of the same promotion serialize and re-count
// inside the lock. The unique (ledger_entry_id, promotion_id) index
// bounds the pair regardless.
func (r *Repository) RedeemPromotion(ctx context.Context, red *model.Redemption, maxUsageCount, maxUsesPerMember *int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var locked uuid.UUID
	err = tx.GetContext(ctx, &locked, `
		SELECT id FROM promotions WHERE id = $1 FOR UPDATE`, red.PromotionID)
	if err != nil {
		return fmt.Errorf("failed to lock promotion: %w", err)
	}

	if maxUsageCount != nil {
		var count int
		err = tx.GetContext(ctx, &count, `
			SELECT COUNT(*) FROM redemptions WHERE promotion_id = $1`, red.PromotionID)
		if err != nil {
			return fmt.Errorf("failed to count redemptions: %w", err)
		}
		if count >= *maxUsageCount {
			return ErrPromotionCapReached
		}
	}

	if maxUsesPerMember != nil {
		var count int
		err = tx.GetContext(ctx, &count, `
			SELECT COUNT(*) FROM redemptions
			WHERE promotion_id = $1 AND member_id = $2`, red.PromotionID, red.MemberID)
		if err != nil {
			return fmt.Errorf("failed to count member redemptions: %w", err)
		}
		if count >= *maxUsesPerMember {
			return ErrPromotionCapReached
		}
	}

	err = tx.GetContext(ctx, red, `
		INSERT INTO redemptions (ledger_entry_id, promotion_id, member_id, discount_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING *`,
		red.LedgerEntryID, red.PromotionID, red.MemberID, red.DiscountAmount)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyRedeemed
		}
		return fmt.Errorf("failed to insert redemption: %w", err)
	}

	// Opportunistic: consume one matching pending grant, never insert one.
	_, err = tx.ExecContext(ctx, `
		UPDATE assigned_promotions SET status = 'used', used_at = NOW()
		WHERE id = (
			SELECT id FROM assigned_promotions
			WHERE member_id = $1 AND promotion_id = $2 AND status = 'pending'
			ORDER BY assigned_at
			LIMIT 1
		)`, red.MemberID, red.PromotionID)
	if err != nil {
		return fmt.Errorf("failed to consume assigned promotion: %w", err)
	}

	return tx.Commit()
}

// CreatePromotion creates a new promotion (admin plumbing).
func (r *Repository) CreatePromotion(ctx context.Context, promo *model.Promotion) error {
	return r.db.GetContext(ctx, promo, `
		INSERT INTO promotions (name, description, discount_type, discount_value, start_date, end_date,
			valid_days, max_usage_count, max_uses_per_member, branch_scope, tier_scope, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING *`,
		promo.Name, promo.Description, promo.DiscountType, promo.DiscountValue,
		promo.StartDate, promo.EndDate, promo.ValidDays, promo.MaxUsageCount,
		promo.MaxUsesPerMember, promo.BranchScope, promo.TierScope, promo.IsActive)
}

// ListPromotions lists promotions, newest first (admin plumbing).
func (r *Repository) ListPromotions(ctx context.Context, limit, offset int) ([]model.Promotion, error) {
	var promos []model.Promotion
	err := r.db.SelectContext(ctx, &promos, `
		SELECT * FROM promotions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	return promos, err
}

// DeactivatePromotion deactivates a promotion.
func (r *Repository) DeactivatePromotion(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE promotions SET is_active = false WHERE id = $1`, id)
	return err
}

// AssignPromotion grants a member-specific pending promotion.
func (r *Repository) AssignPromotion(ctx context.Context, assigned *model.AssignedPromotion) error {
	return r.db.GetContext(ctx, assigned, `
		INSERT INTO assigned_promotions (member_id, promotion_id, status)
		VALUES ($1, $2, 'pending')
		RETURNING *`,
		assigned.MemberID, assigned.PromotionID)
}

// ListAssignedPromotions returns a member's grants, newest first.
func (r *Repository) ListAssignedPromotions(ctx context.Context, memberID uuid.UUID) ([]model.AssignedPromotion, error) {
	var assigned []model.AssignedPromotion
	err := r.db.SelectContext(ctx, &assigned, `
		SELECT * FROM assigned_promotions
		WHERE member_id = $1
		ORDER BY assigned_at DESC`, memberID)
	return assigned, err
}
