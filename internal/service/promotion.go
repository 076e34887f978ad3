package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/punchcard/backend/internal/metrics"
	"github.com/punchcard/backend/internal/model"
	"github.com/punchcard/backend/internal/repository"
)

type PromotionService struct {
	store PromotionStore

	// now is swapped out in tests that pin the weekday.
	now func() time.Time
}

func NewPromotionService(store PromotionStore) *PromotionService {
	return &PromotionService{store: store, now: time.Now}
}

// RedeemOutcome reports one promotion attempt within a transaction.
// A skipped promotion never fails the surrounding transaction.
type RedeemOutcome struct {
	PromotionID uuid.UUID `json:"promotion_id"`
	Redeemed    bool      `json:"redeemed"`
	Discount    float64   `json:"discount"`
	SkipReason  string    `json:"skip_reason,omitempty"`
}

func skipped(id uuid.UUID, reason string) RedeemOutcome {
	metrics.PromotionsSkipped.Inc()
	return RedeemOutcome{PromotionID: id, SkipReason: reason}
}

// Redeem evaluates one requested promotion against a freshly recorded
// ledger entry and applies it when eligible. Eligibility is evaluated
// in a fixed order and every failure is a silent skip. The store call
// re-checks the caps under a row lock; the pre-checks here only avoid
// pointless lock traffic.
func (s *PromotionService) Redeem(ctx context.Context, member *model.Member, entry *model.LedgerEntry, promotionID uuid.UUID) RedeemOutcome {
	promo, err := s.store.GetPromotionByID(ctx, promotionID)
	if err != nil {
		log.Printf("[Promotions] lookup %s failed: %v", promotionID, err)
		return skipped(promotionID, "lookup failed")
	}
	if promo == nil || !promo.IsActive {
		return skipped(promotionID, "not active")
	}

	now := s.now()
	if !promo.InWindow(now) {
		return skipped(promotionID, "outside validity window")
	}
	if !promo.ValidOn(now.Weekday()) {
		return skipped(promotionID, "not valid today")
	}
	if !promo.AppliesToBranch(entry.BranchID) {
		return skipped(promotionID, "branch not in scope")
	}
	if !promo.AppliesToTier(member.Tier) {
		return skipped(promotionID, "tier not in scope")
	}

	if promo.MaxUsageCount != nil {
		count, err := s.store.CountRedemptions(ctx, promo.ID)
		if err != nil {
			log.Printf("[Promotions] count for %s failed: %v", promo.ID, err)
			return skipped(promotionID, "count failed")
		}
		if count >= *promo.MaxUsageCount {
			return skipped(promotionID, "usage cap reached")
		}
	}
	if promo.MaxUsesPerMember != nil {
		count, err := s.store.CountMemberRedemptions(ctx, promo.ID, member.ID)
		if err != nil {
			log.Printf("[Promotions] member count for %s failed: %v", promo.ID, err)
			return skipped(promotionID, "count failed")
		}
		if count >= *promo.MaxUsesPerMember {
			return skipped(promotionID, "member cap reached")
		}
	}

	red := &model.Redemption{
		LedgerEntryID:  entry.ID,
		PromotionID:    promo.ID,
		MemberID:       member.ID,
		DiscountAmount: promo.Discount(entry.AmountSpent),
	}
	if err := s.store.RedeemPromotion(ctx, red, promo.MaxUsageCount, promo.MaxUsesPerMember); err != nil {
		if errors.Is(err, repository.ErrPromotionCapReached) {
			return skipped(promotionID, "usage cap reached")
		}
		if errors.Is(err, repository.ErrAlreadyRedeemed) {
			return skipped(promotionID, "already redeemed")
		}
		log.Printf("[Promotions] redeem %s failed: %v", promo.ID, err)
		return skipped(promotionID, "redeem failed")
	}

	metrics.PromotionsRedeemed.Inc()
	return RedeemOutcome{PromotionID: promo.ID, Redeemed: true, Discount: red.DiscountAmount}
}

// Create validates and persists a promotion (admin plumbing).
func (s *PromotionService) Create(ctx context.Context, promo *model.Promotion) error {
	if promo.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !promo.DiscountType.Valid() {
		return fmt.Errorf("%w: unknown discount type %q", ErrValidation, promo.DiscountType)
	}
	if promo.DiscountValue < 0 {
		return fmt.Errorf("%w: discount value must not be negative", ErrValidation)
	}
	return s.store.CreatePromotion(ctx, promo)
}

// List pages promotions, newest first.
func (s *PromotionService) List(ctx context.Context, limit, offset int) ([]model.Promotion, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListPromotions(ctx, limit, offset)
}

// Deactivate turns a promotion off.
func (s *PromotionService) Deactivate(ctx context.Context, id uuid.UUID) error {
	promo, err := s.store.GetPromotionByID(ctx, id)
	if err != nil {
		return err
	}
	if promo == nil {
		return ErrPromotionNotFound
	}
	return s.store.DeactivatePromotion(ctx, id)
}

// Assign grants a pending member-specific promotion.
func (s *PromotionService) Assign(ctx context.Context, memberID, promotionID uuid.UUID) (*model.AssignedPromotion, error) {
	promo, err := s.store.GetPromotionByID(ctx, promotionID)
	if err != nil {
		return nil, err
	}
	if promo == nil {
		return nil, ErrPromotionNotFound
	}

	assigned := &model.AssignedPromotion{MemberID: memberID, PromotionID: promotionID}
	if err := s.store.AssignPromotion(ctx, assigned); err != nil {
		return nil, err
	}
	return assigned, nil
}
