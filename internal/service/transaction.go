package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/punchcard/backend/internal/metrics"
	"github.com/punchcard/backend/internal/model"
	"github.com/punchcard/backend/internal/repository"
)

// RecordTransactionInput is one usage event to record.
type RecordTransactionInput struct {
	MemberID       uuid.UUID       `json:"member_id"`
	EventType      model.EventType `json:"event_type"`
	AmountSpent    float64         `json:"amount_spent"`
	BranchID       *uuid.UUID      `json:"branch_id,omitempty"`
	IdempotencyKey *string         `json:"idempotency_key,omitempty"`
	PromotionIDs   []uuid.UUID     `json:"promotion_ids,omitempty"`
	Notes          *string         `json:"notes,omitempty"`
}

type RecordTransactionResult struct {
	LedgerEntryID uuid.UUID       `json:"ledger_entry_id"`
	PointsEarned  int64           `json:"points_earned"`
	TotalDiscount float64         `json:"total_discount"`
	NewTier       *string         `json:"new_tier,omitempty"`
	Promotions    []RedeemOutcome `json:"promotions,omitempty"`
}

// TransactionService is the recorder: it owns the primary write and
// drives promotion redemption, tier recomputation and the wallet/CRM
// side effects.
type TransactionService struct {
	store      TransactionStore
	points     *PointsPolicy
	promotions *PromotionService
	tiers      *TierService
	wallet     *WalletService
	outbox     *OutboxService
}

func NewTransactionService(
	store TransactionStore,
	points *PointsPolicy,
	promotions *PromotionService,
	tiers *TierService,
	wallet *WalletService,
	outbox *OutboxService,
) *TransactionService {
	return &TransactionService{
		store:      store,
		points:     points,
		promotions: promotions,
		tiers:      tiers,
		wallet:     wallet,
		outbox:     outbox,
	}
}

func (in *RecordTransactionInput) validate() error {
	if in.MemberID == uuid.Nil {
		return fmt.Errorf("%w: member_id is required", ErrValidation)
	}
	if !in.EventType.Valid() {
		return fmt.Errorf("%w: unknown event type %q", ErrValidation, in.EventType)
	}
	if in.AmountSpent < 0 {
		return fmt.Errorf("%w: amount_spent must not be negative", ErrValidation)
	}
	if in.EventType == model.EventTypePurchase && in.AmountSpent == 0 {
		return fmt.Errorf("%w: amount_spent is required for purchases", ErrValidation)
	}
	if in.IdempotencyKey != nil && *in.IdempotencyKey == "" {
		return fmt.Errorf("%w: idempotency_key must not be empty", ErrValidation)
	}
	return nil
}

// Record records one usage event. The ledger insert and the aggregate
// increments are all-or-nothing; everything after them is applied on a
// best-effort basis and never rolls the primary write back.
func (s *TransactionService) Record(ctx context.Context, input *RecordTransactionInput) (*RecordTransactionResult, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	member, err := s.store.GetMemberByID(ctx, input.MemberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	if !member.IsActive {
		return nil, fmt.Errorf("%w: member is deactivated", ErrValidation)
	}

	// Pre-check is an optimization; the unique index on insert decides.
	if input.IdempotencyKey != nil {
		exists, err := s.store.HasIdempotencyKey(ctx, *input.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if exists {
			return nil, ErrDuplicateTransaction
		}
	}

	points, err := s.points.Compute(ctx, input.EventType, input.AmountSpent)
	if err != nil {
		return nil, err
	}

	entry := &model.LedgerEntry{
		IdempotencyKey: input.IdempotencyKey,
		MemberID:       member.ID,
		BranchID:       input.BranchID,
		EventType:      input.EventType,
		AmountSpent:    input.AmountSpent,
		PointsEarned:   points,
		Notes:          input.Notes,
	}
	if err := s.store.RecordLedgerEntry(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateIdempotencyKey) {
			return nil, ErrDuplicateTransaction
		}
		return nil, fmt.Errorf("failed to record ledger entry: %w", err)
	}
	metrics.TransactionsRecorded.Inc()

	// Mirror the committed increments so tier derivation sees them.
	member.Points += points
	member.LifetimeSpent += input.AmountSpent
	member.TotalVisits++

	result := &RecordTransactionResult{
		LedgerEntryID: entry.ID,
		PointsEarned:  points,
	}

	for _, promotionID := range input.PromotionIDs {
		outcome := s.promotions.Redeem(ctx, member, entry, promotionID)
		result.Promotions = append(result.Promotions, outcome)
		result.TotalDiscount += outcome.Discount
	}

	change, err := s.tiers.Recompute(ctx, member)
	if err != nil {
		// The primary write is committed; the next transaction will
		// observe the same aggregates and retry the transition.
		log.Printf("[Transactions] tier recompute for %s failed: %v", member.ID, err)
	} else if change != nil {
		result.NewTier = &change.NewTier
	}

	// Card-visible state changed: bump pass freshness before any push
	// can fire, then hand the side effects to the outbox.
	if err := s.wallet.Touch(ctx, member.ID); err != nil {
		log.Printf("[Transactions] pass touch for %s failed: %v", member.ID, err)
	}
	s.outbox.EnqueueMemberTasks(ctx, member.ID)

	return result, nil
}
