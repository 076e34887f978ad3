package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/punchcard/backend/internal/model"
)

type MemberService struct {
	store  MemberStore
	wallet *WalletService
	outbox *OutboxService
}

func NewMemberService(store MemberStore, wallet *WalletService, outbox *OutboxService) *MemberService {
	return &MemberService{store: store, wallet: wallet, outbox: outbox}
}

// Create registers a new member at the base tier with zeroed aggregates.
func (s *MemberService) Create(ctx context.Context, fullName string, email *string) (*model.Member, error) {
	if fullName == "" {
		return nil, fmt.Errorf("%w: full_name is required", ErrValidation)
	}

	member := &model.Member{FullName: fullName, Email: email, Tier: "Basic"}
	if err := s.store.CreateMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}
	return member, nil
}

// Get loads a member or reports ErrMemberNotFound.
func (s *MemberService) Get(ctx context.Context, id uuid.UUID) (*model.Member, error) {
	member, err := s.store.GetMemberByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	return member, nil
}

// Transactions returns a page of the member's ledger.
func (s *MemberService) Transactions(ctx context.Context, id uuid.UUID, limit, offset int) ([]model.LedgerEntry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.store.ListLedgerEntries(ctx, id, limit, offset)
}

// TierHistory returns the member's tier audit trail.
func (s *MemberService) TierHistory(ctx context.Context, id uuid.UUID, limit int) ([]model.TierHistory, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	return s.store.ListTierHistory(ctx, id, limit)
}

// Deactivate retires a member: the flag flips, the wallet passes void
// terminally, and registered devices are woken so they observe the Gone
// state on their next fetch.
func (s *MemberService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.store.DeactivateMember(ctx, id); err != nil {
		return fmt.Errorf("failed to deactivate member: %w", err)
	}
	if err := s.wallet.VoidPasses(ctx, id); err != nil {
		log.Printf("[Members] failed to void passes for %s: %v", id, err)
	}
	s.outbox.EnqueueMemberTasks(ctx, id)
	return nil
}
