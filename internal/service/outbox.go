package service

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/punchcard/backend/internal/model"
)

// OutboxService enqueues durable side-effect tasks. Enqueue failures
// are logged, never escalated: the triggering request has already
// committed its primary write.
type OutboxService struct {
	store OutboxStore
}

func NewOutboxService(store OutboxStore) *OutboxService {
	return &OutboxService{store: store}
}

// EnqueueMemberTasks queues the wallet wake-up push and the CRM sync
// for a member whose card-relevant state changed.
func (s *OutboxService) EnqueueMemberTasks(ctx context.Context, memberID uuid.UUID) {
	payload := model.MemberTaskPayload{MemberID: memberID}
	if err := s.store.EnqueueTask(ctx, model.OutboxTaskWalletPush, payload); err != nil {
		log.Printf("[Outbox] failed to enqueue wallet push for %s: %v", memberID, err)
	}
	if err := s.store.EnqueueTask(ctx, model.OutboxTaskCRMSync, payload); err != nil {
		log.Printf("[Outbox] failed to enqueue crm sync for %s: %v", memberID, err)
	}
}
