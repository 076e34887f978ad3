package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/punchcard/backend/internal/metrics"
	"github.com/punchcard/backend/internal/model"
	"github.com/punchcard/backend/internal/push"
)

// CRMSyncer mirrors crm.Client; nil means CRM sync is disabled.
type CRMSyncer interface {
	SyncMember(ctx context.Context, member *model.Member) error
}

// OutboxWorker drains the outbox queue. It is the only consumer, so
// tasks need no claim step; a crash simply leaves them pending.
type OutboxWorker struct {
	store        OutboxWorkerStore
	pusher       push.Client
	crm          CRMSyncer
	pollInterval time.Duration
	batchSize    int
	maxAttempts  int
}

func NewOutboxWorker(store OutboxWorkerStore, pusher push.Client, crm CRMSyncer, pollInterval time.Duration, batchSize, maxAttempts int) *OutboxWorker {
	return &OutboxWorker{
		store:        store,
		pusher:       pusher,
		crm:          crm,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		maxAttempts:  maxAttempts,
	}
}

func (w *OutboxWorker) Start(ctx context.Context) {
	log.Printf("[Outbox Worker] Started, polling every %v", w.pollInterval)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[Outbox Worker] Stopped")
			return
		case <-ticker.C:
			w.ProcessPending(ctx)
		}
	}
}

// ProcessPending handles one batch of pending tasks.
func (w *OutboxWorker) ProcessPending(ctx context.Context) {
	tasks, err := w.store.ListPendingTasks(ctx, w.batchSize)
	if err != nil {
		log.Printf("[Outbox Worker] Failed to list tasks: %v", err)
		return
	}

	for _, task := range tasks {
		if err := w.handle(ctx, task); err != nil {
			metrics.OutboxTaskFailures.Inc()
			log.Printf("[Outbox Worker] Task %s (%s) failed: %v", task.ID, task.TaskType, err)
			if markErr := w.store.MarkTaskFailed(ctx, task.ID, err.Error(), w.maxAttempts); markErr != nil {
				log.Printf("[Outbox Worker] Failed to mark task %s: %v", task.ID, markErr)
			}
			continue
		}
		if err := w.store.MarkTaskDone(ctx, task.ID); err != nil {
			log.Printf("[Outbox Worker] Failed to finish task %s: %v", task.ID, err)
		}
	}
}

func (w *OutboxWorker) handle(ctx context.Context, task model.OutboxTask) error {
	var payload model.MemberTaskPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return fmt.Errorf("bad payload: %w", err)
	}

	switch task.TaskType {
	case model.OutboxTaskWalletPush:
		return w.dispatchPush(ctx, payload)
	case model.OutboxTaskCRMSync:
		return w.syncCRM(ctx, payload)
	default:
		return fmt.Errorf("unknown task type %q", task.TaskType)
	}
}

// dispatchPush wakes every registered device of the member's live
// passes. Per-device failures are isolated: one dead token never blocks
// the rest, and the task itself still completes.
func (w *OutboxWorker) dispatchPush(ctx context.Context, payload model.MemberTaskPayload) error {
	regs, err := w.store.ListActiveRegistrationsForMember(ctx, payload.MemberID)
	if err != nil {
		return fmt.Errorf("failed to list registrations: %w", err)
	}
	if len(regs) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	for _, reg := range regs {
		wg.Add(1)
		go func(token, deviceID string) {
			defer wg.Done()
			if err := w.pusher.Push(ctx, token); err != nil {
				metrics.PushFailures.Inc()
				log.Printf("[Outbox Worker] Push to device %s failed: %v", deviceID, err)
				return
			}
			metrics.PushesSent.Inc()
		}(reg.PushToken, reg.DeviceLibraryIdentifier)
	}
	wg.Wait()
	return nil
}

func (w *OutboxWorker) syncCRM(ctx context.Context, payload model.MemberTaskPayload) error {
	if w.crm == nil {
		return nil
	}
	member, err := w.store.GetMemberByID(ctx, payload.MemberID)
	if err != nil {
		return fmt.Errorf("failed to load member: %w", err)
	}
	if member == nil {
		return nil
	}
	return w.crm.SyncMember(ctx, member)
}
