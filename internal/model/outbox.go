package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxTaskType string

const (
	OutboxTaskWalletPush OutboxTaskType = "wallet_push"
	OutboxTaskCRMSync    OutboxTaskType = "crm_sync"
)

type OutboxTaskStatus string

const (
	OutboxTaskPending OutboxTaskStatus = "pending"
	OutboxTaskDone    OutboxTaskStatus = "done"
	OutboxTaskFailed  OutboxTaskStatus = "failed"
)

// OutboxTask is one durable side-effect job enqueued by a primary write
// and consumed by the outbox worker.
type OutboxTask struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	TaskType    OutboxTaskType   `json:"task_type" db:"task_type"`
	Payload     json.RawMessage  `json:"payload" db:"payload"`
	Status      OutboxTaskStatus `json:"status" db:"status"`
	Attempts    int              `json:"attempts" db:"attempts"`
	LastError   *string          `json:"last_error,omitempty" db:"last_error"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time       `json:"processed_at,omitempty" db:"processed_at"`
}

// MemberTaskPayload is the payload shared by wallet_push and crm_sync
// tasks: both operate on one member.
type MemberTaskPayload struct {
	MemberID uuid.UUID `json:"member_id"`
}
