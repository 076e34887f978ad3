package model

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypePurchase EventType = "purchase"
	EventTypeVisit    EventType = "visit"
	EventTypeEvent    EventType = "event" // event attendance
)

func (t EventType) Valid() bool {
	switch t {
	case EventTypePurchase, EventTypeVisit, EventTypeEvent:
		return true
	}
	return false
}

// LedgerEntry is one recorded usage event. Rows are immutable: never
// updated or deleted after insert.
type LedgerEntry struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	IdempotencyKey *string    `json:"idempotency_key,omitempty" db:"idempotency_key"`
	MemberID       uuid.UUID  `json:"member_id" db:"member_id"`
	BranchID       *uuid.UUID `json:"branch_id,omitempty" db:"branch_id"`
	EventType      EventType  `json:"event_type" db:"event_type"`
	AmountSpent    float64    `json:"amount_spent" db:"amount_spent"`
	PointsEarned   int64      `json:"points_earned" db:"points_earned"`
	Notes          *string    `json:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}
