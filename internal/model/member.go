package model

import (
	"time"

	"github.com/google/uuid"
)

type Member struct {
	ID            uuid.UUID `json:"id" db:"id"`
	FullName      string    `json:"full_name" db:"full_name"`
	Email         *string   `json:"email,omitempty" db:"email"`
	Tier          string    `json:"tier" db:"tier"`
	Points        int64     `json:"points" db:"points"`
	LifetimeSpent float64   `json:"lifetime_spent" db:"lifetime_spent"`
	TotalVisits   int       `json:"total_visits" db:"total_visits"`
	HasWalletPush bool      `json:"has_wallet_push" db:"has_wallet_push"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

type Branch struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TierHistory is an append-only audit row, written once per observed
// tier transition.
type TierHistory struct {
	ID        uuid.UUID `json:"id" db:"id"`
	MemberID  uuid.UUID `json:"member_id" db:"member_id"`
	OldTier   string    `json:"old_tier" db:"old_tier"`
	NewTier   string    `json:"new_tier" db:"new_tier"`
	ChangedAt time.Time `json:"changed_at" db:"changed_at"`
}
