package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
	DiscountTypePoints     DiscountType = "points"
	DiscountTypePerk       DiscountType = "perk"
)

func (t DiscountType) Valid() bool {
	switch t {
	case DiscountTypePercentage, DiscountTypeFixed, DiscountTypePoints, DiscountTypePerk:
		return true
	}
	return false
}

type Promotion struct {
	ID               uuid.UUID    `json:"id" db:"id"`
	Name             string       `json:"name" db:"name"`
	Description      *string      `json:"description,omitempty" db:"description"`
	DiscountType     DiscountType `json:"discount_type" db:"discount_type"`
	DiscountValue    float64      `json:"discount_value" db:"discount_value"`
	StartDate        *time.Time   `json:"start_date,omitempty" db:"start_date"`
	EndDate          *time.Time   `json:"end_date,omitempty" db:"end_date"`
	ValidDays        string       `json:"valid_days" db:"valid_days"`   // csv of time.Weekday ints, "" = any day
	MaxUsageCount    *int         `json:"max_usage_count,omitempty" db:"max_usage_count"`
	MaxUsesPerMember *int         `json:"max_uses_per_member,omitempty" db:"max_uses_per_member"`
	BranchScope      string       `json:"branch_scope" db:"branch_scope"` // csv of branch ids, "" = all branches
	TierScope        string       `json:"tier_scope" db:"tier_scope"`     // csv of tier names, "" = all tiers
	IsActive         bool         `json:"is_active" db:"is_active"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
}

// WeekdaySet parses the csv weekday list. An empty list means the
// promotion runs every day.
func (p *Promotion) WeekdaySet() []time.Weekday {
	if p.ValidDays == "" {
		return nil
	}
	var days []time.Weekday
	for _, part := range strings.Split(p.ValidDays, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > 6 {
			continue
		}
		days = append(days, time.Weekday(n))
	}
	return days
}

// ValidOn reports whether the promotion may run on the given day.
func (p *Promotion) ValidOn(day time.Weekday) bool {
	days := p.WeekdaySet()
	if len(days) == 0 {
		return true
	}
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

// InWindow reports whether now falls inside the validity window.
func (p *Promotion) InWindow(now time.Time) bool {
	if p.StartDate != nil && now.Before(*p.StartDate) {
		return false
	}
	if p.EndDate != nil && now.After(*p.EndDate) {
		return false
	}
	return true
}

// AppliesToBranch reports whether the promotion is usable at the branch.
// A nil branch only passes an unscoped promotion.
func (p *Promotion) AppliesToBranch(branchID *uuid.UUID) bool {
	if p.BranchScope == "" {
		return true
	}
	if branchID == nil {
		return false
	}
	for _, part := range strings.Split(p.BranchScope, ",") {
		if strings.TrimSpace(part) == branchID.String() {
			return true
		}
	}
	return false
}

// AppliesToTier reports whether the member's tier is in scope.
func (p *Promotion) AppliesToTier(tier string) bool {
	if p.TierScope == "" {
		return true
	}
	for _, part := range strings.Split(p.TierScope, ",") {
		if strings.EqualFold(strings.TrimSpace(part), tier) {
			return true
		}
	}
	return false
}

// Discount computes the monetary discount against a spend amount.
// Points and perk promotions redeem without a monetary discount.
func (p *Promotion) Discount(amountSpent float64) float64 {
	switch p.DiscountType {
	case DiscountTypePercentage:
		return amountSpent * p.DiscountValue / 100
	case DiscountTypeFixed:
		if p.DiscountValue > amountSpent {
			return amountSpent
		}
		return p.DiscountValue
	default:
		return 0
	}
}

// Redemption links one ledger entry to one promotion. At most one row
// may exist per (ledger entry, promotion) pair.
type Redemption struct {
	ID             uuid.UUID `json:"id" db:"id"`
	LedgerEntryID  uuid.UUID `json:"ledger_entry_id" db:"ledger_entry_id"`
	PromotionID    uuid.UUID `json:"promotion_id" db:"promotion_id"`
	MemberID       uuid.UUID `json:"member_id" db:"member_id"`
	DiscountAmount float64   `json:"discount_amount" db:"discount_amount"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type AssignedPromotionStatus string

const (
	AssignedPromotionPending AssignedPromotionStatus = "pending"
	AssignedPromotionUsed    AssignedPromotionStatus = "used"
	AssignedPromotionExpired AssignedPromotionStatus = "expired"
)

// AssignedPromotion is a member-specific pending grant. It moves from
// pending to used exactly once, when the promotion is redeemed.
type AssignedPromotion struct {
	ID          uuid.UUID               `json:"id" db:"id"`
	MemberID    uuid.UUID               `json:"member_id" db:"member_id"`
	PromotionID uuid.UUID               `json:"promotion_id" db:"promotion_id"`
	Status      AssignedPromotionStatus `json:"status" db:"status"`
	AssignedAt  time.Time               `json:"assigned_at" db:"assigned_at"`
	UsedAt      *time.Time              `json:"used_at,omitempty" db:"used_at"`
}
