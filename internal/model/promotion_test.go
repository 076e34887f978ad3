package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPromotionWeekdaySet(t *testing.T) {
	tests := []struct {
		name      string
		validDays string
		want      []time.Weekday
	}{
		{"empty means any day", "", nil},
		{"single day", "2", []time.Weekday{time.Tuesday}},
		{"several days", "0,6", []time.Weekday{time.Sunday, time.Saturday}},
		{"spaces tolerated", " 1 , 3 ", []time.Weekday{time.Monday, time.Wednesday}},
		{"garbage entries dropped", "2,x,9", []time.Weekday{time.Tuesday}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Promotion{ValidDays: tt.validDays}
			assert.Equal(t, tt.want, p.WeekdaySet())
		})
	}
}

func TestPromotionValidOn(t *testing.T) {
	p := &Promotion{ValidDays: "2,4"}
	assert.True(t, p.ValidOn(time.Tuesday))
	assert.True(t, p.ValidOn(time.Thursday))
	assert.False(t, p.ValidOn(time.Monday))

	unrestricted := &Promotion{}
	assert.True(t, unrestricted.ValidOn(time.Monday))
}

func TestPromotionInWindow(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	before := now.AddDate(0, 0, -10)
	after := now.AddDate(0, 0, 10)

	tests := []struct {
		name  string
		promo Promotion
		want  bool
	}{
		{"no window", Promotion{}, true},
		{"inside", Promotion{StartDate: &before, EndDate: &after}, true},
		{"not started", Promotion{StartDate: &after}, false},
		{"expired", Promotion{EndDate: &before}, false},
		{"open ended", Promotion{StartDate: &before}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.promo.InWindow(now))
		})
	}
}

func TestPromotionAppliesToBranch(t *testing.T) {
	inScope := uuid.New()
	outOfScope := uuid.New()

	unscoped := &Promotion{}
	assert.True(t, unscoped.AppliesToBranch(nil))
	assert.True(t, unscoped.AppliesToBranch(&outOfScope))

	scoped := &Promotion{BranchScope: inScope.String() + "," + uuid.NewString()}
	assert.True(t, scoped.AppliesToBranch(&inScope))
	assert.False(t, scoped.AppliesToBranch(&outOfScope))
	assert.False(t, scoped.AppliesToBranch(nil))
}

func TestPromotionAppliesToTier(t *testing.T) {
	unscoped := &Promotion{}
	assert.True(t, unscoped.AppliesToTier("Basic"))

	scoped := &Promotion{TierScope: "Gold,Platinum"}
	assert.True(t, scoped.AppliesToTier("Gold"))
	assert.True(t, scoped.AppliesToTier("platinum"))
	assert.False(t, scoped.AppliesToTier("Basic"))
}

func TestPromotionDiscount(t *testing.T) {
	tests := []struct {
		name  string
		promo Promotion
		spent float64
		want  float64
	}{
		{"percentage", Promotion{DiscountType: DiscountTypePercentage, DiscountValue: 10}, 80, 8},
		{"fixed", Promotion{DiscountType: DiscountTypeFixed, DiscountValue: 5}, 80, 5},
		{"fixed capped at spend", Promotion{DiscountType: DiscountTypeFixed, DiscountValue: 100}, 80, 80},
		{"points has no monetary discount", Promotion{DiscountType: DiscountTypePoints, DiscountValue: 50}, 80, 0},
		{"perk has no monetary discount", Promotion{DiscountType: DiscountTypePerk, DiscountValue: 1}, 80, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.promo.Discount(tt.spent))
		})
	}
}

func TestEventTypeValid(t *testing.T) {
	assert.True(t, EventTypePurchase.Valid())
	assert.True(t, EventTypeVisit.Valid())
	assert.True(t, EventTypeEvent.Valid())
	assert.False(t, EventType("refund").Valid())
	assert.False(t, EventType("").Valid())
}
