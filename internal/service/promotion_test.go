package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/punchcard/backend/internal/model"
	"github.com/punchcard/backend/internal/service"
	"github.com/punchcard/backend/internal/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tuesday, June 16 2026.
var promoNow = time.Date(2026, 6, 16, 14, 0, 0, 0, time.UTC)

func newPromotionService(store *storetest.Memory) *service.PromotionService {
	svc := service.NewPromotionService(store)
	svc.SetClock(func() time.Time { return promoNow })
	return svc
}

func createPromotion(t *testing.T, store *storetest.Memory, promo *model.Promotion) *model.Promotion {
	t.Helper()
	require.NoError(t, store.CreatePromotion(context.Background(), promo))
	return promo
}

func newLedgerEntry(t *testing.T, store *storetest.Memory, member *model.Member, amount float64) *model.LedgerEntry {
	t.Helper()
	entry := &model.LedgerEntry{
		MemberID:    member.ID,
		EventType:   model.EventTypePurchase,
		AmountSpent: amount,
	}
	require.NoError(t, store.RecordLedgerEntry(context.Background(), entry))
	return entry
}

func TestRedeemEligiblePromotion(t *testing.T) {
	store := storetest.New()
	svc := newPromotionService(store)
	ctx := context.Background()

	member := newTestMember(t, store)
	promo := createPromotion(t, store, &model.Promotion{
		Name:          "Ten percent off",
		DiscountType:  model.DiscountTypePercentage,
		DiscountValue: 10,
		IsActive:      true,
	})
	entry := newLedgerEntry(t, store, member, 80)

	outcome := svc.Redeem(ctx, member, entry, promo.ID)
	assert.True(t, outcome.Redeemed)
	assert.Equal(t, float64(8), outcome.Discount)
	assert.Empty(t, outcome.SkipReason)
	require.Len(t, store.Redemptions, 1)
	assert.Equal(t, entry.ID, store.Redemptions[0].LedgerEntryID)
}

func TestRedeemSkipsAreSilent(t *testing.T) {
	store := storetest.New()
	svc := newPromotionService(store)
	ctx := context.Background()

	member := newTestMember(t, store)
	entry := newLedgerEntry(t, store, member, 80)

	past := promoNow.AddDate(0, -1, 0)
	future := promoNow.AddDate(0, 1, 0)
	otherBranch := uuid.New()

	tests := []struct {
		name  string
		promo *model.Promotion
		skip  string
	}{
		{
			"inactive",
			&model.Promotion{Name: "off", DiscountType: model.DiscountTypeFixed, DiscountValue: 5},
			"not active",
		},
		{
			"expired window",
			&model.Promotion{Name: "old", DiscountType: model.DiscountTypeFixed, DiscountValue: 5, IsActive: true, EndDate: &past},
			"outside validity window",
		},
		{
			"not started",
			&model.Promotion{Name: "soon", DiscountType: model.DiscountTypeFixed, DiscountValue: 5, IsActive: true, StartDate: &future},
			"outside validity window",
		},
		{
			"wrong weekday",
			&model.Promotion{Name: "monday only", DiscountType: model.DiscountTypeFixed, DiscountValue: 5, IsActive: true, ValidDays: "1"},
			"not valid today",
		},
		{
			"branch out of scope",
			&model.Promotion{Name: "one store", DiscountType: model.DiscountTypeFixed, DiscountValue: 5, IsActive: true, BranchScope: otherBranch.String()},
			"branch not in scope",
		},
		{
			"tier out of scope",
			&model.Promotion{Name: "gold club", DiscountType: model.DiscountTypeFixed, DiscountValue: 5, IsActive: true, TierScope: "Gold"},
			"tier not in scope",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			promo := createPromotion(t, store, tt.promo)
			outcome := svc.Redeem(ctx, member, entry, promo.ID)
			assert.False(t, outcome.Redeemed)
			assert.Equal(t, tt.skip, outcome.SkipReason)
		})
	}

	// Unknown promotion is a skip too, never an error.
	outcome := svc.Redeem(ctx, member, entry, uuid.New())
	assert.False(t, outcome.Redeemed)
	assert.Equal(t, "not active", outcome.SkipReason)

	assert.Empty(t, store.Redemptions)
}

func TestRedeemGlobalCap(t *testing.T) {
	store := storetest.New()
	svc := newPromotionService(store)
	ctx := context.Background()

	promo := createPromotion(t, store, &model.Promotion{
		Name:          "First two only",
		DiscountType:  model.DiscountTypeFixed,
		DiscountValue: 5,
		IsActive:      true,
		MaxUsageCount: intPtr(2),
	})

	first := newTestMember(t, store)
	second := newTestMember(t, store)
	third := newTestMember(t, store)

	assert.True(t, svc.Redeem(ctx, first, newLedgerEntry(t, store, first, 50), promo.ID).Redeemed)
	assert.True(t, svc.Redeem(ctx, second, newLedgerEntry(t, store, second, 50), promo.ID).Redeemed)

	outcome := svc.Redeem(ctx, third, newLedgerEntry(t, store, third, 50), promo.ID)
	assert.False(t, outcome.Redeemed)
	assert.Equal(t, "usage cap reached", outcome.SkipReason)
	assert.Len(t, store.Redemptions, 2)
}

func TestRedeemPerMemberCap(t *testing.T) {
	store := storetest.New()
	svc := newPromotionService(store)
	ctx := context.Background()

	promo := createPromotion(t, store, &model.Promotion{
		Name:             "Once each",
		DiscountType:     model.DiscountTypeFixed,
		DiscountValue:    5,
		IsActive:         true,
		MaxUsesPerMember: intPtr(1),
	})

	member := newTestMember(t, store)
	other := newTestMember(t, store)

	assert.True(t, svc.Redeem(ctx, member, newLedgerEntry(t, store, member, 50), promo.ID).Redeemed)

	outcome := svc.Redeem(ctx, member, newLedgerEntry(t, store, member, 50), promo.ID)
	assert.False(t, outcome.Redeemed)
	assert.Equal(t, "member cap reached", outcome.SkipReason)

	// The cap is per member, not global.
	assert.True(t, svc.Redeem(ctx, other, newLedgerEntry(t, store, other, 50), promo.ID).Redeemed)
}

func TestRedeemSameEntryTwice(t *testing.T) {
	store := storetest.New()
	svc := newPromotionService(store)
	ctx := context.Background()

	promo := createPromotion(t, store, &model.Promotion{
		Name:          "off",
		DiscountType:  model.DiscountTypeFixed,
		DiscountValue: 5,
		IsActive:      true,
	})
	member := newTestMember(t, store)
	entry := newLedgerEntry(t, store, member, 50)

	assert.True(t, svc.Redeem(ctx, member, entry, promo.ID).Redeemed)

	outcome := svc.Redeem(ctx, member, entry, promo.ID)
	assert.False(t, outcome.Redeemed)
	assert.Equal(t, "already redeemed", outcome.SkipReason)
	assert.Len(t, store.Redemptions, 1)
}

func TestRedeemConsumesAssignedPromotion(t *testing.T) {
	store := storetest.New()
	svc := newPromotionService(store)
	ctx := context.Background()

	promo := createPromotion(t, store, &model.Promotion{
		Name:          "birthday perk",
		DiscountType:  model.DiscountTypePerk,
		DiscountValue: 0,
		IsActive:      true,
	})
	member := newTestMember(t, store)

	assigned, err := svc.Assign(ctx, member.ID, promo.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssignedPromotionPending, assigned.Status)

	outcome := svc.Redeem(ctx, member, newLedgerEntry(t, store, member, 30), promo.ID)
	assert.True(t, outcome.Redeemed)
	assert.Equal(t, float64(0), outcome.Discount)

	list, err := svc.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got, err := store.ListAssignedPromotions(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.AssignedPromotionUsed, got[0].Status)
	assert.NotNil(t, got[0].UsedAt)
}

func TestCreatePromotionValidation(t *testing.T) {
	svc := newPromotionService(storetest.New())
	ctx := context.Background()

	err := svc.Create(ctx, &model.Promotion{DiscountType: model.DiscountTypeFixed})
	assert.True(t, errors.Is(err, service.ErrValidation))

	err = svc.Create(ctx, &model.Promotion{Name: "x", DiscountType: "half-off"})
	assert.True(t, errors.Is(err, service.ErrValidation))

	err = svc.Create(ctx, &model.Promotion{Name: "x", DiscountType: model.DiscountTypeFixed, DiscountValue: -1})
	assert.True(t, errors.Is(err, service.ErrValidation))
}

func TestDeactivatePromotion(t *testing.T) {
	store := storetest.New()
	svc := newPromotionService(store)
	ctx := context.Background()

	promo := createPromotion(t, store, &model.Promotion{
		Name: "off", DiscountType: model.DiscountTypeFixed, DiscountValue: 5, IsActive: true,
	})

	require.NoError(t, svc.Deactivate(ctx, promo.ID))
	got, err := store.GetPromotionByID(ctx, promo.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	err = svc.Deactivate(ctx, uuid.New())
	assert.True(t, errors.Is(err, service.ErrPromotionNotFound))
}
