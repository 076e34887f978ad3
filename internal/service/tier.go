package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/punchcard/backend/internal/metrics"
	"github.com/punchcard/backend/internal/model"
	"github.com/punchcard/backend/internal/repository"
)

// SettingTierThresholds holds the tier ladder as a JSON array of
// TierThreshold objects.
const SettingTierThresholds = "tier_thresholds"

// TierThreshold describes one tier. A member qualifies when ANY of the
// set requirements is met; a tier with none set always qualifies.
type TierThreshold struct {
	Name           string   `json:"name"`
	Rank           int      `json:"rank"`
	MinSpent       *float64 `json:"min_spent,omitempty"`
	MinVisits      *int     `json:"min_visits,omitempty"`
	PointsRequired *int64   `json:"points_required,omitempty"`
	VisitsRequired *int     `json:"visits_required,omitempty"`
}

func (t TierThreshold) qualifies(m *model.Member) bool {
	if t.MinSpent == nil && t.MinVisits == nil && t.PointsRequired == nil && t.VisitsRequired == nil {
		return true
	}
	if t.MinSpent != nil && m.LifetimeSpent >= *t.MinSpent {
		return true
	}
	if t.MinVisits != nil && m.TotalVisits >= *t.MinVisits {
		return true
	}
	if t.PointsRequired != nil && m.Points >= *t.PointsRequired {
		return true
	}
	if t.VisitsRequired != nil && m.TotalVisits >= *t.VisitsRequired {
		return true
	}
	return false
}

func floatPtr(v float64) *float64 { return &v }
func int64Ptr(v int64) *int64     { return &v }

var defaultTierThresholds = []TierThreshold{
	{Name: "Basic", Rank: 0},
	{Name: "Silver", Rank: 1, MinSpent: floatPtr(500), PointsRequired: int64Ptr(500)},
	{Name: "Gold", Rank: 2, MinSpent: floatPtr(1500), PointsRequired: int64Ptr(1500)},
	{Name: "Platinum", Rank: 3, MinSpent: floatPtr(4000), PointsRequired: int64Ptr(4000)},
}

// TierChange reports one observed tier transition.
type TierChange struct {
	OldTier string `json:"old_tier"`
	NewTier string `json:"new_tier"`
}

type TierService struct {
	store TierStore
}

func NewTierService(store TierStore) *TierService {
	return &TierService{store: store}
}

// Thresholds loads the configured tier ladder, falling back to the
// compiled defaults when unset or malformed.
func (s *TierService) Thresholds(ctx context.Context) []TierThreshold {
	value, err := s.store.GetSetting(ctx, SettingTierThresholds)
	if err != nil {
		if !errors.Is(err, repository.ErrSettingNotFound) {
			log.Printf("[Tiers] failed to read thresholds, using defaults: %v", err)
		}
		return defaultTierThresholds
	}

	var thresholds []TierThreshold
	if err := json.Unmarshal([]byte(value), &thresholds); err != nil || len(thresholds) == 0 {
		log.Printf("[Tiers] malformed %s setting, using defaults", SettingTierThresholds)
		return defaultTierThresholds
	}
	return thresholds
}

// ComputeTier derives the member's tier: the highest-rank tier whose
// requirements the member meets.
func (s *TierService) ComputeTier(member *model.Member, thresholds []TierThreshold) string {
	name := thresholds[0].Name
	bestRank := -1
	for _, t := range thresholds {
		if t.qualifies(member) && t.Rank > bestRank {
			bestRank = t.Rank
			name = t.Name
		}
	}
	return name
}

// Recompute re-derives the tier from the member's current aggregates and,
// on a change, appends exactly one tier-history row. The member struct is
// updated in place.
func (s *TierService) Recompute(ctx context.Context, member *model.Member) (*TierChange, error) {
	newTier := s.ComputeTier(member, s.Thresholds(ctx))
	if newTier == member.Tier {
		return nil, nil
	}

	if err := s.store.UpdateMemberTier(ctx, member.ID, member.Tier, newTier); err != nil {
		return nil, fmt.Errorf("failed to record tier change: %w", err)
	}

	change := &TierChange{OldTier: member.Tier, NewTier: newTier}
	member.Tier = newTier
	metrics.TierChanges.Inc()
	return change, nil
}
