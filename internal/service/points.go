package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/punchcard/backend/internal/model"
	"github.com/punchcard/backend/internal/repository"
)

// Points rule settings. Re-read from the settings table on every
// evaluation so rule changes take effect without a restart.
const (
	SettingPointsPolicyMode = "points_policy_mode"
	SettingPointsPerDollar  = "points_per_dollar_spent"
	SettingPointsPerVisit   = "points_per_visit"
	SettingPointsPerEvent   = "points_per_event_attended"
)

const (
	// PointsPolicyConfigurable is the per-dollar/per-visit/per-event
	// policy and the default.
	PointsPolicyConfigurable = "configurable"
	// PointsPolicyLegacyFlat awards a flat per-visit amount regardless
	// of spend. Kept selectable until the long-term policy is settled.
	PointsPolicyLegacyFlat = "legacy_flat"
)

const (
	DefaultPointsPerDollar = 1.0
	DefaultPointsPerVisit  = 10
	DefaultPointsPerEvent  = 20
)

// PointsPolicy computes points earned for a usage event.
type PointsPolicy struct {
	settings SettingsStore
}

func NewPointsPolicy(settings SettingsStore) *PointsPolicy {
	return &PointsPolicy{settings: settings}
}

func (p *PointsPolicy) settingFloat(ctx context.Context, key string, def float64) (float64, error) {
	value, err := p.settings.GetSettingFloat(ctx, key)
	if errors.Is(err, repository.ErrSettingNotFound) {
		return def, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

func (p *PointsPolicy) mode(ctx context.Context) (string, error) {
	value, err := p.settings.GetSetting(ctx, SettingPointsPolicyMode)
	if errors.Is(err, repository.ErrSettingNotFound) {
		return PointsPolicyConfigurable, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read points policy mode: %w", err)
	}
	return value, nil
}

// Compute returns the points earned for one event.
func (p *PointsPolicy) Compute(ctx context.Context, eventType model.EventType, amountSpent float64) (int64, error) {
	mode, err := p.mode(ctx)
	if err != nil {
		return 0, err
	}

	perVisit, err := p.settingFloat(ctx, SettingPointsPerVisit, DefaultPointsPerVisit)
	if err != nil {
		return 0, err
	}
	perEvent, err := p.settingFloat(ctx, SettingPointsPerEvent, DefaultPointsPerEvent)
	if err != nil {
		return 0, err
	}

	if eventType == model.EventTypeEvent {
		return int64(perEvent), nil
	}

	if mode == PointsPolicyLegacyFlat {
		return int64(perVisit), nil
	}

	perDollar, err := p.settingFloat(ctx, SettingPointsPerDollar, DefaultPointsPerDollar)
	if err != nil {
		return 0, err
	}
	return int64(perVisit) + int64(math.Floor(amountSpent*perDollar)), nil
}
