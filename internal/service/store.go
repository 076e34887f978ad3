package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/punchcard/backend/internal/model"
)

// Store interfaces consumed by the services. *repository.Repository
// satisfies all of them; tests substitute an in-memory store.

type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	GetSettingFloat(ctx context.Context, key string) (float64, error)
	SetSetting(ctx context.Context, key, value string) error
	GetAllSettings(ctx context.Context) (map[string]string, error)
}

type MemberStore interface {
	CreateMember(ctx context.Context, member *model.Member) error
	GetMemberByID(ctx context.Context, id uuid.UUID) (*model.Member, error)
	DeactivateMember(ctx context.Context, memberID uuid.UUID) error
	ListLedgerEntries(ctx context.Context, memberID uuid.UUID, limit, offset int) ([]model.LedgerEntry, error)
	ListTierHistory(ctx context.Context, memberID uuid.UUID, limit int) ([]model.TierHistory, error)
}

type TransactionStore interface {
	GetMemberByID(ctx context.Context, id uuid.UUID) (*model.Member, error)
	HasIdempotencyKey(ctx context.Context, key string) (bool, error)
	RecordLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error
}

type PromotionStore interface {
	GetPromotionByID(ctx context.Context, id uuid.UUID) (*model.Promotion, error)
	CountRedemptions(ctx context.Context, promotionID uuid.UUID) (int, error)
	CountMemberRedemptions(ctx context.Context, promotionID, memberID uuid.UUID) (int, error)
	RedeemPromotion(ctx context.Context, red *model.Redemption, maxUsageCount, maxUsesPerMember *int) error
	CreatePromotion(ctx context.Context, promo *model.Promotion) error
	ListPromotions(ctx context.Context, limit, offset int) ([]model.Promotion, error)
	DeactivatePromotion(ctx context.Context, id uuid.UUID) error
	AssignPromotion(ctx context.Context, assigned *model.AssignedPromotion) error
	ListAssignedPromotions(ctx context.Context, memberID uuid.UUID) ([]model.AssignedPromotion, error)
}

type TierStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	UpdateMemberTier(ctx context.Context, memberID uuid.UUID, oldTier, newTier string) error
}

type WalletStore interface {
	CreateWalletPass(ctx context.Context, pass *model.WalletPass) error
	GetWalletPassBySerial(ctx context.Context, serial string) (*model.WalletPass, error)
	GetWalletPassByMember(ctx context.Context, memberID uuid.UUID, platform string) (*model.WalletPass, error)
	TouchMemberPasses(ctx context.Context, memberID uuid.UUID) error
	VoidMemberPasses(ctx context.Context, memberID uuid.UUID) error
	GetDeviceRegistration(ctx context.Context, deviceID, serial string) (*model.DeviceRegistration, error)
	UpsertDeviceRegistration(ctx context.Context, deviceID, serial, pushToken string) error
	DeactivateDeviceRegistration(ctx context.Context, deviceID, serial string) error
	CountActiveRegistrationsForMember(ctx context.Context, memberID uuid.UUID) (int, error)
	ListDeviceSerialsUpdatedSince(ctx context.Context, deviceID string, since *int64) ([]string, error)
	SetHasWalletPush(ctx context.Context, memberID uuid.UUID, has bool) error
	GetMemberByID(ctx context.Context, id uuid.UUID) (*model.Member, error)
}

type OutboxStore interface {
	EnqueueTask(ctx context.Context, taskType model.OutboxTaskType, payload interface{}) error
}

type OutboxWorkerStore interface {
	ListPendingTasks(ctx context.Context, limit int) ([]model.OutboxTask, error)
	MarkTaskDone(ctx context.Context, id uuid.UUID) error
	MarkTaskFailed(ctx context.Context, id uuid.UUID, taskErr string, maxAttempts int) error
	ListActiveRegistrationsForMember(ctx context.Context, memberID uuid.UUID) ([]model.DeviceRegistration, error)
	GetMemberByID(ctx context.Context, id uuid.UUID) (*model.Member, error)
}
