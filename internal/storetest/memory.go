// Package storetest provides an in-memory implementation of the service
// store interfaces for tests. Semantics mirror the SQL repository:
// idempotency keys and redemption pairs are unique, promotion caps are
// enforced at insert time, and aggregate updates are increments.
package storetest

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/punchcard/backend/internal/model"
	"github.com/punchcard/backend/internal/repository"
	"github.com/punchcard/backend/internal/service"
)

type Memory struct {
	mu sync.Mutex

	Members       map[uuid.UUID]*model.Member
	Ledger        []*model.LedgerEntry
	Promotions    map[uuid.UUID]*model.Promotion
	Redemptions   []*model.Redemption
	Assigned      []*model.AssignedPromotion
	TierHistories []*model.TierHistory
	Settings      map[string]string
	Passes        map[string]*model.WalletPass
	Registrations map[string]*model.DeviceRegistration
	Tasks         []*model.OutboxTask
	AuditLogs     []model.WalletAuditLog

	// Now lets tests pin or advance time.
	Now func() time.Time

	// Error injection
	UnregisterErr error
	LedgerErr     error
}

var (
	_ service.SettingsStore     = (*Memory)(nil)
	_ service.MemberStore       = (*Memory)(nil)
	_ service.TransactionStore  = (*Memory)(nil)
	_ service.PromotionStore    = (*Memory)(nil)
	_ service.TierStore         = (*Memory)(nil)
	_ service.WalletStore       = (*Memory)(nil)
	_ service.OutboxStore       = (*Memory)(nil)
	_ service.OutboxWorkerStore = (*Memory)(nil)
)

func New() *Memory {
	return &Memory{
		Members:       make(map[uuid.UUID]*model.Member),
		Promotions:    make(map[uuid.UUID]*model.Promotion),
		Settings:      make(map[string]string),
		Passes:        make(map[string]*model.WalletPass),
		Registrations: make(map[string]*model.DeviceRegistration),
		Now:           time.Now,
	}
}

func regKey(deviceID, serial string) string { return deviceID + "|" + serial }

// --- settings ---

func (m *Memory) GetSetting(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.Settings[key]
	if !ok {
		return "", repository.ErrSettingNotFound
	}
	return value, nil
}

func (m *Memory) GetSettingFloat(ctx context.Context, key string) (float64, error) {
	value, err := m.GetSetting(ctx, key)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(value, 64)
}

func (m *Memory) GetSettingInt(ctx context.Context, key string) (int64, error) {
	value, err := m.GetSetting(ctx, key)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(value, 10, 64)
}

func (m *Memory) SetSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Settings[key] = value
	return nil
}

func (m *Memory) GetAllSettings(_ context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.Settings))
	for k, v := range m.Settings {
		out[k] = v
	}
	return out, nil
}

// --- members ---

func (m *Memory) CreateMember(_ context.Context, member *model.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	member.ID = uuid.New()
	member.IsActive = true
	member.CreatedAt = m.Now()
	member.UpdatedAt = member.CreatedAt
	copied := *member
	m.Members[member.ID] = &copied
	return nil
}

func (m *Memory) GetMemberByID(_ context.Context, id uuid.UUID) (*model.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.Members[id]
	if !ok {
		return nil, nil
	}
	copied := *member
	return &copied, nil
}

func (m *Memory) DeactivateMember(_ context.Context, memberID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if member, ok := m.Members[memberID]; ok {
		member.IsActive = false
	}
	return nil
}

func (m *Memory) SetHasWalletPush(_ context.Context, memberID uuid.UUID, has bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if member, ok := m.Members[memberID]; ok {
		member.HasWalletPush = has
	}
	return nil
}

func (m *Memory) UpdateMemberTier(_ context.Context, memberID uuid.UUID, oldTier, newTier string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.Members[memberID]
	if !ok {
		return nil
	}
	member.Tier = newTier
	m.TierHistories = append(m.TierHistories, &model.TierHistory{
		ID:        uuid.New(),
		MemberID:  memberID,
		OldTier:   oldTier,
		NewTier:   newTier,
		ChangedAt: m.Now(),
	})
	return nil
}

func (m *Memory) ListTierHistory(_ context.Context, memberID uuid.UUID, limit int) ([]model.TierHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.TierHistory
	for i := len(m.TierHistories) - 1; i >= 0 && len(out) < limit; i-- {
		if m.TierHistories[i].MemberID == memberID {
			out = append(out, *m.TierHistories[i])
		}
	}
	return out, nil
}

// --- ledger ---

func (m *Memory) HasIdempotencyKey(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasKeyLocked(key), nil
}

func (m *Memory) hasKeyLocked(key string) bool {
	for _, entry := range m.Ledger {
		if entry.IdempotencyKey != nil && *entry.IdempotencyKey == key {
			return true
		}
	}
	return false
}

func (m *Memory) RecordLedgerEntry(_ context.Context, entry *model.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LedgerErr != nil {
		return m.LedgerErr
	}
	if entry.IdempotencyKey != nil && m.hasKeyLocked(*entry.IdempotencyKey) {
		return repository.ErrDuplicateIdempotencyKey
	}
	entry.ID = uuid.New()
	entry.CreatedAt = m.Now()
	copied := *entry
	m.Ledger = append(m.Ledger, &copied)

	member, ok := m.Members[entry.MemberID]
	if !ok {
		return nil
	}
	member.Points += entry.PointsEarned
	member.LifetimeSpent += entry.AmountSpent
	member.TotalVisits++
	member.UpdatedAt = m.Now()
	return nil
}

func (m *Memory) ListLedgerEntries(_ context.Context, memberID uuid.UUID, limit, offset int) ([]model.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.LedgerEntry
	for i := len(m.Ledger) - 1; i >= 0; i-- {
		if m.Ledger[i].MemberID == memberID {
			all = append(all, *m.Ledger[i])
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// --- promotions ---

func (m *Memory) GetPromotionByID(_ context.Context, id uuid.UUID) (*model.Promotion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	promo, ok := m.Promotions[id]
	if !ok {
		return nil, nil
	}
	copied := *promo
	return &copied, nil
}

func (m *Memory) CountRedemptions(_ context.Context, promotionID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countRedemptionsLocked(promotionID), nil
}

func (m *Memory) countRedemptionsLocked(promotionID uuid.UUID) int {
	count := 0
	for _, red := range m.Redemptions {
		if red.PromotionID == promotionID {
			count++
		}
	}
	return count
}

func (m *Memory) CountMemberRedemptions(_ context.Context, promotionID, memberID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countMemberRedemptionsLocked(promotionID, memberID), nil
}

func (m *Memory) countMemberRedemptionsLocked(promotionID, memberID uuid.UUID) int {
	count := 0
	for _, red := range m.Redemptions {
		if red.PromotionID == promotionID && red.MemberID == memberID {
			count++
		}
	}
	return count
}

func (m *Memory) RedeemPromotion(_ context.Context, red *model.Redemption, maxUsageCount, maxUsesPerMember *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.Redemptions {
		if existing.LedgerEntryID == red.LedgerEntryID && existing.PromotionID == red.PromotionID {
			return repository.ErrAlreadyRedeemed
		}
	}
	if maxUsageCount != nil && m.countRedemptionsLocked(red.PromotionID) >= *maxUsageCount {
		return repository.ErrPromotionCapReached
	}
	if maxUsesPerMember != nil && m.countMemberRedemptionsLocked(red.PromotionID, red.MemberID) >= *maxUsesPerMember {
		return repository.ErrPromotionCapReached
	}

	red.ID = uuid.New()
	red.CreatedAt = m.Now()
	copied := *red
	m.Redemptions = append(m.Redemptions, &copied)

	for _, assigned := range m.Assigned {
		if assigned.MemberID == red.MemberID && assigned.PromotionID == red.PromotionID &&
			assigned.Status == model.AssignedPromotionPending {
			now := m.Now()
			assigned.Status = model.AssignedPromotionUsed
			assigned.UsedAt = &now
			break
		}
	}
	return nil
}

func (m *Memory) CreatePromotion(_ context.Context, promo *model.Promotion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	promo.ID = uuid.New()
	promo.CreatedAt = m.Now()
	copied := *promo
	m.Promotions[promo.ID] = &copied
	return nil
}

func (m *Memory) ListPromotions(_ context.Context, limit, offset int) ([]model.Promotion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Promotion
	for _, promo := range m.Promotions {
		out = append(out, *promo)
	}
	return out, nil
}

func (m *Memory) DeactivatePromotion(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if promo, ok := m.Promotions[id]; ok {
		promo.IsActive = false
	}
	return nil
}

func (m *Memory) AssignPromotion(_ context.Context, assigned *model.AssignedPromotion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	assigned.ID = uuid.New()
	assigned.Status = model.AssignedPromotionPending
	assigned.AssignedAt = m.Now()
	copied := *assigned
	m.Assigned = append(m.Assigned, &copied)
	return nil
}

func (m *Memory) ListAssignedPromotions(_ context.Context, memberID uuid.UUID) ([]model.AssignedPromotion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AssignedPromotion
	for _, assigned := range m.Assigned {
		if assigned.MemberID == memberID {
			out = append(out, *assigned)
		}
	}
	return out, nil
}

// --- wallet ---

func (m *Memory) CreateWalletPass(_ context.Context, pass *model.WalletPass) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pass.ID = uuid.New()
	pass.CreatedAt = m.Now()
	pass.LastUpdatedAt = pass.CreatedAt
	copied := *pass
	m.Passes[pass.SerialNumber] = &copied
	return nil
}

func (m *Memory) GetWalletPassBySerial(_ context.Context, serial string) (*model.WalletPass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pass, ok := m.Passes[serial]
	if !ok {
		return nil, nil
	}
	copied := *pass
	return &copied, nil
}

func (m *Memory) GetWalletPassByMember(_ context.Context, memberID uuid.UUID, platform string) (*model.WalletPass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pass := range m.Passes {
		if pass.MemberID == memberID && pass.Platform == platform {
			copied := *pass
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *Memory) TouchMemberPasses(_ context.Context, memberID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pass := range m.Passes {
		if pass.MemberID == memberID && !pass.Voided {
			pass.LastUpdatedAt = m.Now()
		}
	}
	return nil
}

func (m *Memory) VoidMemberPasses(_ context.Context, memberID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pass := range m.Passes {
		if pass.MemberID == memberID {
			pass.Voided = true
			pass.LastUpdatedAt = m.Now()
		}
	}
	return nil
}

func (m *Memory) GetDeviceRegistration(_ context.Context, deviceID, serial string) (*model.DeviceRegistration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.Registrations[regKey(deviceID, serial)]
	if !ok {
		return nil, nil
	}
	copied := *reg
	return &copied, nil
}

func (m *Memory) UpsertDeviceRegistration(_ context.Context, deviceID, serial, pushToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := regKey(deviceID, serial)
	if reg, ok := m.Registrations[key]; ok {
		reg.PushToken = pushToken
		reg.Active = true
		reg.UpdatedAt = m.Now()
		return nil
	}
	now := m.Now()
	m.Registrations[key] = &model.DeviceRegistration{
		ID:                      uuid.New(),
		DeviceLibraryIdentifier: deviceID,
		PassSerialNumber:        serial,
		PushToken:               pushToken,
		Active:                  true,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	return nil
}

func (m *Memory) DeactivateDeviceRegistration(_ context.Context, deviceID, serial string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UnregisterErr != nil {
		return m.UnregisterErr
	}
	if reg, ok := m.Registrations[regKey(deviceID, serial)]; ok {
		reg.Active = false
		reg.UpdatedAt = m.Now()
	}
	return nil
}

func (m *Memory) CountActiveRegistrationsForMember(_ context.Context, memberID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, reg := range m.Registrations {
		if !reg.Active {
			continue
		}
		if pass, ok := m.Passes[reg.PassSerialNumber]; ok && pass.MemberID == memberID {
			count++
		}
	}
	return count, nil
}

func (m *Memory) ListActiveRegistrationsForMember(_ context.Context, memberID uuid.UUID) ([]model.DeviceRegistration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.DeviceRegistration
	for _, reg := range m.Registrations {
		if !reg.Active {
			continue
		}
		if pass, ok := m.Passes[reg.PassSerialNumber]; ok && pass.MemberID == memberID && !pass.Voided {
			out = append(out, *reg)
		}
	}
	return out, nil
}

func (m *Memory) ListDeviceSerialsUpdatedSince(_ context.Context, deviceID string, since *int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, reg := range m.Registrations {
		if reg.DeviceLibraryIdentifier != deviceID || !reg.Active {
			continue
		}
		pass, ok := m.Passes[reg.PassSerialNumber]
		if !ok || pass.Voided {
			continue
		}
		if since != nil && !pass.LastUpdatedAt.After(time.Unix(*since, 0)) {
			continue
		}
		out = append(out, pass.SerialNumber)
	}
	return out, nil
}

// AuditLogCount reads the audit row count under the lock; the audit
// middleware inserts from a goroutine.
func (m *Memory) AuditLogCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.AuditLogs)
}

func (m *Memory) InsertWalletAuditLog(_ context.Context, method, path, headers string, status int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AuditLogs = append(m.AuditLogs, model.WalletAuditLog{
		ID:        uuid.New(),
		Method:    method,
		Path:      path,
		Headers:   headers,
		Status:    status,
		CreatedAt: m.Now(),
	})
	return nil
}

// --- outbox ---

func (m *Memory) EnqueueTask(_ context.Context, taskType model.OutboxTaskType, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tasks = append(m.Tasks, &model.OutboxTask{
		ID:        uuid.New(),
		TaskType:  taskType,
		Payload:   data,
		Status:    model.OutboxTaskPending,
		CreatedAt: m.Now(),
	})
	return nil
}

func (m *Memory) ListPendingTasks(_ context.Context, limit int) ([]model.OutboxTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.OutboxTask
	for _, task := range m.Tasks {
		if task.Status == model.OutboxTaskPending && len(out) < limit {
			out = append(out, *task)
		}
	}
	return out, nil
}

func (m *Memory) MarkTaskDone(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, task := range m.Tasks {
		if task.ID == id {
			now := m.Now()
			task.Status = model.OutboxTaskDone
			task.ProcessedAt = &now
		}
	}
	return nil
}

func (m *Memory) MarkTaskFailed(_ context.Context, id uuid.UUID, taskErr string, maxAttempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, task := range m.Tasks {
		if task.ID == id {
			now := m.Now()
			task.Attempts++
			task.LastError = &taskErr
			task.ProcessedAt = &now
			if task.Attempts >= maxAttempts {
				task.Status = model.OutboxTaskFailed
			}
		}
	}
	return nil
}
