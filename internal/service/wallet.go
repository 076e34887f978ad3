package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/punchcard/backend/internal/model"
)

// PassBuilder renders the card archive from live member state.
type PassBuilder interface {
	Build(member *model.Member, pass *model.WalletPass) ([]byte, error)
}

type WalletService struct {
	store   WalletStore
	builder PassBuilder
}

func NewWalletService(store WalletStore, builder PassBuilder) *WalletService {
	return &WalletService{store: store, builder: builder}
}

// EnsurePass returns the member's pass for a platform, creating it on
// first use. Serial number and authentication token are stable for the
// life of the pass.
func (s *WalletService) EnsurePass(ctx context.Context, memberID uuid.UUID, platform string) (*model.WalletPass, error) {
	member, err := s.store.GetMemberByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}

	pass, err := s.store.GetWalletPassByMember(ctx, memberID, platform)
	if err != nil {
		return nil, err
	}
	if pass != nil {
		return pass, nil
	}

	pass = &model.WalletPass{
		MemberID:            memberID,
		Platform:            platform,
		SerialNumber:        uuid.NewString(),
		AuthenticationToken: uuid.NewString(),
	}
	if err := s.store.CreateWalletPass(ctx, pass); err != nil {
		return nil, fmt.Errorf("failed to create wallet pass: %w", err)
	}
	return pass, nil
}

// RegisterDevice binds a device to a pass for push wake-ups. The upsert
// is idempotent: re-registration refreshes the push token and revives an
// inactive binding. Returns true when a new or revived binding was made.
func (s *WalletService) RegisterDevice(ctx context.Context, deviceID, serial, authToken, pushToken string) (bool, error) {
	pass, err := s.authenticate(ctx, serial, authToken)
	if err != nil {
		return false, err
	}

	existing, err := s.store.GetDeviceRegistration(ctx, deviceID, serial)
	if err != nil {
		return false, err
	}
	created := existing == nil || !existing.Active

	if err := s.store.UpsertDeviceRegistration(ctx, deviceID, serial, pushToken); err != nil {
		return false, err
	}

	if err := s.store.SetHasWalletPush(ctx, pass.MemberID, true); err != nil {
		log.Printf("[Wallet] failed to flag wallet push for %s: %v", pass.MemberID, err)
	}
	return created, nil
}

// UnregisterDevice drops a device binding. Internal failures are logged
// and swallowed: the wire protocol reports success to the device
// regardless, so only an authentication failure reaches the caller.
func (s *WalletService) UnregisterDevice(ctx context.Context, deviceID, serial, authToken string) error {
	pass, err := s.authenticate(ctx, serial, authToken)
	if err != nil {
		return err
	}

	if err := s.store.DeactivateDeviceRegistration(ctx, deviceID, serial); err != nil {
		log.Printf("[Wallet] failed to unregister %s/%s: %v", deviceID, serial, err)
		return nil
	}

	count, err := s.store.CountActiveRegistrationsForMember(ctx, pass.MemberID)
	if err != nil {
		log.Printf("[Wallet] failed to count registrations for %s: %v", pass.MemberID, err)
		return nil
	}
	if count == 0 {
		if err := s.store.SetHasWalletPush(ctx, pass.MemberID, false); err != nil {
			log.Printf("[Wallet] failed to clear wallet push for %s: %v", pass.MemberID, err)
		}
	}
	return nil
}

// authenticate resolves a serial number and verifies the pass token.
// Voiding is deliberately not checked here: devices must still be able
// to unregister from a voided pass.
func (s *WalletService) authenticate(ctx context.Context, serial, authToken string) (*model.WalletPass, error) {
	pass, err := s.store.GetWalletPassBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	if pass == nil {
		return nil, ErrPassNotFound
	}
	if pass.AuthenticationToken != authToken {
		return nil, ErrBadPassToken
	}
	return pass, nil
}

// PassResult is the freshness-checked card representation.
type PassResult struct {
	NotModified bool
	Data        []byte
	LastUpdated time.Time
}

// Pass serves the current card with conditional-GET semantics. The
// If-Modified-Since precondition has second precision, matching the
// Last-Modified header it echoes back.
func (s *WalletService) Pass(ctx context.Context, serial, authToken string, ifModifiedSince *time.Time) (*PassResult, error) {
	pass, err := s.store.GetWalletPassBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	if pass == nil {
		return nil, ErrPassNotFound
	}
	// Gone is terminal and beats everything, including a valid token
	// and any freshness precondition.
	if pass.Voided {
		return nil, ErrPassVoided
	}
	if pass.AuthenticationToken != authToken {
		return nil, ErrBadPassToken
	}

	lastUpdated := pass.LastUpdatedAt.UTC().Truncate(time.Second)
	if ifModifiedSince != nil && !ifModifiedSince.Before(lastUpdated) {
		return &PassResult{NotModified: true, LastUpdated: lastUpdated}, nil
	}

	member, err := s.store.GetMemberByID(ctx, pass.MemberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrPassNotFound
	}

	data, err := s.builder.Build(member, pass)
	if err != nil {
		return nil, fmt.Errorf("failed to build pass: %w", err)
	}
	return &PassResult{Data: data, LastUpdated: lastUpdated}, nil
}

// SerialsUpdatedSince lists the device's registered, non-voided passes
// whose card changed after the given unix timestamp.
func (s *WalletService) SerialsUpdatedSince(ctx context.Context, deviceID string, since *int64) ([]string, error) {
	return s.store.ListDeviceSerialsUpdatedSince(ctx, deviceID, since)
}

// Touch bumps pass freshness after a card-visible change. Must happen
// before the wake-up push is dispatched.
func (s *WalletService) Touch(ctx context.Context, memberID uuid.UUID) error {
	return s.store.TouchMemberPasses(ctx, memberID)
}

// VoidPasses terminally voids all of a member's passes.
func (s *WalletService) VoidPasses(ctx context.Context, memberID uuid.UUID) error {
	return s.store.VoidMemberPasses(ctx, memberID)
}
