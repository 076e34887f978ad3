package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/punchcard/backend/internal/model"
)

// CreateWalletPass inserts a pass for a member and platform.
func (r *Repository) CreateWalletPass(ctx context.Context, pass *model.WalletPass) error {
	return r.db.GetContext(ctx, pass, `
		INSERT INTO wallet_passes (member_id, platform, serial_number, authentication_token)
		VALUES ($1, $2, $3, $4)
		RETURNING *`,
		pass.MemberID, pass.Platform, pass.SerialNumber, pass.AuthenticationToken)
}

// GetWalletPassBySerial retrieves a pass by its serial number. Returns
// (nil, nil) when absent.
func (r *Repository) GetWalletPassBySerial(ctx context.Context, serial string) (*model.WalletPass, error) {
	var pass model.WalletPass
	err := r.db.GetContext(ctx, &pass, `
		SELECT * FROM wallet_passes WHERE serial_number = $1`, serial)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pass, nil
}

// GetWalletPassByMember retrieves a member's pass for a platform.
// Returns (nil, nil) when absent.
func (r *Repository) GetWalletPassByMember(ctx context.Context, memberID uuid.UUID, platform string) (*model.WalletPass, error) {
	var pass model.WalletPass
	err := r.db.GetContext(ctx, &pass, `
		SELECT * FROM wallet_passes WHERE member_id = $1 AND platform = $2`, memberID, platform)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pass, nil
}

// TouchMemberPasses bumps last_updated_at on the member's live passes.
// Callers must do this before any push fires, or a woken device can
// fetch stale card data.
func (r *Repository) TouchMemberPasses(ctx context.Context, memberID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE wallet_passes SET last_updated_at = NOW()
		WHERE member_id = $1 AND NOT voided`, memberID)
	return err
}

// VoidMemberPasses marks all of a member's passes voided. Terminal.
func (r *Repository) VoidMemberPasses(ctx context.Context, memberID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE wallet_passes SET voided = true, last_updated_at = NOW()
		WHERE member_id = $1`, memberID)
	return err
}

// GetDeviceRegistration retrieves a device binding. Returns (nil, nil)
// when absent.
func (r *Repository) GetDeviceRegistration(ctx context.Context, deviceID, serial string) (*model.DeviceRegistration, error) {
	var reg model.DeviceRegistration
	err := r.db.GetContext(ctx, &reg, `
		SELECT * FROM device_registrations
		WHERE device_library_identifier = $1 AND pass_serial_number = $2`, deviceID, serial)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// UpsertDeviceRegistration registers a device for a pass, reactivating
// and refreshing the push token when the binding already exists.
func (r *Repository) UpsertDeviceRegistration(ctx context.Context, deviceID, serial, pushToken string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_registrations (device_library_identifier, pass_serial_number, push_token)
		VALUES ($1, $2, $3)
		ON CONFLICT (device_library_identifier, pass_serial_number)
		DO UPDATE SET push_token = $3, active = true, updated_at = NOW()`,
		deviceID, serial, pushToken)
	if err != nil {
		return fmt.Errorf("failed to upsert device registration: %w", err)
	}
	return nil
}

// DeactivateDeviceRegistration marks a device binding inactive.
func (r *Repository) DeactivateDeviceRegistration(ctx context.Context, deviceID, serial string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE device_registrations SET active = false, updated_at = NOW()
		WHERE device_library_identifier = $1 AND pass_serial_number = $2`, deviceID, serial)
	return err
}

// CountActiveRegistrationsForMember counts active device bindings across
// all of a member's passes.
func (r *Repository) CountActiveRegistrationsForMember(ctx context.Context, memberID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM device_registrations d
		JOIN wallet_passes p ON p.serial_number = d.pass_serial_number
		WHERE p.member_id = $1 AND d.active`, memberID)
	return count, err
}

// ListActiveRegistrationsForMember returns the active device bindings of
// the member's non-voided passes: the push fan-out targets.
func (r *Repository) ListActiveRegistrationsForMember(ctx context.Context, memberID uuid.UUID) ([]model.DeviceRegistration, error) {
	var regs []model.DeviceRegistration
	err := r.db.SelectContext(ctx, &regs, `
		SELECT d.* FROM device_registrations d
		JOIN wallet_passes p ON p.serial_number = d.pass_serial_number
		WHERE p.member_id = $1 AND d.active AND NOT p.voided`, memberID)
	return regs, err
}

// ListDeviceSerialsUpdatedSince returns serial numbers of the device's
// registered passes whose card changed after since.
func (r *Repository) ListDeviceSerialsUpdatedSince(ctx context.Context, deviceID string, since *int64) ([]string, error) {
	query := `
		SELECT p.serial_number FROM device_registrations d
		JOIN wallet_passes p ON p.serial_number = d.pass_serial_number
		WHERE d.device_library_identifier = $1 AND d.active AND NOT p.voided`
	args := []interface{}{deviceID}
	if since != nil {
		query += ` AND p.last_updated_at > to_timestamp($2)`
		args = append(args, *since)
	}
	var serials []string
	err := r.db.SelectContext(ctx, &serials, query, args...)
	return serials, err
}

// InsertWalletAuditLog records one wallet-protocol call. Observability
// only; callers ignore failures.
func (r *Repository) InsertWalletAuditLog(ctx context.Context, method, path, headers string, status int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallet_audit_logs (method, path, headers, status)
		VALUES ($1, $2, $3, $4)`,
		method, path, headers, status)
	return err
}
