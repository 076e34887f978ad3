package model

import (
	"time"

	"github.com/google/uuid"
)

const PlatformApple = "apple"

// WalletPass is the digital card, one per (member, platform). The serial
// number is the stable external key. A voided pass is terminal.
type WalletPass struct {
	ID                  uuid.UUID `json:"id" db:"id"`
	MemberID            uuid.UUID `json:"member_id" db:"member_id"`
	Platform            string    `json:"platform" db:"platform"`
	SerialNumber        string    `json:"serial_number" db:"serial_number"`
	AuthenticationToken string    `json:"authentication_token" db:"authentication_token"`
	Voided              bool      `json:"voided" db:"voided"`
	LastUpdatedAt       time.Time `json:"last_updated_at" db:"last_updated_at"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
}

// DeviceRegistration binds a wallet app instance to a pass for push
// wake-ups. Keyed by (device library identifier, pass serial number).
type DeviceRegistration struct {
	ID                      uuid.UUID `json:"id" db:"id"`
	DeviceLibraryIdentifier string    `json:"device_library_identifier" db:"device_library_identifier"`
	PassSerialNumber        string    `json:"pass_serial_number" db:"pass_serial_number"`
	PushToken               string    `json:"push_token" db:"push_token"`
	Active                  bool      `json:"active" db:"active"`
	CreatedAt               time.Time `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time `json:"updated_at" db:"updated_at"`
}

type WalletAuditLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Method    string    `json:"method" db:"method"`
	Path      string    `json:"path" db:"path"`
	Headers   string    `json:"headers" db:"headers"`
	Status    int       `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
