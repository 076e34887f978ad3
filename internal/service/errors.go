package service

import "errors"

// Error taxonomy shared by the services. Handlers map these with
// errors.Is; anything else surfaces as an internal error.
var (
	ErrValidation           = errors.New("invalid input")
	ErrMemberNotFound       = errors.New("member not found")
	ErrPromotionNotFound    = errors.New("promotion not found")
	ErrDuplicateTransaction = errors.New("duplicate idempotency key")
	ErrPassNotFound         = errors.New("pass not found")
	ErrBadPassToken         = errors.New("invalid pass token")
	ErrPassVoided           = errors.New("pass voided")
)
