package models

import "errors"

// Sentinel errors shared across services and handlers. Services wrap these
// with fmt.Errorf("%w: ...") so handlers can map them to HTTP statuses with
// errors.Is while keeping the detailed message.
var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation error")
	ErrAccessDenied     = errors.New("access denied")
	ErrInvalidState     = errors.New("invalid state")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrPriceMismatch    = errors.New("price mismatch")
	ErrConflict         = errors.New("conflict")
	ErrExternalService  = errors.New("external service failure")
)
