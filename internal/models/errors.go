package models

import "errors"

// Billing error taxonomy. Every write operation surfaces one of these so the
// UI can render distinct operator guidance; handlers map them to HTTP
// statuses with errors.Is.
var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("booking does not accept billing changes")
	ErrInsufficientBalance = errors.New("refund exceeds available balance")
	ErrInvalidTransition   = errors.New("invalid refund state transition")
	ErrConcurrencyConflict = errors.New("concurrent update conflict")
	ErrStorage             = errors.New("storage failure")
)
