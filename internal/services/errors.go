package services

import "errors"

// Business-rule rejections and state errors surface as discriminated
// results so callers can tell them apart from infrastructure failure.
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidState         = errors.New("invalid state for operation")
	ErrAlreadyReturned      = errors.New("loan already returned")
	ErrOutOfStock           = errors.New("no copies available")
	ErrAlreadyAvailable     = errors.New("title has available copies, borrow it directly")
	ErrDuplicateReservation = errors.New("patron already has an active reservation for this title")

	// ErrInvariantViolation means available_copies would have left
	// [0, total_copies] on a path that should never get there. It aborts
	// the operation with prior state unchanged and indicates a bug.
	ErrInvariantViolation = errors.New("stock invariant violation")
)
