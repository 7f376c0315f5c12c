package errors

import "errors"

var (
	ErrValidation   = errors.New("validation error")
	ErrInvalidInput = errors.New("invalid input")

	ErrNotFound          = errors.New("not found")
	ErrBusinessRule      = errors.New("business rule violation")

	ErrExternalService = errors.New("external service error")
	ErrTimeout         = errors.New("timeout error")

	ErrInternal = errors.New("internal error")

	// ErrZeroReserve is surfaced when a pool's reserves have not been
	// populated in the reserve store yet (usually: touched by a Sync log
	// before the initial bulk fetch completed).
	ErrZeroReserve = errors.New("pool reserve is zero")

	// ErrPoolNotInStore is returned when a path references a pool the
	// reserve store has no entry for.
	ErrPoolNotInStore = errors.New("pool not present in reserve store")

	// ErrBusOverflow marks a subscriber falling behind the event bus; it is
	// informational (the subscriber keeps running on the newest events)
	// rather than fatal.
	ErrBusOverflow = errors.New("event bus subscriber lagging, events dropped")
)
