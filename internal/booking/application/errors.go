// Package application defines the booking use cases and the error taxonomy
// surfaced to transport adapters.
package application

import "errors"

var (
	// ErrValidation covers malformed or out-of-policy input.
	ErrValidation = errors.New("validation error")

	// ErrNotFound covers unknown event types, teams, or manage tokens.
	ErrNotFound = errors.New("not found")

	// ErrSlotUnavailable means re-validation failed; the client must refresh
	// its availability view and retry.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrRateLimited means too many creation attempts from one origin inside
	// the rolling window.
	ErrRateLimited = errors.New("rate limited")

	// ErrInternal covers persistence failures. It is the only class that rolls
	// the transition back.
	ErrInternal = errors.New("internal error")
)
