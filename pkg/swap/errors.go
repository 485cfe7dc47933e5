package swap

import "errors"

var (
	// ErrNotReady is returned by BuildRequest while the legs are incomplete
	// or hold an invalid amount.
	ErrNotReady = errors.New("swap request not ready")

	// ErrInvalidAmount is returned when a raw amount is empty, not a number,
	// or not positive.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNoBalanceKnown is returned by ApplyMax when the leg has no token or
	// the token carries no balance snapshot. The leg is left unchanged.
	ErrNoBalanceKnown = errors.New("no balance known")
)
