package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Callers match these with errors.Is.

var (
	// Ledger errors
	ErrUnknownAction = errors.New("unknown reward action")
	ErrNegativeXP    = errors.New("xp amount must not be negative")

	// Session errors
	ErrNotAuthenticated = errors.New("no authenticated user")
	ErrInvalidToken     = errors.New("invalid or expired token")

	// Platform errors
	ErrSnapshotUnavailable = errors.New("activity snapshot unavailable")

	// Storage errors
	ErrStoreUnavailable   = errors.New("key-value store unavailable")
	ErrInvalidStoreDriver = errors.New("unsupported store driver")
)
