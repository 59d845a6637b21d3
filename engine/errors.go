package engine

import "errors"

// Sentinel errors for the concerns only the facade owns: initialization,
// ownership, and input validation that spans more than one component.
// Component-owned errors (pool, flashloan, executor) are returned verbatim
// by the calls this facade delegates to, per spec.md §7's propagation
// policy.
var (
	// ErrNotOwner is spec.md §7's NotOwner.
	ErrNotOwner = errors.New("engine: caller is not the owner")
	// ErrNotInitialized is spec.md §7's NotInitialized.
	ErrNotInitialized = errors.New("engine: not initialized")
	// ErrAlreadyInitialized is spec.md §7's AlreadyInitialized.
	ErrAlreadyInitialized = errors.New("engine: already initialized")
	// ErrFeeOutOfRange is spec.md §7's FeeOutOfRange, for the management
	// fee percentage.
	ErrFeeOutOfRange = errors.New("engine: management fee percentage out of range")
	// ErrInvalidAsset is spec.md §7's InvalidAsset.
	ErrInvalidAsset = errors.New("engine: invalid asset identifier")
)
