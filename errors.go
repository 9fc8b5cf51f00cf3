package sprite

import "errors"

// Sentinel errors returned by Batch.
var (
	// ErrInvalidState is returned when a call does not match the batch
	// state: Draw or End before Begin, Begin while begun, state queries
	// before Begin.
	ErrInvalidState = errors.New("sprite: invalid batch state")

	// ErrClosed is returned by every Batch method after Close.
	ErrClosed = errors.New("sprite: batch closed")

	// ErrImmediateInUse is returned by Begin(Immediate) while another
	// immediate-mode batch is open on the same Coordinator.
	ErrImmediateInUse = errors.New("sprite: immediate mode batch already active")

	// ErrUnsupportedSortMode is returned for sort modes outside the
	// defined set.
	ErrUnsupportedSortMode = errors.New("sprite: unsupported sort mode")

	// ErrInvalidCapacity is returned by NewBatch for unusable capacities.
	ErrInvalidCapacity = errors.New("sprite: invalid capacity")
)
