package stock

import "errors"

var (
	// Value object errors
	ErrEmptyProductKey  = errors.New("stock: empty product key")
	ErrNegativeQuantity = errors.New("stock: negative quantity")
	ErrUnknownQuantity  = errors.New("stock: quantity is unknown")
	ErrInvalidChannel   = errors.New("stock: invalid channel code")

	// Propagation policy errors
	ErrCanonicalNotEnabled = errors.New("stock: canonical channel is not enabled")
	ErrEdgeUnknownChannel  = errors.New("stock: propagation edge references an unknown channel")
	ErrSelfEdge            = errors.New("stock: propagation edge from a channel to itself")
	ErrCyclicPolicy        = errors.New("stock: propagation policy contains a cycle")

	// Pass errors
	ErrInvalidStateTransition = errors.New("stock: invalid pass state transition")

	// Repository errors. Snapshot store unavailability is the only error
	// that aborts a whole pass.
	ErrSnapshotUnavailable = errors.New("stock: snapshot store unavailable")
	ErrPassNotFound        = errors.New("stock: sync pass not found")
)
