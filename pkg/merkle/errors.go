package merkle

import "errors"

var (
	// ErrNoLeaves is returned when a tree is requested over zero records.
	ErrNoLeaves = errors.New("merkle: no leaves")
	// ErrOrderingViolation is returned when input addresses are not strictly ascending.
	ErrOrderingViolation = errors.New("merkle: addresses not strictly ascending")
	// ErrBalanceOverflow is returned when a balance does not fit the scheme's integer width.
	ErrBalanceOverflow = errors.New("merkle: balance exceeds encoding width")
	// ErrUnknownScheme is returned for an unrecognised leaf scheme.
	ErrUnknownScheme = errors.New("merkle: unknown scheme")
)
