package snapshot

import "errors"

var (
	// ErrDecodeFailure is returned when a store record or key is malformed.
	ErrDecodeFailure = errors.New("snapshot: decode failure")
	// ErrStoreIO is returned when the underlying store fails.
	ErrStoreIO = errors.New("snapshot: store I/O")
)
