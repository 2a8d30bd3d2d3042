// Package storage provides key-value store abstractions for the snapshot
// source and the signature store.
package storage

import "errors"

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("key not found")

// RangeIterator is the read contract the snapshot scanner depends on.
type RangeIterator interface {
	// Iterate visits keys in ascending byte order within [gte, lte],
	// stopping after limit entries (limit <= 0 means no limit).
	// The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	Iterate(gte, lte []byte, limit int, fn func(key, value []byte) error) error
}

// DB is the interface for key-value storage.
type DB interface {
	RangeIterator
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix in ascending order.
	// The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}
