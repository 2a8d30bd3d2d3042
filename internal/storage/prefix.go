package storage

import (
	"bytes"
	"errors"
	"fmt"
)

// PrefixDB wraps a DB and prepends a fixed prefix to all keys.
// This isolates one record family (e.g. signatures) within a shared database.
type PrefixDB struct {
	inner  DB
	prefix []byte
}

// NewPrefixDB creates a new PrefixDB wrapping inner with the given prefix.
func NewPrefixDB(inner DB, prefix []byte) *PrefixDB {
	p := make([]byte, len(prefix))
	copy(p, prefix)
	return &PrefixDB{inner: inner, prefix: p}
}

// prefixed returns key with the prefix prepended.
func (p *PrefixDB) prefixed(key []byte) []byte {
	out := make([]byte, len(p.prefix)+len(key))
	copy(out, p.prefix)
	copy(out[len(p.prefix):], key)
	return out
}

// Get retrieves a value by key.
func (p *PrefixDB) Get(key []byte) ([]byte, error) {
	return p.inner.Get(p.prefixed(key))
}

// Put stores a key-value pair.
func (p *PrefixDB) Put(key, value []byte) error {
	return p.inner.Put(p.prefixed(key), value)
}

// Delete removes a key.
func (p *PrefixDB) Delete(key []byte) error {
	return p.inner.Delete(p.prefixed(key))
}

// Has checks if a key exists.
func (p *PrefixDB) Has(key []byte) (bool, error) {
	return p.inner.Has(p.prefixed(key))
}

// ForEach iterates over all keys with the given prefix (within the PrefixDB namespace).
// The callback receives keys with the PrefixDB prefix stripped, so callers see only
// their logical keyspace.
func (p *PrefixDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	fullPrefix := p.prefixed(prefix)
	return p.inner.ForEach(fullPrefix, func(key, value []byte) error {
		// Strip the PrefixDB prefix so the caller sees only its logical key.
		stripped := key[len(p.prefix):]
		return fn(stripped, value)
	})
}

// Iterate visits keys within [gte, lte] of this namespace in ascending order.
// A nil lte runs to the end of the namespace. Keys passed to fn have the
// prefix stripped.
func (p *PrefixDB) Iterate(gte, lte []byte, limit int, fn func(key, value []byte) error) error {
	var end []byte
	if lte != nil {
		end = p.prefixed(lte)
	}
	err := p.inner.Iterate(p.prefixed(gte), end, limit, func(key, value []byte) error {
		if !bytes.HasPrefix(key, p.prefix) {
			return errPastNamespace
		}
		return fn(key[len(p.prefix):], value)
	})
	if errors.Is(err, errPastNamespace) {
		return nil
	}
	return err
}

var errPastNamespace = errors.New("past prefix namespace")

// DeleteAll empties the namespace and reports how many keys it removed.
// Keys outside the prefix are untouched.
func (p *PrefixDB) DeleteAll() (int, error) {
	var keys [][]byte
	err := p.ForEach(nil, func(key, _ []byte) error {
		keys = append(keys, bytes.Clone(key))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("list %q namespace: %w", p.prefix, err)
	}
	for i, key := range keys {
		if err := p.Delete(key); err != nil {
			return i, fmt.Errorf("delete from %q namespace: %w", p.prefix, err)
		}
	}
	return len(keys), nil
}

// Close is a no-op; the outer DB manages its own lifecycle.
func (p *PrefixDB) Close() error {
	return nil
}
