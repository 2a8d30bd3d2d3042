package storage

import (
	"bytes"
	"sort"
	"strings"
	"sync"
)

// MemoryDB implements DB using an in-memory map.
type MemoryDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates a new in-memory database.
func NewMemory() *MemoryDB {
	return &MemoryDB{
		data: make(map[string][]byte),
	}
}

// Get retrieves a value by key.
func (m *MemoryDB) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return copyBytes(v), nil
}

// Put stores a key-value pair.
func (m *MemoryDB) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(key)] = copyBytes(value)
	return nil
}

// Delete removes a key.
func (m *MemoryDB) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

// Has checks if a key exists.
func (m *MemoryDB) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[string(key)]
	return ok, nil
}

// ForEach iterates over all keys with the given prefix in ascending order.
func (m *MemoryDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	p := string(prefix)
	return m.visit(func(k string) (bool, bool) {
		return strings.HasPrefix(k, p), k > p && !strings.HasPrefix(k, p)
	}, 0, fn)
}

// Iterate visits keys within [gte, lte] in ascending order, at most limit entries.
func (m *MemoryDB) Iterate(gte, lte []byte, limit int, fn func(key, value []byte) error) error {
	return m.visit(func(k string) (bool, bool) {
		kb := []byte(k)
		if bytes.Compare(kb, gte) < 0 {
			return false, false
		}
		if lte != nil && bytes.Compare(kb, lte) > 0 {
			return false, true
		}
		return true, false
	}, limit, fn)
}

// visit walks a sorted snapshot of the keys. match reports whether a key is
// visited and whether the walk is past the range.
func (m *MemoryDB) visit(match func(k string) (ok, done bool), limit int, fn func(key, value []byte) error) error {
	type entry struct {
		key   string
		value []byte
	}

	m.mu.RLock()
	entries := make([]entry, 0, len(m.data))
	for k, v := range m.data {
		entries = append(entries, entry{k, v})
	}
	m.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	visited := 0
	for _, e := range entries {
		ok, done := match(e.key)
		if done {
			break
		}
		if !ok {
			continue
		}
		if err := fn([]byte(e.key), copyBytes(e.value)); err != nil {
			return err
		}
		visited++
		if limit > 0 && visited >= limit {
			break
		}
	}
	return nil
}

// Close closes the database.
func (m *MemoryDB) Close() error {
	return nil
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
