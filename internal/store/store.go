// Package store implements the bounded in-memory key-value map: a mapping
// from byte-string keys to (value, version) pairs with size accounting and
// admission control.
package store

import (
	"sync"

	"github.com/kuiwang02/kvstore/internal/wire"
)

// Limits bounds the store's admission control. Soft is the threshold above
// which Put starts returning OutOfSpace; Hard is the absolute ceiling the
// store must never cross even under worst-case per-request sizes.
type Limits struct {
	Soft int64
	Hard int64
}

// DefaultLimits matches the wire contract in section 6: 60 MiB soft, 67 MiB
// hard.
var DefaultLimits = Limits{
	Soft: 60 * 1024 * 1024,
	Hard: 67 * 1024 * 1024,
}

type entry struct {
	value   []byte
	version int32
}

func (e entry) size(key string) int64 {
	return int64(len(key) + len(e.value))
}

// Store is a mutex-guarded, size-bounded key-value map. All exported methods
// are safe for concurrent use; critical sections are limited to the map
// lookup/mutation itself, never I/O.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	size    int64
	limits  Limits
}

// New creates an empty store with the given admission limits.
func New(limits Limits) *Store {
	return &Store{
		entries: make(map[string]entry),
		limits:  limits,
	}
}

// Get returns the stored value and version for key, or ok=false if absent.
func (s *Store) Get(key []byte) (value []byte, version int32, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, found := s.entries[string(key)]
	if !found {
		return nil, 0, false
	}
	return append([]byte(nil), e.value...), e.version, true
}

// Put inserts or overwrites key with value and version. It returns Success,
// or InvalidKey/InvalidValue/OutOfSpace if the admission checks fail.
func (s *Store) Put(key, value []byte, version int32) wire.ErrCode {
	if len(key) > wire.MaxKeySize {
		admissionRejectionsTotal.WithLabelValues("invalid_key").Inc()
		return wire.InvalidKey
	}
	if len(value) > wire.MaxValueSize {
		admissionRejectionsTotal.WithLabelValues("invalid_value").Inc()
		return wire.InvalidValue
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.size > s.limits.Soft {
		admissionRejectionsTotal.WithLabelValues("out_of_space").Inc()
		return wire.OutOfSpace
	}

	k := string(key)
	newEntry := entry{value: append([]byte(nil), value...), version: version}
	newEntrySize := newEntry.size(k)

	if old, overwrite := s.entries[k]; overwrite {
		s.size -= old.size(k)
	}
	s.entries[k] = newEntry
	s.size += newEntrySize
	s.reportSizeLocked()
	return wire.Success
}

// Remove deletes key if present, returning Success, or NonExistentKey if it
// wasn't there.
func (s *Store) Remove(key []byte) wire.ErrCode {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := string(key)
	old, found := s.entries[k]
	if !found {
		return wire.NonExistentKey
	}
	delete(s.entries, k)
	s.size -= old.size(k)
	s.reportSizeLocked()
	return wire.Success
}

// Clear empties the store and resets the size counter.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]entry)
	s.size = 0
	s.reportSizeLocked()
}

// ApproximateSize returns the sum of |key|+|value| over all live entries.
func (s *Store) ApproximateSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// reportSizeLocked updates the exported gauges. Callers must hold s.mu.
func (s *Store) reportSizeLocked() {
	sizeBytes.Set(float64(s.size))
	entryCount.Set(float64(len(s.entries)))
}
