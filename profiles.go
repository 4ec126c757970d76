package analytics

import (
	"fmt"
	"sync"
)

// ProfileStore holds the persistent property set associated with each
// distinct ID and applies the profile mutation semantics: set (overwrite),
// set-once (first write wins), increment (signed delta against a numeric
// value, created at the delta if absent), append (extend a list, created
// if absent), unset (remove one key, no-op if absent), delete (remove the
// whole profile).
//
// Mutations are atomic per call: a rejected Increment or Append leaves the
// profile exactly as it was, even when other keys in the same call would
// have succeeded.
//
// The Tracker owns exactly one store. [MemoryProfileStore] is the default;
// [SQLiteProfileStore] persists profiles across restarts.
type ProfileStore interface {
	// Get returns a copy of the profile for distinctID.
	// An unknown ID yields an empty, non-nil map.
	Get(distinctID string) (map[string]PropertyValue, error)

	// Set overwrites the listed keys in the profile.
	Set(distinctID string, props map[string]PropertyValue) error

	// SetOnce sets only the listed keys that are not already present.
	SetOnce(distinctID string, props map[string]PropertyValue) error

	// Increment adds numeric deltas to the stored values, creating a key at
	// its delta when absent. Non-numeric stored values are rejected.
	Increment(distinctID string, deltas map[string]PropertyValue) error

	// Append extends stored lists with the given list values, creating a
	// key when absent. Non-list stored values are rejected.
	Append(distinctID string, lists map[string]PropertyValue) error

	// Unset removes one key from the profile. Absent keys are a no-op.
	Unset(distinctID, key string) error

	// Delete removes the entire profile.
	Delete(distinctID string) error

	// Close releases resources held by the store.
	Close() error
}

// Profile math, shared by every store implementation. Each helper mutates
// profile in place; increment and append validate every key before
// touching any, so a failed call has no partial effect.

func applySet(profile, props map[string]PropertyValue) {
	for k, v := range props {
		profile[k] = v.clone()
	}
}

func applySetOnce(profile, props map[string]PropertyValue) {
	for k, v := range props {
		if _, ok := profile[k]; !ok {
			profile[k] = v.clone()
		}
	}
}

func applyIncrement(profile, deltas map[string]PropertyValue) error {
	for k, delta := range deltas {
		if delta.Kind() != KindInt && delta.Kind() != KindNumber {
			return NewValidationError(k,
				fmt.Sprintf("increment requires a numeric value, got %s", delta.Kind()))
		}
		if existing, ok := profile[k]; ok {
			if existing.Kind() != KindInt && existing.Kind() != KindNumber {
				return NewValidationError(k,
					fmt.Sprintf("cannot increment a %s value", existing.Kind()))
			}
		}
	}
	for k, delta := range deltas {
		existing, ok := profile[k]
		if !ok {
			profile[k] = delta
			continue
		}
		if existing.Kind() == KindInt && delta.Kind() == KindInt {
			profile[k] = IntValue(existing.Int() + delta.Int())
		} else {
			profile[k] = NumberValue(numericOf(existing) + numericOf(delta))
		}
	}
	return nil
}

func applyAppend(profile, lists map[string]PropertyValue) error {
	for k, v := range lists {
		if v.Kind() != KindList {
			return NewValidationError(k,
				fmt.Sprintf("append requires a list value, got %s", v.Kind()))
		}
		if existing, ok := profile[k]; ok && existing.Kind() != KindList {
			return NewValidationError(k,
				fmt.Sprintf("cannot append to a %s value", existing.Kind()))
		}
	}
	for k, v := range lists {
		existing, ok := profile[k]
		if !ok {
			profile[k] = v.clone()
			continue
		}
		merged := existing.List()
		merged = append(merged, v.list...)
		profile[k] = PropertyValue{kind: KindList, list: merged}
	}
	return nil
}

// numericOf returns the float magnitude of an int or number value.
func numericOf(v PropertyValue) float64 {
	if v.Kind() == KindInt {
		return float64(v.Int())
	}
	return v.Number()
}

// cloneProfile returns a deep copy of a profile map.
func cloneProfile(profile map[string]PropertyValue) map[string]PropertyValue {
	out := make(map[string]PropertyValue, len(profile))
	for k, v := range profile {
		out[k] = v.clone()
	}
	return out
}

// MemoryProfileStore is the default in-process ProfileStore. Profiles live
// for the lifetime of the store and are lost when the process exits.
//
// MemoryProfileStore is safe for concurrent use.
type MemoryProfileStore struct {
	mu       sync.Mutex
	profiles map[string]map[string]PropertyValue
}

// NewMemoryProfileStore creates an empty in-memory profile store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{
		profiles: make(map[string]map[string]PropertyValue),
	}
}

// profileFor returns the live profile map for id, creating it if needed.
// Caller holds the lock.
func (s *MemoryProfileStore) profileFor(id string) map[string]PropertyValue {
	p, ok := s.profiles[id]
	if !ok {
		p = make(map[string]PropertyValue)
		s.profiles[id] = p
	}
	return p
}

// Get implements ProfileStore.
func (s *MemoryProfileStore) Get(distinctID string) (map[string]PropertyValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneProfile(s.profiles[distinctID]), nil
}

// Set implements ProfileStore.
func (s *MemoryProfileStore) Set(distinctID string, props map[string]PropertyValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	applySet(s.profileFor(distinctID), props)
	return nil
}

// SetOnce implements ProfileStore.
func (s *MemoryProfileStore) SetOnce(distinctID string, props map[string]PropertyValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	applySetOnce(s.profileFor(distinctID), props)
	return nil
}

// Increment implements ProfileStore.
func (s *MemoryProfileStore) Increment(distinctID string, deltas map[string]PropertyValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return applyIncrement(s.profileFor(distinctID), deltas)
}

// Append implements ProfileStore.
func (s *MemoryProfileStore) Append(distinctID string, lists map[string]PropertyValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return applyAppend(s.profileFor(distinctID), lists)
}

// Unset implements ProfileStore.
func (s *MemoryProfileStore) Unset(distinctID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[distinctID]; ok {
		delete(p, key)
	}
	return nil
}

// Delete implements ProfileStore.
func (s *MemoryProfileStore) Delete(distinctID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, distinctID)
	return nil
}

// Close implements ProfileStore. It is a no-op for the memory store.
func (s *MemoryProfileStore) Close() error {
	return nil
}

// Ensure MemoryProfileStore implements ProfileStore.
var _ ProfileStore = (*MemoryProfileStore)(nil)
