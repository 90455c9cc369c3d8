// Package properties implements a small string-keyed property store, used
// to publish per-object values such as the standard streams of a child
// process. Reads and writes are individually thread-safe; compound
// operations need external synchronization.
package properties

import "sync"

// Store is a string-keyed bag of values owned by exactly one object.
type Store struct {
	m      sync.RWMutex
	values map[string]interface{}
}

// New creates an empty store.
func New() *Store {
	return &Store{values: map[string]interface{}{}}
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key string, value interface{}) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.values == nil {
		return
	}
	s.values[key] = value
}

// Get returns the value stored under key and whether the key was present.
func (s *Store) Get(key string) (interface{}, bool) {
	s.m.RLock()
	defer s.m.RUnlock()
	value, ok := s.values[key]
	return value, ok
}

// Clear removes key from the store, if present.
func (s *Store) Clear(key string) {
	s.m.Lock()
	defer s.m.Unlock()
	delete(s.values, key)
}

// Keys returns the keys currently present, in no particular order.
func (s *Store) Keys() []string {
	s.m.RLock()
	defer s.m.RUnlock()
	keys := make([]string, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}
	return keys
}

// Destroy drops all values. Further Sets are ignored and Gets report
// missing keys.
func (s *Store) Destroy() {
	s.m.Lock()
	defer s.m.Unlock()
	s.values = nil
}
