// Package cache is the explicit keyed read cache for shipment and segment
// views. Every mutation in the API declares exactly which keys it
// invalidates; nothing is evicted implicitly.
package cache

import (
	"sync"
	"time"
)

// Key identifies one cached view.
type Key string

// ShipmentKey is the cache key for a shipment document.
func ShipmentKey(shipmentID string) Key {
	return Key("shipment:" + shipmentID)
}

// SegmentListKey is the cache key for a shipment's segment list.
func SegmentListKey(shipmentID string) Key {
	return Key("segments:" + shipmentID)
}

// AnnouncementListKey is the cache key for a segment's announcement list.
func AnnouncementListKey(segmentID string) Key {
	return Key("announcements:" + segmentID)
}

type entry struct {
	value    interface{}
	storedAt time.Time
}

// Store is a mutex-guarded keyed cache.
type Store struct {
	mu      sync.RWMutex
	entries map[Key]entry
}

// NewStore creates an empty cache store.
func NewStore() *Store {
	return &Store{entries: make(map[Key]entry)}
}

// Get returns the cached value for key, if any.
func (s *Store) Get(key Key) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Put stores value under key.
func (s *Store) Put(key Key, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, storedAt: time.Now()}
}

// Invalidate drops the given keys. Unknown keys are ignored.
func (s *Store) Invalidate(keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
	}
}

// Age returns how long ago key was stored, or false if absent.
func (s *Store) Age(key Key) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return 0, false
	}
	return time.Since(e.storedAt), true
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Keys returns a snapshot of all cached keys.
func (s *Store) Keys() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}
