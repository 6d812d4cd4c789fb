package store

import "time"

// Default limits for a session's object store.
const (
	DefaultCapacity = 4
	DefaultTTL      = 5 * time.Minute
)

// ObjectStore is a bounded, ordered key/value map for one session.
// Keys are kept oldest first; Put and Get move a key to the newest position.
//
// ObjectStore is not safe for concurrent use on its own; the Registry
// serialises access to every store it owns.
type ObjectStore struct {
	capacity    int
	ttl         time.Duration
	keys        []string
	values      map[string]any
	lastTouched time.Time
}

// NewObjectStore creates an empty store touched at now.
// A capacity below 1 is treated as 1.
func NewObjectStore(capacity int, ttl time.Duration, now time.Time) *ObjectStore {
	if capacity < 1 {
		capacity = 1
	}
	return &ObjectStore{
		capacity:    capacity,
		ttl:         ttl,
		keys:        make([]string, 0, capacity),
		values:      make(map[string]any, capacity),
		lastTouched: now,
	}
}

// Put stores value under key as the most recent entry. When key is new and
// the store is full, the least recently touched entry is evicted first and
// its key returned.
func (s *ObjectStore) Put(key string, value any, now time.Time) (evicted string, ok bool) {
	s.lastTouched = now
	if _, exists := s.values[key]; exists {
		s.unlink(key)
	} else if len(s.keys) > s.capacity-1 {
		evicted = s.keys[0]
		s.keys = s.keys[1:]
		delete(s.values, evicted)
		ok = true
	}
	s.keys = append(s.keys, key)
	s.values[key] = value
	return evicted, ok
}

// Get returns the value stored under key. A hit moves key to the newest
// position. Hit or miss, the store's idle clock is reset.
func (s *ObjectStore) Get(key string, now time.Time) (any, bool) {
	s.lastTouched = now
	v, ok := s.values[key]
	if ok {
		s.unlink(key)
		s.keys = append(s.keys, key)
	}
	return v, ok
}

// Remove deletes key if present. It does not count as activity.
func (s *ObjectStore) Remove(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	s.unlink(key)
	delete(s.values, key)
}

// Expired reports whether the store has been idle for at least the TTL.
func (s *ObjectStore) Expired(now time.Time) bool {
	return now.Sub(s.lastTouched) >= s.ttl
}

// Len returns the number of entries held.
func (s *ObjectStore) Len() int { return len(s.keys) }

// Keys returns the stored keys, oldest first.
func (s *ObjectStore) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// LastTouched returns the time of the most recent Put or Get.
func (s *ObjectStore) LastTouched() time.Time { return s.lastTouched }

func (s *ObjectStore) unlink(key string) {
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			return
		}
	}
}
