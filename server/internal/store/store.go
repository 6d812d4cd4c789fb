package store

import (
	"log/slog"
	"sync"
	"time"
)

// Stats is a point-in-time view of the registry.
type Stats struct {
	Sessions int           `json:"sessions"`
	Entries  int           `json:"entries"`
	Capacity int           `json:"capacity"`
	TTL      time.Duration `json:"ttl"`
}

// Registry maps session identifiers to their ObjectStore.
//
// A single mutex guards the session map and every store in it, so a sweep
// always observes a consistent set of sessions. Contention is bounded by the
// number of concurrent sessions, not by request volume.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*ObjectStore
	capacity int
	ttl      time.Duration
	now      func() time.Time // injectable for deterministic tests

	// OnEvict, if set, is called with the number of entries dropped by
	// capacity eviction and the number of sessions dropped by a sweep.
	// It is called with the registry lock held and must not call back into it.
	OnEvict func(entries, sessions int)
}

// New creates a Registry whose stores hold at most capacity entries and
// expire after ttl of inactivity.
func New(capacity int, ttl time.Duration) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		sessions: make(map[string]*ObjectStore),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the value cached under key for sessionID.
// An empty sessionID always misses.
func (r *Registry) Get(sessionID, key string) (any, bool) {
	if sessionID == "" {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.sweep(now)
	return r.storeFor(sessionID, now).Get(key, now)
}

// Put caches value under key for sessionID. An empty sessionID is a no-op.
func (r *Registry) Put(sessionID, key string, value any) {
	if sessionID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.sweep(now)
	if evicted, ok := r.storeFor(sessionID, now).Put(key, value, now); ok {
		slog.Debug("cache: evicted entry", "key", evicted)
		if r.OnEvict != nil {
			r.OnEvict(1, 0)
		}
	}
}

// Remove drops key from sessionID's store. An empty sessionID is a no-op.
func (r *Registry) Remove(sessionID, key string) {
	if sessionID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.sweep(now)
	r.storeFor(sessionID, now).Remove(key)
}

// Sweep removes every store that has been idle for at least the TTL as of
// now. It returns the number of sessions removed.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweep(now)
}

// Stats returns the number of live sessions and cached entries.
// Stores that are expired but not yet swept are still counted.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Stats{Sessions: len(r.sessions), Capacity: r.capacity, TTL: r.ttl}
	for _, s := range r.sessions {
		st.Entries += s.Len()
	}
	return st
}

// TTL returns the configured idle timeout.
func (r *Registry) TTL() time.Duration { return r.ttl }

// Capacity returns the configured per-session entry limit.
func (r *Registry) Capacity() int { return r.capacity }

func (r *Registry) sweep(now time.Time) int {
	removed := 0
	for id, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("cache: swept expired sessions", "count", removed)
		if r.OnEvict != nil {
			r.OnEvict(0, removed)
		}
	}
	return removed
}

func (r *Registry) storeFor(sessionID string, now time.Time) *ObjectStore {
	s, ok := r.sessions[sessionID]
	if !ok {
		s = NewObjectStore(r.capacity, r.ttl, now)
		r.sessions[sessionID] = s
	}
	return s
}
