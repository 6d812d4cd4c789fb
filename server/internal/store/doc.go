// Package store holds transient, session-scoped report artifacts.
//
// An ObjectStore is a small ordered map (default capacity 4) whose entries are
// evicted oldest-first once full. The store carries a single last-touched
// timestamp: any Put or Get of any key keeps the whole store alive, and the
// store expires once it has been idle for the TTL (default 5m).
//
// A Registry maps session identifiers to ObjectStores. Stores are created on
// first use and swept lazily: every Get, Put and Remove first drops all
// expired stores. There is no background reaper.
package store
