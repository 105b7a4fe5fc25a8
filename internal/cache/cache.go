// Package cache holds the last successful snapshot per exchanger, used as
// the fallback source when a fetch fails. Entries never expire; staleness
// is surfaced through the snapshot's FetchedAt, not by deletion.
package cache

import (
	"sync"
	"time"

	"ratefeed/internal/feed"
)

// Store maps exchanger ids to their last successful snapshot. Writes come
// only from the scheduler after a successful fetch+normalize; fallback
// lookups never mutate.
type Store struct {
	mu    sync.RWMutex
	snaps map[string]feed.Snapshot
}

// New creates an empty store.
func New() *Store {
	return &Store{snaps: make(map[string]feed.Snapshot)}
}

// Put stores a successful snapshot, replacing any previous one for the
// same exchanger. Failed snapshots are rejected: the store may only ever
// hold known-good data.
func (s *Store) Put(snap feed.Snapshot) {
	if !snap.Success || snap.ExchangerID == "" {
		return
	}
	s.mu.Lock()
	s.snaps[snap.ExchangerID] = snap
	s.mu.Unlock()
}

// Get returns the last successful snapshot for an exchanger, if any.
func (s *Store) Get(exchangerID string) (feed.Snapshot, bool) {
	s.mu.RLock()
	snap, ok := s.snaps[exchangerID]
	s.mu.RUnlock()
	return snap, ok
}

// Age returns how old the cached snapshot for an exchanger is.
func (s *Store) Age(exchangerID string, now time.Time) (time.Duration, bool) {
	snap, ok := s.Get(exchangerID)
	if !ok {
		return 0, false
	}
	return now.Sub(snap.FetchedAt), true
}

// Len returns the number of exchangers with cached data.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snaps)
}
