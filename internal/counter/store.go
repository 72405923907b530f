package counter

import (
	"sync"
	"time"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/domain"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/ports"
)

// StatePersister stores the last-known counters durably. The second return
// of Load reports whether a previous state existed.
type StatePersister interface {
	Load() (domain.ProductionCounters, bool, error)
	Save(c domain.ProductionCounters) error
}

// Store is the authoritative production counter state. All mutation happens
// under one mutex so a Snapshot never observes a partial increment. A
// persistence failure marks the state dirty and is retried on the next
// mutation or via FlushIfDirty; counting itself never blocks on disk.
type Store struct {
	mu      sync.Mutex
	c       domain.ProductionCounters
	persist StatePersister
	obs     ports.Observability
	dirty   bool
}

// NewStore loads the persisted counters (if any) as the initial state. A
// corrupt or unreadable state file is reported and replaced with zeroed
// counters; it is not fatal.
func NewStore(p StatePersister, obs ports.Observability) *Store {
	s := &Store{persist: p, obs: obs}
	if p == nil {
		return s
	}
	c, ok, err := p.Load()
	if err != nil {
		obs.LogError("counter_state_load_failed", err)
		return s
	}
	if ok {
		s.c = c
		obs.LogInfo("counter_state_loaded",
			ports.Field{Key: "good", Value: c.Good},
			ports.Field{Key: "reject", Value: c.Reject},
			ports.Field{Key: "shift", Value: c.ShiftID})
	}
	return s
}

// RecordGood increments the good-part counter by one.
func (s *Store) RecordGood() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Good++
	s.persistLocked()
}

// RecordReject increments the reject counter by one.
func (s *Store) RecordReject() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Reject++
	s.persistLocked()
}

// Snapshot returns a consistent copy of the current counters.
func (s *Store) Snapshot() domain.ProductionCounters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c
}

// ResetForShift zeroes the counters and stamps the new shift. It is
// idempotent per shift id: calling it again with the current shift is a
// no-op, so a scheduler double-fire near a boundary cannot reset twice.
func (s *Store) ResetForShift(shiftID string, now time.Time) domain.ProductionCounters {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c.ShiftID == shiftID {
		return s.c
	}
	s.c = domain.ProductionCounters{
		ShiftID:     shiftID,
		LastResetAt: now,
	}
	s.persistLocked()
	return s.c
}

// FlushIfDirty retries a previously failed persist. Called on a timer so a
// write failure is not stuck waiting for the next machine event.
func (s *Store) FlushIfDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty {
		s.persistLocked()
	}
}

// FlushSync persists the current state and returns the write error, for
// shutdown paths that must not lose the final counts silently.
func (s *Store) FlushSync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persist == nil {
		return nil
	}
	err := s.persist.Save(s.c)
	s.dirty = err != nil
	return err
}

func (s *Store) persistLocked() {
	if s.persist == nil {
		return
	}
	if err := s.persist.Save(s.c); err != nil {
		s.dirty = true
		s.obs.IncCounter("factory_persist_errors_total", 1)
		s.obs.LogError("counter_state_save_failed", err)
		return
	}
	s.dirty = false
}
