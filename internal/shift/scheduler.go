package shift

import (
	"context"
	"time"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/counter"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/ports"
)

// Scheduler resets the counter store exactly once whenever the active shift
// differs from the counters' shift id. Because it compares against the
// store state instead of tracking boundary crossings, a process that slept
// through any number of boundaries performs a single reset to the
// now-current shift on its first tick.
type Scheduler struct {
	schedule *Schedule
	store    *counter.Store
	interval time.Duration
	obs      ports.Observability
	now      func() time.Time
}

func NewScheduler(schedule *Schedule, store *counter.Store, interval time.Duration, obs ports.Observability) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		schedule: schedule,
		store:    store,
		interval: interval,
		obs:      obs,
		now:      time.Now,
	}
}

// Run ticks until the context is cancelled. The first check happens
// immediately so a restart lands on the correct shift without waiting a
// full interval.
func (s *Scheduler) Run(ctx context.Context) {
	s.Tick(s.now())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(s.now())
		}
	}
}

// Tick performs one boundary check. Exported so tests (and the runtime) can
// drive it with a controlled clock.
func (s *Scheduler) Tick(now time.Time) {
	active := s.schedule.Active(now)
	if active == UnknownShift {
		return
	}
	if s.store.Snapshot().ShiftID == active {
		return
	}
	c := s.store.ResetForShift(active, now)
	s.obs.LogInfo("shift_reset",
		ports.Field{Key: "shift", Value: c.ShiftID},
		ports.Field{Key: "at", Value: now.Format(time.RFC3339)})
}
