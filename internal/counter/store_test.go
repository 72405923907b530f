package counter

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/domain"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/ports"
)

func TestStoreConcurrentIncrements(t *testing.T) {
	s := NewStore(nil, &stubObs{})

	const workers = 8
	const perWorker = 500

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if (n+j)%3 == 0 {
					s.RecordReject()
				} else {
					s.RecordGood()
				}
			}
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	if snap.Total() != workers*perWorker {
		t.Fatalf("expected %d total events, got %d (good=%d reject=%d)",
			workers*perWorker, snap.Total(), snap.Good, snap.Reject)
	}
}

func TestResetForShiftIdempotent(t *testing.T) {
	s := NewStore(nil, &stubObs{})
	s.RecordGood()
	s.RecordGood()
	s.RecordReject()

	t0 := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)
	first := s.ResetForShift("Shift1", t0)
	if first.Good != 0 || first.Reject != 0 || first.ShiftID != "Shift1" {
		t.Fatalf("unexpected counters after reset: %+v", first)
	}

	s.RecordGood()
	second := s.ResetForShift("Shift1", t0.Add(time.Minute))
	if second.Good != 1 {
		t.Fatalf("second reset for same shift must be a no-op, got %+v", second)
	}
	if second.LastResetAt != t0 {
		t.Fatalf("reset timestamp must not move on duplicate reset, got %s", second.LastResetAt)
	}
}

func TestResetForNewShiftZeroes(t *testing.T) {
	s := NewStore(nil, &stubObs{})
	s.ResetForShift("Shift1", time.Unix(100, 0))
	s.RecordGood()
	s.RecordReject()

	c := s.ResetForShift("Shift2", time.Unix(200, 0))
	if c.Good != 0 || c.Reject != 0 || c.ShiftID != "Shift2" {
		t.Fatalf("expected zeroed counters on new shift, got %+v", c)
	}
}

func TestPersistFailureDoesNotBlockCounting(t *testing.T) {
	p := &flakyPersister{failures: 2}
	obs := &stubObs{}
	s := NewStore(p, obs)

	s.RecordGood()   // save fails
	s.RecordReject() // save fails
	s.RecordGood()   // save succeeds

	snap := s.Snapshot()
	if snap.Good != 2 || snap.Reject != 1 {
		t.Fatalf("in-memory counts must survive persist failures, got %+v", snap)
	}
	if p.saved.Good != 2 || p.saved.Reject != 1 {
		t.Fatalf("expected eventual persist of %+v, got %+v", snap, p.saved)
	}
	if obs.counts["factory_persist_errors_total"] != 2 {
		t.Fatalf("expected 2 persist errors counted, got %v", obs.counts)
	}
}

func TestFlushIfDirtyRetriesFailedWrite(t *testing.T) {
	p := &flakyPersister{failures: 1}
	s := NewStore(p, &stubObs{})

	s.RecordGood() // save fails, store goes dirty
	s.FlushIfDirty()

	if p.saved.Good != 1 {
		t.Fatalf("expected dirty flush to persist good=1, got %+v", p.saved)
	}

	p.saveCalls = 0
	s.FlushIfDirty()
	if p.saveCalls != 0 {
		t.Fatalf("clean store must not rewrite state, got %d saves", p.saveCalls)
	}
}

func TestNewStoreSeedsFromPersistedState(t *testing.T) {
	p := &flakyPersister{
		loaded:    domain.ProductionCounters{Good: 7, Reject: 2, ShiftID: "Shift2"},
		hasLoaded: true,
	}
	s := NewStore(p, &stubObs{})

	snap := s.Snapshot()
	if snap.Good != 7 || snap.Reject != 2 || snap.ShiftID != "Shift2" {
		t.Fatalf("expected reload of persisted state, got %+v", snap)
	}
}

type flakyPersister struct {
	failures  int
	saveCalls int
	saved     domain.ProductionCounters
	loaded    domain.ProductionCounters
	hasLoaded bool
}

func (p *flakyPersister) Load() (domain.ProductionCounters, bool, error) {
	return p.loaded, p.hasLoaded, nil
}

func (p *flakyPersister) Save(c domain.ProductionCounters) error {
	p.saveCalls++
	if p.failures > 0 {
		p.failures--
		return errors.New("disk full")
	}
	p.saved = c
	return nil
}

type stubObs struct {
	mu     sync.Mutex
	counts map[string]float64
}

func (o *stubObs) LogInfo(string, ...ports.Field)            {}
func (o *stubObs) LogError(string, error, ...ports.Field)    {}
func (o *stubObs) LogCritical(string, error, ...ports.Field) {}
func (o *stubObs) ObserveLatency(string, float64)            {}
func (o *stubObs) SetGauge(string, float64)                  {}

func (o *stubObs) IncCounter(name string, v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = map[string]float64{}
	}
	o.counts[name] += v
}
