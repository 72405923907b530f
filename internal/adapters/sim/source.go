// Package sim provides the development-mode stand-ins for the shop floor: a
// synthetic event source in place of the sensor interface and a loopback ack
// peer in place of the collection server. Both honor the same contracts as
// the production adapters, so the rest of the agent runs unchanged.
package sim

import (
	"math/rand"
	"sync"
	"time"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/domain"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/ports"
)

// SourceConfig tunes the synthetic event mix. Each tick draws one event:
// good part, rejected part, a state toggle, or nothing.
type SourceConfig struct {
	EventInterval   time.Duration
	GoodProbability float64
	RejectProb      float64
	StopProb        float64
}

// Source emits synthetic machine events on a fixed cadence. It announces
// RUNNING once at startup so downstream state is defined from the first
// sample onward.
type Source struct {
	cfg     SourceConfig
	rng     *rand.Rand
	mu      sync.Mutex
	stopped bool
	done    chan struct{}
	wg      sync.WaitGroup
}

var _ ports.EventSource = (*Source)(nil)

func NewSource(cfg SourceConfig) *Source {
	if cfg.EventInterval <= 0 {
		cfg.EventInterval = 500 * time.Millisecond
	}
	return &Source{
		cfg:  cfg,
		rng:  rand.New(rand.NewSource(int64(rand.Uint64()))),
		done: make(chan struct{}),
	}
}

func (s *Source) Start(out chan<- *domain.MachineEvent) error {
	s.wg.Add(1)
	go s.run(out)
	return nil
}

func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.stopped = true
		close(s.done)
	}
	s.wg.Wait()
	return nil
}

func (s *Source) run(out chan<- *domain.MachineEvent) {
	defer s.wg.Done()

	running := true
	if !s.emit(out, &domain.MachineEvent{Type: domain.EventStateChange, State: domain.StateRunning, At: time.Now()}) {
		return
	}

	ticker := time.NewTicker(s.cfg.EventInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			ev := s.draw(now, &running)
			if ev == nil {
				continue
			}
			if !s.emit(out, ev) {
				return
			}
		}
	}
}

// draw picks at most one event for this tick. A stopped machine produces no
// parts; its only possible event is starting back up.
func (s *Source) draw(now time.Time, running *bool) *domain.MachineEvent {
	r := s.rng.Float64()

	if !*running {
		if r < s.cfg.StopProb {
			*running = true
			return &domain.MachineEvent{Type: domain.EventStateChange, State: domain.StateRunning, At: now}
		}
		return nil
	}

	switch {
	case r < s.cfg.GoodProbability:
		return &domain.MachineEvent{Type: domain.EventGood, At: now}
	case r < s.cfg.GoodProbability+s.cfg.RejectProb:
		return &domain.MachineEvent{Type: domain.EventReject, At: now}
	case r < s.cfg.GoodProbability+s.cfg.RejectProb+s.cfg.StopProb:
		*running = false
		return &domain.MachineEvent{Type: domain.EventStateChange, State: domain.StateStopped, At: now}
	default:
		return nil
	}
}

func (s *Source) emit(out chan<- *domain.MachineEvent, ev *domain.MachineEvent) bool {
	select {
	case out <- ev:
		return true
	case <-s.done:
		return false
	}
}
