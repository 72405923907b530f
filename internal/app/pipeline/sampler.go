package pipeline

import (
	"context"
	"time"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/counter"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/domain"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/ports"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/telemetry"
)

// Submitter accepts a finished payload for delivery.
type Submitter interface {
	Submit(p *domain.TelemetryPayload)
}

// Sampler drives the fixed-interval telemetry cadence: snapshot the
// counters, read host metrics, build the payload, hand it to the delivery
// coordinator. A metrics read failure degrades to whatever fields the
// source could fill; the sample is still sent.
type Sampler struct {
	machineID string
	interval  time.Duration
	store     *counter.Store
	metrics   ports.MetricsSource
	tracker   *StateTracker
	out       Submitter
	obs       ports.Observability
	now       func() time.Time
}

func NewSampler(machineID string, interval time.Duration, store *counter.Store, metrics ports.MetricsSource, tracker *StateTracker, out Submitter, obs ports.Observability) *Sampler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Sampler{
		machineID: machineID,
		interval:  interval,
		store:     store,
		metrics:   metrics,
		tracker:   tracker,
		out:       out,
		obs:       obs,
		now:       time.Now,
	}
}

// Run ticks until the context is cancelled. The first sample goes out
// immediately so a fresh start is visible on the server without waiting a
// full interval.
func (s *Sampler) Run(ctx context.Context) {
	s.Tick(ctx, s.now())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx, s.now())
		}
	}
}

// Tick performs one sampling pass.
func (s *Sampler) Tick(ctx context.Context, now time.Time) {
	s.tracker.Check(now)

	snap := s.store.Snapshot()
	m, err := s.metrics.Sample(ctx)
	if err != nil {
		s.obs.LogError("metrics_sample_degraded", err)
	}

	p := telemetry.Build(s.machineID, snap, m, s.tracker.State(), now)
	s.out.Submit(p)

	s.obs.SetGauge("factory_good_count", float64(snap.Good))
	s.obs.SetGauge("factory_reject_count", float64(snap.Reject))
}
