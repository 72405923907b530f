package factorymonitor

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/domain"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/ports"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{}
	cfg.MachineID = "press-07"
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 9500
	cfg.SampleInterval = 20 * time.Millisecond
	cfg.AckTimeout = time.Second
	cfg.ConnectTimeout = time.Second
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.BackoffBase = 10 * time.Millisecond
	cfg.Retry.BackoffMultiplier = 2
	cfg.Retry.BackoffMax = 50 * time.Millisecond
	cfg.QueueCapacity = 16
	cfg.StateFile = filepath.Join(t.TempDir(), "counters.json")
	cfg.FlushInterval = 50 * time.Millisecond
	cfg.StopGrace = time.Minute
	cfg.ShiftInterval = time.Minute
	cfg.Shifts = []ShiftWindow{
		{Name: "Shift1", Start: "06:00:00", End: "14:00:00"},
		{Name: "Shift2", Start: "14:00:00", End: "22:00:00"},
		{Name: "Shift3", Start: "22:00:00", End: "06:00:00"},
	}
	cfg.Metrics.Addr = "127.0.0.1:0"
	cfg.Simulation.Enabled = true
	cfg.Simulation.EventInterval = 5 * time.Millisecond
	cfg.Simulation.GoodProbability = 0.9
	cfg.Simulation.RejectProbability = 0.1
	return cfg
}

func TestRuntimeDeliversSamples(t *testing.T) {
	cfg := testConfig(t)

	obs := newCaptureObs()
	journal := &captureJournal{}
	src := &scriptedSource{events: []*MachineEvent{
		{Type: domain.EventGood, At: time.Now()},
		{Type: domain.EventGood, At: time.Now()},
		{Type: domain.EventReject, At: time.Now()},
	}}

	rt, err := NewRuntime(cfg,
		WithEventSource(src),
		WithMetricsSource(stubMetrics{}),
		WithObservability(obs),
		WithJournal(journal),
	)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if err := rt.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, func() bool { return len(journal.outcomes()) >= 2 })
	waitFor(t, func() bool { return obs.gauge("factory_good_count") == 2 })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	for _, out := range journal.outcomes() {
		if out.State != "ACKED" {
			t.Fatalf("loopback peer must ack every payload, got %+v", out)
		}
	}
}

func TestNewRuntimeRequiresConfig(t *testing.T) {
	if _, err := NewRuntime(nil); err == nil {
		t.Fatalf("nil config must be rejected")
	}
}

func TestRuntimeDoubleStart(t *testing.T) {
	cfg := testConfig(t)
	rt, err := NewRuntime(cfg,
		WithEventSource(&scriptedSource{}),
		WithMetricsSource(stubMetrics{}),
		WithObservability(newCaptureObs()),
		WithJournal(&captureJournal{}),
	)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if err := rt.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := rt.Start(); err == nil {
		t.Fatalf("second start must fail")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

type scriptedSource struct {
	events []*MachineEvent
}

func (s *scriptedSource) Start(out chan<- *MachineEvent) error {
	go func() {
		for _, ev := range s.events {
			out <- ev
		}
	}()
	return nil
}

func (s *scriptedSource) Stop() error { return nil }

type stubMetrics struct{}

func (stubMetrics) Sample(context.Context) (domain.MetricsSnapshot, error) {
	return domain.MetricsSnapshot{CPUPercent: 10, TakenAt: time.Now()}, nil
}

type captureJournal struct {
	mu   sync.Mutex
	outs []DeliveryOutcome
}

func (j *captureJournal) Record(out DeliveryOutcome) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outs = append(j.outs, out)
	return nil
}

func (j *captureJournal) Recent(int) ([]DeliveryOutcome, error) { return j.outcomes(), nil }
func (j *captureJournal) Close() error                          { return nil }

func (j *captureJournal) outcomes() []DeliveryOutcome {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]DeliveryOutcome, len(j.outs))
	copy(out, j.outs)
	return out
}

type captureObs struct {
	mu     sync.Mutex
	gauges map[string]float64
}

func newCaptureObs() *captureObs {
	return &captureObs{gauges: map[string]float64{}}
}

func (o *captureObs) LogInfo(string, ...ports.Field)            {}
func (o *captureObs) LogError(string, error, ...ports.Field)    {}
func (o *captureObs) LogCritical(string, error, ...ports.Field) {}
func (o *captureObs) IncCounter(string, float64)                {}
func (o *captureObs) ObserveLatency(string, float64)            {}

func (o *captureObs) SetGauge(name string, v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gauges[name] = v
}

func (o *captureObs) gauge(name string) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gauges[name]
}
