package transport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/domain"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/ports"
)

func fastRetryConfig() Config {
	return Config{
		MaxAttempts:       3,
		BackoffBase:       10 * time.Millisecond,
		BackoffMultiplier: 2,
		BackoffMax:        50 * time.Millisecond,
		QueueCapacity:     8,
	}
}

func TestCoordinatorAckOnSecondAttempt(t *testing.T) {
	srv := startTestServer(t)
	srv.dropAcks(1)

	obs := newTestObs()
	alerts := &captureAlerts{}
	journal := &captureJournal{}
	sess := NewSession(srv.addr(), nil, time.Second, 100*time.Millisecond, obs)
	coord := NewCoordinator(fastRetryConfig(), sess, alerts, journal, obs)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		coord.Run(ctx)
		close(done)
	}()

	coord.Submit(testPayload())

	waitFor(t, func() bool { return len(journal.outcomes()) == 1 })
	cancel()
	<-done

	out := journal.outcomes()[0]
	if out.State != string(DeliveryAcked) {
		t.Fatalf("expected ACKED outcome, got %+v", out)
	}
	if out.Attempts != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", out.Attempts)
	}
	if len(alerts.events()) != 0 {
		t.Fatalf("successful delivery must not alert, got %+v", alerts.events())
	}
	if got := obs.count("factory_retries_total"); got != 1 {
		t.Fatalf("expected 1 retry counted, got %f", got)
	}
}

func TestCoordinatorExhaustionEmitsOneFailure(t *testing.T) {
	obs := newTestObs()
	alerts := &captureAlerts{}
	journal := &captureJournal{}
	// Unroutable peer: every attempt fails to connect.
	sess := NewSession("127.0.0.1:1", nil, 20*time.Millisecond, 20*time.Millisecond, obs)
	coord := NewCoordinator(fastRetryConfig(), sess, alerts, journal, obs)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		coord.Run(ctx)
		close(done)
	}()

	coord.Submit(testPayload())

	waitFor(t, func() bool { return len(alerts.events()) >= 1 })
	// Give the coordinator room to (wrongly) retry after FAILED.
	time.Sleep(150 * time.Millisecond)
	cancel()
	<-done

	evs := alerts.events()
	if len(evs) != 1 {
		t.Fatalf("expected exactly one DELIVERY_FAILED event, got %d", len(evs))
	}
	if evs[0].Kind != domain.AlertDeliveryFailed {
		t.Fatalf("unexpected alert kind %s", evs[0].Kind)
	}
	if got := obs.count("factory_payloads_sent_total"); got != 3 {
		t.Fatalf("expected exactly 3 attempts, got %f", got)
	}
	outs := journal.outcomes()
	if len(outs) != 1 || outs[0].State != string(DeliveryFailed) || outs[0].Attempts != 3 {
		t.Fatalf("expected one FAILED outcome with 3 attempts, got %+v", outs)
	}
}

func TestCoordinatorAckedHook(t *testing.T) {
	srv := startTestServer(t)
	obs := newTestObs()
	sess := NewSession(srv.addr(), nil, time.Second, time.Second, obs)
	coord := NewCoordinator(fastRetryConfig(), sess, &captureAlerts{}, nil, obs)

	var mu sync.Mutex
	var archived []uint64
	coord.SetAckedHook(func(p *domain.TelemetryPayload) {
		mu.Lock()
		archived = append(archived, p.SequenceNumber)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		coord.Run(ctx)
		close(done)
	}()

	coord.Submit(testPayload())
	coord.Submit(testPayload())

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(archived) == 2
	})
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if archived[0] != 1 || archived[1] != 2 {
		t.Fatalf("expected acked hook for seqs 1,2 in order, got %v", archived)
	}
}

func TestSubmitOverflowDropsOldest(t *testing.T) {
	obs := newTestObs()
	sess := NewSession("127.0.0.1:1", nil, time.Millisecond, time.Millisecond, obs)
	cfg := fastRetryConfig()
	cfg.QueueCapacity = 2
	coord := NewCoordinator(cfg, sess, &captureAlerts{}, nil, obs)

	// Run is deliberately not started: everything stays queued.
	first := testPayload()
	first.Good = 100
	coord.Submit(first)
	coord.Submit(testPayload())
	coord.Submit(testPayload())

	if got := obs.count("factory_queue_dropped_total"); got != 1 {
		t.Fatalf("expected 1 queue drop counted, got %f", got)
	}
	if coord.queue.Len() != 2 {
		t.Fatalf("expected queue pinned at capacity 2, got %d", coord.queue.Len())
	}
	if rec := coord.queue.Pop(); rec.Payload.Good == 100 {
		t.Fatalf("expected the oldest snapshot to be the one dropped")
	}
}

func TestSendQueueFIFOAndEviction(t *testing.T) {
	q := NewSendQueue(2)
	a := &DeliveryRecord{Payload: testPayload()}
	b := &DeliveryRecord{Payload: testPayload()}
	c := &DeliveryRecord{Payload: testPayload()}

	if dropped := q.Push(a); dropped != nil {
		t.Fatalf("unexpected drop on first push")
	}
	if dropped := q.Push(b); dropped != nil {
		t.Fatalf("unexpected drop on second push")
	}
	if dropped := q.Push(c); dropped != a {
		t.Fatalf("expected oldest record evicted, got %+v", dropped)
	}
	if got := q.Pop(); got != b {
		t.Fatalf("expected FIFO order after eviction")
	}
	if got := q.Pop(); got != c {
		t.Fatalf("expected remaining record, got %+v", got)
	}
	if q.Pop() != nil {
		t.Fatalf("empty queue must pop nil")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

type captureAlerts struct {
	mu  sync.Mutex
	evs []domain.AlertEvent
}

func (a *captureAlerts) Emit(ev domain.AlertEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.evs = append(a.evs, ev)
}

func (a *captureAlerts) events() []domain.AlertEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.AlertEvent, len(a.evs))
	copy(out, a.evs)
	return out
}

type captureJournal struct {
	mu   sync.Mutex
	outs []ports.DeliveryOutcome
}

func (j *captureJournal) Record(out ports.DeliveryOutcome) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outs = append(j.outs, out)
	return nil
}

func (j *captureJournal) Recent(int) ([]ports.DeliveryOutcome, error) { return j.outcomes(), nil }
func (j *captureJournal) Close() error                                { return nil }

func (j *captureJournal) outcomes() []ports.DeliveryOutcome {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]ports.DeliveryOutcome, len(j.outs))
	copy(out, j.outs)
	return out
}
