package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/domain"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/ports"
)

// Config holds the retry policy. Zero values are replaced by defaults that
// match the documented policy: 3 attempts, exponential backoff from 1s
// doubling up to 30s.
type Config struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMultiplier float64
	BackoffMax        time.Duration
	QueueCapacity     int
}

func (c *Config) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffMultiplier < 1 {
		c.BackoffMultiplier = 2
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 30 * time.Second
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 64
	}
}

// Coordinator owns the delivery state machine. The sampler submits
// payloads; a single consumer goroutine sends them in FIFO order, one in
// flight at a time, retrying per the backoff policy. Exhausting the retry
// budget emits exactly one DELIVERY_FAILED alert carrying the payload's
// sequence number so a consumer can detect gaps.
type Coordinator struct {
	cfg     Config
	session *Session
	queue   *SendQueue
	alerts  ports.AlertSink
	journal ports.DeliveryJournal
	obs     ports.Observability
	onAcked func(p *domain.TelemetryPayload)
	notify  chan struct{}
	doneCh  chan struct{}
}

func NewCoordinator(cfg Config, session *Session, alerts ports.AlertSink, journal ports.DeliveryJournal, obs ports.Observability) *Coordinator {
	cfg.applyDefaults()
	return &Coordinator{
		cfg:     cfg,
		session: session,
		queue:   NewSendQueue(cfg.QueueCapacity),
		alerts:  alerts,
		journal: journal,
		obs:     obs,
		notify:  make(chan struct{}, 1),
		doneCh:  make(chan struct{}),
	}
}

// SetAckedHook installs a callback invoked after each acknowledged
// delivery (used for the optional payload archive). Must be set before Run.
func (c *Coordinator) SetAckedHook(fn func(p *domain.TelemetryPayload)) {
	c.onAcked = fn
}

// Submit enqueues a payload for transmission. Never blocks: when the queue
// is full the oldest un-sent snapshot is dropped and counted, since
// cumulative counters make the newer snapshot strictly more informative.
func (c *Coordinator) Submit(p *domain.TelemetryPayload) {
	rec := &DeliveryRecord{Payload: p, State: DeliveryPending}
	if dropped := c.queue.Push(rec); dropped != nil {
		c.obs.IncCounter("factory_queue_dropped_total", 1)
		c.obs.LogError("send_queue_overflow",
			fmt.Errorf("dropped snapshot sampled at %s", dropped.Payload.SampledAt.Format(time.RFC3339)))
	}
	c.obs.SetGauge("factory_queue_length", float64(c.queue.Len()))

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Run consumes the queue until the context is cancelled. On cancellation
// an in-flight record gets one final best-effort send before Run returns.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.doneCh)
	defer c.session.Close()

	for {
		rec := c.queue.Pop()
		if rec == nil {
			select {
			case <-ctx.Done():
				return
			case <-c.notify:
				continue
			}
		}
		c.obs.SetGauge("factory_queue_length", float64(c.queue.Len()))

		select {
		case <-ctx.Done():
			c.finalAttempt(rec)
			return
		default:
		}
		if !c.deliver(ctx, rec) {
			return
		}
	}
}

// Done is closed when Run has exited.
func (c *Coordinator) Done() <-chan struct{} { return c.doneCh }

// deliver drives one record to ACKED or FAILED. Returns false when the
// context was cancelled and Run should exit.
func (c *Coordinator) deliver(ctx context.Context, rec *DeliveryRecord) bool {
	for {
		c.attempt(ctx, rec)
		if rec.State == DeliveryAcked {
			return true
		}

		if rec.Attempts >= c.cfg.MaxAttempts {
			c.markFailed(rec, true)
			return true
		}

		c.obs.IncCounter("factory_retries_total", 1)
		if !c.sleepBackoff(ctx, rec.Attempts) {
			c.finalAttempt(rec)
			return false
		}
	}
}

// attempt performs one send and updates the record's bookkeeping.
func (c *Coordinator) attempt(ctx context.Context, rec *DeliveryRecord) {
	rec.Attempts++
	now := time.Now()
	if rec.FirstSentAt.IsZero() {
		rec.FirstSentAt = now
	}
	rec.LastSentAt = now

	c.obs.IncCounter("factory_payloads_sent_total", 1)
	if err := c.session.Send(ctx, rec); err != nil {
		c.obs.LogError("payload_send_failed", err,
			ports.Field{Key: "seq", Value: rec.Seq},
			ports.Field{Key: "attempt", Value: rec.Attempts})
		return
	}

	rec.State = DeliveryAcked
	c.obs.IncCounter("factory_acks_total", 1)
	c.journalOutcome(rec)
	if c.onAcked != nil {
		c.onAcked(rec.Payload)
	}
}

// finalAttempt is the shutdown path: one best-effort send bounded by the
// ack timeout, then the record is abandoned (journaled, not alerted —
// the process is exiting by operator request, not losing data silently).
func (c *Coordinator) finalAttempt(rec *DeliveryRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), c.session.ackTimeout+c.session.connectTimeout)
	defer cancel()

	c.attempt(ctx, rec)
	if rec.State != DeliveryAcked {
		c.markFailed(rec, false)
	}
}

func (c *Coordinator) markFailed(rec *DeliveryRecord, alert bool) {
	rec.State = DeliveryFailed
	c.obs.IncCounter("factory_delivery_failed_total", 1)
	c.journalOutcome(rec)
	if alert && c.alerts != nil {
		c.alerts.Emit(domain.AlertEvent{
			Kind:   domain.AlertDeliveryFailed,
			Detail: fmt.Sprintf("payload seq=%d undelivered after %d attempts", rec.Seq, rec.Attempts),
			Seq:    rec.Seq,
			At:     time.Now(),
		})
	}
}

func (c *Coordinator) journalOutcome(rec *DeliveryRecord) {
	if c.journal == nil {
		return
	}
	err := c.journal.Record(ports.DeliveryOutcome{
		Seq:         rec.Seq,
		State:       string(rec.State),
		Attempts:    rec.Attempts,
		FirstSentAt: rec.FirstSentAt,
		LastSentAt:  rec.LastSentAt,
		SampledAt:   rec.Payload.SampledAt,
	})
	if err != nil {
		c.obs.LogError("journal_record_failed", err)
	}
}

// sleepBackoff waits base × multiplier^(attempt-1) capped at the maximum.
// Returns false when the context was cancelled during the wait.
func (c *Coordinator) sleepBackoff(ctx context.Context, attempt int) bool {
	d := c.cfg.BackoffBase
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * c.cfg.BackoffMultiplier)
		if d >= c.cfg.BackoffMax {
			d = c.cfg.BackoffMax
			break
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
