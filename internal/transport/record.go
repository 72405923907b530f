package transport

import (
	"fmt"
	"time"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/domain"
)

// DeliveryState tracks one payload through the retry state machine.
type DeliveryState string

const (
	DeliveryPending DeliveryState = "PENDING"
	DeliveryAcked   DeliveryState = "ACKED"
	DeliveryFailed  DeliveryState = "FAILED"
)

// DeliveryRecord is the coordinator's bookkeeping for one outstanding
// payload. Seq stays zero until the session assigns it on the first send;
// retries reuse the assigned value so the server can deduplicate.
type DeliveryRecord struct {
	Seq         uint64
	Payload     *domain.TelemetryPayload
	Attempts    int
	FirstSentAt time.Time
	LastSentAt  time.Time
	State       DeliveryState
}

// TransientError wraps connect/write/read/ack-timeout failures. The
// coordinator absorbs these per the backoff policy; they never escalate as
// process-level failures.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

func transientf(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}
