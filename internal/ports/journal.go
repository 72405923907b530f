package ports

import "time"

// DeliveryOutcome is the terminal record of one payload's delivery attempt
// history, written once per payload when it reaches ACKED or FAILED.
type DeliveryOutcome struct {
	Seq         uint64
	State       string // "ACKED" or "FAILED"
	Attempts    int
	FirstSentAt time.Time
	LastSentAt  time.Time
	SampledAt   time.Time
}

// DeliveryJournal is a local audit log of delivery outcomes. Journal errors
// are logged by the caller and never block transmission.
type DeliveryJournal interface {
	Record(out DeliveryOutcome) error
	Recent(n int) ([]DeliveryOutcome, error)
	Close() error
}
