package ports

import "github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/domain"

// EventSource produces a lazy, unbounded stream of machine events. Hardware
// adapters and the simulator are drop-in implementations of the same
// interface; nothing downstream knows which one is wired.
type EventSource interface {
	Start(out chan<- *domain.MachineEvent) error
	Stop() error
}
