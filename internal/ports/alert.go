package ports

import "github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/domain"

// AlertSink receives the events that cross the core boundary
// (MACHINE_STOPPED, DELIVERY_FAILED). Delivery to humans is the external
// collaborator's job; Emit must not block the caller for long.
type AlertSink interface {
	Emit(ev domain.AlertEvent)
}
