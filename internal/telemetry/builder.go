// Package telemetry assembles counters, metrics, and machine state into the
// wire payload. Build is a pure function so the sampler stays trivially
// testable; sequence numbers are assigned later by the transmission session.
package telemetry

import (
	"time"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/domain"
)

// Version is reported in every payload so the server can correlate behavior
// with the agent build.
const Version = "2.1.0"

// Build produces an immutable snapshot payload. Deterministic given its
// inputs; SequenceNumber is left zero.
func Build(machineID string, c domain.ProductionCounters, m domain.MetricsSnapshot, state domain.MachineState, now time.Time) *domain.TelemetryPayload {
	if state == "" {
		state = domain.StateUnknown
	}
	return &domain.TelemetryPayload{
		MachineID:       machineID,
		Good:            c.Good,
		Reject:          c.Reject,
		ShiftID:         c.ShiftID,
		MachineState:    state,
		CPUPercent:      m.CPUPercent,
		MemPercent:      m.MemPercent,
		TempCelsius:     m.TempCelsius,
		DiskPercent:     m.DiskPercent,
		NetBytesPerSec:  m.NetBytesPerSec,
		SampledAt:       now.UTC(),
		SoftwareVersion: Version,
	}
}
