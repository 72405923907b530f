package domain

import "time"

// MachineState is the RUNNING/STOPPED status of the monitored equipment as
// derived from sensor events. UNKNOWN is the state before the first
// STATE_CHANGE event arrives.
type MachineState string

const (
	StateRunning MachineState = "RUNNING"
	StateStopped MachineState = "STOPPED"
	StateUnknown MachineState = "UNKNOWN"
)

// EventType classifies a discrete machine event.
type EventType string

const (
	EventGood        EventType = "GOOD"
	EventReject      EventType = "REJECT"
	EventStateChange EventType = "STATE_CHANGE"
)

// MachineEvent is one discrete event from the sensor interface (or the
// simulator). State is only meaningful for STATE_CHANGE events.
type MachineEvent struct {
	Type  EventType    `json:"type"`
	State MachineState `json:"state,omitempty"`
	At    time.Time    `json:"at"`
}

// ProductionCounters is the authoritative per-shift production state. It is
// owned by the counter store and the only entity persisted across restarts.
type ProductionCounters struct {
	Good        uint64    `json:"good"`
	Reject      uint64    `json:"reject"`
	ShiftID     string    `json:"shiftId"`
	LastResetAt time.Time `json:"lastResetAt"`
}

// Total returns the number of parts counted since the last shift reset.
func (c ProductionCounters) Total() uint64 { return c.Good + c.Reject }

// MetricsSnapshot is a point-in-time reading of host health. Produced fresh
// per sample, never persisted.
type MetricsSnapshot struct {
	CPUPercent     float64   `json:"cpuPercent"`
	MemPercent     float64   `json:"memPercent"`
	TempCelsius    float64   `json:"tempCelsius"`
	DiskPercent    float64   `json:"diskPercent"`
	NetBytesPerSec float64   `json:"netBytesPerSec"`
	TakenAt        time.Time `json:"takenAt"`
}

// TelemetryPayload is one wire message: a flat JSON document so the server
// can decode it without nested schemas. SequenceNumber is zero until the
// transmission session assigns it at first send; retries of the same
// payload reuse the assigned value. Unknown fields on either side are
// ignored for forward compatibility.
type TelemetryPayload struct {
	SequenceNumber  uint64       `json:"sequenceNumber"`
	MachineID       string       `json:"machineId"`
	Good            uint64       `json:"good"`
	Reject          uint64       `json:"reject"`
	ShiftID         string       `json:"shiftId"`
	MachineState    MachineState `json:"machineState"`
	CPUPercent      float64      `json:"cpuPercent"`
	MemPercent      float64      `json:"memPercent"`
	TempCelsius     float64      `json:"tempCelsius"`
	DiskPercent     float64      `json:"diskPercent"`
	NetBytesPerSec  float64      `json:"netBytesPerSec"`
	SampledAt       time.Time    `json:"sampledAt"`
	SoftwareVersion string       `json:"softwareVersion,omitempty"`
}

// Ack is the server response confirming receipt of a payload.
type Ack struct {
	Seq uint64 `json:"ack"`
}

// AlertKind classifies events that cross the core boundary for external
// notification delivery.
type AlertKind string

const (
	AlertMachineStopped AlertKind = "MACHINE_STOPPED"
	AlertDeliveryFailed AlertKind = "DELIVERY_FAILED"
)

// AlertEvent is handed to the alerting collaborator; the core never
// delivers notifications itself.
type AlertEvent struct {
	Kind   AlertKind `json:"kind"`
	Detail string    `json:"detail"`
	Seq    uint64    `json:"seq,omitempty"`
	At     time.Time `json:"at"`
}
