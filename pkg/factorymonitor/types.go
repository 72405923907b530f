package factorymonitor

import (
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/app/config"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/domain"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/ports"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/shift"
)

// Config re-exports the root configuration struct so embedding projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// ServerConfig is the collection server dial target.
	ServerConfig = config.ServerConfig
	// RetryConfig controls the delivery backoff policy.
	RetryConfig = config.RetryConfig
	// SimulationConfig tunes the synthetic event source and loopback peer.
	SimulationConfig = config.SimulationConfig
	// OPCUAConfig holds the PLC connection and tag details.
	OPCUAConfig = config.OPCUAConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// JournalConfig configures the local delivery journal.
	JournalConfig = config.JournalConfig
	// ArchiveConfig configures the optional Postgres payload archive.
	ArchiveConfig = config.ArchiveConfig
	// ShiftWindow is one entry of the shift table.
	ShiftWindow = shift.WindowDef
)

type (
	// MachineEvent is one discrete event from the sensor interface.
	MachineEvent = domain.MachineEvent
	// MachineState is the RUNNING/STOPPED/UNKNOWN machine status.
	MachineState = domain.MachineState
	// TelemetryPayload is one wire message sent to the collection server.
	TelemetryPayload = domain.TelemetryPayload
	// ProductionCounters is the per-shift good/reject state.
	ProductionCounters = domain.ProductionCounters
	// AlertEvent crosses the core boundary for external notification.
	AlertEvent = domain.AlertEvent
	// AlertKind classifies alert events.
	AlertKind = domain.AlertKind

	// EventSource streams machine events into the agent.
	EventSource = ports.EventSource
	// MetricsSource samples host health per telemetry tick.
	MetricsSource = ports.MetricsSource
	// AlertSink receives MACHINE_STOPPED and DELIVERY_FAILED events.
	AlertSink = ports.AlertSink
	// DeliveryJournal records terminal delivery outcomes.
	DeliveryJournal = ports.DeliveryJournal
	// DeliveryOutcome is one journal row.
	DeliveryOutcome = ports.DeliveryOutcome
	// Dialer opens the outbound server connection.
	Dialer = ports.Dialer
	// Observability emits the agent's logs and metrics.
	Observability = ports.Observability
	// Field is a structured log field.
	Field = ports.Field
)

const (
	StateRunning = domain.StateRunning
	StateStopped = domain.StateStopped
	StateUnknown = domain.StateUnknown

	AlertMachineStopped = domain.AlertMachineStopped
	AlertDeliveryFailed = domain.AlertDeliveryFailed
)

// LoadConfig loads and validates YAML from disk.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
