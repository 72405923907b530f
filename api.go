package factorymonitor

import (
	base "github.com/ayoubhammamii/RealTime-Factory-Monitor/pkg/factorymonitor"
)

// Re-exported errors for convenience.
var ErrAlertChannelClosed = base.ErrAlertChannelClosed

// Type aliases so consumers can import the module root directly.
type (
	Config           = base.Config
	ServerConfig     = base.ServerConfig
	RetryConfig      = base.RetryConfig
	SimulationConfig = base.SimulationConfig
	OPCUAConfig      = base.OPCUAConfig
	MetricsConfig    = base.MetricsConfig
	JournalConfig    = base.JournalConfig
	ArchiveConfig    = base.ArchiveConfig
	ShiftWindow      = base.ShiftWindow

	Runtime       = base.Runtime
	RuntimeOption = base.RuntimeOption

	MachineEvent       = base.MachineEvent
	MachineState       = base.MachineState
	TelemetryPayload   = base.TelemetryPayload
	ProductionCounters = base.ProductionCounters
	AlertEvent         = base.AlertEvent
	AlertKind          = base.AlertKind
	AlertFunc          = base.AlertFunc

	EventSource     = base.EventSource
	MetricsSource   = base.MetricsSource
	AlertSink       = base.AlertSink
	DeliveryJournal = base.DeliveryJournal
	DeliveryOutcome = base.DeliveryOutcome
	Dialer          = base.Dialer
	Observability   = base.Observability
	Field           = base.Field
)

const (
	StateRunning = base.StateRunning
	StateStopped = base.StateStopped
	StateUnknown = base.StateUnknown

	AlertMachineStopped = base.AlertMachineStopped
	AlertDeliveryFailed = base.AlertDeliveryFailed
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithEventSource(src EventSource) RuntimeOption {
	return base.WithEventSource(src)
}

func WithMetricsSource(src MetricsSource) RuntimeOption {
	return base.WithMetricsSource(src)
}

func WithDialer(d Dialer) RuntimeOption {
	return base.WithDialer(d)
}

func WithAlertSink(sink AlertSink) RuntimeOption {
	return base.WithAlertSink(sink)
}

func WithJournal(j DeliveryJournal) RuntimeOption {
	return base.WithJournal(j)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

// Alert adapters.
func NewCallbackAlerts(fn AlertFunc) AlertSink {
	return base.NewCallbackAlerts(fn)
}

func NewChannelAlerts(buffer int) (AlertSink, <-chan AlertEvent, func()) {
	return base.NewChannelAlerts(buffer)
}

func NewLogAlerts(obs Observability) AlertSink {
	return base.NewLogAlerts(obs)
}
