package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/shift"
)

type Config struct {
	MachineID      string            `yaml:"machine_id"`
	Server         ServerConfig      `yaml:"server"`
	SampleInterval time.Duration     `yaml:"sample_interval"`
	AckTimeout     time.Duration     `yaml:"ack_timeout"`
	ConnectTimeout time.Duration     `yaml:"connect_timeout"`
	Retry          RetryConfig       `yaml:"retry"`
	QueueCapacity  int               `yaml:"queue_capacity"`
	StateFile      string            `yaml:"state_file"`
	FlushInterval  time.Duration     `yaml:"flush_interval"`
	StopGrace      time.Duration     `yaml:"stop_grace"`
	ShiftInterval  time.Duration     `yaml:"shift_interval"`
	Shifts         []shift.WindowDef `yaml:"shifts"`
	Simulation     SimulationConfig  `yaml:"simulation"`
	OPCUA          OPCUAConfig       `yaml:"opcua"`
	Metrics        MetricsConfig     `yaml:"metrics"`
	Journal        JournalConfig     `yaml:"journal"`
	Archive        ArchiveConfig     `yaml:"archive"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the host:port dial target.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	BackoffBase       time.Duration `yaml:"backoff_base"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	BackoffMax        time.Duration `yaml:"backoff_max"`
}

type SimulationConfig struct {
	Enabled            bool          `yaml:"enabled"`
	EventInterval      time.Duration `yaml:"event_interval"`
	GoodProbability    float64       `yaml:"good_probability"`
	RejectProbability  float64       `yaml:"reject_probability"`
	StopProbability    float64       `yaml:"stop_probability"`
	AckDropProbability float64       `yaml:"ack_drop_probability"`
	AckLatency         time.Duration `yaml:"ack_latency"`
}

type OPCUAConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	GoodNode        string        `yaml:"good_node"`
	RejectNode      string        `yaml:"reject_node"`
	StateNode       string        `yaml:"state_node"`
	PublishInterval time.Duration `yaml:"publish_interval"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type JournalConfig struct {
	Path string `yaml:"path"`
}

type ArchiveConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

// Load reads, defaults, and validates the YAML configuration. A validation
// failure here is the only fatal error class the system has.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields. Exported so programmatically built
// configs get the same treatment as loaded ones.
func (c *Config) ApplyDefaults() {
	if c.MachineID == "" {
		c.MachineID = "machine-01"
	}
	if c.SampleInterval == 0 {
		c.SampleInterval = 5 * time.Second
	}
	if c.AckTimeout == 0 {
		c.AckTimeout = 2 * time.Second
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.BackoffBase == 0 {
		c.Retry.BackoffBase = time.Second
	}
	if c.Retry.BackoffMultiplier == 0 {
		c.Retry.BackoffMultiplier = 2
	}
	if c.Retry.BackoffMax == 0 {
		c.Retry.BackoffMax = 30 * time.Second
	}
	if c.QueueCapacity == 0 {
		c.QueueCapacity = 64
	}
	if c.StateFile == "" {
		c.StateFile = "./data/production_counters.json"
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = 5 * time.Second
	}
	if c.StopGrace == 0 {
		c.StopGrace = 30 * time.Second
	}
	if c.ShiftInterval == 0 {
		c.ShiftInterval = time.Minute
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Archive.Table == "" {
		c.Archive.Table = "telemetry"
	}

	if c.Simulation.EventInterval == 0 {
		c.Simulation.EventInterval = 500 * time.Millisecond
	}
	if c.Simulation.GoodProbability == 0 {
		c.Simulation.GoodProbability = 0.7
	}
	if c.Simulation.RejectProbability == 0 {
		c.Simulation.RejectProbability = 0.1
	}
	if c.OPCUA.PublishInterval == 0 {
		c.OPCUA.PublishInterval = 250 * time.Millisecond
	}
}

// Validate checks the startup-fatal conditions: a dialable server address,
// a well-formed shift table, sane intervals, and an event source for the
// selected mode.
func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.SampleInterval <= 0 {
		return fmt.Errorf("sample_interval must be positive")
	}
	if c.AckTimeout <= 0 {
		return fmt.Errorf("ack_timeout must be positive")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be positive")
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("queue_capacity must be positive")
	}
	if _, err := shift.NewSchedule(c.Shifts); err != nil {
		return fmt.Errorf("shifts: %w", err)
	}
	if !c.Simulation.Enabled {
		if c.OPCUA.Endpoint == "" {
			return fmt.Errorf("opcua.endpoint is required when simulation is disabled")
		}
		if c.OPCUA.GoodNode == "" || c.OPCUA.RejectNode == "" {
			return fmt.Errorf("opcua good_node and reject_node are required when simulation is disabled")
		}
	}
	return nil
}

// Schedule builds the parsed shift schedule. Call after Validate.
func (c *Config) Schedule() (*shift.Schedule, error) {
	return shift.NewSchedule(c.Shifts)
}
