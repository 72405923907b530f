// Package factorymonitor is the embeddable agent runtime: it wires the
// event source, counter store, shift scheduler, sampler, and delivery
// coordinator behind a small lifecycle API so the agent can run as the
// shipped binary or inside another Go service.
package factorymonitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/adapters/archive"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/adapters/journal"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/adapters/observability"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/adapters/opcua"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/adapters/sim"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/adapters/sysmetrics"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/app/pipeline"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/counter"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/ports"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/shift"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/transport"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	eventSource   EventSource
	metricsSource MetricsSource
	dialer        Dialer
	alertSink     AlertSink
	journal       DeliveryJournal
	observability Observability
}

// WithEventSource injects a custom machine event source (Modbus, GPIO,
// test doubles, etc.).
func WithEventSource(src EventSource) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.eventSource = src
	}
}

// WithMetricsSource overrides the default gopsutil host metrics reader.
func WithMetricsSource(src MetricsSource) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.metricsSource = src
	}
}

// WithDialer overrides how the outbound server connection is opened.
func WithDialer(d Dialer) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.dialer = d
	}
}

// WithAlertSink routes MACHINE_STOPPED and DELIVERY_FAILED events to a
// custom notifier (email, webhook, pager).
func WithAlertSink(sink AlertSink) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.alertSink = sink
	}
}

// WithJournal replaces the SQLite delivery journal.
func WithJournal(j DeliveryJournal) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.journal = j
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// Runtime wires up the event source → counter store → sampler → delivery
// coordinator pipeline and exposes simple lifecycle hooks.
type Runtime struct {
	cfg     *Config
	obs     ports.Observability
	store   *counter.Store
	tracker *pipeline.StateTracker
	sched   *shift.Scheduler
	events  *pipeline.EventPipeline
	sampler *pipeline.Sampler
	coord   *transport.Coordinator
	source  EventSource
	journal DeliveryJournal
	arch    *archive.PostgresArchive
	peer    *sim.Peer

	metricsSrv *http.Server
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	started    bool
}

// NewRuntime bootstraps the default adapters: the simulator or OPC UA event
// source per the config, gopsutil metrics, the SQLite journal, Prometheus
// observability, and the optional Postgres archive. Options override any
// dependency.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs()
	}

	schedule, err := cfg.Schedule()
	if err != nil {
		return nil, err
	}

	persister, err := counter.NewFileState(cfg.StateFile)
	if err != nil {
		return nil, err
	}
	store := counter.NewStore(persister, obs)

	alerts := overrides.alertSink
	if alerts == nil {
		alerts = NewLogAlerts(obs)
	}
	tracker := pipeline.NewStateTracker(cfg.StopGrace, alerts, obs)

	rt := &Runtime{
		cfg:     cfg,
		obs:     obs,
		store:   store,
		tracker: tracker,
		sched:   shift.NewScheduler(schedule, store, cfg.ShiftInterval, obs),
	}

	src := overrides.eventSource
	if src == nil {
		if cfg.Simulation.Enabled {
			src = sim.NewSource(sim.SourceConfig{
				EventInterval:   cfg.Simulation.EventInterval,
				GoodProbability: cfg.Simulation.GoodProbability,
				RejectProb:      cfg.Simulation.RejectProbability,
				StopProb:        cfg.Simulation.StopProbability,
			})
		} else {
			src, err = opcua.NewSource(opcua.Config{
				Endpoint:        cfg.OPCUA.Endpoint,
				Username:        cfg.OPCUA.Username,
				Password:        cfg.OPCUA.Password,
				PublishInterval: cfg.OPCUA.PublishInterval,
				GoodNode:        cfg.OPCUA.GoodNode,
				RejectNode:      cfg.OPCUA.RejectNode,
				StateNode:       cfg.OPCUA.StateNode,
			})
			if err != nil {
				return nil, err
			}
		}
	}
	rt.source = src
	rt.events = pipeline.NewEventPipeline(src, store, tracker, obs)

	addr := cfg.Server.Addr()
	if cfg.Simulation.Enabled && overrides.dialer == nil {
		// Simulation talks to an in-process peer instead of the real
		// server, so a dev laptop needs no infrastructure at all.
		peer, err := sim.StartPeer("127.0.0.1:0", sim.PeerConfig{
			AckDropProbability: cfg.Simulation.AckDropProbability,
			AckLatency:         cfg.Simulation.AckLatency,
		})
		if err != nil {
			return nil, fmt.Errorf("start loopback peer: %w", err)
		}
		rt.peer = peer
		addr = peer.Addr()
		obs.LogInfo("simulation_peer_started", ports.Field{Key: "addr", Value: addr})
	}

	jrnl := overrides.journal
	if jrnl == nil && cfg.Journal.Path != "" {
		jrnl, err = journal.Open(context.Background(), cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
	}
	rt.journal = jrnl

	session := transport.NewSession(addr, overrides.dialer, cfg.ConnectTimeout, cfg.AckTimeout, obs)
	rt.coord = transport.NewCoordinator(transport.Config{
		MaxAttempts:       cfg.Retry.MaxAttempts,
		BackoffBase:       cfg.Retry.BackoffBase,
		BackoffMultiplier: cfg.Retry.BackoffMultiplier,
		BackoffMax:        cfg.Retry.BackoffMax,
		QueueCapacity:     cfg.QueueCapacity,
	}, session, alerts, jrnl, obs)

	if cfg.Archive.ConnString != "" {
		arch, err := archive.Open(cfg.Archive.ConnString, cfg.Archive.Table)
		if err != nil {
			return nil, err
		}
		rt.arch = arch
		rt.coord.SetAckedHook(func(p *TelemetryPayload) {
			if err := arch.WriteBatch([]*TelemetryPayload{p}); err != nil {
				obs.LogError("archive_write_failed", err)
			}
		})
	}

	metrics := overrides.metricsSource
	if metrics == nil {
		metrics = sysmetrics.NewSource("/")
	}
	rt.sampler = pipeline.NewSampler(cfg.MachineID, cfg.SampleInterval, store, metrics, tracker, rt.coord, obs)

	return rt, nil
}

// Start launches the pipelines and the metrics endpoint. It returns
// immediately; call Run to block on a context instead.
func (r *Runtime) Start() error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	if r.started {
		return fmt.Errorf("runtime already started")
	}
	r.started = true

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.events.Run(ctx); err != nil {
			r.obs.LogCritical("event_pipeline_failed", err)
		}
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.sched.Run(ctx)
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.sampler.Run(ctx)
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.coord.Run(ctx)
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.flushLoop(ctx)
	}()

	r.startMetrics()
	r.obs.LogInfo("agent_started",
		ports.Field{Key: "machine", Value: r.cfg.MachineID},
		ports.Field{Key: "simulation", Value: r.cfg.Simulation.Enabled})
	return nil
}

// Run starts the runtime and blocks until the context is cancelled, then
// shuts down gracefully.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown stops the pipelines, gives the in-flight payload its final send,
// flushes the counter state, and releases external resources.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("shutdown timed out: %w", ctx.Err()))
	}

	if err := r.store.FlushSync(); err != nil {
		errs = append(errs, fmt.Errorf("final counter flush: %w", err))
	}

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	if r.peer != nil {
		if err := r.peer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.journal != nil {
		if err := r.journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.arch != nil {
		if err := r.arch.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	r.obs.LogInfo("agent_stopped")
	return errors.Join(errs...)
}

// flushLoop retries failed counter persists so a transient disk error is
// not stuck waiting for the next machine event.
func (r *Runtime) flushLoop(ctx context.Context) {
	interval := r.cfg.FlushInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.store.FlushIfDirty()
		}
	}
}

func (r *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:    r.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()
}
