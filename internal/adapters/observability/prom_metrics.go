package observability

import (
	"fmt"
	"log"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/ports"
)

// PromObs backs the observability port with Prometheus metrics and the
// standard logger. Metric names are fixed at construction; unknown names
// are silently ignored so instrumentation call sites never fail.
type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs() *PromObs {
	sent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "factory_payloads_sent_total",
		Help: "Send attempts, including retries.",
	})
	acks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "factory_acks_total",
		Help: "Payloads acknowledged by the collection server.",
	})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "factory_retries_total",
		Help: "Retries scheduled after a failed send attempt.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "factory_delivery_failed_total",
		Help: "Payloads abandoned after exhausting the retry budget.",
	})
	queueDrops := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "factory_queue_dropped_total",
		Help: "Snapshots dropped because the send queue was full.",
	})
	persistErrs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "factory_persist_errors_total",
		Help: "Failed writes of the counter state file.",
	})
	goodGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "factory_good_count",
		Help: "Good parts counted in the current shift.",
	})
	rejectGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "factory_reject_count",
		Help: "Rejected parts counted in the current shift.",
	})
	queueGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "factory_queue_length",
		Help: "Payloads waiting in the send queue.",
	})
	connected := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "factory_connected",
		Help: "1 while the TCP session to the server is established.",
	})
	ackLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "factory_ack_latency_seconds",
		Help:    "Round trip from payload write to matching ack.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	prometheus.MustRegister(sent, acks, retries, failed, queueDrops, persistErrs,
		goodGauge, rejectGauge, queueGauge, connected, ackLatency)

	return &PromObs{
		counters: map[string]prometheus.Counter{
			"factory_payloads_sent_total":   sent,
			"factory_acks_total":            acks,
			"factory_retries_total":         retries,
			"factory_delivery_failed_total": failed,
			"factory_queue_dropped_total":   queueDrops,
			"factory_persist_errors_total":  persistErrs,
		},
		gauges: map[string]prometheus.Gauge{
			"factory_good_count":   goodGauge,
			"factory_reject_count": rejectGauge,
			"factory_queue_length": queueGauge,
			"factory_connected":    connected,
		},
		histos: map[string]prometheus.Observer{
			"factory_ack_latency_seconds": ackLatency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	log.Printf("INFO: %s%s", msg, formatFields(fields))
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	log.Printf("ERROR: %s: %v%s", msg, err, formatFields(fields))
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	log.Printf("CRITICAL: %s: %v%s", msg, err, formatFields(fields))
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func formatFields(fields []ports.Field) string {
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	return b.String()
}
