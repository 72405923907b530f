package factorymonitor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/ports"
)

// ErrAlertChannelClosed is returned from the channel adapter's close
// function when it has already been closed.
var ErrAlertChannelClosed = errors.New("factorymonitor: alert channel closed")

// AlertFunc is a plain-function alert handler.
type AlertFunc func(ev AlertEvent)

// NewCallbackAlerts adapts a function into an AlertSink so callers can plug
// arbitrary notifiers without defining structs.
func NewCallbackAlerts(fn AlertFunc) AlertSink {
	return &callbackAlerts{fn: fn}
}

// NewChannelAlerts exposes alerts via a channel; it returns the sink, the
// read-only channel, and a close function the caller should invoke during
// shutdown. Alerts emitted after close are dropped.
func NewChannelAlerts(buffer int) (AlertSink, <-chan AlertEvent, func()) {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan AlertEvent, buffer)
	s := &channelAlerts{
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

// NewLogAlerts writes alerts to the observability log. This is the default
// sink when the embedding application provides nothing better.
func NewLogAlerts(obs Observability) AlertSink {
	return &logAlerts{obs: obs}
}

type callbackAlerts struct {
	fn AlertFunc
}

func (s *callbackAlerts) Emit(ev AlertEvent) {
	if s.fn != nil {
		s.fn(ev)
	}
}

type channelAlerts struct {
	ch     chan AlertEvent
	closed chan struct{}
	once   sync.Once
}

func (s *channelAlerts) Emit(ev AlertEvent) {
	select {
	case <-s.closed:
		return
	default:
	}
	select {
	case <-s.closed:
	case s.ch <- ev:
	}
}

func (s *channelAlerts) close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}

type logAlerts struct {
	obs Observability
}

func (s *logAlerts) Emit(ev AlertEvent) {
	s.obs.LogCritical("alert", fmt.Errorf("%s: %s", ev.Kind, ev.Detail),
		ports.Field{Key: "kind", Value: string(ev.Kind)},
		ports.Field{Key: "seq", Value: ev.Seq})
}
