package pipeline

import (
	"context"
	"fmt"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/counter"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/domain"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/ports"
)

// EventPipeline consumes the machine event stream: part events increment the
// counter store, state transitions feed the tracker. Which source produced
// the stream (hardware or simulator) is invisible here.
type EventPipeline struct {
	source  ports.EventSource
	store   *counter.Store
	tracker *StateTracker
	obs     ports.Observability
	ch      chan *domain.MachineEvent
}

func NewEventPipeline(source ports.EventSource, store *counter.Store, tracker *StateTracker, obs ports.Observability) *EventPipeline {
	return &EventPipeline{
		source:  source,
		store:   store,
		tracker: tracker,
		obs:     obs,
		ch:      make(chan *domain.MachineEvent, 64),
	}
}

// Run starts the source and consumes events until the context is cancelled
// or the source closes its channel.
func (p *EventPipeline) Run(ctx context.Context) error {
	if err := p.source.Start(p.ch); err != nil {
		return err
	}
	defer func() {
		if err := p.source.Stop(); err != nil {
			p.obs.LogError("event_source_stop_failed", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-p.ch:
			if !ok {
				return nil
			}
			p.handle(ev)
		}
	}
}

func (p *EventPipeline) handle(ev *domain.MachineEvent) {
	switch ev.Type {
	case domain.EventGood:
		p.store.RecordGood()
		p.obs.SetGauge("factory_good_count", float64(p.store.Snapshot().Good))
	case domain.EventReject:
		p.store.RecordReject()
		p.obs.SetGauge("factory_reject_count", float64(p.store.Snapshot().Reject))
	case domain.EventStateChange:
		p.tracker.Apply(ev)
	default:
		p.obs.LogError("event_unknown_type", fmt.Errorf("type=%s", ev.Type))
	}
}
