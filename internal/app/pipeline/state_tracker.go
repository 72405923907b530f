package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/domain"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/ports"
)

// StateTracker folds STATE_CHANGE events into the current machine state and
// raises one MACHINE_STOPPED alert per stop episode once the machine has
// been stopped longer than the grace period. A brief stop that resumes
// inside the grace window never alerts.
type StateTracker struct {
	mu        sync.Mutex
	state     domain.MachineState
	stoppedAt time.Time
	alerted   bool
	grace     time.Duration
	alerts    ports.AlertSink
	obs       ports.Observability
}

func NewStateTracker(grace time.Duration, alerts ports.AlertSink, obs ports.Observability) *StateTracker {
	return &StateTracker{
		state:  domain.StateUnknown,
		grace:  grace,
		alerts: alerts,
		obs:    obs,
	}
}

// State returns the most recently observed machine state.
func (t *StateTracker) State() domain.MachineState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Apply records a state transition. Non-transition events are ignored.
func (t *StateTracker) Apply(ev *domain.MachineEvent) {
	if ev.Type != domain.EventStateChange || ev.State == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if ev.State == t.state {
		return
	}

	t.obs.LogInfo("machine_state_changed",
		ports.Field{Key: "from", Value: string(t.state)},
		ports.Field{Key: "to", Value: string(ev.State)})
	t.state = ev.State

	if ev.State == domain.StateStopped {
		t.stoppedAt = ev.At
		t.alerted = false
	} else {
		t.stoppedAt = time.Time{}
		t.alerted = false
	}
}

// Check raises the stop alert when the grace period has elapsed. Called on
// the sampling cadence so an alert lags a stop by at most one interval.
func (t *StateTracker) Check(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != domain.StateStopped || t.alerted || t.stoppedAt.IsZero() {
		return
	}
	stopped := now.Sub(t.stoppedAt)
	if stopped < t.grace {
		return
	}

	t.alerted = true
	if t.alerts != nil {
		t.alerts.Emit(domain.AlertEvent{
			Kind:   domain.AlertMachineStopped,
			Detail: fmt.Sprintf("machine stopped for %s", stopped.Truncate(time.Second)),
			At:     now,
		})
	}
}
