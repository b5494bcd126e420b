package supervisor

import (
	"context"
	"errors"
	"log/slog"

	"github.com/looplab/fsm"

	"github.com/loykin/ngxvisor/internal/metrics"
)

// Observed states. They reflect what the monitor last saw, never what an
// operation requested.
const (
	StateUnknown = "unknown"
	StateRunning = "running"
	StateStopped = "stopped"
)

var allStates = []string{StateUnknown, StateRunning, StateStopped}

// observedState tracks transitions between monitor ticks.
type observedState struct {
	machine *fsm.FSM
}

func newObservedState(binary string) *observedState {
	o := &observedState{}
	o.machine = fsm.NewFSM(
		StateUnknown,
		fsm.Events{
			{Name: "up", Src: []string{StateUnknown, StateStopped}, Dst: StateRunning},
			{Name: "down", Src: []string{StateUnknown, StateRunning}, Dst: StateStopped},
			{Name: "lost", Src: []string{StateRunning, StateStopped}, Dst: StateUnknown},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				metrics.RecordStateTransition(e.Src, e.Dst)
				for _, st := range allStates {
					metrics.SetCurrentState(st, st == e.Dst)
				}
				slog.Info("server state changed", "binary", binary, "from", e.Src, "to", e.Dst)
			},
		},
	)
	metrics.SetCurrentState(StateUnknown, true)
	return o
}

func (o *observedState) current() string { return o.machine.Current() }

// observe feeds one probe result. A nil alive means the probe failed.
func (o *observedState) observe(ctx context.Context, alive *bool) {
	event := "lost"
	if alive != nil {
		event = "down"
		if *alive {
			event = "up"
		}
	}
	if !o.machine.Can(event) {
		return
	}
	if err := o.machine.Event(ctx, event); err != nil {
		var noTransition fsm.NoTransitionError
		if !errors.As(err, &noTransition) {
			slog.Debug("state transition rejected", "event", event, "error", err)
		}
	}
}
