package testutils

import (
	"github.com/srg/blectl/internal/gatt"
)

// EventRecorder collects controller events in delivery order.
type EventRecorder struct {
	initial gatt.State
	events  []gatt.Event
}

// RecordEvents subscribes a new recorder to c.
func RecordEvents(c *gatt.Controller) *EventRecorder {
	r := &EventRecorder{initial: c.State()}
	c.Subscribe(r.handle)
	return r
}

func (r *EventRecorder) handle(ev gatt.Event) {
	if ev.Value != nil {
		ev.Value = append([]byte(nil), ev.Value...)
	}
	r.events = append(r.events, ev)
}

// Events returns every recorded event.
func (r *EventRecorder) Events() []gatt.Event {
	return append([]gatt.Event(nil), r.events...)
}

// Kinds returns the kinds of every recorded event.
func (r *EventRecorder) Kinds() []gatt.EventKind {
	kinds := make([]gatt.EventKind, 0, len(r.events))
	for _, ev := range r.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

// States returns the state trace, starting with the state the controller
// was in when recording began.
func (r *EventRecorder) States() []gatt.State {
	states := []gatt.State{r.initial}
	for _, ev := range r.Filter(gatt.EventStateChanged) {
		states = append(states, ev.State)
	}
	return states
}

// ServiceStates returns the state trace of one service.
func (r *EventRecorder) ServiceStates(service gatt.UUID) []gatt.ServiceState {
	var states []gatt.ServiceState
	for _, ev := range r.Filter(gatt.EventServiceStateChanged) {
		if ev.Service == service {
			states = append(states, ev.ServiceState)
		}
	}
	return states
}

// Filter returns the recorded events of the given kind.
func (r *EventRecorder) Filter(kind gatt.EventKind) []gatt.Event {
	var out []gatt.Event
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// Count returns how many events of kind were recorded.
func (r *EventRecorder) Count(kind gatt.EventKind) int {
	return len(r.Filter(kind))
}

// Reset drops recorded events and restarts the state trace at the
// controller's current state.
func (r *EventRecorder) Reset(current gatt.State) {
	r.initial = current
	r.events = nil
}
