package gatt

// EventKind identifies what an Event reports.
type EventKind int

const (
	EventStateChanged EventKind = iota
	EventConnected
	EventDisconnected
	EventError
	EventServiceDiscovered
	EventDiscoveryFinished
	EventServiceStateChanged
	EventServiceError
	EventCharacteristicRead
	EventCharacteristicWritten
)

var eventKindNames = [...]string{
	EventStateChanged:          "state-changed",
	EventConnected:             "connected",
	EventDisconnected:          "disconnected",
	EventError:                 "error",
	EventServiceDiscovered:     "service-discovered",
	EventDiscoveryFinished:     "discovery-finished",
	EventServiceStateChanged:   "service-state-changed",
	EventServiceError:          "service-error",
	EventCharacteristicRead:    "characteristic-read",
	EventCharacteristicWritten: "characteristic-written",
}

func (k EventKind) String() string {
	if int(k) >= 0 && int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "unknown"
}

// Event is delivered synchronously to subscribed handlers. Only the fields
// relevant to Kind are set.
type Event struct {
	Kind EventKind

	State        State        // EventStateChanged
	ServiceState ServiceState // EventServiceStateChanged
	Service      UUID         // service-scoped events
	Handle       uint16       // characteristic events
	Value        []byte       // characteristic events, READ-ONLY
	Err          error        // EventError, EventServiceError
}

// EventHandler receives controller events.
type EventHandler func(Event)

// Subscribe registers fn for all subsequent events. Handlers run on the
// calling goroutine of the operation that produced the event.
func (c *Controller) Subscribe(fn EventHandler) {
	c.handlers = append(c.handlers, fn)
}

func (c *Controller) emit(ev Event) {
	for _, fn := range c.handlers {
		fn(ev)
	}
}
