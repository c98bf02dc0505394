package events

// Handler is invoked synchronously for each published event
type Handler func(event Event)

// Bus is a synchronous publish/subscribe hub. Handlers run on the publishing
// goroutine in subscription order, so a tick stays deterministic.
type Bus struct {
	byType map[EventType][]Handler
	all    []Handler
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{
		byType: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for one event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	if handler == nil {
		return
	}
	b.byType[eventType] = append(b.byType[eventType], handler)
}

// SubscribeAll registers a handler for every event type
func (b *Bus) SubscribeAll(handler Handler) {
	if handler == nil {
		return
	}
	b.all = append(b.all, handler)
}

// Publish delivers the event to type-specific handlers, then catch-all handlers
func (b *Bus) Publish(event Event) {
	for _, h := range b.byType[event.Type] {
		h(event)
	}
	for _, h := range b.all {
		h(event)
	}
}

// Recorder keeps every event it receives; used by tests and the CLI report
type Recorder struct {
	events []Event
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{events: make([]Event, 0)}
}

// Publish stores the event
func (r *Recorder) Publish(event Event) {
	r.events = append(r.events, event)
}

// Events returns all recorded events in order
func (r *Recorder) Events() []Event {
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns recorded events of one type in order
func (r *Recorder) OfType(eventType EventType) []Event {
	out := make([]Event, 0)
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many events of one type were recorded
func (r *Recorder) Count(eventType EventType) int {
	n := 0
	for _, e := range r.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// Last returns the most recent event of a type
func (r *Recorder) Last(eventType EventType) (Event, bool) {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == eventType {
			return r.events[i], true
		}
	}
	return Event{}, false
}

// Reset drops all recorded events
func (r *Recorder) Reset() {
	r.events = r.events[:0]
}
