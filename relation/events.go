package relation

// EventType - relation lifecycle event type
type EventType int

// Available event types
const (
	EventUnknown EventType = iota
	EventCreated
	EventChanged
	EventBroken
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventChanged:
		return "changed"
	case EventBroken:
		return "broken"
	default:
		return "unknown"
	}
}

// Event - relation event, dispatched by the host when a relation
// is created, its remote data changes or it is removed
type Event struct {
	Type     EventType
	Relation *Relation
}

// EventHandler - receives relation events
type EventHandler interface {
	OnRelationEvent(ev *Event)
}

// EventHandlerFunc - adapter to use ordinary functions as event handlers
type EventHandlerFunc func(ev *Event)

// OnRelationEvent calls f(ev).
func (f EventHandlerFunc) OnRelationEvent(ev *Event) {
	f(ev)
}

// Handlers - fans events out to multiple handlers, in order
type Handlers []EventHandler

// OnRelationEvent dispatches ev to each handler.
func (hs Handlers) OnRelationEvent(ev *Event) {
	for _, h := range hs {
		h.OnRelationEvent(ev)
	}
}
