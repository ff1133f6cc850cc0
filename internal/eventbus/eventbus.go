// Package eventbus provides in-process fan-out publish/subscribe buses.
// Delivery never blocks the publisher: events for a full subscriber are
// dropped and counted.
package eventbus

// Event represents an arbitrary event passed on the bus.
type Event interface{}

// EventBus is the untyped bus used to carry heterogeneous planner events.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// Bus is the default EventBus implementation.
type Bus = TypedBus[Event]

// New creates a new Bus.
func New() *Bus { return NewTyped[Event]() }
