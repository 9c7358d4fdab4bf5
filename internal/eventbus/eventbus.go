// Package eventbus provides an in-process fan-out bus. The pipeline uses it to
// report stage progress without coupling the core to its observers.
package eventbus

// DefaultBuffer is the channel capacity of each subscription.
const DefaultBuffer = 8

// Publisher accepts events of type T.
type Publisher[T any] interface {
	Publish(T)
}

// EventBus is a publish/subscribe bus for events of type T.
type EventBus[T any] interface {
	Publisher[T]
	Subscribe() <-chan T
	Unsubscribe(<-chan T)
	Close()
}

// Discard drops every event. It stands in when nobody observes a run.
type Discard[T any] struct{}

func (Discard[T]) Publish(T) {}
