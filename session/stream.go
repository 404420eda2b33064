package session

import (
	"sync/atomic"

	scenebridge "github.com/sceneforge/scene-bridge"
)

// stream is a bounded drop-oldest event buffer with a single producer (the
// polling goroutine) and one consumer. Dropping the oldest event keeps a slow
// listener from ever stalling delivery to the others.
type stream[T any] struct {
	ch      chan T
	dropped atomic.Uint64
}

func newStream[T any](buffer int) *stream[T] {
	if buffer <= 0 {
		buffer = 16
	}
	return &stream[T]{ch: make(chan T, buffer)}
}

// push delivers v, evicting the oldest buffered event if the consumer has
// fallen behind. Single-producer only; the poll lock guarantees that.
func (s *stream[T]) push(v T) {
	select {
	case s.ch <- v:
		return
	default:
	}
	select {
	case <-s.ch:
		s.dropped.Add(1)
	default:
	}
	select {
	case s.ch <- v:
	default:
	}
}

// PropertyEvent is one observed property mutation.
type PropertyEvent struct {
	Path     string
	Value    scenebridge.PropertyValue
	Bindable scenebridge.Handle
}

// PropertyStream is one listener registration for a (handle, path, type)
// subscription. Independent streams on the same key each receive every
// matching event.
type PropertyStream struct {
	events *stream[PropertyEvent]

	bindable scenebridge.Handle
	path     string
	typ      scenebridge.PropertyType
}

// Events is the listener's receive channel.
func (ps *PropertyStream) Events() <-chan PropertyEvent {
	return ps.events.ch
}

// Dropped reports how many events were evicted because the listener fell
// behind the buffer.
func (ps *PropertyStream) Dropped() uint64 {
	return ps.events.dropped.Load()
}

// SettleEvent reports a state machine crossing the settled/unsettled
// boundary.
type SettleEvent struct {
	StateMachine scenebridge.Handle
	Settled      bool
}
