package session

import (
	"sync"

	scenebridge "github.com/sceneforge/scene-bridge"
)

type subKey struct {
	path string
	kind scenebridge.Kind
	id   uint64
}

func keyOf(h scenebridge.Handle, path string) subKey {
	return subKey{path: path, kind: h.Kind, id: h.ID}
}

// subscriptions is the client-side subscription registry. The worker reads
// it through Match after every property mutation; client goroutines add and
// remove streams. Each access takes the registry's own lock and nothing else.
type subscriptions struct {
	mu      sync.RWMutex
	streams map[subKey][]*PropertyStream
}

func newSubscriptions() *subscriptions {
	return &subscriptions{streams: make(map[subKey][]*PropertyStream)}
}

// Match reports whether at least one stream wants (h, path). Called from the
// worker goroutine.
func (s *subscriptions) Match(h scenebridge.Handle, path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.streams[keyOf(h, path)]) > 0
}

func (s *subscriptions) add(st *PropertyStream) {
	key := keyOf(st.bindable, st.path)
	s.mu.Lock()
	s.streams[key] = append(s.streams[key], st)
	s.mu.Unlock()
}

func (s *subscriptions) remove(st *PropertyStream) bool {
	key := keyOf(st.bindable, st.path)
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.streams[key]
	for i, candidate := range list {
		if candidate == st {
			s.streams[key] = append(list[:i], list[i+1:]...)
			if len(s.streams[key]) == 0 {
				delete(s.streams, key)
			}
			return true
		}
	}
	return false
}

// dispatch fans one event out to every matching stream. Streams registered
// with a different property type drop the event silently. Called from the
// polling goroutine.
func (s *subscriptions) dispatch(ev PropertyEvent) {
	s.mu.RLock()
	list := s.streams[keyOf(ev.Bindable, ev.Path)]
	targets := make([]*PropertyStream, len(list))
	copy(targets, list)
	s.mu.RUnlock()

	for _, st := range targets {
		if st.typ != ev.Value.Type {
			continue
		}
		st.events.push(ev)
	}
}
