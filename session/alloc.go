package session

import (
	"sync"

	scenebridge "github.com/sceneforge/scene-bridge"
)

// allocator hands out handles on the client side, before the worker has seen
// the creation command. It runs the same monotonic never-reuse discipline as
// the registry, and it survives teardown so ids stay unique for the facade's
// whole lifetime.
type allocator struct {
	mu   sync.Mutex
	next map[scenebridge.Kind]uint64
}

func newAllocator() *allocator {
	return &allocator{next: make(map[scenebridge.Kind]uint64)}
}

func (a *allocator) handle(kind scenebridge.Kind) scenebridge.Handle {
	a.mu.Lock()
	a.next[kind]++
	h := scenebridge.Handle{Kind: kind, ID: a.next[kind]}
	a.mu.Unlock()
	return h
}
