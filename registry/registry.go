package registry

import (
	scenebridge "github.com/sceneforge/scene-bridge"
	"github.com/sceneforge/scene-bridge/errors"
)

// Destroyer is optionally implemented by engine objects that need explicit
// teardown when their handle is freed.
type Destroyer interface {
	Destroy()
}

// Registry maps handles to engine objects, one partition per kind.
// Worker-goroutine only; see the package comment.
type Registry struct {
	partitions map[scenebridge.Kind]map[uint64]any
	next       map[scenebridge.Kind]uint64
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		partitions: make(map[scenebridge.Kind]map[uint64]any),
		next:       make(map[scenebridge.Kind]uint64),
	}
}

// Allocate returns a fresh, never-used handle of the given kind. The handle
// has no object behind it until Put is called.
func (r *Registry) Allocate(kind scenebridge.Kind) scenebridge.Handle {
	r.next[kind]++
	return scenebridge.Handle{Kind: kind, ID: r.next[kind]}
}

// Put stores value under a handle. The handle may come from Allocate or from
// a client-side allocator running the same monotonic discipline; Put bumps
// the partition's counter so the two never collide.
func (r *Registry) Put(h scenebridge.Handle, value any) *errors.Error {
	if h.IsZero() {
		return errors.UnknownHandle(errors.StageDispatch, h)
	}
	part := r.partitions[h.Kind]
	if part == nil {
		part = make(map[uint64]any)
		r.partitions[h.Kind] = part
	}
	if _, exists := part[h.ID]; exists {
		return errors.New(errors.StageDispatch, errors.CodeInvalidHandle).
			Handle(h).
			Detail("handle already bound").
			Build()
	}
	part[h.ID] = value
	if h.ID > r.next[h.Kind] {
		r.next[h.Kind] = h.ID
	}
	return nil
}

// Resolve returns the object behind h, validating both existence and kind.
func (r *Registry) Resolve(h scenebridge.Handle, want scenebridge.Kind) (any, *errors.Error) {
	if h.Kind != want {
		return nil, errors.WrongKind(errors.StageDispatch, h, want)
	}
	if h.IsZero() {
		return nil, errors.UnknownHandle(errors.StageDispatch, h)
	}
	value, ok := r.partitions[h.Kind][h.ID]
	if !ok {
		return nil, errors.UnknownHandle(errors.StageDispatch, h)
	}
	return value, nil
}

// Free releases the object behind h and removes the entry. Freeing an
// unknown or already-freed handle is reported, not fatal.
func (r *Registry) Free(h scenebridge.Handle) *errors.Error {
	value, ok := r.partitions[h.Kind][h.ID]
	if !ok {
		return errors.UnknownHandle(errors.StageDispatch, h)
	}
	delete(r.partitions[h.Kind], h.ID)
	if d, ok := value.(Destroyer); ok {
		d.Destroy()
	}
	return nil
}

// Len returns the number of live entries across all partitions.
func (r *Registry) Len() int {
	n := 0
	for _, part := range r.partitions {
		n += len(part)
	}
	return n
}

// Each visits every live entry until fn returns false.
func (r *Registry) Each(fn func(scenebridge.Handle, any) bool) {
	for kind, part := range r.partitions {
		for id, value := range part {
			if !fn(scenebridge.Handle{Kind: kind, ID: id}, value) {
				return
			}
		}
	}
}

// Clear destroys every live entry. Allocation counters are kept so IDs stay
// monotonic for the rest of the session.
func (r *Registry) Clear() {
	for _, part := range r.partitions {
		for id, value := range part {
			delete(part, id)
			if d, ok := value.(Destroyer); ok {
				d.Destroy()
			}
		}
	}
}
