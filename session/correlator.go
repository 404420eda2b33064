package session

import (
	"sync"
	"sync/atomic"
)

// correlator maps outstanding request ids to their completions. Register
// runs on the goroutine issuing the call; take runs on the goroutine doing
// the poll. The worker never touches it.
type correlator struct {
	next    atomic.Uint64
	mu      sync.Mutex
	pending map[uint64]completion
}

func newCorrelator() *correlator {
	return &correlator{pending: make(map[uint64]completion)}
}

// allocate returns a fresh request id. IDs are unique among outstanding
// requests; at 64 bits wraparound is not a practical concern.
func (c *correlator) allocate() uint64 {
	return c.next.Add(1)
}

func (c *correlator) register(id uint64, comp completion) {
	c.mu.Lock()
	c.pending[id] = comp
	c.mu.Unlock()
}

// take removes and returns the completion for id. A miss means the request
// was cancelled; the late message is dropped by the caller.
func (c *correlator) take(id uint64) (completion, bool) {
	c.mu.Lock()
	comp, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	return comp, ok
}

// cancel removes the entry for id, reporting whether one was outstanding.
func (c *correlator) cancel(id uint64) bool {
	c.mu.Lock()
	_, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	return ok
}

// drainOutstanding removes and returns every outstanding completion. Used at
// teardown so nothing hangs forever.
func (c *correlator) drainOutstanding() []completion {
	c.mu.Lock()
	comps := make([]completion, 0, len(c.pending))
	for id, comp := range c.pending {
		comps = append(comps, comp)
		delete(c.pending, id)
	}
	c.mu.Unlock()
	return comps
}

// outstanding reports the number of unresolved requests.
func (c *correlator) outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
