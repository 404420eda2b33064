package server

import (
	"sync"

	"github.com/sceneforge/scene-bridge/command"
)

// Outbox is the worker-to-client message queue. The worker appends and never
// blocks; the polling goroutine swaps the whole backlog out at once. This is
// the only server-side structure touched from both goroutines.
type Outbox struct {
	mu   sync.Mutex
	msgs []command.Message
}

// NewOutbox returns an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{}
}

// Push appends a message.
func (o *Outbox) Push(m command.Message) {
	o.mu.Lock()
	o.msgs = append(o.msgs, m)
	o.mu.Unlock()
}

// Drain removes and returns the backlog in production order.
func (o *Outbox) Drain() []command.Message {
	o.mu.Lock()
	msgs := o.msgs
	o.msgs = nil
	o.mu.Unlock()
	return msgs
}

// Len reports the current backlog size.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.msgs)
}
