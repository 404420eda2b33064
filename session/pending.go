package session

import (
	"sync"

	"github.com/sceneforge/scene-bridge/command"
	"github.com/sceneforge/scene-bridge/errors"
)

// completion is what the correlator holds for an outstanding request.
type completion interface {
	complete(p command.MsgPayload)
	fail(err *errors.Error)
}

// Pending is the future for one request/response command. It resolves during
// PollMessages (or during the final release), never inside an enqueue call.
type Pending[T any] struct {
	done   chan struct{}
	decode func(command.MsgPayload) (T, *errors.Error)
	cancel func()

	mu       sync.Mutex
	value    T
	err      *errors.Error
	resolved bool
}

func newPending[T any](decode func(command.MsgPayload) (T, *errors.Error)) *Pending[T] {
	return &Pending[T]{
		done:   make(chan struct{}),
		decode: decode,
	}
}

// Done is closed once the future has resolved, successfully or not.
func (p *Pending[T]) Done() <-chan struct{} {
	return p.done
}

// Result returns the outcome. Valid only after Done is closed; calling it
// earlier reports an unresolved error.
func (p *Pending[T]) Result() (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.resolved {
		var zero T
		return zero, errors.New(errors.StagePoll, errors.CodeLifecycle).
			Detail("pending request not yet resolved").Build()
	}
	if p.err != nil {
		var zero T
		return zero, p.err
	}
	return p.value, nil
}

// Cancel abandons the request. The command still executes on the worker; its
// answer is dropped when it arrives. Cancel after resolution is a no-op.
func (p *Pending[T]) Cancel() {
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Pending[T]) complete(payload command.MsgPayload) {
	value, err := p.decode(payload)
	p.mu.Lock()
	if p.resolved {
		p.mu.Unlock()
		return
	}
	p.value = value
	p.err = err
	p.resolved = true
	p.mu.Unlock()
	close(p.done)
}

func (p *Pending[T]) fail(err *errors.Error) {
	p.mu.Lock()
	if p.resolved {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.resolved = true
	p.mu.Unlock()
	close(p.done)
}
