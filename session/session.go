package session

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	scenebridge "github.com/sceneforge/scene-bridge"
	"github.com/sceneforge/scene-bridge/command"
	"github.com/sceneforge/scene-bridge/engine"
	"github.com/sceneforge/scene-bridge/errors"
	"github.com/sceneforge/scene-bridge/server"
)

// Options configures a Session.
type Options struct {
	// NewEngine constructs the engine context on the worker goroutine.
	// Required.
	NewEngine func() (engine.Engine, error)

	// QueueCapacity bounds the command queue. Zero means the server default.
	QueueCapacity int

	// StreamBuffer sizes each property stream's drop-oldest buffer.
	StreamBuffer int

	// ErrorBuffer sizes the broadcast error and settle streams.
	ErrorBuffer int

	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Session is the public facade. One Session owns at most one command server
// at a time; independent Sessions in the same process are independent
// bridges.
type Session struct {
	id     uuid.UUID
	logger *zap.Logger
	opts   Options

	alloc *allocator
	corr  *correlator
	subs  *subscriptions

	errs    *stream[*errors.Error]
	settles *stream[SettleEvent]

	mu    sync.Mutex
	refs  map[string]int
	total int
	srv   *server.Server

	starts atomic.Uint64
	stops  atomic.Uint64

	// pollMu serializes PollMessages so streams see a single producer.
	pollMu sync.Mutex
}

// New creates a session. The worker is not started until the first Acquire.
func New(opts Options) (*Session, *errors.Error) {
	if opts.NewEngine == nil {
		return nil, errors.InvalidConfig("NewEngine", "engine constructor is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.New()
	return &Session{
		id:      id,
		logger:  logger.With(zap.String("session", id.String())),
		opts:    opts,
		alloc:   newAllocator(),
		corr:    newCorrelator(),
		subs:    newSubscriptions(),
		errs:    newStream[*errors.Error](opts.ErrorBuffer),
		settles: newStream[SettleEvent](opts.ErrorBuffer),
		refs:    make(map[string]int),
	}, nil
}

// ID identifies the session in logs.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Acquire takes a reference under tag. The worker goroutine and engine
// context are constructed on the 0→1 transition only.
func (s *Session) Acquire(tag string) *errors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.total == 0 {
		srv := server.New(server.Options{
			NewEngine:     s.opts.NewEngine,
			Watch:         s.subs,
			QueueCapacity: s.opts.QueueCapacity,
			Logger:        s.logger,
		})
		if err := srv.Start(); err != nil {
			return err
		}
		s.srv = srv
		s.starts.Add(1)
		s.logger.Debug("worker started")
	}
	s.refs[tag]++
	s.total++
	s.logger.Debug("acquire", zap.String("tag", tag), zap.Int("refs", s.total))
	return nil
}

// Release drops a reference under tag. Releasing a tag that holds no
// reference fails loudly. The 1→0 transition shuts the worker down, joins
// it, delivers the final message backlog, and fails whatever requests are
// still outstanding so nothing hangs.
func (s *Session) Release(tag string) *errors.Error {
	s.mu.Lock()
	if s.refs[tag] == 0 {
		s.mu.Unlock()
		return errors.New(errors.StageLifecycle, errors.CodeLifecycle).
			Detail("release of unheld tag %q", tag).Build()
	}
	s.refs[tag]--
	if s.refs[tag] == 0 {
		delete(s.refs, tag)
	}
	s.total--
	last := s.total == 0
	srv := s.srv
	if last {
		s.srv = nil
	}
	s.mu.Unlock()

	s.logger.Debug("release", zap.String("tag", tag), zap.Bool("last", last))
	if !last {
		return nil
	}

	srv.Shutdown()
	srv.Join()
	s.stops.Add(1)

	// final delivery: the worker is gone, so this backlog is complete and
	// every terminal message it produced reaches its future now
	s.pollMu.Lock()
	s.deliver(srv.Outbox().Drain())
	s.pollMu.Unlock()
	for _, comp := range s.corr.drainOutstanding() {
		comp.fail(errors.Lifecycle("session released"))
	}
	s.logger.Debug("worker stopped")
	return nil
}

// PollMessages drains the message backlog: futures resolve, subscription and
// error broadcasts go out. Returns the number of messages delivered. Call it
// once per scheduling tick.
func (s *Session) PollMessages() int {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return 0
	}
	s.pollMu.Lock()
	defer s.pollMu.Unlock()
	msgs := srv.Outbox().Drain()
	s.deliver(msgs)
	return len(msgs)
}

func (s *Session) deliver(msgs []command.Message) {
	for _, msg := range msgs {
		if msg.RequestID != 0 {
			comp, ok := s.corr.take(msg.RequestID)
			if !ok {
				// cancelled request; drop the late answer
				s.logger.Debug("dropping late message",
					zap.Uint64("request", msg.RequestID),
					zap.Stringer("tag", msg.Tag))
				continue
			}
			if f, isErr := msg.Payload.(command.Failure); isErr {
				comp.fail(f.Err)
			} else {
				comp.complete(msg.Payload)
			}
			continue
		}

		switch p := msg.Payload.(type) {
		case command.PropertyChanged:
			s.subs.dispatch(PropertyEvent{Bindable: p.Bindable, Path: p.Path, Value: p.Value})
		case command.Settled:
			s.settles.push(SettleEvent{StateMachine: p.StateMachine, Settled: p.Settled})
		case command.Failure:
			s.errs.push(p.Err)
		default:
			s.logger.Warn("unrecognized unsolicited message", zap.Stringer("tag", msg.Tag))
		}
	}
}

// Subscribe registers a listener for (handle, path) mutations of the given
// type. Each call returns an independent stream; all matching streams see
// every event.
func (s *Session) Subscribe(h scenebridge.Handle, path string, typ scenebridge.PropertyType) *PropertyStream {
	st := &PropertyStream{
		events:   newStream[PropertyEvent](s.opts.StreamBuffer),
		bindable: h,
		path:     path,
		typ:      typ,
	}
	s.subs.add(st)
	return st
}

// Unsubscribe removes a stream, reporting whether it was registered.
func (s *Session) Unsubscribe(st *PropertyStream) bool {
	return s.subs.remove(st)
}

// Errors is the broadcast stream surfacing fire-and-forget failures. There
// is no pending continuation for those, so this channel is the only place
// they become visible.
func (s *Session) Errors() <-chan *errors.Error {
	return s.errs.ch
}

// Settles streams state machine settle transitions.
func (s *Session) Settles() <-chan SettleEvent {
	return s.settles.ch
}

// StartCount reports how many times a worker has been started over the
// session's lifetime.
func (s *Session) StartCount() uint64 {
	return s.starts.Load()
}

// StopCount reports how many times a worker has been torn down.
func (s *Session) StopCount() uint64 {
	return s.stops.Load()
}

// Outstanding reports the number of unresolved requests.
func (s *Session) Outstanding() int {
	return s.corr.outstanding()
}

// enqueue submits cmd to the live server, failing loudly when the session
// holds no references.
func (s *Session) enqueue(cmd command.Command) *errors.Error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return errors.Lifecycle("session not acquired")
	}
	return srv.Enqueue(cmd)
}
