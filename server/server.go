package server

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	scenebridge "github.com/sceneforge/scene-bridge"
	"github.com/sceneforge/scene-bridge/command"
	"github.com/sceneforge/scene-bridge/engine"
	"github.com/sceneforge/scene-bridge/errors"
	"github.com/sceneforge/scene-bridge/registry"
)

// State is the worker lifecycle state.
type State uint32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateDraining
)

var stateNames = [...]string{
	StateStopped:  "stopped",
	StateStarting: "starting",
	StateRunning:  "running",
	StateDraining: "draining",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "state(unknown)"
}

// Watchlist answers whether a (handle, path) pair has at least one active
// property subscription. Implementations must be safe for concurrent use;
// the worker consults it after every property mutation.
type Watchlist interface {
	Match(h scenebridge.Handle, path string) bool
}

// Options configures a Server.
type Options struct {
	// NewEngine constructs the engine context. It is called on the worker
	// goroutine, never anywhere else.
	NewEngine func() (engine.Engine, error)

	// Watch filters property-change broadcasts. May be nil.
	Watch Watchlist

	// QueueCapacity bounds the command channel. Zero means a default.
	QueueCapacity int

	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

const defaultQueueCapacity = 256

// Server is the command server. Single-use: Start once, Shutdown once.
type Server struct {
	commands chan command.Command
	outbox   *Outbox
	watch    Watchlist
	logger   *zap.Logger

	newEngine func() (engine.Engine, error)

	// worker-confined state
	registry *registry.Registry

	state    atomic.Uint32
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New creates a server. Start must be called before commands are accepted.
func New(opts Options) *Server {
	if opts.NewEngine == nil {
		panic("server: Options.NewEngine is required")
	}
	capacity := opts.QueueCapacity
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		commands:  make(chan command.Command, capacity),
		outbox:    NewOutbox(),
		watch:     opts.Watch,
		logger:    logger,
		newEngine: opts.NewEngine,
		registry:  registry.New(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Outbox returns the worker-to-client message queue.
func (s *Server) Outbox() *Outbox {
	return s.outbox
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

func (s *Server) setState(st State) {
	s.state.Store(uint32(st))
	s.logger.Debug("server state", zap.Stringer("state", st))
}

// Start spawns the worker goroutine. The engine context is constructed on
// that goroutine before the first command is dispatched.
func (s *Server) Start() *errors.Error {
	if !s.state.CompareAndSwap(uint32(StateStopped), uint32(StateStarting)) {
		return errors.Lifecycle("server already started")
	}
	go s.run()
	return nil
}

// Enqueue submits a command. It blocks only while the queue is full and the
// worker is live; once shutdown begins it fails immediately instead of
// blocking forever.
func (s *Server) Enqueue(cmd command.Command) *errors.Error {
	switch s.State() {
	case StateDraining, StateStopped:
		return errors.QueueClosed()
	}
	select {
	case s.commands <- cmd:
		return nil
	case <-s.done:
		return errors.QueueClosed()
	}
}

// Shutdown begins draining. It does not wait; use Join.
func (s *Server) Shutdown() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Join blocks until the worker goroutine has exited.
func (s *Server) Join() {
	<-s.done
}

// run is the worker goroutine body.
func (s *Server) run() {
	defer close(s.done)

	eng, err := s.newEngine()
	if err != nil {
		s.logger.Error("engine construction failed", zap.Error(err))
		s.outbox.Push(command.Event(command.Failure{
			Err: errors.New(errors.StageLifecycle, errors.CodeLifecycle).
				Cause(err).Detail("engine construction failed").Build(),
		}))
		s.setState(StateDraining)
		s.abortQueued()
		s.setState(StateStopped)
		return
	}

	s.setState(StateRunning)

	for {
		// stop wins over queued work, so a shutdown issued while a command
		// runs aborts everything still in the queue.
		select {
		case <-s.stop:
			s.drain(eng)
			return
		default:
		}
		select {
		case <-s.stop:
			s.drain(eng)
			return
		case cmd := <-s.commands:
			if fatal := s.dispatch(eng, cmd); fatal {
				s.Shutdown()
				s.drain(eng)
				return
			}
		}
	}
}

// drain finishes the shutdown path on the worker goroutine: abort whatever
// is still queued, release every live object, destroy the engine context.
func (s *Server) drain(eng engine.Engine) {
	s.setState(StateDraining)
	s.abortQueued()
	s.registry.Clear()
	if err := eng.Close(); err != nil {
		s.logger.Warn("engine close failed", zap.Error(err))
	}
	s.setState(StateStopped)
}

// abortQueued answers every command still in the queue with a lifecycle
// error so no continuation is silently dropped.
func (s *Server) abortQueued() {
	for {
		select {
		case cmd := <-s.commands:
			s.fail(cmd, errors.Lifecycle("command aborted by shutdown"))
		default:
			return
		}
	}
}

// reply pushes a message answering cmd's request.
func (s *Server) reply(cmd command.Command, p command.MsgPayload) {
	if cmd.RequestID == 0 {
		return
	}
	s.outbox.Push(command.Reply(cmd.RequestID, p))
}

// fail surfaces an error for cmd: as the request's terminal answer when one
// is pending, otherwise on the broadcast error stream.
func (s *Server) fail(cmd command.Command, err *errors.Error) {
	err.RequestID = cmd.RequestID
	if cmd.RequestID != 0 {
		s.outbox.Push(command.Reply(cmd.RequestID, command.Failure{Err: err}))
		return
	}
	s.logger.Debug("fire-and-forget command failed",
		zap.Stringer("tag", cmd.Tag), zap.Error(err))
	s.outbox.Push(command.Event(command.Failure{Err: err}))
}
