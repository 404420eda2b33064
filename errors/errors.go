package errors

import (
	"fmt"
	"strings"

	scenebridge "github.com/sceneforge/scene-bridge"
)

// Stage indicates where in the bridge pipeline the error occurred
type Stage string

const (
	StageEnqueue   Stage = "enqueue"   // client-side command submission
	StageDispatch  Stage = "dispatch"  // worker-side command handling
	StageEngine    Stage = "engine"    // native engine operation
	StageLifecycle Stage = "lifecycle" // session acquire/release/teardown
	StagePoll      Stage = "poll"      // message drain on the client
	StageConfig    Stage = "config"    // configuration loading
)

// Code categorizes the error
type Code string

const (
	CodeInvalidHandle     Code = "invalid_handle"
	CodeNativeOpFailed    Code = "native_operation_failed"
	CodeLifecycle         Code = "lifecycle_error"
	CodePropertyPath      Code = "property_path_error"
	CodeQueueClosed       Code = "queue_closed"
	CodeInvalidConfig     Code = "invalid_config"
	CodeProtocolViolation Code = "protocol_violation"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Cause     error
	Stage     Stage
	Code      Code
	Detail    string
	Path      string
	Handle    scenebridge.Handle
	RequestID uint64
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Stage))
	b.WriteString("] ")
	b.WriteString(string(e.Code))

	if !e.Handle.IsZero() {
		b.WriteString(" on ")
		b.WriteString(e.Handle.String())
	}

	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Stage == t.Stage && e.Code == t.Code
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(stage Stage, code Code) *Builder {
	return &Builder{
		err: Error{
			Stage: stage,
			Code:  code,
		},
	}
}

// Handle sets the offending handle
func (b *Builder) Handle(h scenebridge.Handle) *Builder {
	b.err.Handle = h
	return b
}

// Path sets the dotted property path
func (b *Builder) Path(path string) *Builder {
	b.err.Path = path
	return b
}

// Request sets the originating request id
func (b *Builder) Request(id uint64) *Builder {
	b.err.RequestID = id
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// UnknownHandle reports a command referencing a handle the registry has
// never seen or has already freed.
func UnknownHandle(stage Stage, h scenebridge.Handle) *Error {
	return &Error{
		Stage:  stage,
		Code:   CodeInvalidHandle,
		Handle: h,
		Detail: "handle not found",
	}
}

// WrongKind reports a handle used as a kind it is not.
func WrongKind(stage Stage, h scenebridge.Handle, want scenebridge.Kind) *Error {
	return &Error{
		Stage:  stage,
		Code:   CodeInvalidHandle,
		Handle: h,
		Detail: fmt.Sprintf("expected %s handle", want),
	}
}

// NativeFailed wraps an engine-level rejection.
func NativeFailed(h scenebridge.Handle, op string, cause error) *Error {
	return &Error{
		Stage:  StageEngine,
		Code:   CodeNativeOpFailed,
		Handle: h,
		Detail: op,
		Cause:  cause,
	}
}

// Lifecycle reports an operation attempted outside the session's live window.
func Lifecycle(detail string) *Error {
	return &Error{
		Stage:  StageLifecycle,
		Code:   CodeLifecycle,
		Detail: detail,
	}
}

// QueueClosed reports an enqueue attempt after shutdown began.
func QueueClosed() *Error {
	return &Error{
		Stage:  StageEnqueue,
		Code:   CodeQueueClosed,
		Detail: "command queue is draining or stopped",
	}
}

// PropertyPath reports a dotted path that did not resolve.
func PropertyPath(h scenebridge.Handle, path, detail string) *Error {
	return &Error{
		Stage:  StageEngine,
		Code:   CodePropertyPath,
		Handle: h,
		Path:   path,
		Detail: detail,
	}
}

// InvalidConfig reports a configuration value that fails validation.
func InvalidConfig(field, detail string) *Error {
	return &Error{
		Stage:  StageConfig,
		Code:   CodeInvalidConfig,
		Path:   field,
		Detail: detail,
	}
}

// Protocol reports a contract violation between facade and server, such as an
// unrecognized command tag. It poisons the session rather than the process.
func Protocol(detail string, args ...any) *Error {
	return &Error{
		Stage:  StageDispatch,
		Code:   CodeProtocolViolation,
		Detail: fmt.Sprintf(detail, args...),
	}
}
