// Package session implements the client facade of the bridge.
//
// A Session is the object client code holds. It is safe for concurrent use
// from any goroutine: calls translate into commands on the server's queue and
// return immediately, either with a Pending future (request/response
// operations) or with nothing to wait for (fire-and-forget operations).
//
// Results come back only through PollMessages, which the client invokes on
// its own cadence, nominally once per rendered frame. That is the single
// point where futures resolve and subscription broadcasts are delivered, so
// every client-observable side effect happens at a caller-controlled moment.
//
// The session is reference counted. The worker goroutine and engine context
// exist only while the count is above zero; the last release tears them down
// and delivers the final message backlog so no pending future is silently
// dropped. A later acquire starts a fresh worker with an empty registry.
//
// Creation calls hand back their handle synchronously, before the worker has
// processed anything. The handle is only a name; commands referencing it are
// ordered after the creation command in the same FIFO queue, which is what
// makes the early return safe. The creation outcome itself arrives on the
// returned future.
package session
