// Package server implements the command server: the one goroutine that owns
// the engine context and every object behind a handle.
//
// A Server is single-use. Start spawns the worker goroutine, which constructs
// the engine on itself (Starting), then loops popping commands in strict FIFO
// order (Running). Shutdown flips the server to Draining: the in-flight
// command finishes, queued commands are aborted with lifecycle errors so no
// pending continuation is left hanging, the registry is cleared, the engine
// context destroyed, and the goroutine exits (Stopped). A fresh session
// acquire builds a fresh Server.
//
// Strict FIFO execution is the bridge's ordering guarantee: a command that
// references a handle always runs after the command that created it, because
// both sit in the same queue. That is what makes create-then-mutate safe
// even though creation results arrive asynchronously.
package server
