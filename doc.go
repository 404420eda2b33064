// Package scenebridge provides a command-queue bridge between free-threaded
// client code and a single-goroutine-affinity scene/animation engine.
//
// The engine behind the bridge (vector graphics playback, scene graph, state
// machines, data binding) requires every one of its objects to be created,
// mutated and destroyed on the one goroutine that owns its graphics context.
// Client code, on the other hand, runs on arbitrary goroutines and expects
// non-blocking calls and reactive subscriptions. The bridge reconciles the
// two with a dedicated worker goroutine, two queues, and opaque handles.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	scenebridge/         Root package with Handle, property and draw value types
//	├── session/         Client facade: async calls, refcounting, polling
//	├── server/          Command server worker loop and dispatch
//	├── registry/        Handle-to-native-object resource registry
//	├── command/         Command and Message value definitions
//	├── engine/          Engine boundary interface
//	│   ├── sceneengine/ Pure-Go reference engine
//	│   └── wasmengine/  wazero-hosted WASM engine adapter
//	├── config/          YAML configuration
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Open a session, load a scene, drive it once per frame:
//
//	sess := session.New(session.Options{Engine: sceneengine.New()})
//	sess.Acquire("app")
//	defer sess.Release("app")
//
//	file, pending := sess.ImportFile(sceneBytes)
//	for range ticker.C {
//	    sess.PollMessages()
//	}
//
// # Thread Safety
//
// Session is safe for concurrent use from any goroutine. All engine objects
// live behind handles and are only ever touched by the session's worker
// goroutine; PollMessages is the single point where results and broadcasts
// are delivered, so callbacks run only on the goroutine that polls.
//
// # Ordering Model
//
// Commands execute strictly in enqueue order. Creation calls hand back a
// handle immediately, before the worker has processed anything; a follow-up
// command referencing that handle is safe because both commands sit in the
// same FIFO queue. The creation outcome itself arrives asynchronously via
// PollMessages.
package scenebridge
