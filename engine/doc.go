// Package engine defines the boundary the command server consumes the
// scene/animation engine through.
//
// The bridge never reimplements rendering; it drives an Engine through the
// narrow operation surface below. Every object an Engine hands out has
// single-goroutine affinity: it must only be touched on the goroutine that
// constructed the Engine. The command server guarantees this by construction.
//
// Two implementations ship with the module: sceneengine, a pure-Go reference
// engine used by tests and the demo CLI, and wasmengine, which hosts an
// engine compiled to WebAssembly via wazero.
package engine
