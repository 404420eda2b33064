// Package sceneengine is a pure-Go reference implementation of the engine
// boundary.
//
// It consumes scene documents in a compact JSON format: artboards with named
// state machines and typed inputs, plus view model definitions whose typed
// properties are addressed by dotted path. Rendering is deliberately
// minimal: batched draws composite fitted artboard tiles into an in-memory
// RGBA surface. The lifecycle, data binding and asset semantics are
// complete, which is what the bridge's tests and the demo CLI need.
//
// Like every engine implementation, a SceneEngine and all objects it hands
// out must only be used on the goroutine that constructed it.
package sceneengine
