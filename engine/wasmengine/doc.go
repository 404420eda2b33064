// Package wasmengine hosts a scene/animation engine compiled to WebAssembly.
//
// This is the deployment shape where the renderer ships as a .wasm artifact:
// the module is instantiated with wazero and driven through a small exported
// C-style ABI (se_* functions, ptr/len strings in guest memory, guest-owned
// 64-bit handles). The adapter satisfies engine.Engine, so the command server
// cannot tell it apart from the in-process reference engine.
//
// The guest must export a linear memory named "memory", an se_alloc/se_free
// pair for transferring byte buffers, and the operation surface listed in
// requiredExports. Construction fails cleanly when an export is missing.
package wasmengine
