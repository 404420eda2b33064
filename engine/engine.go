package engine

import (
	"time"

	scenebridge "github.com/sceneforge/scene-bridge"
)

// Engine is the operation surface the command server calls into. Construct
// one per session, on the worker goroutine, and use it only there.
type Engine interface {
	// ImportFile parses a scene file from bytes.
	ImportFile(data []byte) (File, error)

	// DecodeImage decodes an image asset from bytes.
	DecodeImage(data []byte) (Asset, error)

	// DecodeAudio decodes an audio asset from bytes.
	DecodeAudio(data []byte) (Asset, error)

	// DecodeFont decodes a font asset from bytes.
	DecodeFont(data []byte) (Asset, error)

	// RegisterAsset makes a decoded asset resolvable under a referenced name
	// for files imported afterwards.
	RegisterAsset(name string, asset Asset) error

	// UnregisterAsset removes a named registration.
	UnregisterAsset(name string) error

	// CreateSurface allocates a render surface of the given pixel size.
	CreateSurface(width, height uint32) (Surface, error)

	// Draw renders the entries into target as one dispatch.
	Draw(target Surface, entries []DrawEntry, opts scenebridge.DrawOptions) error

	// Close destroys the engine context. Objects handed out earlier are
	// invalid afterwards.
	Close() error
}

// DrawEntry is one (artboard, state machine, transform) tuple of a batched
// draw, with handles already resolved to engine objects. StateMachine may be
// nil for a static artboard.
type DrawEntry struct {
	Artboard     Artboard
	StateMachine StateMachine
	Transform    scenebridge.Mat2D
}

// File is a parsed scene file.
type File interface {
	// ArtboardNames lists artboards in file order.
	ArtboardNames() []string

	// DefaultArtboard instantiates the file's default artboard.
	DefaultArtboard() (Artboard, error)

	// ArtboardByName instantiates a named artboard.
	ArtboardByName(name string) (Artboard, error)

	// ArtboardAt instantiates the artboard at index.
	ArtboardAt(index int) (Artboard, error)

	// BindableByName instantiates a named view model from the file's data
	// binding definitions.
	BindableByName(name string) (BindableInstance, error)

	Destroy()
}

// Artboard is an instantiated artboard.
type Artboard interface {
	// StateMachineNames lists state machines in artboard order.
	StateMachineNames() []string

	// DefaultStateMachine instantiates the artboard's default state machine.
	DefaultStateMachine() (StateMachine, error)

	// StateMachineByName instantiates a named state machine.
	StateMachineByName(name string) (StateMachine, error)

	// StateMachineAt instantiates the state machine at index.
	StateMachineAt(index int) (StateMachine, error)

	// Bind attaches a view model instance as the artboard's data context.
	Bind(instance BindableInstance) error

	Destroy()
}

// StateMachine is an instantiated state machine.
type StateMachine interface {
	// Advance moves the machine forward by elapsed time and reports whether
	// it has settled (no further advancing would change anything).
	Advance(elapsed time.Duration) (settled bool, err error)

	// SetBool sets a named boolean input.
	SetBool(name string, value bool) error

	// SetNumber sets a named number input.
	SetNumber(name string, value float64) error

	// FireTrigger fires a named trigger input.
	FireTrigger(name string) error

	Destroy()
}

// BindableInstance is an instantiated view model whose typed properties are
// addressed by dotted path (nested instances walk the path segment by
// segment).
type BindableInstance interface {
	// Get reads the property at path.
	Get(path string) (scenebridge.PropertyValue, error)

	// Set writes the property at path.
	Set(path string, value scenebridge.PropertyValue) error

	Destroy()
}

// Asset is a decoded image, audio or font asset.
type Asset interface {
	// Kind reports which asset class this is.
	Kind() scenebridge.Kind

	Destroy()
}

// Surface is an allocated render target.
type Surface interface {
	Width() uint32
	Height() uint32

	Destroy()
}
