package command

import (
	"time"

	scenebridge "github.com/sceneforge/scene-bridge"
)

// Tag discriminates Command payload variants. Tag values are part of the
// facade/server contract: a tag the server does not recognize is a protocol
// violation, not a recoverable error.
type Tag uint8

const (
	TagInvalid Tag = iota
	TagImportFile
	TagListArtboards
	TagInstanceArtboard
	TagListStateMachines
	TagInstanceStateMachine
	TagAdvanceStateMachine
	TagSetInput
	TagInstanceBindable
	TagBindInstance
	TagGetProperty
	TagSetProperty
	TagDecodeImage
	TagDecodeAudio
	TagDecodeFont
	TagRegisterAsset
	TagUnregisterAsset
	TagCreateSurface
	TagDrawBatch
	TagFreeHandle
)

var tagNames = [...]string{
	TagInvalid:              "invalid",
	TagImportFile:           "import-file",
	TagListArtboards:        "list-artboards",
	TagInstanceArtboard:     "instance-artboard",
	TagListStateMachines:    "list-state-machines",
	TagInstanceStateMachine: "instance-state-machine",
	TagAdvanceStateMachine:  "advance-state-machine",
	TagSetInput:             "set-input",
	TagInstanceBindable:     "instance-bindable",
	TagBindInstance:         "bind-instance",
	TagGetProperty:          "get-property",
	TagSetProperty:          "set-property",
	TagDecodeImage:          "decode-image",
	TagDecodeAudio:          "decode-audio",
	TagDecodeFont:           "decode-font",
	TagRegisterAsset:        "register-asset",
	TagUnregisterAsset:      "unregister-asset",
	TagCreateSurface:        "create-surface",
	TagDrawBatch:            "draw-batch",
	TagFreeHandle:           "free-handle",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "tag(unknown)"
}

// Command is one requested operation. RequestID is zero for fire-and-forget
// commands; for request/response commands it keys the caller's pending
// continuation.
type Command struct {
	Payload   Payload
	RequestID uint64
	Tag       Tag
}

// Payload is implemented by every command payload variant.
type Payload interface {
	tag() Tag
}

// SelectMode says how a child object is picked from its parent.
type SelectMode uint8

const (
	SelectDefault SelectMode = iota
	SelectByName
	SelectByIndex
)

// Selector picks an artboard from a file or a state machine from an artboard.
type Selector struct {
	Name  string
	Index int
	Mode  SelectMode
}

// ImportFile parses a scene file from bytes. Handle is pre-allocated by the
// facade so follow-up commands can reference the file before the import
// completes.
type ImportFile struct {
	Data []byte
	File scenebridge.Handle
}

// ListArtboards asks for the artboard names of a file.
type ListArtboards struct {
	File scenebridge.Handle
}

// InstanceArtboard instantiates an artboard from a file.
type InstanceArtboard struct {
	Select   Selector
	File     scenebridge.Handle
	Artboard scenebridge.Handle
}

// ListStateMachines asks for the state machine names of an artboard.
type ListStateMachines struct {
	Artboard scenebridge.Handle
}

// InstanceStateMachine instantiates a state machine from an artboard.
type InstanceStateMachine struct {
	Select       Selector
	Artboard     scenebridge.Handle
	StateMachine scenebridge.Handle
}

// AdvanceStateMachine advances a state machine by an elapsed duration.
// Fire-and-forget; a settle transition is reported as an unsolicited message.
type AdvanceStateMachine struct {
	Elapsed      time.Duration
	StateMachine scenebridge.Handle
}

// SetInput sets a named state machine input. Value must be a number, bool or
// trigger variant.
type SetInput struct {
	Name         string
	Value        scenebridge.PropertyValue
	StateMachine scenebridge.Handle
}

// InstanceBindable instantiates a named view model instance from a file.
type InstanceBindable struct {
	Name     string
	File     scenebridge.Handle
	Bindable scenebridge.Handle
}

// BindInstance binds a view model instance to an artboard's data context.
type BindInstance struct {
	Artboard scenebridge.Handle
	Bindable scenebridge.Handle
}

// GetProperty reads a property by dotted path on a bindable instance.
type GetProperty struct {
	Path     string
	Bindable scenebridge.Handle
}

// SetProperty writes a property by dotted path on a bindable instance.
// Fire-and-forget; matching subscriptions observe the new value as an
// unsolicited message.
type SetProperty struct {
	Path     string
	Value    scenebridge.PropertyValue
	Bindable scenebridge.Handle
}

// DecodeImage decodes an image asset from bytes.
type DecodeImage struct {
	Data  []byte
	Image scenebridge.Handle
}

// DecodeAudio decodes an audio asset from bytes.
type DecodeAudio struct {
	Data  []byte
	Audio scenebridge.Handle
}

// DecodeFont decodes a font asset from bytes.
type DecodeFont struct {
	Data []byte
	Font scenebridge.Handle
}

// RegisterAsset registers a decoded asset under a referenced name.
type RegisterAsset struct {
	Name  string
	Asset scenebridge.Handle
}

// UnregisterAsset removes a named asset registration.
type UnregisterAsset struct {
	Name string
}

// CreateSurface allocates a render surface of the given pixel size.
type CreateSurface struct {
	Width   uint32
	Height  uint32
	Surface scenebridge.Handle
}

// DrawBatch draws an ordered list of entries into a target surface as one
// worker dispatch, answered by exactly one message regardless of entry count.
type DrawBatch struct {
	Entries []scenebridge.DrawEntry
	Options scenebridge.DrawOptions
	Target  scenebridge.Handle
}

// FreeHandle releases the engine object behind a handle. Fire-and-forget;
// freeing an unknown handle surfaces on the error broadcast stream.
type FreeHandle struct {
	Handle scenebridge.Handle
}

func (ImportFile) tag() Tag           { return TagImportFile }
func (ListArtboards) tag() Tag        { return TagListArtboards }
func (InstanceArtboard) tag() Tag     { return TagInstanceArtboard }
func (ListStateMachines) tag() Tag    { return TagListStateMachines }
func (InstanceStateMachine) tag() Tag { return TagInstanceStateMachine }
func (AdvanceStateMachine) tag() Tag  { return TagAdvanceStateMachine }
func (SetInput) tag() Tag             { return TagSetInput }
func (InstanceBindable) tag() Tag     { return TagInstanceBindable }
func (BindInstance) tag() Tag         { return TagBindInstance }
func (GetProperty) tag() Tag          { return TagGetProperty }
func (SetProperty) tag() Tag          { return TagSetProperty }
func (DecodeImage) tag() Tag          { return TagDecodeImage }
func (DecodeAudio) tag() Tag          { return TagDecodeAudio }
func (DecodeFont) tag() Tag           { return TagDecodeFont }
func (RegisterAsset) tag() Tag        { return TagRegisterAsset }
func (UnregisterAsset) tag() Tag      { return TagUnregisterAsset }
func (CreateSurface) tag() Tag        { return TagCreateSurface }
func (DrawBatch) tag() Tag            { return TagDrawBatch }
func (FreeHandle) tag() Tag           { return TagFreeHandle }

// New builds a request/response command.
func New(requestID uint64, p Payload) Command {
	return Command{Tag: p.tag(), RequestID: requestID, Payload: p}
}

// Fire builds a fire-and-forget command.
func Fire(p Payload) Command {
	return Command{Tag: p.tag(), Payload: p}
}

// Coherent reports whether the command's tag matches its payload variant.
// A mismatch means the facade and server disagree about the contract.
func (c Command) Coherent() bool {
	return c.Payload != nil && c.Payload.tag() == c.Tag
}
