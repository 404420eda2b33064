package scenebridge

import "fmt"

// Kind identifies which class of engine object a Handle refers to.
type Kind uint8

const (
	KindNone Kind = iota
	KindFile
	KindArtboard
	KindStateMachine
	KindBindableInstance
	KindImage
	KindAudio
	KindFont
	KindSurface
	KindDrawKey
	KindRenderTarget
)

var kindNames = [...]string{
	KindNone:             "none",
	KindFile:             "file",
	KindArtboard:         "artboard",
	KindStateMachine:     "state-machine",
	KindBindableInstance: "bindable-instance",
	KindImage:            "image",
	KindAudio:            "audio",
	KindFont:             "font",
	KindSurface:          "surface",
	KindDrawKey:          "draw-key",
	KindRenderTarget:     "render-target",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Handle is an opaque reference to an engine object owned by the registry.
// The zero Handle is reserved and means "absent".
//
// IDs are allocated monotonically per kind and are never reused within a
// session, so a stale Handle can be detected rather than silently aliasing
// a newer object.
type Handle struct {
	Kind Kind
	ID   uint64
}

// IsZero reports whether h is the absent sentinel.
func (h Handle) IsZero() bool {
	return h.ID == 0
}

func (h Handle) String() string {
	if h.IsZero() {
		return "handle(absent)"
	}
	return fmt.Sprintf("%s#%d", h.Kind, h.ID)
}
