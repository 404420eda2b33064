package sceneengine

import (
	"fmt"

	"go.uber.org/zap"

	scenebridge "github.com/sceneforge/scene-bridge"
	"github.com/sceneforge/scene-bridge/engine"
)

// SceneEngine implements engine.Engine in pure Go.
type SceneEngine struct {
	assets map[string]engine.Asset
	logger *zap.Logger
	closed bool
}

// Option configures a SceneEngine.
type Option func(*SceneEngine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *SceneEngine) {
		e.logger = l
	}
}

// New creates a reference engine.
func New(opts ...Option) *SceneEngine {
	e := &SceneEngine{
		assets: make(map[string]engine.Asset),
		logger: engine.Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ImportFile parses a scene document. Asset names the document references
// resolve against registrations made before the import; unresolved names are
// logged and rendered as placeholders, matching how a missing image falls
// back at playback time.
func (e *SceneEngine) ImportFile(data []byte) (engine.File, error) {
	if e.closed {
		return nil, fmt.Errorf("engine closed")
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	for _, ab := range doc.Artboards {
		for _, name := range ab.Assets {
			if _, ok := e.assets[name]; !ok {
				e.logger.Warn("unresolved asset reference",
					zap.String("artboard", ab.Name),
					zap.String("asset", name))
			}
		}
	}
	return &file{doc: doc}, nil
}

// RegisterAsset makes asset resolvable under name.
func (e *SceneEngine) RegisterAsset(name string, asset engine.Asset) error {
	if e.closed {
		return fmt.Errorf("engine closed")
	}
	if name == "" {
		return fmt.Errorf("empty asset name")
	}
	if _, ok := e.assets[name]; ok {
		return fmt.Errorf("asset %q already registered", name)
	}
	e.assets[name] = asset
	return nil
}

// UnregisterAsset removes a named registration.
func (e *SceneEngine) UnregisterAsset(name string) error {
	if _, ok := e.assets[name]; !ok {
		return fmt.Errorf("asset %q not registered", name)
	}
	delete(e.assets, name)
	return nil
}

// Close destroys the engine context.
func (e *SceneEngine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	for name, asset := range e.assets {
		asset.Destroy()
		delete(e.assets, name)
	}
	return nil
}

var _ engine.Engine = (*SceneEngine)(nil)

func propertyTypeOf(s string) scenebridge.PropertyType {
	switch s {
	case "number":
		return scenebridge.PropertyNumber
	case "string":
		return scenebridge.PropertyString
	case "bool":
		return scenebridge.PropertyBool
	case "enum":
		return scenebridge.PropertyEnum
	case "color":
		return scenebridge.PropertyColor
	case "trigger":
		return scenebridge.PropertyTrigger
	default:
		return scenebridge.PropertyNone
	}
}
