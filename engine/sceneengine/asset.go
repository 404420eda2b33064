package sceneengine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"

	// registered image formats for DecodeImage
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/go-text/typesetting/font"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	scenebridge "github.com/sceneforge/scene-bridge"
	"github.com/sceneforge/scene-bridge/engine"
)

type imageAsset struct {
	format string
	width  int
	height int
}

func (a *imageAsset) Kind() scenebridge.Kind { return scenebridge.KindImage }
func (a *imageAsset) Destroy()               {}

// DecodeImage decodes an image asset from bytes. PNG, JPEG, GIF, BMP, TIFF
// and WebP are accepted.
func (e *SceneEngine) DecodeImage(data []byte) (engine.Asset, error) {
	if e.closed {
		return nil, fmt.Errorf("engine closed")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return &imageAsset{format: format, width: cfg.Width, height: cfg.Height}, nil
}

type audioAsset struct {
	channels   uint16
	sampleRate uint32
	bits       uint16
}

func (a *audioAsset) Kind() scenebridge.Kind { return scenebridge.KindAudio }
func (a *audioAsset) Destroy()               {}

// DecodeAudio decodes an audio asset from bytes. Only RIFF/WAVE is accepted.
func (e *SceneEngine) DecodeAudio(data []byte) (engine.Asset, error) {
	if e.closed {
		return nil, fmt.Errorf("engine closed")
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("decode audio: not a RIFF/WAVE stream")
	}
	// walk chunks until "fmt "
	rest := data[12:]
	for len(rest) >= 8 {
		id := string(rest[0:4])
		size := binary.LittleEndian.Uint32(rest[4:8])
		body := rest[8:]
		if uint32(len(body)) < size {
			break
		}
		if id == "fmt " {
			if size < 16 {
				return nil, fmt.Errorf("decode audio: short fmt chunk")
			}
			return &audioAsset{
				channels:   binary.LittleEndian.Uint16(body[2:4]),
				sampleRate: binary.LittleEndian.Uint32(body[4:8]),
				bits:       binary.LittleEndian.Uint16(body[14:16]),
			}, nil
		}
		if size%2 == 1 {
			size++ // chunks are word-aligned
		}
		if uint32(len(body)) < size {
			break
		}
		rest = body[size:]
	}
	return nil, fmt.Errorf("decode audio: no fmt chunk")
}

type fontAsset struct {
	face *font.Face
	upem uint16
}

func (a *fontAsset) Kind() scenebridge.Kind { return scenebridge.KindFont }
func (a *fontAsset) Destroy()               { a.face = nil }

// DecodeFont parses a TTF/OTF font asset from bytes.
func (e *SceneEngine) DecodeFont(data []byte) (engine.Asset, error) {
	if e.closed {
		return nil, fmt.Errorf("engine closed")
	}
	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode font: %w", err)
	}
	return &fontAsset{face: face, upem: face.Upem()}, nil
}
