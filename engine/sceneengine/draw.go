package sceneengine

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"

	scenebridge "github.com/sceneforge/scene-bridge"
	"github.com/sceneforge/scene-bridge/engine"
)

type surface struct {
	img       *image.RGBA
	destroyed bool
}

func (s *surface) Width() uint32  { return uint32(s.img.Rect.Dx()) }
func (s *surface) Height() uint32 { return uint32(s.img.Rect.Dy()) }
func (s *surface) Destroy()       { s.destroyed = true }

// RGBA exposes the backing pixels for inspection by tests and the demo CLI.
func (s *surface) RGBA() *image.RGBA { return s.img }

// CreateSurface allocates an in-memory RGBA surface.
func (e *SceneEngine) CreateSurface(width, height uint32) (engine.Surface, error) {
	if e.closed {
		return nil, fmt.Errorf("engine closed")
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("surface size %dx%d is empty", width, height)
	}
	return &surface{img: image.NewRGBA(image.Rect(0, 0, int(width), int(height)))}, nil
}

// Draw renders the entries into target as one dispatch. Each artboard is
// rendered as a flat tile in a color derived from its name and scaled into
// its fitted rectangle; this keeps the reference engine honest about fit and
// alignment math without a full rasterizer.
func (e *SceneEngine) Draw(target engine.Surface, entries []engine.DrawEntry, opts scenebridge.DrawOptions) error {
	if e.closed {
		return fmt.Errorf("engine closed")
	}
	dst, ok := target.(*surface)
	if !ok {
		return fmt.Errorf("surface not created by this engine")
	}
	if dst.destroyed {
		return fmt.Errorf("surface destroyed")
	}

	if opts.Clear {
		fill(dst.img, dst.img.Rect, argbToColor(opts.ClearColor))
	}

	scale := float64(opts.Scale)
	if scale <= 0 {
		scale = 1
	}

	for i, entry := range entries {
		ab, ok := entry.Artboard.(*artboard)
		if !ok {
			return fmt.Errorf("entry %d: artboard not created by this engine", i)
		}
		if ab.destroyed {
			return fmt.Errorf("entry %d: artboard destroyed", i)
		}

		rect := fitRect(ab.def.Width*scale, ab.def.Height*scale,
			dst.img.Rect, opts.Fit, opts.Align)
		rect = offsetRect(rect, entry.Transform)
		rect = rect.Intersect(dst.img.Rect)
		if rect.Empty() {
			continue
		}

		tile := image.NewRGBA(image.Rect(0, 0, 8, 8))
		fill(tile, tile.Rect, nameColor(ab.def.Name))
		xdraw.ApproxBiLinear.Scale(dst.img, rect, tile, tile.Rect, xdraw.Over, nil)
	}
	return nil
}

func fill(img *image.RGBA, rect image.Rectangle, c color.RGBA) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func argbToColor(argb uint32) color.RGBA {
	return color.RGBA{
		A: uint8(argb >> 24),
		R: uint8(argb >> 16),
		G: uint8(argb >> 8),
		B: uint8(argb),
	}
}

func nameColor(name string) color.RGBA {
	h := fnv.New32a()
	h.Write([]byte(name))
	sum := h.Sum32()
	return color.RGBA{
		R: uint8(sum >> 16),
		G: uint8(sum >> 8),
		B: uint8(sum),
		A: 0xFF,
	}
}

// fitRect maps a content box of size (w, h) into bounds under fit and
// alignment rules.
func fitRect(w, h float64, bounds image.Rectangle, fit scenebridge.Fit, align scenebridge.Alignment) image.Rectangle {
	bw := float64(bounds.Dx())
	bh := float64(bounds.Dy())
	if w <= 0 || h <= 0 || bw <= 0 || bh <= 0 {
		return image.Rectangle{}
	}

	sx := bw / w
	sy := bh / h
	switch fit {
	case scenebridge.FitContain:
		s := min(sx, sy)
		sx, sy = s, s
	case scenebridge.FitCover:
		s := max(sx, sy)
		sx, sy = s, s
	case scenebridge.FitFill, scenebridge.FitLayout:
		// keep independent axes
	case scenebridge.FitFitWidth:
		sy = sx
	case scenebridge.FitFitHeight:
		sx = sy
	case scenebridge.FitNone:
		sx, sy = 1, 1
	case scenebridge.FitScaleDown:
		s := min(sx, sy)
		if s > 1 {
			s = 1
		}
		sx, sy = s, s
	}

	fw := w * sx
	fh := h * sy

	var ox, oy float64
	switch align {
	case scenebridge.AlignTopLeft, scenebridge.AlignCenterLeft, scenebridge.AlignBottomLeft:
		ox = 0
	case scenebridge.AlignTopRight, scenebridge.AlignCenterRight, scenebridge.AlignBottomRight:
		ox = bw - fw
	default:
		ox = (bw - fw) / 2
	}
	switch align {
	case scenebridge.AlignTopLeft, scenebridge.AlignTopCenter, scenebridge.AlignTopRight:
		oy = 0
	case scenebridge.AlignBottomLeft, scenebridge.AlignBottomCenter, scenebridge.AlignBottomRight:
		oy = bh - fh
	default:
		oy = (bh - fh) / 2
	}

	return image.Rect(
		bounds.Min.X+int(ox),
		bounds.Min.Y+int(oy),
		bounds.Min.X+int(ox+fw),
		bounds.Min.Y+int(oy+fh),
	)
}

func offsetRect(r image.Rectangle, m scenebridge.Mat2D) image.Rectangle {
	return r.Add(image.Pt(int(m.TX), int(m.TY)))
}
