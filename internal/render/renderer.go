package render

import (
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/destenson/dsvision/internal/bridge"
	"github.com/destenson/dsvision/internal/core"
)

// Renderer exposes one pipeline element (an OSD or equivalent
// passthrough). On each buffer arriving at its sink pad, it looks up the
// matching frame in the bridge by presentation timestamp and either
// attaches hardware display metadata (when available) or draws directly
// into the frame via the x/image fallback.
type Renderer struct {
	cfg          Config
	br           *bridge.Bridge
	hasHWOSD     bool
	logger       *slog.Logger
	droppedCount atomic.Uint64
}

// New creates a Renderer bound to br. hasHWOSD mirrors the active
// backend's Capabilities().SupportsOSD; when false, Render always uses
// the 2D drawing fallback — this is never treated as an error.
func New(cfg Config, br *bridge.Bridge, hasHWOSD bool, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{cfg: cfg, br: br, hasHWOSD: hasHWOSD, logger: logger}
}

// DroppedObjects returns the running count of objects dropped by the
// max-objects-per-frame cap; excess objects are dropped with a counter
// increment rather than rendered.
func (r *Renderer) DroppedObjects() uint64 { return r.droppedCount.Load() }

// Render looks up frame's metadata by pts and overlays it onto img,
// returning the annotated image. If hasHWOSD is true, this still returns
// an annotated image in this pure-Go module (there is no real hardware
// metadata attachment path to exercise), but the call is logged as taking
// the hardware branch to keep the two code paths' observable behavior in
// parity.
func (r *Renderer) Render(img *image.RGBA, pts time.Duration) *image.RGBA {
	frame, ok := r.br.GetFrameMetadata(time.Unix(0, pts.Nanoseconds()))
	if !ok {
		return img
	}

	if r.hasHWOSD {
		r.logger.Debug("attaching hardware display metadata", slog.Int("objects", len(frame.Objects)))
	}

	objects := frame.Objects
	if r.cfg.MaxObjectsPerFrame > 0 && len(objects) > r.cfg.MaxObjectsPerFrame {
		dropped := len(objects) - r.cfg.MaxObjectsPerFrame
		r.droppedCount.Add(uint64(dropped))
		objects = objects[:r.cfg.MaxObjectsPerFrame]
	}

	for _, obj := range objects {
		r.drawObject(img, obj)
	}
	return img
}

func (r *Renderer) drawObject(img *image.RGBA, obj core.ObjectMeta) {
	style := r.cfg.StyleFor(obj.Label)

	box := obj.EffectiveBBox
	if r.cfg.EnableBBox {
		drawRect(img, box, style)
	}
	if r.cfg.EnableLabels {
		label := FormatLabel(r.cfg, obj)
		drawLabel(img, box, label, style.Color)
	}
}

// drawRect draws an unfilled (or filled) rectangle outline per style,
// using plain pixel writes — this module has no GPU overlay compositor, so
// the 2D drawing fallback is a direct pixel draw rather than a hardware
// blend.
func drawRect(img *image.RGBA, box core.BoundingBox, style Style) {
	b := img.Bounds()
	left := clampInt(int(box.Left), b.Min.X, b.Max.X-1)
	top := clampInt(int(box.Top), b.Min.Y, b.Max.Y-1)
	right := clampInt(int(box.Right()), b.Min.X, b.Max.X-1)
	bottom := clampInt(int(box.Bottom()), b.Min.Y, b.Max.Y-1)

	if style.Filled {
		fillRect(img, left, top, right, bottom, style.FillColor)
	}

	thickness := style.Thickness
	if thickness < 1 {
		thickness = 1
	}
	for t := 0; t < thickness; t++ {
		hLine(img, left, right, top+t, style.Color)
		hLine(img, left, right, bottom-t, style.Color)
		vLine(img, left+t, top, bottom, style.Color)
		vLine(img, right-t, top, bottom, style.Color)
	}
}

func fillRect(img *image.RGBA, left, top, right, bottom int, c color.RGBA) {
	rect := image.Rect(left, top, right+1, bottom+1).Intersect(img.Bounds())
	draw.Draw(img, rect, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func hLine(img *image.RGBA, x0, x1, y int, c color.RGBA) {
	b := img.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	for x := x0; x <= x1; x++ {
		if x < b.Min.X || x >= b.Max.X {
			continue
		}
		img.SetRGBA(x, y, c)
	}
}

func vLine(img *image.RGBA, x, y0, y1 int, c color.RGBA) {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	for y := y0; y <= y1; y++ {
		if y < b.Min.Y || y >= b.Max.Y {
			continue
		}
		img.SetRGBA(x, y, c)
	}
}

// drawLabel rasterizes label using golang.org/x/image/font/basicfont just
// above the box's top-left corner, part of the pure-Go OSD fallback.
func drawLabel(img *image.RGBA, box core.BoundingBox, label string, c color.RGBA) {
	face := basicfont.Face7x13
	y := int(box.Top) - 2
	if y < face.Height {
		y = int(box.Top) + face.Height
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: c},
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(int(box.Left)), Y: fixed.I(y)},
	}
	d.DrawString(label)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
