package detect

import (
	"errors"
	"image"
	"math"

	"github.com/destenson/dsvision/internal/core"
)

// ErrModelUnavailable is returned by the ONNX engine seam when no CPU
// inference runtime is linked into this build: the onnxEngine seam
// compiles but returns ErrModelUnavailable until a real runtime is
// plugged in. Callers never propagate this as a pipeline failure — they
// fall back to mock detections.
var ErrModelUnavailable = errors.New("onnx inference runtime not available in this build")

// Engine runs preprocess -> infer -> decode -> NMS on a decoded frame.
type Engine interface {
	// Detect runs the full pipeline on img and returns NMS'd, labeled
	// detections. An inference failure is returned as a
	// *core.InferenceError with no detections.
	Detect(img image.Image) ([]core.Detection, error)
}

// NewEngine selects onnxEngine when cfg.ModelPath is set and a runtime is
// available, falling back to mockEngine otherwise: if a model path is
// provided and an ONNX runtime is available, run a single-batch forward
// pass; otherwise operate in a mock mode.
func NewEngine(cfg Config) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ModelPath != "" {
		eng := &onnxEngine{cfg: cfg}
		if eng.available() {
			return eng, nil
		}
	}
	return &mockEngine{cfg: cfg}, nil
}

// onnxEngine is the seam for a real ONNX CPU runtime. No CGO ONNX binding
// exists in this module's dependency surface (none of the example repos
// carry one in their pure-Go dependency graph), so available() always
// reports false and Detect always returns ErrModelUnavailable; a future
// build tag wiring github.com/yalue/onnxruntime_go or similar replaces
// this file's body without touching the Engine interface.
type onnxEngine struct {
	cfg Config
}

func (e *onnxEngine) available() bool { return false }

func (e *onnxEngine) Detect(img image.Image) ([]core.Detection, error) {
	return nil, core.NewInferenceError(core.InferenceFailed, "no onnx runtime linked", ErrModelUnavailable)
}

// mockEngine returns a deterministic small set of synthetic detections. It
// is a real code path, used when no model exists and gated by config, not
// a stub reserved for tests. The detections are a function of the frame's
// dimensions only, so repeated calls against the same frame size are
// reproducible — useful for tests and for demoing the renderer/tracker
// without a model.
type mockEngine struct {
	cfg Config
}

func (e *mockEngine) Detect(img image.Image) ([]core.Detection, error) {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	if w <= 0 || h <= 0 {
		return nil, nil
	}

	candidates := []Candidate{
		{
			ClassID:    0, // person
			Confidence: 0.91,
			BBox:       core.BoundingBox{Left: w * 0.10, Top: h * 0.15, Width: w * 0.18, Height: h * 0.55},
		},
		{
			ClassID:    2, // car
			Confidence: 0.78,
			BBox:       core.BoundingBox{Left: w * 0.55, Top: h * 0.45, Width: w * 0.30, Height: h * 0.30},
		},
	}

	filtered := Filter(candidates, e.cfg.ConfThreshold)
	suppressed := NMS(filtered, e.cfg.NMSThreshold)
	return ToDetections(suppressed, namesOrDefault(e.cfg.ClassNames)), nil
}

func namesOrDefault(names []string) []string {
	if len(names) == 0 {
		return CocoClassNames
	}
	return names
}

// clipBox clips a box to the frame bounds, used by the tracker/renderer
// seam to compute ObjectMeta.EffectiveBBox.
func clipBox(b core.BoundingBox, width, height float64) core.BoundingBox {
	left := math.Max(0, b.Left)
	top := math.Max(0, b.Top)
	right := math.Min(width, b.Right())
	bottom := math.Min(height, b.Bottom())
	if right < left {
		right = left
	}
	if bottom < top {
		bottom = top
	}
	return core.BoundingBox{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// ClipBox exports clipBox for callers outside this package (the renderer
// and bridge need it to populate ObjectMeta.EffectiveBBox).
func ClipBox(b core.BoundingBox, width, height float64) core.BoundingBox {
	return clipBox(b, width, height)
}
