// Package detect implements the detection engine: preprocess -> infer ->
// decode -> NMS -> labeled detections.
package detect

import (
	"fmt"

	"github.com/destenson/dsvision/internal/core"
)

// YoloVersion selects the output tensor layout.
type YoloVersion int

const (
	YoloAuto YoloVersion = iota
	YoloV5
	YoloV8
)

func (v YoloVersion) String() string {
	switch v {
	case YoloV5:
		return "v5"
	case YoloV8:
		return "v8"
	default:
		return "auto"
	}
}

// ParseYoloVersion maps a config string to a YoloVersion, defaulting to
// Auto for anything unrecognized. Valid values are Auto, V5, and V8.
func ParseYoloVersion(s string) YoloVersion {
	switch s {
	case "v5", "V5":
		return YoloV5
	case "v8", "V8":
		return YoloV8
	default:
		return YoloAuto
	}
}

// Config governs the detection engine.
type Config struct {
	ModelPath     string
	InputWidth    int
	InputHeight   int
	ConfThreshold float64
	NMSThreshold  float64
	NumThreads    int
	YoloVersion   YoloVersion
	ClassNames    []string
	// MaintainAspectRatio letterboxes instead of stretching, mirroring the
	// inference config file's maintain-aspect-ratio key.
	MaintainAspectRatio bool
}

// DefaultConfig returns the conventional 640x640 YOLO configuration with
// the default COCO label table.
func DefaultConfig() Config {
	return Config{
		InputWidth:          640,
		InputHeight:         640,
		ConfThreshold:       0.25,
		NMSThreshold:        0.45,
		NumThreads:          4,
		YoloVersion:         YoloAuto,
		ClassNames:          CocoClassNames,
		MaintainAspectRatio: true,
	}
}

// Validate reports a *core.InferenceError(ConfigError) for any field
// outside its documented range.
func (c Config) Validate() error {
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return core.NewInferenceError(core.InferenceConfigError, "input_width/input_height must be positive", nil)
	}
	if c.ConfThreshold < 0 || c.ConfThreshold > 1 {
		return core.NewInferenceError(core.InferenceConfigError, fmt.Sprintf("conf_threshold %v out of [0,1]", c.ConfThreshold), nil)
	}
	if c.NMSThreshold < 0 || c.NMSThreshold > 1 {
		return core.NewInferenceError(core.InferenceConfigError, fmt.Sprintf("nms_threshold %v out of [0,1]", c.NMSThreshold), nil)
	}
	return nil
}
