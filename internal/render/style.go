// Package render implements the metadata renderer: drawing boxes and
// labels styled per class, with a hardware-OSD seam and a
// golang.org/x/image rasterization fallback when the active backend
// reports no hardware OSD.
package render

import "image/color"

// Style is one class's (or the default) overlay style.
type Style struct {
	Color        color.RGBA
	Thickness    int
	Alpha        float64
	CornerRadius int
	Filled       bool
	FillColor    color.RGBA
	FillAlpha    float64
}

// DefaultStyle is used for any class with no entry in PerClassStyles.
func DefaultStyle() Style {
	return Style{
		Color:     color.RGBA{R: 0, G: 200, B: 0, A: 255},
		Thickness: 2,
		Alpha:     1.0,
	}
}

// Config governs the renderer.
type Config struct {
	EnableBBox         bool
	EnableLabels       bool
	EnableConfidence   bool
	EnableTrackingID   bool
	DefaultStyle       Style
	PerClassStyles     map[string]Style
	MaxObjectsPerFrame int
}

// DefaultConfig returns a sensible default rendering configuration.
func DefaultConfig() Config {
	return Config{
		EnableBBox:         true,
		EnableLabels:       true,
		EnableConfidence:   true,
		EnableTrackingID:   true,
		DefaultStyle:       DefaultStyle(),
		PerClassStyles:     map[string]Style{},
		MaxObjectsPerFrame: 128,
	}
}

// StyleFor resolves a class's style: exact name match in PerClassStyles,
// else DefaultStyle.
func (c Config) StyleFor(className string) Style {
	if s, ok := c.PerClassStyles[className]; ok {
		return s
	}
	return c.DefaultStyle
}
