package sdf

import (
	"math"
	"time"

	"github.com/gogpu/sdftext/glyph"
)

// MaxGlyphSize bounds Task.GlyphSize.
const MaxGlyphSize = 4096

// Task holds everything needed to rasterize one glyph.
type Task struct {
	// GlyphSize is the output width and height in pixels.
	GlyphSize int

	// Path is the glyph outline in font units.
	Path glyph.Path

	// ViewBox is the region of font space mapped onto the output grid.
	ViewBox glyph.Rect

	// MaxDistance is the distance in font units at which the field saturates.
	MaxDistance float64

	// Exponent shapes the encoding curve. Larger values spend more of the
	// byte range close to the edge.
	Exponent float64
}

// Validate checks that the task can be rasterized.
func (t *Task) Validate() error {
	if t.GlyphSize < 1 {
		return &TaskError{Field: "GlyphSize", Reason: "must be at least 1"}
	}
	if t.GlyphSize > MaxGlyphSize {
		return &TaskError{Field: "GlyphSize", Reason: "must be at most 4096"}
	}
	if t.ViewBox.IsEmpty() {
		return &TaskError{Field: "ViewBox", Reason: "must have positive area"}
	}
	if !(t.MaxDistance > 0) || math.IsInf(t.MaxDistance, 0) {
		return &TaskError{Field: "MaxDistance", Reason: "must be positive and finite"}
	}
	if !(t.Exponent > 0) {
		return &TaskError{Field: "Exponent", Reason: "must be positive"}
	}
	return nil
}

// Result is a rasterized glyph.
type Result struct {
	// Data holds GlyphSize*GlyphSize bytes, row-major.
	Data []byte

	// Duration is the time spent rasterizing.
	Duration time.Duration
}

// Rasterizer turns tasks into distance fields.
// Implementations must be pure: equal tasks yield equal Data.
type Rasterizer interface {
	Rasterize(task Task) (Result, error)
}

// RasterizerFunc adapts a function to the Rasterizer interface.
type RasterizerFunc func(task Task) (Result, error)

// Rasterize calls f(task).
func (f RasterizerFunc) Rasterize(task Task) (Result, error) {
	return f(task)
}
