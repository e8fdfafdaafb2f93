package sdftext

import (
	"errors"
	"fmt"

	"github.com/gogpu/sdftext/glyph"
)

// Sentinel errors for the sdftext package.
var (
	// ErrConfigFrozen is returned by Configure after the first render.
	// The call has no effect; it is not fatal.
	ErrConfigFrozen = errors.New("sdftext: configuration is frozen after first render")

	// ErrRendererClosed is returned when rendering after Close.
	ErrRendererClosed = errors.New("sdftext: renderer is closed")

	// ErrInvalidRequest wraps request normalization failures.
	ErrInvalidRequest = errors.New("sdftext: invalid request")

	// ErrInvalidColor is returned for colours that cannot be normalized.
	ErrInvalidColor = errors.New("sdftext: invalid color")

	// ErrMissingGlyphData is returned when the typesetter emits a glyph
	// without an outline.
	ErrMissingGlyphData = errors.New("sdftext: typesetter returned a glyph without outline data")
)

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "sdftext: invalid config." + e.Field + ": " + e.Reason
}

// GlyphError reports that a glyph needed by a request could not be
// rasterized. The request produces no result.
type GlyphError struct {
	GlyphID glyph.ID
	Slot    int
	Err     error
}

func (e *GlyphError) Error() string {
	return fmt.Sprintf("sdftext: SDF generation failed for glyph %d (slot %d): %v", e.GlyphID, e.Slot, e.Err)
}

func (e *GlyphError) Unwrap() error {
	return e.Err
}
