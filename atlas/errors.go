package atlas

import (
	"errors"
	"fmt"
)

// Sentinel errors for atlas package.
var (
	// ErrSlotOutOfRange is returned when a slot was never allocated.
	ErrSlotOutOfRange = errors.New("atlas: slot out of range")

	// ErrPixelSize is returned when a glyph block has the wrong length.
	ErrPixelSize = errors.New("atlas: pixel block must be GlyphSize*GlyphSize bytes")
)

// ConfigError represents an atlas configuration validation error.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "atlas: invalid config." + e.Field + ": " + e.Reason
}

// TextureTooLargeError is returned when growing the texture would exceed
// the configured height ceiling.
type TextureTooLargeError struct {
	Slot      int
	Height    int
	MaxHeight int
}

func (e *TextureTooLargeError) Error() string {
	return fmt.Sprintf("atlas: slot %d needs texture height %d, limit is %d", e.Slot, e.Height, e.MaxHeight)
}
