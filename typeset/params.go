package typeset

import (
	"errors"
	"fmt"
	"sort"
)

// DefaultFontSize is the em size in render units when none is given.
const DefaultFontSize = 0.1

// Align is the horizontal alignment of lines within the text block.
type Align uint8

const (
	// AlignLeft aligns lines to the left edge of the block.
	AlignLeft Align = iota
	// AlignCenter centers lines within the block.
	AlignCenter
	// AlignRight aligns lines to the right edge of the block.
	AlignRight
)

// String returns the CSS-style name of the alignment.
func (a Align) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	default:
		return fmt.Sprintf("Align(%d)", a)
	}
}

// ParseAlign parses "left", "center" or "right".
func ParseAlign(s string) (Align, error) {
	switch s {
	case "", "left":
		return AlignLeft, nil
	case "center":
		return AlignCenter, nil
	case "right":
		return AlignRight, nil
	}
	return AlignLeft, fmt.Errorf("typeset: unknown text align %q", s)
}

// AnchorX selects which horizontal point of the block sits at the origin.
type AnchorX uint8

const (
	AnchorLeft AnchorX = iota
	AnchorCenter
	AnchorRight
)

// ParseAnchorX parses "left", "center" or "right".
func ParseAnchorX(s string) (AnchorX, error) {
	switch s {
	case "", "left":
		return AnchorLeft, nil
	case "center":
		return AnchorCenter, nil
	case "right":
		return AnchorRight, nil
	}
	return AnchorLeft, fmt.Errorf("typeset: unknown anchor x %q", s)
}

// AnchorY selects which vertical point of the block sits at the origin.
type AnchorY uint8

const (
	AnchorTop AnchorY = iota
	AnchorTopBaseline
	AnchorMiddle
	AnchorBottomBaseline
	AnchorBottom
)

// ParseAnchorY parses "top", "top-baseline", "middle", "bottom-baseline"
// or "bottom".
func ParseAnchorY(s string) (AnchorY, error) {
	switch s {
	case "", "top":
		return AnchorTop, nil
	case "top-baseline":
		return AnchorTopBaseline, nil
	case "middle":
		return AnchorMiddle, nil
	case "bottom-baseline":
		return AnchorBottomBaseline, nil
	case "bottom":
		return AnchorBottom, nil
	}
	return AnchorTop, fmt.Errorf("typeset: unknown anchor y %q", s)
}

// Direction is the base paragraph direction.
type Direction uint8

const (
	// DirectionAuto derives the direction from the first strong character.
	DirectionAuto Direction = iota
	DirectionLTR
	DirectionRTL
)

// ParseDirection parses "auto", "ltr" or "rtl".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "auto":
		return DirectionAuto, nil
	case "ltr":
		return DirectionLTR, nil
	case "rtl":
		return DirectionRTL, nil
	}
	return DirectionAuto, fmt.Errorf("typeset: unknown direction %q", s)
}

// ColorRange colours every character from Start (a rune index) up to the
// next range.
type ColorRange struct {
	Start int    `json:"start"`
	Color uint32 `json:"color"`
}

// Params is a normalized render request. A Params value is treated as
// immutable once built; use Clone before handing out a copy that may be
// modified.
type Params struct {
	// FontURL is the absolute font location, or a builtin: name.
	FontURL string `json:"fontUrl"`

	// Text is the literal string to lay out.
	Text string `json:"text"`

	// FontSize is the em size in render units.
	FontSize float64 `json:"fontSize"`

	// SDFGlyphSize is the atlas cell size for this request.
	SDFGlyphSize int `json:"sdfGlyphSize"`

	// LetterSpacing is extra space after each glyph, in ems.
	LetterSpacing float64 `json:"letterSpacing"`

	// LineHeight is the line advance in ems. Zero uses the font's normal
	// line height.
	LineHeight float64 `json:"lineHeight"`

	// MaxWidth wraps lines at whitespace when positive. Render units.
	MaxWidth float64 `json:"maxWidth"`

	TextAlign Align     `json:"textAlign"`
	AnchorX   AnchorX   `json:"anchorX"`
	AnchorY   AnchorY   `json:"anchorY"`
	Direction Direction `json:"direction"`

	// Color is the 0xRRGGBB colour of characters not covered by a range.
	Color uint32 `json:"color"`

	// ColorRanges are sorted by Start.
	ColorRanges []ColorRange `json:"colorRanges,omitempty"`
}

// ErrInvalidParams wraps all parameter validation failures.
var ErrInvalidParams = errors.New("typeset: invalid params")

// Validate checks the numeric fields.
func (p *Params) Validate() error {
	if !(p.FontSize > 0) {
		return fmt.Errorf("%w: FontSize must be positive", ErrInvalidParams)
	}
	if p.SDFGlyphSize < 1 {
		return fmt.Errorf("%w: SDFGlyphSize must be positive", ErrInvalidParams)
	}
	if p.LineHeight < 0 {
		return fmt.Errorf("%w: LineHeight must be non-negative", ErrInvalidParams)
	}
	if p.MaxWidth < 0 {
		return fmt.Errorf("%w: MaxWidth must be non-negative", ErrInvalidParams)
	}
	if p.Color > 0xFFFFFF {
		return fmt.Errorf("%w: Color must fit in 24 bits", ErrInvalidParams)
	}
	for _, r := range p.ColorRanges {
		if r.Start < 0 {
			return fmt.Errorf("%w: colour range start %d is negative", ErrInvalidParams, r.Start)
		}
		if r.Color > 0xFFFFFF {
			return fmt.Errorf("%w: colour range at %d does not fit in 24 bits", ErrInvalidParams, r.Start)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (p Params) Clone() Params {
	if p.ColorRanges != nil {
		p.ColorRanges = append([]ColorRange(nil), p.ColorRanges...)
	}
	return p
}

// SortColorRanges orders ranges by Start. Later duplicates win.
func SortColorRanges(ranges []ColorRange) []ColorRange {
	sort.SliceStable(ranges, func(i, j int) bool {
		return ranges[i].Start < ranges[j].Start
	})
	out := ranges[:0]
	for _, r := range ranges {
		if n := len(out); n > 0 && out[n-1].Start == r.Start {
			out[n-1] = r
			continue
		}
		out = append(out, r)
	}
	return out
}

// colorAt returns the colour of the character at rune index i.
func (p *Params) colorAt(i int) uint32 {
	c := p.Color
	for _, r := range p.ColorRanges {
		if r.Start > i {
			break
		}
		c = r.Color
	}
	return c
}
