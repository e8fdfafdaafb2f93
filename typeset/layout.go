package typeset

import (
	"context"
	"time"

	"github.com/gogpu/sdftext/glyph"
)

// ChunkSize is the number of glyphs per entry in Layout.ChunkedBounds.
const ChunkSize = 128

// GlyphData is the outline of one distinct glyph.
type GlyphData struct {
	// Path is in font units, Y up.
	Path glyph.Path

	// PathBounds is the bounding box of Path in font units.
	PathBounds glyph.Rect
}

// ChunkBounds covers glyphs [Start, End) of the layout.
type ChunkBounds struct {
	Start int
	End   int
	Rect  glyph.Rect
}

// Layout is the output of a Typesetter.
type Layout struct {
	// GlyphIDs lists visible glyphs in display order. A glyph used twice
	// appears twice.
	GlyphIDs []glyph.ID

	// GlyphPositions holds the pen position of each glyph, aligned 1:1 with
	// GlyphIDs, in render units.
	GlyphPositions []glyph.Point

	// GlyphData has one entry per distinct glyph ID.
	GlyphData map[glyph.ID]GlyphData

	FontSize   float64
	UnitsPerEm float64

	// Ascender, Descender and LineHeight are in render units.
	Ascender   float64
	Descender  float64
	LineHeight float64

	// TopBaseline is the Y of the first baseline.
	TopBaseline float64

	// CaretPositions and CaretHeight are left empty by Shaper.
	CaretPositions []float64
	CaretHeight    float64

	ChunkedBounds []ChunkBounds

	// BlockBounds is the layout box: lines stacked at the line height, as
	// wide as the widest line.
	BlockBounds glyph.Rect

	// VisibleBounds covers the outlines that were actually placed.
	VisibleBounds glyph.Rect

	// GlyphColors holds three bytes (R, G, B) per glyph when the request had
	// colour ranges, otherwise nil.
	GlyphColors []uint8

	// FontLoad is the time spent resolving the font, Duration the total.
	FontLoad time.Duration
	Duration time.Duration
}

// Typesetter lays out text.
type Typesetter interface {
	Typeset(ctx context.Context, params Params) (*Layout, error)
}

// TypesetterFunc adapts a function to the Typesetter interface.
type TypesetterFunc func(ctx context.Context, params Params) (*Layout, error)

// Typeset calls f(ctx, params).
func (f TypesetterFunc) Typeset(ctx context.Context, params Params) (*Layout, error) {
	return f(ctx, params)
}
