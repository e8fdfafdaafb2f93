package sdftext

import (
	"time"

	"github.com/gogpu/sdftext/atlas"
	"github.com/gogpu/sdftext/glyph"
	"github.com/gogpu/sdftext/typeset"
)

// RenderInfo is the result of a render. Every slice is owned by the
// RenderInfo; nothing else holds a reference to it. Treat it as read-only.
type RenderInfo struct {
	// RequestID identifies the render in logs.
	RequestID string `json:"requestId"`

	// Params is the normalized request.
	Params typeset.Params `json:"params"`

	// Atlas is the shared texture the glyph slots refer to. It keeps
	// growing as later requests add glyphs; TextureWidth and TextureHeight
	// give its size when this render finished.
	Atlas         *atlas.Atlas `json:"-"`
	AtlasKey      atlas.Key    `json:"atlasKey"`
	TextureWidth  int          `json:"textureWidth"`
	TextureHeight int          `json:"textureHeight"`

	SDFGlyphSize int     `json:"sdfGlyphSize"`
	SDFExponent  float64 `json:"sdfExponent"`
	SDFMargin    float64 `json:"sdfMargin"`

	// GlyphBounds holds four values per glyph: the render-space quad
	// minX, minY, maxX, maxY.
	GlyphBounds []float32 `json:"glyphBounds"`

	// GlyphAtlasIndices holds the atlas slot of each glyph, in the same
	// order as GlyphBounds.
	GlyphAtlasIndices []int `json:"glyphAtlasIndices"`

	// GlyphColors holds R, G, B per glyph when the request had colour
	// ranges.
	GlyphColors []uint8 `json:"glyphColors,omitempty"`

	CaretPositions []float64             `json:"caretPositions,omitempty"`
	CaretHeight    float64               `json:"caretHeight,omitempty"`
	ChunkedBounds  []typeset.ChunkBounds `json:"chunkedBounds,omitempty"`

	FontSize    float64 `json:"fontSize"`
	UnitsPerEm  float64 `json:"unitsPerEm"`
	Ascender    float64 `json:"ascender"`
	Descender   float64 `json:"descender"`
	LineHeight  float64 `json:"lineHeight"`
	TopBaseline float64 `json:"topBaseline"`

	BlockBounds   glyph.Rect `json:"blockBounds"`
	VisibleBounds glyph.Rect `json:"visibleBounds"`

	Timings Timings `json:"timings"`
}

// Timings is the per-phase breakdown of a render.
type Timings struct {
	FontLoad time.Duration `json:"fontLoad"`
	Typeset  time.Duration `json:"typeset"`
	Allocate time.Duration `json:"allocate"`

	// Rasterize covers dispatch to the last write of this request's own
	// glyphs; Wait covers glyphs owned by concurrent requests.
	Rasterize time.Duration `json:"rasterize"`
	Wait      time.Duration `json:"wait"`
	Total     time.Duration `json:"total"`

	// SDF holds the rasterization time of each glyph this request
	// rasterized.
	SDF map[glyph.ID]time.Duration `json:"sdf,omitempty"`
}

// Rasterized returns the number of glyphs this render rasterized.
func (t *Timings) Rasterized() int {
	return len(t.SDF)
}

// Glyphs returns the number of glyphs in the result.
func (ri *RenderInfo) Glyphs() int {
	return len(ri.GlyphAtlasIndices)
}

// Quad returns the render-space bounds of glyph i.
func (ri *RenderInfo) Quad(i int) glyph.Rect {
	b := ri.GlyphBounds[i*4 : i*4+4]
	return glyph.Rect{
		MinX: float64(b[0]),
		MinY: float64(b[1]),
		MaxX: float64(b[2]),
		MaxY: float64(b[3]),
	}
}
