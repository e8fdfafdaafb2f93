// Package sdf rasterizes glyph outlines into single-channel signed distance
// fields.
//
// A [Task] describes one glyph: its outline in font units, the view box that
// is mapped onto a GlyphSize×GlyphSize grid, the distance (in font units) at
// which the field saturates, and the exponent of the encoding curve.
// [Generate] is a pure function of the task, which is what allows the atlas
// to rasterize a glyph shape at most once and reuse the bytes forever.
//
// # Encoding
//
// For a pixel whose centre lies at distance d from the nearest outline edge:
//
//	v = (1 - min(d, maxDistance)/maxDistance)^exponent / 2
//
// Outside the shape the byte is round(v*255); inside it is round((1-v)*255).
// The outline edge therefore sits at 127.5 and the field falls off
// non-linearly, keeping more precision close to the edge.
//
// Row 0 of the output corresponds to ViewBox.MinY.
package sdf
