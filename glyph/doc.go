// Package glyph holds the geometry shared by the typesetter, the SDF
// rasterizer and the atlas: glyph identifiers, points, rectangles and
// outline paths in font units.
//
// Font units are y-up, as stored in the font. Nothing in this package
// scales or flips coordinates implicitly.
package glyph
