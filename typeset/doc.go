// Package typeset turns a string and a font into positioned glyphs.
//
// A [Typesetter] receives normalized [Params] and returns a [Layout]: one
// glyph ID and pen position per visible glyph in display order, the outline
// and bounds of every distinct glyph, font metrics and block bounds. The
// default implementation, [Shaper], shapes with go-text/typesetting, orders
// mixed-direction lines with the Unicode bidi algorithm and breaks lines
// greedily at whitespace.
//
// Coordinates follow the font convention: Y grows up, the first baseline
// sits below the anchor and each further line moves down by the line
// height. Glyph positions and bounds are in render units, that is font
// units multiplied by FontSize/UnitsPerEm. Glyph outlines stay in font
// units.
//
// Fonts are resolved by a [FontLoader]. Loading never fails from the
// caller's point of view: a font that cannot be fetched or parsed is
// replaced by the default font and a warning is logged.
package typeset
