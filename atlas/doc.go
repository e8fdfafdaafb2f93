// Package atlas stores signed distance fields of glyphs in a shared,
// growable, channel-packed texture.
//
// # Layout
//
// An [Atlas] owns one RGBA8 buffer whose width is fixed and whose height
// starts at one glyph cell and doubles when it runs out of room. The buffer
// is divided into GlyphSize×GlyphSize squares tiled left-to-right,
// top-to-bottom. Every square holds four glyphs, one per colour channel:
//
//	square  = slot / 4
//	channel = slot % 4
//
// Growth appends rows below the existing ones, so every byte already written
// keeps its offset and placed glyphs never move.
//
// # Deduplication
//
// [Atlas.AllocateSlot] is the single point where a glyph is admitted. It is
// atomic: however many requests race on the same glyph, exactly one [Entry]
// and one slot are created and exactly one caller is told to rasterize it.
// Slots are assigned in first-seen order and are never reused.
//
// A [Store] maps (font, glyph size) keys to atlases for the life of the
// process. Nothing is ever evicted.
package atlas
