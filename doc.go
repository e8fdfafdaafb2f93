// Package sdftext renders text as quads over shared signed distance field
// glyph atlases.
//
// # Overview
//
// A render takes a Request (text, font, size, layout and colour options),
// typesets it, and returns a RenderInfo: one render-space quad and one atlas
// slot per visible glyph, plus font metrics and layout bounds. The quads
// are sampled from an atlas texture that holds one SDF per distinct glyph.
//
// Atlases are keyed by font URL and SDF glyph size and live as long as the
// Renderer. A glyph is rasterized the first time any request needs it;
// every later request, including one running at the same time, reuses the
// slot. Rasterization runs on a small pool of worker lanes that start on
// demand and stop after a period without work.
//
// # Quick Start
//
//	r := sdftext.NewRenderer()
//	defer r.Close()
//
//	info, err := r.Render(ctx, sdftext.Request{
//	    Text:     "Hello, world",
//	    FontSize: 0.2,
//	    Color:    "#ff8800",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for i := range info.Glyphs() {
//	    quad := info.Quad(i)
//	    slot := info.GlyphAtlasIndices[i]
//	    // draw quad, sampling slot from info.Atlas
//	}
//
// # Configuration
//
// The Registry holds the glyph size, margin, exponent, texture width and
// worker settings. It can be changed with Configure until the first render;
// after that Configure is ignored and returns ErrConfigFrozen.
//
//	r := sdftext.NewRenderer()
//	r.Registry().Configure(
//	    sdftext.WithSDFGlyphSize(32),
//	    sdftext.WithTextureWidth(1024),
//	)
//
// # Atlas Layout
//
// Each atlas texture is RGBA8 with a fixed width. Four glyph fields share
// one GlyphSize square, one per channel: slot s lives in square s/4,
// channel s%4. Squares fill rows left to right, top to bottom. When a slot
// falls past the end the texture height doubles; existing bytes keep their
// offsets. See package atlas, and package gpusink for uploading.
//
// # Coordinate System
//
// Layout and quads use Y up, matching font units:
//   - The anchor point is at the origin
//   - X increases right
//   - Y increases up; lines advance towards negative Y
package sdftext

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
