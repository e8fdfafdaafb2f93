// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gpusink moves SDF atlases onto the GPU.
//
// An atlas is a CPU-side RGBA8 buffer that grows by doubling its height.
// [Uploader] mirrors it into a GPU texture obtained from a
// [gpucontext.TextureCreator]: the texture is created lazily on the first
// [Uploader.Sync], updated in place while the atlas keeps its size, and
// recreated after growth. Only the rows written since the previous sync are
// sent when the texture supports [gpucontext.TextureRegionUpdater].
//
// [Descriptor] reports the texture the atlas needs in [gputypes] terms so
// callers driving a WebGPU device directly can allocate it themselves.
//
// The embedded WGSL module decodes a slot index into texture coordinates
// and a channel, matching the packing performed by package atlas:
//
//	square  = slot / 4
//	channel = slot % 4
//	x       = (square % (width / glyphSize)) * glyphSize
//	y       = (square / (width / glyphSize)) * glyphSize
//
// # Integration
//
//	u := gpusink.NewUploader(drawer.TextureCreator())
//	defer u.Close()
//
//	info, _ := renderer.Render(ctx, req)
//	tex, err := u.Sync(renderer.Atlas(info.AtlasKey))
//	if err != nil {
//	    return err
//	}
//	// bind tex and draw info.GlyphBounds as quads
package gpusink
