// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpusink

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/sdftext/atlas"
)

// SamplerWGSL is a fragment shader that samples one packed glyph field.
// Bindings: 0 texture, 1 sampler, 2 uniform {glyph_size, texture_width,
// texture_height, pad}.
//
//go:embed shaders/atlas_sample.wgsl
var SamplerWGSL string

// CompileSampler compiles SamplerWGSL to SPIR-V words.
func CompileSampler() ([]uint32, error) {
	spirvBytes, err := naga.Compile(SamplerWGSL)
	if err != nil {
		return nil, fmt.Errorf("gpusink: failed to compile sampler shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return spirvCode, nil
}

// SlotUV returns the normalized texture rectangle and channel of slot, the
// same values the shader computes for local_uv 0 and 1.
func SlotUV(slot, glyphSize, width, height int) (u0, v0, u1, v1 float32, channel int) {
	x, y, channel := atlas.Address(slot, glyphSize, width)
	fw, fh := float32(width), float32(height)
	u0 = (float32(x) + 0.5) / fw
	v0 = (float32(y) + 0.5) / fh
	u1 = (float32(x+glyphSize) - 0.5) / fw
	v1 = (float32(y+glyphSize) - 0.5) / fh
	return u0, v0, u1, v1, channel
}
