// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpusink

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/sdftext/atlas"
)

// BytesPerPixel is the stride of the RGBA8 atlas format.
const BytesPerPixel = 4

// TextureFormat is the format every atlas texture uses. Each channel holds
// an independent glyph field, so the format must not be sRGB.
const TextureFormat = gputypes.TextureFormatRGBA8Unorm

// TextureUsage allows the texture to be written by uploads and sampled by
// the text shader.
const TextureUsage = gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding

// Descriptor returns the texture descriptor for the current size of a.
func Descriptor(a *atlas.Atlas) gputypes.TextureDescriptor {
	return descriptorFor(a.Key(), a.Width(), a.Height())
}

func descriptorFor(key atlas.Key, width, height int) gputypes.TextureDescriptor {
	return gputypes.TextureDescriptor{
		Label: "sdftext atlas " + key.String(),
		Size: gputypes.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        TextureFormat,
		Usage:         TextureUsage,
	}
}

// BytesPerRow returns the row pitch of an atlas texture of the given width.
func BytesPerRow(width int) uint32 {
	return uint32(width * BytesPerPixel)
}

// CheckLimits reports whether desc fits the device limits.
func CheckLimits(desc gputypes.TextureDescriptor, limits gputypes.Limits) error {
	limit := limits.MaxTextureDimension2D
	if desc.Size.Width > limit || desc.Size.Height > limit {
		return fmt.Errorf("%w: %dx%d exceeds %d",
			ErrExceedsLimits, desc.Size.Width, desc.Size.Height, limit)
	}
	return nil
}

// MaxAtlasHeight returns the tallest atlas a device with the given limits
// can hold, suitable for the atlas MaxHeight setting.
func MaxAtlasHeight(limits gputypes.Limits) int {
	return int(limits.MaxTextureDimension2D)
}
