// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpusink

import "errors"

var (
	// ErrUploaderClosed is returned when Sync is called after Close.
	ErrUploaderClosed = errors.New("gpusink: uploader is closed")

	// ErrNilCreator is returned when an uploader has no texture creator.
	ErrNilCreator = errors.New("gpusink: nil TextureCreator")

	// ErrExceedsLimits is returned when the atlas is larger than the device
	// allows for a 2D texture.
	ErrExceedsLimits = errors.New("gpusink: texture exceeds device limits")

	// ErrTextureCreationFailed is returned when texture creation fails.
	ErrTextureCreationFailed = errors.New("gpusink: texture creation failed")

	// ErrNotUpdatable is returned when the texture accepts neither full nor
	// region updates.
	ErrNotUpdatable = errors.New("gpusink: texture cannot be updated")
)
