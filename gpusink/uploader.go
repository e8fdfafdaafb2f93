// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpusink

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/sdftext/atlas"
)

// textureDestroyer is the interface for destroying textures.
// This matches the gogpu.Texture.Destroy signature.
type textureDestroyer interface {
	Destroy()
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithLimits sets the device limits checked before each texture creation.
// The default is gputypes.DefaultLimits.
func WithLimits(limits gputypes.Limits) Option {
	return func(u *Uploader) {
		u.limits = limits
	}
}

// Uploader keeps one GPU texture in step with one atlas.
//
// Uploader is safe for concurrent use. Sync holds the atlas lock while the
// pixels are handed to the GPU, so renders that write into the same atlas
// wait for the upload to finish.
type Uploader struct {
	creator gpucontext.TextureCreator
	limits  gputypes.Limits

	mu         sync.Mutex
	texture    gpucontext.Texture // Lazy-created texture
	oldTexture gpucontext.Texture // Previous texture awaiting deferred destruction
	closed     bool

	creates       atomic.Uint64
	fullUploads   atomic.Uint64
	regionUploads atomic.Uint64
	bytes         atomic.Uint64
}

// NewUploader creates an uploader that allocates textures through creator.
func NewUploader(creator gpucontext.TextureCreator, opts ...Option) *Uploader {
	u := &Uploader{
		creator: creator,
		limits:  gputypes.DefaultLimits(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Sync uploads the parts of a that changed since the previous call and
// returns the texture holding it.
//
// The texture is created on the first call. If the atlas grew, a new
// texture is created and the old one is kept until the next growth or
// Close, because in-flight command buffers may still sample it.
func (u *Uploader) Sync(a *atlas.Atlas) (gpucontext.Texture, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return nil, ErrUploaderClosed
	}
	if u.creator == nil {
		return nil, ErrNilCreator
	}
	if u.texture != nil && !a.Updated() {
		return u.texture, nil
	}

	err := a.Upload(func(data []byte, width, height int, dirty image.Rectangle) error {
		if u.texture != nil && (u.texture.Width() != width || u.texture.Height() != height) {
			u.retire()
		}
		if u.texture == nil {
			return u.create(a.Key(), data, width, height)
		}
		return u.update(data, width, height, dirty)
	})
	if err != nil {
		return nil, err
	}
	return u.texture, nil
}

// retire moves the current texture to the deferred slot, destroying the
// texture that was waiting there.
func (u *Uploader) retire() {
	destroy(u.oldTexture)
	u.oldTexture = u.texture
	u.texture = nil
}

func (u *Uploader) create(key atlas.Key, data []byte, width, height int) error {
	desc := descriptorFor(key, width, height)
	if err := CheckLimits(desc, u.limits); err != nil {
		return err
	}

	// The creator may keep the slice; data is the live atlas buffer.
	pixels := make([]byte, len(data))
	copy(pixels, data)

	tex, err := u.creator.NewTextureFromRGBA(width, height, pixels)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTextureCreationFailed, err)
	}
	u.texture = tex
	u.creates.Add(1)
	u.bytes.Add(uint64(len(pixels)))
	slogger().Debug("gpusink: texture created",
		"atlas", key.String(), "width", width, "height", height, "format", TextureFormat.String())
	return nil
}

func (u *Uploader) update(data []byte, width, height int, dirty image.Rectangle) error {
	dirty = dirty.Intersect(image.Rect(0, 0, width, height))
	if dirty.Empty() {
		return nil
	}

	if region, ok := u.texture.(gpucontext.TextureRegionUpdater); ok && dirty.Dy() < height {
		// Dirty bands span the full width, so their rows are contiguous.
		pitch := width * BytesPerPixel
		band := data[dirty.Min.Y*pitch : dirty.Max.Y*pitch]
		if err := region.UpdateRegion(0, dirty.Min.Y, width, dirty.Dy(), band); err != nil {
			return fmt.Errorf("gpusink: region update failed: %w", err)
		}
		u.regionUploads.Add(1)
		u.bytes.Add(uint64(len(band)))
		return nil
	}

	if updater, ok := u.texture.(gpucontext.TextureUpdater); ok {
		if err := updater.UpdateData(data); err != nil {
			return fmt.Errorf("gpusink: texture update failed: %w", err)
		}
		u.fullUploads.Add(1)
		u.bytes.Add(uint64(len(data)))
		return nil
	}
	return ErrNotUpdatable
}

// Texture returns the current texture without syncing, or nil before the
// first Sync.
func (u *Uploader) Texture() gpucontext.Texture {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.texture
}

// Stats holds upload counters.
type Stats struct {
	Creates       uint64
	FullUploads   uint64
	RegionUploads uint64
	Bytes         uint64
}

// Stats returns the upload counters.
func (u *Uploader) Stats() Stats {
	return Stats{
		Creates:       u.creates.Load(),
		FullUploads:   u.fullUploads.Load(),
		RegionUploads: u.regionUploads.Load(),
		Bytes:         u.bytes.Load(),
	}
}

// Close destroys the textures owned by the uploader.
// Close is idempotent - multiple calls are safe.
func (u *Uploader) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil
	}
	u.closed = true

	destroy(u.oldTexture)
	destroy(u.texture)
	u.oldTexture = nil
	u.texture = nil
	return nil
}

func destroy(tex gpucontext.Texture) {
	if tex == nil {
		return
	}
	if destroyer, ok := tex.(textureDestroyer); ok {
		destroyer.Destroy()
	}
}
