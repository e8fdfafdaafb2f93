package atlas

import (
	"image"
	"sync"
	"sync/atomic"

	"github.com/gogpu/sdftext/glyph"
)

// bytesPerPixel is the RGBA8 stride.
const bytesPerPixel = 4

// Atlas is one channel-packed SDF texture together with the glyph cache
// that indexes it.
//
// Thread safety: Atlas is safe for concurrent use.
type Atlas struct {
	key    Key
	config Config

	mu sync.Mutex

	// entries maps glyph IDs to their entries; slots maps slot indices back.
	entries map[glyph.ID]*Entry
	slots   []*Entry

	// data is the RGBA8 pixel buffer, TextureWidth wide and height tall.
	data   []byte
	height int

	// updated marks if the texture needs to be uploaded again. dirty holds
	// the rows written since the last upload.
	updated bool
	dirty   image.Rectangle

	// Statistics (atomic for lock-free reads)
	hits   atomic.Uint64
	misses atomic.Uint64
	grows  atomic.Uint64
}

// New creates an empty atlas one glyph cell tall.
func New(key Key, config Config) (*Atlas, error) {
	config.GlyphSize = key.GlyphSize
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Atlas{
		key:     key,
		config:  config,
		entries: make(map[glyph.ID]*Entry),
		data:    make([]byte, config.TextureWidth*config.GlyphSize*bytesPerPixel),
		height:  config.GlyphSize,
	}, nil
}

// Key returns the key the atlas was created for.
func (a *Atlas) Key() Key {
	return a.key
}

// Config returns the atlas configuration.
func (a *Atlas) Config() Config {
	return a.config
}

// AllocateSlot admits a glyph. If the glyph is already known its entry is
// returned with created=false and nothing else happens. Otherwise a new
// entry takes the next slot and created=true tells the caller it owns the
// rasterization of that slot.
func (a *Atlas) AllocateSlot(id glyph.ID, path glyph.Path, bounds glyph.Rect) (entry *Entry, created bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e, ok := a.entries[id]; ok {
		if e.released {
			e.released = false
			a.misses.Add(1)
			return e, true
		}
		a.hits.Add(1)
		return e, false
	}
	a.misses.Add(1)

	// The extra half texel keeps the outermost ring, which holds no useful
	// interpolated value, out of the margin.
	g := float64(a.config.GlyphSize)
	margin := max(bounds.Width(), bounds.Height()) / g * (a.config.Margin*g + 0.5)

	e := &Entry{
		ID:          id,
		Path:        path,
		PathBounds:  bounds,
		ViewBox:     bounds.Expand(margin),
		MaxDistance: margin,
		Slot:        len(a.slots),
		done:        make(chan struct{}),
	}
	a.entries[id] = e
	a.slots = append(a.slots, e)
	return e, true
}

// Lookup returns the entry for a glyph without allocating.
func (a *Atlas) Lookup(id glyph.ID) (*Entry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[id]
	return e, ok
}

// SlotCount returns the number of allocated slots (the next free index).
func (a *Atlas) SlotCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.slots)
}

// Capacity returns the number of slots the current texture can hold.
func (a *Atlas) Capacity() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.config.capacity(a.height)
}

// Width returns the texture width in pixels.
func (a *Atlas) Width() int {
	return a.config.TextureWidth
}

// Height returns the current texture height in pixels.
func (a *Atlas) Height() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.height
}

// WriteSlot stores a GlyphSize×GlyphSize single-channel block into the
// slot's channel, growing the texture first if the slot lies beyond it.
// The slot's entry becomes ready and the atlas is marked updated.
func (a *Atlas) WriteSlot(slot int, pixels []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if slot < 0 || slot >= len(a.slots) {
		return ErrSlotOutOfRange
	}
	g := a.config.GlyphSize
	if len(pixels) != g*g {
		return ErrPixelSize
	}
	if err := a.ensureCapacity(slot + 1); err != nil {
		return err
	}

	x0, y0, channel := Address(slot, g, a.config.TextureWidth)
	stride := a.config.TextureWidth * bytesPerPixel
	for y := range g {
		row := (y0+y)*stride + x0*bytesPerPixel + channel
		src := pixels[y*g : (y+1)*g]
		for x, v := range src {
			a.data[row+x*bytesPerPixel] = v
		}
	}

	a.markDirty(image.Rect(0, y0, a.config.TextureWidth, y0+g))
	a.slots[slot].resolve(nil)
	return nil
}

// markDirty records rows to re-upload. Must be called with a.mu held.
func (a *Atlas) markDirty(r image.Rectangle) {
	a.updated = true
	a.dirty = a.dirty.Union(r)
}

// FailSlot records that the slot could not be rasterized. Requests waiting
// on the entry observe err.
func (a *Atlas) FailSlot(slot int, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if slot >= 0 && slot < len(a.slots) {
		a.slots[slot].resolve(err)
	}
}

// ReleaseSlot gives up ownership of a slot whose rasterization did not
// happen for reasons unrelated to the glyph. Requests already waiting on the
// entry observe err. The slot keeps its index and view box, but the entry is
// replaced so that the next AllocateSlot for the glyph returns created=true
// and rasterizes it again. A slot that already holds its distance field is
// left alone.
func (a *Atlas) ReleaseSlot(slot int, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if slot < 0 || slot >= len(a.slots) {
		return
	}
	old := a.slots[slot]
	if old.Ready() {
		return
	}
	old.resolve(err)

	e := &Entry{
		ID:          old.ID,
		Path:        old.Path,
		PathBounds:  old.PathBounds,
		ViewBox:     old.ViewBox,
		MaxDistance: old.MaxDistance,
		Slot:        old.Slot,
		done:        make(chan struct{}),
		released:    true,
	}
	a.slots[slot] = e
	a.entries[old.ID] = e
}

// ReadSlot returns a copy of the single-channel block stored for slot.
// Slots beyond the current texture read as zero.
func (a *Atlas) ReadSlot(slot int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if slot < 0 || slot >= len(a.slots) {
		return nil, ErrSlotOutOfRange
	}
	g := a.config.GlyphSize
	out := make([]byte, g*g)
	if slot >= a.config.capacity(a.height) {
		return out, nil
	}

	x0, y0, channel := Address(slot, g, a.config.TextureWidth)
	stride := a.config.TextureWidth * bytesPerPixel
	for y := range g {
		row := (y0+y)*stride + x0*bytesPerPixel + channel
		for x := range g {
			out[y*g+x] = a.data[row+x*bytesPerPixel]
		}
	}
	return out, nil
}

// EnsureCapacity grows the texture until it holds at least slots slots.
func (a *Atlas) EnsureCapacity(slots int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ensureCapacity(slots)
}

// ensureCapacity doubles the texture height until capacity reaches slots.
// The new buffer is allocated and the old bytes copied to the same offsets;
// the old buffer is never resized in place. Must be called with a.mu held.
func (a *Atlas) ensureCapacity(slots int) error {
	height := a.height
	for a.config.capacity(height) < slots {
		height *= 2
	}
	if height == a.height {
		return nil
	}
	if a.config.MaxHeight > 0 && height > a.config.MaxHeight {
		return &TextureTooLargeError{Slot: slots - 1, Height: height, MaxHeight: a.config.MaxHeight}
	}

	grown := make([]byte, a.config.TextureWidth*height*bytesPerPixel)
	copy(grown, a.data)
	a.data = grown
	a.height = height
	a.markDirty(image.Rect(0, 0, a.config.TextureWidth, height))
	a.grows.Add(1)
	return nil
}

// Updated reports whether the texture changed since the last MarkClean.
func (a *Atlas) Updated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.updated
}

// MarkClean clears the updated flag, typically after a GPU upload.
func (a *Atlas) MarkClean() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.updated = false
	a.dirty = image.Rectangle{}
}

// Dirty returns the full-width band of rows changed since the last upload.
func (a *Atlas) Dirty() image.Rectangle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dirty
}

// Upload calls fn with the live texture buffer and the dirty band while
// holding the atlas lock, then clears the updated flag if fn succeeds.
// fn must not retain data after returning.
func (a *Atlas) Upload(fn func(data []byte, width, height int, dirty image.Rectangle) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := fn(a.data, a.config.TextureWidth, a.height, a.dirty); err != nil {
		return err
	}
	a.updated = false
	a.dirty = image.Rectangle{}
	return nil
}

// Image returns a copy of the texture as an RGBA image.
func (a *Atlas) Image() *image.RGBA {
	a.mu.Lock()
	defer a.mu.Unlock()
	img := image.NewRGBA(image.Rect(0, 0, a.config.TextureWidth, a.height))
	copy(img.Pix, a.data)
	return img
}

// Stats describes the state of one atlas.
type Stats struct {
	Key         Key
	Glyphs      int
	Capacity    int
	Width       int
	Height      int
	Hits        uint64
	Misses      uint64
	Grows       uint64
	Updated     bool
	MemoryBytes int
}

// Stats returns a snapshot of the atlas statistics.
func (a *Atlas) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{
		Key:         a.key,
		Glyphs:      len(a.slots),
		Capacity:    a.config.capacity(a.height),
		Width:       a.config.TextureWidth,
		Height:      a.height,
		Hits:        a.hits.Load(),
		Misses:      a.misses.Load(),
		Grows:       a.grows.Load(),
		Updated:     a.updated,
		MemoryBytes: len(a.data),
	}
}
