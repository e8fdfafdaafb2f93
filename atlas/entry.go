package atlas

import "github.com/gogpu/sdftext/glyph"

// Entry describes one glyph admitted to an atlas. The exported fields never
// change after the entry is created.
type Entry struct {
	// ID is the glyph index within the atlas font.
	ID glyph.ID

	// Path is the glyph outline in font units.
	Path glyph.Path

	// PathBounds is the outline bounding box in font units.
	PathBounds glyph.Rect

	// ViewBox is PathBounds expanded by the SDF margin. The distance field
	// covers exactly this rectangle.
	ViewBox glyph.Rect

	// MaxDistance is the margin in font units, used as the saturation
	// distance of the field.
	MaxDistance float64

	// Slot is the atlas slot, assigned in first-seen order.
	Slot int

	done chan struct{}
	err  error

	// released marks an entry nobody is rasterizing; guarded by the atlas
	// lock.
	released bool
}

// Empty reports whether the glyph has no visible area, in which case its
// slot is left blank instead of being rasterized.
func (e *Entry) Empty() bool {
	return e.PathBounds.IsEmpty() || e.Path.IsEmpty()
}

// Done is closed once the slot has been written or has failed.
func (e *Entry) Done() <-chan struct{} {
	return e.done
}

// Err returns the rasterization failure, if any. Only meaningful after Done
// is closed.
func (e *Entry) Err() error {
	select {
	case <-e.done:
		return e.err
	default:
		return nil
	}
}

// Ready reports whether the slot holds its distance field.
func (e *Entry) Ready() bool {
	select {
	case <-e.done:
		return e.err == nil
	default:
		return false
	}
}

// Wait blocks until the entry is resolved and returns its error.
func (e *Entry) Wait() error {
	<-e.done
	return e.err
}

// resolve marks the entry done. It must be called with the atlas lock held.
func (e *Entry) resolve(err error) bool {
	select {
	case <-e.done:
		return false
	default:
		e.err = err
		close(e.done)
		return true
	}
}
