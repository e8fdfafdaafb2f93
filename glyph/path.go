package glyph

// SegmentOp is the type of path operation.
type SegmentOp uint8

const (
	// MoveTo starts a new contour without drawing.
	MoveTo SegmentOp = iota

	// LineTo draws a line to the target point.
	LineTo

	// QuadTo draws a quadratic bezier curve.
	QuadTo

	// CubicTo draws a cubic bezier curve.
	CubicTo
)

// String returns a string representation of the operation.
func (op SegmentOp) String() string {
	switch op {
	case MoveTo:
		return "MoveTo"
	case LineTo:
		return "LineTo"
	case QuadTo:
		return "QuadTo"
	case CubicTo:
		return "CubicTo"
	default:
		return "Unknown"
	}
}

// PointCount returns how many entries of Segment.Points the op uses.
func (op SegmentOp) PointCount() int {
	switch op {
	case QuadTo:
		return 2
	case CubicTo:
		return 3
	default:
		return 1
	}
}

// Segment is one operation of a glyph outline.
//
//   - MoveTo, LineTo: Points[0] is the target point
//   - QuadTo: Points[0] is the control, Points[1] the target
//   - CubicTo: Points[0], Points[1] are controls, Points[2] the target
type Segment struct {
	Op     SegmentOp
	Points [3]Point
}

// End returns the point the segment finishes on.
func (s Segment) End() Point {
	return s.Points[s.Op.PointCount()-1]
}

// Path is a glyph outline in font units. Contours are implicitly closed.
// A Path is treated as immutable once handed to the atlas.
type Path []Segment

// IsEmpty returns true if the path draws nothing.
func (p Path) IsEmpty() bool {
	for _, s := range p {
		if s.Op != MoveTo {
			return false
		}
	}
	return true
}

// Bounds returns the bounding box of every point in the path, control
// points included. An empty path has the zero Rect as bounds.
func (p Path) Bounds() Rect {
	var acc BoundsAccumulator
	for _, s := range p {
		for i := range s.Op.PointCount() {
			acc.Add(s.Points[i])
		}
	}
	return acc.Bounds()
}

// Builder accumulates a Path.
type Builder struct {
	path Path
}

// MoveTo starts a new contour at (x, y).
func (b *Builder) MoveTo(x, y float64) *Builder {
	b.path = append(b.path, Segment{Op: MoveTo, Points: [3]Point{{x, y}}})
	return b
}

// LineTo adds a line to (x, y).
func (b *Builder) LineTo(x, y float64) *Builder {
	b.path = append(b.path, Segment{Op: LineTo, Points: [3]Point{{x, y}}})
	return b
}

// QuadTo adds a quadratic curve through control (cx, cy) to (x, y).
func (b *Builder) QuadTo(cx, cy, x, y float64) *Builder {
	b.path = append(b.path, Segment{Op: QuadTo, Points: [3]Point{{cx, cy}, {x, y}}})
	return b
}

// CubicTo adds a cubic curve to (x, y).
func (b *Builder) CubicTo(c1x, c1y, c2x, c2y, x, y float64) *Builder {
	b.path = append(b.path, Segment{Op: CubicTo, Points: [3]Point{{c1x, c1y}, {c2x, c2y}, {x, y}}})
	return b
}

// Rect adds a closed rectangular contour.
func (b *Builder) Rect(r Rect) *Builder {
	return b.MoveTo(r.MinX, r.MinY).
		LineTo(r.MaxX, r.MinY).
		LineTo(r.MaxX, r.MaxY).
		LineTo(r.MinX, r.MaxY)
}

// Path returns the accumulated path.
func (b *Builder) Path() Path {
	return b.path
}
