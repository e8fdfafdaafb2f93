package glyph

import "math"

// ID is a glyph index within a font.
type ID uint32

// Point represents a 2D point with float64 precision.
type Point struct {
	X, Y float64
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{p.X - q.X, p.Y - q.Y}
}

// Mul returns p * scalar.
func (p Point) Mul(s float64) Point {
	return Point{p.X * s, p.Y * s}
}

// Dot returns the dot product of p and q.
func (p Point) Dot(q Point) float64 {
	return p.X*q.X + p.Y*q.Y
}

// Lerp returns linear interpolation between p and q: p + t*(q-p).
func (p Point) Lerp(q Point, t float64) Point {
	return Point{
		p.X + t*(q.X-p.X),
		p.Y + t*(q.Y-p.Y),
	}
}

// Rect represents an axis-aligned rectangle.
// The zero Rect is the degenerate empty rectangle at the origin.
type Rect struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Width returns the width of the rectangle.
func (r Rect) Width() float64 {
	return r.MaxX - r.MinX
}

// Height returns the height of the rectangle.
func (r Rect) Height() float64 {
	return r.MaxY - r.MinY
}

// IsEmpty returns true if the rectangle has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.MinX >= r.MaxX || r.MinY >= r.MaxY
}

// Expand returns a rectangle expanded by the given margin on all sides.
func (r Rect) Expand(margin float64) Rect {
	return Rect{
		MinX: r.MinX - margin,
		MinY: r.MinY - margin,
		MaxX: r.MaxX + margin,
		MaxY: r.MaxY + margin,
	}
}

// Union returns the smallest rectangle containing both r and s.
func (r Rect) Union(s Rect) Rect {
	return Rect{
		MinX: min(r.MinX, s.MinX),
		MinY: min(r.MinY, s.MinY),
		MaxX: max(r.MaxX, s.MaxX),
		MaxY: max(r.MaxY, s.MaxY),
	}
}

// Scale returns r with every coordinate multiplied by s.
func (r Rect) Scale(s float64) Rect {
	return Rect{MinX: r.MinX * s, MinY: r.MinY * s, MaxX: r.MaxX * s, MaxY: r.MaxY * s}
}

// Translate returns r moved by (dx, dy).
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{MinX: r.MinX + dx, MinY: r.MinY + dy, MaxX: r.MaxX + dx, MaxY: r.MaxY + dy}
}

// Array returns the rectangle as [minX, minY, maxX, maxY].
func (r Rect) Array() [4]float64 {
	return [4]float64{r.MinX, r.MinY, r.MaxX, r.MaxY}
}

// emptyBounds is the seed used when accumulating bounds over points.
var emptyBounds = Rect{
	MinX: math.Inf(1), MinY: math.Inf(1),
	MaxX: math.Inf(-1), MaxY: math.Inf(-1),
}

// BoundsAccumulator grows a rectangle to cover every point it is given.
// The zero value is ready to use.
type BoundsAccumulator struct {
	r   Rect
	set bool
}

// Add extends the bounds to include p.
func (b *BoundsAccumulator) Add(p Point) {
	if !b.set {
		b.r = emptyBounds
		b.set = true
	}
	b.r.MinX = min(b.r.MinX, p.X)
	b.r.MinY = min(b.r.MinY, p.Y)
	b.r.MaxX = max(b.r.MaxX, p.X)
	b.r.MaxY = max(b.r.MaxY, p.Y)
}

// AddRect extends the bounds to include r.
func (b *BoundsAccumulator) AddRect(r Rect) {
	b.Add(Point{r.MinX, r.MinY})
	b.Add(Point{r.MaxX, r.MaxY})
}

// Bounds returns the accumulated rectangle, or the zero Rect if nothing was added.
func (b *BoundsAccumulator) Bounds() Rect {
	if !b.set {
		return Rect{}
	}
	return b.r
}
