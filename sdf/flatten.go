package sdf

import (
	"math"

	"github.com/gogpu/sdftext/glyph"
)

// maxSubdivisions caps the number of lines a single curve is split into.
const maxSubdivisions = 64

// line is a flattened outline edge.
type line struct {
	a, b glyph.Point
}

// flatten converts a path into closed polylines. Curves are subdivided
// until the chord error is below tolerance (font units).
func flatten(path glyph.Path, tolerance float64) []line {
	lines := make([]line, 0, len(path)*2)

	var start, cur glyph.Point
	open := false

	closeContour := func() {
		if open && cur != start {
			lines = append(lines, line{cur, start})
		}
		open = false
	}

	for _, seg := range path {
		switch seg.Op {
		case glyph.MoveTo:
			closeContour()
			start = seg.Points[0]
			cur = start
			open = true

		case glyph.LineTo:
			if !open {
				start, open = cur, true
			}
			lines = append(lines, line{cur, seg.Points[0]})
			cur = seg.Points[0]

		case glyph.QuadTo:
			if !open {
				start, open = cur, true
			}
			p0, p1, p2 := cur, seg.Points[0], seg.Points[1]
			dd := p0.Sub(p1.Mul(2)).Add(p2)
			n := subdivisions(math.Hypot(dd.X, dd.Y)/8, tolerance)
			prev := p0
			for i := 1; i <= n; i++ {
				t := float64(i) / float64(n)
				next := evaluateQuadratic(p0, p1, p2, t)
				lines = append(lines, line{prev, next})
				prev = next
			}
			cur = p2

		case glyph.CubicTo:
			if !open {
				start, open = cur, true
			}
			p0, p1, p2, p3 := cur, seg.Points[0], seg.Points[1], seg.Points[2]
			d1 := p0.Sub(p1.Mul(2)).Add(p2)
			d2 := p1.Sub(p2.Mul(2)).Add(p3)
			dd := max(math.Hypot(d1.X, d1.Y), math.Hypot(d2.X, d2.Y))
			n := subdivisions(dd*3/4, tolerance)
			prev := p0
			for i := 1; i <= n; i++ {
				t := float64(i) / float64(n)
				next := evaluateCubic(p0, p1, p2, p3, t)
				lines = append(lines, line{prev, next})
				prev = next
			}
			cur = p3
		}
	}
	closeContour()

	return lines
}

// subdivisions returns n such that err/n² <= tolerance.
func subdivisions(err, tolerance float64) int {
	if tolerance <= 0 || err <= tolerance {
		return 1
	}
	n := int(math.Ceil(math.Sqrt(err / tolerance)))
	return min(max(n, 1), maxSubdivisions)
}

// evaluateQuadratic evaluates a quadratic bezier at t.
func evaluateQuadratic(p0, p1, p2 glyph.Point, t float64) glyph.Point {
	mt := 1 - t
	return glyph.Point{
		X: mt*mt*p0.X + 2*mt*t*p1.X + t*t*p2.X,
		Y: mt*mt*p0.Y + 2*mt*t*p1.Y + t*t*p2.Y,
	}
}

// evaluateCubic evaluates a cubic bezier at t.
func evaluateCubic(p0, p1, p2, p3 glyph.Point, t float64) glyph.Point {
	mt := 1 - t
	a := mt * mt * mt
	b := 3 * mt * mt * t
	c := 3 * mt * t * t
	d := t * t * t
	return glyph.Point{
		X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
		Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
	}
}

// distance returns the Euclidean distance from p to the segment.
func (l line) distance(p glyph.Point) float64 {
	ab := l.b.Sub(l.a)
	ap := p.Sub(l.a)
	lenSq := ab.Dot(ab)
	t := 0.0
	if lenSq > 0 {
		t = min(max(ap.Dot(ab)/lenSq, 0), 1)
	}
	q := l.a.Lerp(l.b, t)
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// winding returns the contribution of the edge to the non-zero winding
// number of p: +1 for an upward crossing to the right of p, -1 for a
// downward one, 0 otherwise.
func (l line) winding(p glyph.Point) int {
	isLeft := (l.b.X-l.a.X)*(p.Y-l.a.Y) - (p.X-l.a.X)*(l.b.Y-l.a.Y)
	if l.a.Y <= p.Y {
		if l.b.Y > p.Y && isLeft > 0 {
			return 1
		}
	} else if l.b.Y <= p.Y && isLeft < 0 {
		return -1
	}
	return 0
}
