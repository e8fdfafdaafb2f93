package sdf

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/sdftext/glyph"
)

// squareTask builds a task for a 100x100 square centred in its view box.
func squareTask(size int) Task {
	var b glyph.Builder
	b.Rect(glyph.Rect{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100})
	return Task{
		GlyphSize:   size,
		Path:        b.Path(),
		ViewBox:     glyph.Rect{MinX: -20, MinY: -20, MaxX: 120, MaxY: 120},
		MaxDistance: 20,
		Exponent:    1,
	}
}

func TestGenerateSquare(t *testing.T) {
	task := squareTask(32)
	res, err := Generate(task)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(res.Data) != 32*32 {
		t.Fatalf("len(Data) = %d, want %d", len(res.Data), 32*32)
	}

	centre := res.Data[16*32+16]
	if centre < 250 {
		t.Errorf("centre = %d, want close to 255 (deep inside)", centre)
	}
	corner := res.Data[0]
	if corner > 5 {
		t.Errorf("corner = %d, want close to 0 (saturated outside)", corner)
	}
}

func TestGenerateEdgeIsMidValue(t *testing.T) {
	// Pixel column 4 of 28 covers x in [0,5) for a [-20,120] view box at 28px,
	// so its centre sits 2.5 units inside the left edge.
	task := squareTask(28)
	res, err := Generate(task)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	inside := res.Data[14*28+4]
	outside := res.Data[14*28+3]
	if inside <= 127 {
		t.Errorf("just inside = %d, want > 127", inside)
	}
	if outside >= 128 {
		t.Errorf("just outside = %d, want < 128", outside)
	}
}

func TestGenerateHole(t *testing.T) {
	// Outer square counter-clockwise, inner square clockwise: non-zero
	// winding leaves the middle empty.
	var b glyph.Builder
	b.Rect(glyph.Rect{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100})
	b.MoveTo(30, 30).LineTo(30, 70).LineTo(70, 70).LineTo(70, 30)

	task := squareTask(40)
	task.Path = b.Path()
	res, err := Generate(task)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if mid := res.Data[20*40+20]; mid >= 128 {
		t.Errorf("hole centre = %d, want outside (< 128)", mid)
	}
	// x=10 font units is inside the ring.
	if ring := res.Data[20*40+8]; ring <= 127 {
		t.Errorf("ring = %d, want inside (> 127)", ring)
	}
}

func TestGenerateCurves(t *testing.T) {
	var b glyph.Builder
	b.MoveTo(0, 0).QuadTo(50, 100, 100, 0).CubicTo(80, -50, 20, -50, 0, 0)

	task := squareTask(24)
	task.Path = b.Path()
	res, err := Generate(task)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(res.Data) != 24*24 {
		t.Fatalf("len(Data) = %d", len(res.Data))
	}
}

func TestGenerateEmptyPath(t *testing.T) {
	task := squareTask(16)
	task.Path = nil
	res, err := Generate(task)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !bytes.Equal(res.Data, make([]byte, 16*16)) {
		t.Error("empty path should produce an all-zero field")
	}
}

func TestGenerateDeterministic(t *testing.T) {
	task := squareTask(32)
	a, err := Generate(task)
	if err != nil {
		t.Fatal(err)
	}

	parallel := &Generator{RowWorkers: 4, Tolerance: 0.2}
	b, err := parallel.Rasterize(task)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Data, b.Data) {
		t.Error("row-parallel output differs from sequential output")
	}
}

func TestTaskValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Task)
		field string
	}{
		{"zero size", func(t *Task) { t.GlyphSize = 0 }, "GlyphSize"},
		{"huge size", func(t *Task) { t.GlyphSize = MaxGlyphSize + 1 }, "GlyphSize"},
		{"empty viewbox", func(t *Task) { t.ViewBox = glyph.Rect{} }, "ViewBox"},
		{"zero distance", func(t *Task) { t.MaxDistance = 0 }, "MaxDistance"},
		{"zero exponent", func(t *Task) { t.Exponent = 0 }, "Exponent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := squareTask(8)
			tt.edit(&task)
			_, err := Generate(task)
			var te *TaskError
			if !errors.As(err, &te) {
				t.Fatalf("error = %v, want *TaskError", err)
			}
			if te.Field != tt.field {
				t.Errorf("Field = %q, want %q", te.Field, tt.field)
			}
		})
	}
}

func TestEncodeDistance(t *testing.T) {
	tests := []struct {
		name   string
		dist   float64
		inside bool
		want   byte
	}{
		{"edge outside", 0, false, 128},
		{"edge inside", 0, true, 128},
		{"saturated outside", 50, false, 0},
		{"saturated inside", 50, true, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := encodeDistance(tt.dist, 10, 9, tt.inside); got != tt.want {
				t.Errorf("encodeDistance() = %d, want %d", got, tt.want)
			}
		})
	}
}

func BenchmarkGenerate64(b *testing.B) {
	task := squareTask(64)
	b.ReportAllocs()
	for b.Loop() {
		_, _ = Generate(task)
	}
}
