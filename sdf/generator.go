package sdf

import (
	"math"
	"sync"
	"time"

	"github.com/gogpu/sdftext/glyph"
)

// Generator is the default Rasterizer. It is safe for concurrent use and
// holds no state besides its parameters.
type Generator struct {
	// RowWorkers is the number of goroutines splitting the rows of one glyph.
	// Values below 2 rasterize on the calling goroutine.
	RowWorkers int

	// Tolerance is the curve flattening error in pixels.
	// Default: 0.2
	Tolerance float64
}

// NewGenerator creates a generator using a single goroutine per glyph.
// Parallelism normally comes from running several generators at once.
func NewGenerator() *Generator {
	return &Generator{RowWorkers: 1, Tolerance: 0.2}
}

var defaultGenerator = NewGenerator()

// Generate rasterizes task with the default generator.
func Generate(task Task) (Result, error) {
	return defaultGenerator.Rasterize(task)
}

// Rasterize implements Rasterizer.
func (g *Generator) Rasterize(task Task) (Result, error) {
	start := time.Now()
	if err := task.Validate(); err != nil {
		return Result{}, err
	}

	size := task.GlyphSize
	data := make([]byte, size*size)

	pixelW := task.ViewBox.Width() / float64(size)
	pixelH := task.ViewBox.Height() / float64(size)
	tolerance := g.Tolerance
	if tolerance <= 0 {
		tolerance = 0.2
	}

	lines := flatten(task.Path, tolerance*min(pixelW, pixelH))
	if len(lines) == 0 {
		// Nothing to measure against: the whole cell is "far outside".
		return Result{Data: data, Duration: time.Since(start)}, nil
	}

	f := field{
		task:   task,
		lines:  lines,
		pixelW: pixelW,
		pixelH: pixelH,
		data:   data,
	}

	workers := g.RowWorkers
	if workers < 2 || size < workers {
		f.processRows(0, size)
		return Result{Data: data, Duration: time.Since(start)}, nil
	}

	var wg sync.WaitGroup
	rowsPerWorker := (size + workers - 1) / workers
	for w := 0; w < workers; w++ {
		startRow := w * rowsPerWorker
		endRow := min(startRow+rowsPerWorker, size)
		if startRow >= endRow {
			continue
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			f.processRows(start, end)
		}(startRow, endRow)
	}
	wg.Wait()

	return Result{Data: data, Duration: time.Since(start)}, nil
}

// field is the per-task state shared by row workers. Each worker writes a
// disjoint range of rows.
type field struct {
	task           Task
	lines          []line
	pixelW, pixelH float64
	data           []byte
}

// processRows fills rows [startRow, endRow).
func (f *field) processRows(startRow, endRow int) {
	size := f.task.GlyphSize
	vb := f.task.ViewBox

	for y := startRow; y < endRow; y++ {
		py := vb.MinY + (float64(y)+0.5)*f.pixelH
		row := f.data[y*size : (y+1)*size]
		for x := range row {
			p := glyph.Point{X: vb.MinX + (float64(x)+0.5)*f.pixelW, Y: py}

			dist := math.MaxFloat64
			winding := 0
			for i := range f.lines {
				l := &f.lines[i]
				if d := l.distance(p); d < dist {
					dist = d
				}
				winding += l.winding(p)
			}

			row[x] = encodeDistance(dist, f.task.MaxDistance, f.task.Exponent, winding != 0)
		}
	}
}

// encodeDistance maps a distance to a byte; 127.5 is the edge.
func encodeDistance(dist, maxDistance, exponent float64, inside bool) byte {
	v := math.Pow(1-min(dist, maxDistance)/maxDistance, exponent) / 2
	if inside {
		v = 1 - v
	}
	return byte(math.Round(min(max(v, 0), 1) * 255))
}
