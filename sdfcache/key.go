package sdfcache

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/gogpu/sdftext/sdf"
)

// keyVersion is mixed into every key. Bump it when the rasterizer output
// changes for the same input.
const keyVersion = 1

// Key identifies a rasterization result by content.
type Key uint64

// String returns the key as used by external stores.
func (k Key) String() string {
	return fmt.Sprintf("sdftext:sdf:v%d:%016x", keyVersion, uint64(k))
}

// TaskKey computes the FNV-1a hash of every input that determines the
// rasterized output.
func TaskKey(task sdf.Task) Key {
	h := fnv.New64a()
	var buf [8]byte

	putInt := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:]) // fnv.Write never returns an error
	}
	putFloat := func(f float64) {
		putInt(math.Float64bits(f))
	}

	putInt(keyVersion)
	putInt(uint64(task.GlyphSize))
	putFloat(task.ViewBox.MinX)
	putFloat(task.ViewBox.MinY)
	putFloat(task.ViewBox.MaxX)
	putFloat(task.ViewBox.MaxY)
	putFloat(task.MaxDistance)
	putFloat(task.Exponent)

	putInt(uint64(len(task.Path)))
	for _, seg := range task.Path {
		putInt(uint64(seg.Op))
		for _, p := range seg.Points[:seg.Op.PointCount()] {
			putFloat(p.X)
			putFloat(p.Y)
		}
	}
	return Key(h.Sum64())
}
