package parallel

import (
	"testing"
	"time"
)

// =============================================================================
// Component Benchmarks - LanePool
// =============================================================================

// BenchmarkLanePool_Dispatch measures the round trip of one job through a
// warm lane with a worker that does no work.
func BenchmarkLanePool_Dispatch(b *testing.B) {
	f := &fakeFactory{}
	pool := NewLanePool(1, time.Minute, f.New)
	defer pool.Close()
	task := testTask()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := pool.Dispatch(Job{ID: i, Task: task}).Wait(); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkLanePool_FanOut dispatches 64 jobs across 4 lanes and waits for
// all of them, the shape of a render with many new glyphs.
func BenchmarkLanePool_FanOut(b *testing.B) {
	f := &fakeFactory{}
	pool := NewLanePool(4, time.Minute, f.New)
	defer pool.Close()
	task := testTask()
	futures := make([]*Future, 64)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		for j := range futures {
			futures[j] = pool.Dispatch(Job{ID: j, Task: task})
		}
		for _, fut := range futures {
			if _, err := fut.Wait(); err != nil {
				b.Fatal(err)
			}
		}
	}
}
