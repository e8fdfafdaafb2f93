package parallel

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/sdftext/glyph"
	"github.com/gogpu/sdftext/sdf"
)

// fakeWorker echoes the glyph size into the result and counts calls.
type fakeWorker struct {
	calls  *atomic.Int64
	closed *atomic.Int64
	block  chan struct{}
}

func (w *fakeWorker) Rasterize(task sdf.Task) (sdf.Result, error) {
	if w.block != nil {
		<-w.block
	}
	w.calls.Add(1)
	return sdf.Result{Data: make([]byte, task.GlyphSize*task.GlyphSize)}, nil
}

func (w *fakeWorker) Close() error {
	w.closed.Add(1)
	return nil
}

type fakeFactory struct {
	calls   atomic.Int64
	closed  atomic.Int64
	created atomic.Int64
	block   chan struct{}
}

func (f *fakeFactory) New(int) (sdf.Rasterizer, error) {
	f.created.Add(1)
	return &fakeWorker{calls: &f.calls, closed: &f.closed, block: f.block}, nil
}

func testTask() sdf.Task {
	return sdf.Task{
		GlyphSize:   8,
		ViewBox:     glyph.Rect{MaxX: 10, MaxY: 10},
		MaxDistance: 1,
		Exponent:    9,
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// =============================================================================
// LanePool Creation Tests
// =============================================================================

func TestLanePool_Create(t *testing.T) {
	pool := NewLanePool(4, time.Second, nil)
	defer pool.Close()

	if pool.Lanes() != 4 {
		t.Errorf("Lanes() = %d, want 4", pool.Lanes())
	}
	if !pool.IsRunning() {
		t.Error("Pool should be running after creation")
	}
	if live := pool.Stats().Live; live != 0 {
		t.Errorf("Live = %d before any dispatch, want 0", live)
	}
}

func TestLanePool_CreateZeroLanes(t *testing.T) {
	pool := NewLanePool(0, 0, nil)
	defer pool.Close()

	expected := runtime.GOMAXPROCS(0)
	if pool.Lanes() != expected {
		t.Errorf("Lanes() = %d, want %d (GOMAXPROCS)", pool.Lanes(), expected)
	}
	if pool.idleTimeout != DefaultIdleTimeout {
		t.Errorf("idleTimeout = %v, want %v", pool.idleTimeout, DefaultIdleTimeout)
	}
}

// =============================================================================
// Dispatch Tests
// =============================================================================

func TestLanePool_DispatchDefaultGenerator(t *testing.T) {
	pool := NewLanePool(2, time.Second, nil)
	defer pool.Close()

	var b glyph.Builder
	b.Rect(glyph.Rect{MinX: 2, MinY: 2, MaxX: 8, MaxY: 8})
	task := sdf.Task{
		GlyphSize:   16,
		Path:        b.Path(),
		ViewBox:     glyph.Rect{MaxX: 10, MaxY: 10},
		MaxDistance: 2,
		Exponent:    9,
	}

	out, err := pool.Dispatch(Job{ID: 3, Task: task}).Wait()
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if out.ID != 3 {
		t.Errorf("Outcome.ID = %d, want 3", out.ID)
	}
	if len(out.Result.Data) != 16*16 {
		t.Errorf("len(Data) = %d, want 256", len(out.Result.Data))
	}
}

func TestLanePool_RoundRobin(t *testing.T) {
	f := &fakeFactory{}
	pool := NewLanePool(3, time.Second, f.New)
	defer pool.Close()

	for i := range 7 {
		out, err := pool.Dispatch(Job{ID: i, Task: testTask()}).Wait()
		if err != nil {
			t.Fatalf("Dispatch(%d) error = %v", i, err)
		}
		if out.Lane != i%3 {
			t.Errorf("job %d ran on lane %d, want %d", i, out.Lane, i%3)
		}
	}

	stats := pool.Stats()
	if stats.Dispatched != 7 {
		t.Errorf("Dispatched = %d, want 7", stats.Dispatched)
	}
	if stats.SpinUps != 3 {
		t.Errorf("SpinUps = %d, want 3 (one per lane)", stats.SpinUps)
	}
	if f.created.Load() != 3 {
		t.Errorf("factory called %d times, want 3", f.created.Load())
	}
}

func TestLanePool_CorrelatesOutOfOrder(t *testing.T) {
	release := make(chan struct{})
	slow := sdf.RasterizerFunc(func(task sdf.Task) (sdf.Result, error) {
		<-release
		return sdf.Result{Data: []byte{1}}, nil
	})
	fast := sdf.RasterizerFunc(func(task sdf.Task) (sdf.Result, error) {
		return sdf.Result{Data: []byte{2}}, nil
	})
	pool := NewLanePool(2, time.Second, func(lane int) (sdf.Rasterizer, error) {
		if lane == 0 {
			return slow, nil
		}
		return fast, nil
	})
	defer pool.Close()

	first := pool.Dispatch(Job{ID: 10, Task: testTask()})
	second := pool.Dispatch(Job{ID: 20, Task: testTask()})

	out2, err := second.Wait()
	if err != nil {
		t.Fatalf("second.Wait() error = %v", err)
	}
	select {
	case <-first.Done():
		t.Fatal("first job finished before it was released")
	default:
	}
	close(release)
	out1, _ := first.Wait()

	if out1.ID != 10 || out1.Result.Data[0] != 1 {
		t.Errorf("first outcome = %+v", out1)
	}
	if out2.ID != 20 || out2.Result.Data[0] != 2 {
		t.Errorf("second outcome = %+v", out2)
	}
}

func TestLanePool_ConcurrentDispatch(t *testing.T) {
	f := &fakeFactory{}
	pool := NewLanePool(4, time.Second, f.New)
	defer pool.Close()

	const n = 200
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := pool.Dispatch(Job{ID: i, Task: testTask()}).Wait()
			if err != nil || out.ID != i {
				t.Errorf("job %d: outcome %+v, err %v", i, out, err)
			}
		}(i)
	}
	wg.Wait()

	if got := f.calls.Load(); got != n {
		t.Errorf("rasterizations = %d, want %d", got, n)
	}
}

func TestLanePool_RasterizerError(t *testing.T) {
	boom := errors.New("bad outline")
	pool := NewLanePool(1, time.Second, func(int) (sdf.Rasterizer, error) {
		return sdf.RasterizerFunc(func(sdf.Task) (sdf.Result, error) {
			return sdf.Result{}, boom
		}), nil
	})
	defer pool.Close()

	out, err := pool.Dispatch(Job{ID: 5, Task: testTask()}).Wait()
	if !errors.Is(err, boom) {
		t.Errorf("Wait() error = %v, want %v", err, boom)
	}
	if out.ID != 5 {
		t.Errorf("Outcome.ID = %d, want 5", out.ID)
	}
	if _, pending := pool.LaneState(0); pending != 0 {
		t.Errorf("pending = %d after failed job, want 0", pending)
	}
}

func TestLanePool_RasterizerPanic(t *testing.T) {
	pool := NewLanePool(1, time.Second, func(int) (sdf.Rasterizer, error) {
		return sdf.RasterizerFunc(func(sdf.Task) (sdf.Result, error) {
			panic("corrupt path")
		}), nil
	})
	defer pool.Close()

	if _, err := pool.Dispatch(Job{Task: testTask()}).Wait(); !errors.Is(err, ErrWorkerPanic) {
		t.Fatalf("Wait() error = %v, want ErrWorkerPanic", err)
	}

	// The lane survives and serves the next job.
	if _, err := pool.Dispatch(Job{Task: testTask()}).Wait(); err == nil {
		t.Fatal("second Wait() error = nil")
	}
	if live, _ := pool.LaneState(0); !live {
		t.Error("lane died after panic")
	}
}

func TestLanePool_SpinUpFailure(t *testing.T) {
	boom := errors.New("no threads")
	pool := NewLanePool(2, time.Second, func(int) (sdf.Rasterizer, error) {
		return nil, boom
	})
	defer pool.Close()

	_, err := pool.Dispatch(Job{Task: testTask()}).Wait()
	if !errors.Is(err, boom) || !errors.Is(err, ErrSpinUp) {
		t.Errorf("Wait() error = %v, want ErrSpinUp wrapping %v", err, boom)
	}
	if live, pending := pool.LaneState(0); live || pending != 0 {
		t.Errorf("LaneState(0) = (%v, %d), want (false, 0)", live, pending)
	}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"closed", ErrPoolClosed, true},
		{"spin-up", fmt.Errorf("%w: lane 0: %w", ErrSpinUp, errors.New("no threads")), true},
		{"panic", fmt.Errorf("%w: boom", ErrWorkerPanic), true},
		{"wrapped closed", fmt.Errorf("glyph 3: %w", ErrPoolClosed), true},
		{"rasterizer", errors.New("bad outline"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Transient(tt.err); got != tt.want {
				t.Errorf("Transient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestLanePool_DispatchLaneOutOfRange(t *testing.T) {
	pool := NewLanePool(2, time.Second, nil)
	defer pool.Close()

	if _, err := pool.DispatchLane(5, Job{Task: testTask()}).Wait(); err == nil {
		t.Error("DispatchLane(5) error = nil")
	}
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestLanePool_IdleTeardown(t *testing.T) {
	f := &fakeFactory{}
	pool := NewLanePool(1, 20*time.Millisecond, f.New)
	defer pool.Close()

	if _, err := pool.Dispatch(Job{Task: testTask()}).Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if live, _ := pool.LaneState(0); !live {
		t.Fatal("lane not live right after dispatch")
	}

	waitFor(t, "idle teardown", func() bool {
		live, _ := pool.LaneState(0)
		return !live
	})
	waitFor(t, "worker close", func() bool { return f.closed.Load() == 1 })

	stats := pool.Stats()
	if stats.TearDowns != 1 || stats.Live != 0 {
		t.Errorf("Stats = %+v, want 1 teardown and 0 live", stats)
	}

	// The next dispatch re-spins transparently.
	if _, err := pool.Dispatch(Job{Task: testTask()}).Wait(); err != nil {
		t.Fatalf("Wait() after teardown error = %v", err)
	}
	if got := pool.Stats().SpinUps; got != 2 {
		t.Errorf("SpinUps = %d, want 2", got)
	}
}

func TestLanePool_DispatchCancelsTeardown(t *testing.T) {
	f := &fakeFactory{}
	pool := NewLanePool(1, 150*time.Millisecond, f.New)
	defer pool.Close()

	// Keep dispatching at intervals shorter than the idle timeout; the lane
	// must stay up the whole time.
	for range 5 {
		if _, err := pool.Dispatch(Job{Task: testTask()}).Wait(); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		time.Sleep(30 * time.Millisecond)
	}

	stats := pool.Stats()
	if stats.SpinUps != 1 {
		t.Errorf("SpinUps = %d, want 1", stats.SpinUps)
	}
	if stats.TearDowns != 0 {
		t.Errorf("TearDowns = %d, want 0", stats.TearDowns)
	}
}

func TestLanePool_NoTeardownWhilePending(t *testing.T) {
	f := &fakeFactory{block: make(chan struct{})}
	pool := NewLanePool(1, 5*time.Millisecond, f.New)
	defer pool.Close()

	fut := pool.Dispatch(Job{Task: testTask()})
	time.Sleep(30 * time.Millisecond)

	if live, pending := pool.LaneState(0); !live || pending != 1 {
		t.Errorf("LaneState(0) = (%v, %d), want (true, 1)", live, pending)
	}
	close(f.block)
	if _, err := fut.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestLanePool_Close(t *testing.T) {
	f := &fakeFactory{}
	pool := NewLanePool(2, time.Minute, f.New)

	for i := range 4 {
		if _, err := pool.Dispatch(Job{ID: i, Task: testTask()}).Wait(); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	pool.Close()
	pool.Close() // idempotent

	if pool.IsRunning() {
		t.Error("IsRunning() = true after Close")
	}
	if got := f.closed.Load(); got != 2 {
		t.Errorf("closed workers = %d, want 2", got)
	}
	if _, err := pool.Dispatch(Job{Task: testTask()}).Wait(); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Dispatch after Close error = %v, want ErrPoolClosed", err)
	}
}

func TestLanePool_CloseDrainsQueued(t *testing.T) {
	f := &fakeFactory{block: make(chan struct{})}
	pool := NewLanePool(1, time.Minute, f.New)

	futures := make([]*Future, 5)
	for i := range futures {
		futures[i] = pool.Dispatch(Job{ID: i, Task: testTask()})
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(f.block)
	}()
	pool.Close()

	for i, fut := range futures {
		select {
		case <-fut.Done():
		default:
			t.Fatalf("future %d unresolved after Close", i)
		}
		if _, err := fut.Wait(); err != nil {
			t.Errorf("future %d error = %v", i, err)
		}
	}
}

func TestFuture_WaitContext(t *testing.T) {
	f := &fakeFactory{block: make(chan struct{})}
	pool := NewLanePool(1, time.Minute, f.New)
	defer pool.Close()
	defer close(f.block)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := pool.Dispatch(Job{Task: testTask()}).WaitContext(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitContext() error = %v, want DeadlineExceeded", err)
	}
}
