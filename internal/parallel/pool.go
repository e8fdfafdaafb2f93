package parallel

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/sdftext/sdf"
)

// DefaultIdleTimeout is how long a lane stays live with no pending work.
const DefaultIdleTimeout = 2 * time.Second

// Errors resolved into futures by the pool itself rather than by a
// rasterizer. None of them says anything about the glyph, so a retry on a
// later dispatch may succeed.
var (
	// ErrPoolClosed is returned by futures dispatched after Close.
	ErrPoolClosed = errors.New("parallel: pool closed")

	// ErrSpinUp wraps the factory error when a lane cannot start its worker.
	ErrSpinUp = errors.New("parallel: worker spin-up failed")

	// ErrWorkerPanic is returned when a rasterizer panics.
	ErrWorkerPanic = errors.New("parallel: worker panic")
)

// Transient reports whether err came from the pool machinery (closed pool,
// failed spin-up, recovered panic) rather than from a rasterizer verdict.
func Transient(err error) bool {
	return errors.Is(err, ErrPoolClosed) || errors.Is(err, ErrSpinUp) || errors.Is(err, ErrWorkerPanic)
}

// Job is one rasterization handed to a lane. ID is opaque to the pool and is
// copied into the Outcome so callers can correlate results that complete out
// of order.
type Job struct {
	ID   int
	Task sdf.Task
}

// Outcome is the result of a Job.
type Outcome struct {
	ID     int
	Lane   int
	Result sdf.Result
}

// WorkerFactory creates the rasterizer a lane uses while it is live.
// If the returned value implements io.Closer it is closed on teardown.
type WorkerFactory func(lane int) (sdf.Rasterizer, error)

// LanePool is a fixed set of worker lanes for SDF rasterization.
//
// Lanes are picked round-robin by a dispatch counter, not by load. A lane
// spins up its worker lazily on the first dispatch and tears it down once it
// has had no pending work for the idle timeout. A dispatch that arrives
// before the timeout fires cancels the teardown.
//
// Thread safety: LanePool is safe for concurrent use.
type LanePool struct {
	lanes       []*lane
	factory     WorkerFactory
	idleTimeout time.Duration

	// counter drives round-robin lane selection.
	counter atomic.Uint64

	// closed indicates whether the pool still accepts work.
	closed atomic.Bool

	// wg waits for all worker goroutines to finish.
	wg sync.WaitGroup

	// Statistics
	spinUps    atomic.Uint64
	tearDowns  atomic.Uint64
	dispatched atomic.Uint64
	live       atomic.Int64
}

// lane is one slot of the pool. A lane is absent when live is nil.
type lane struct {
	id int

	mu      sync.Mutex
	live    *worker
	pending int
	timer   *time.Timer

	// generation invalidates idle timers that fired after being replaced.
	generation uint64
}

// worker is one incarnation of a lane between spin-up and teardown.
// queue is guarded by the owning lane's mutex.
type worker struct {
	rasterizer sdf.Rasterizer
	queue      []queued
	wake       chan struct{}
	stop       chan struct{}
}

type queued struct {
	job    Job
	future *Future
}

// NewLanePool creates a pool with the given number of lanes.
// If lanes is 0 or negative, GOMAXPROCS is used. A non-positive idle timeout
// selects DefaultIdleTimeout, and a nil factory uses sdf.NewGenerator.
// No goroutines are started until the first dispatch.
func NewLanePool(lanes int, idleTimeout time.Duration, factory WorkerFactory) *LanePool {
	if lanes <= 0 {
		lanes = runtime.GOMAXPROCS(0)
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if factory == nil {
		factory = func(int) (sdf.Rasterizer, error) {
			return sdf.NewGenerator(), nil
		}
	}

	p := &LanePool{
		lanes:       make([]*lane, lanes),
		factory:     factory,
		idleTimeout: idleTimeout,
	}
	for i := range p.lanes {
		p.lanes[i] = &lane{id: i}
	}
	return p
}

// Dispatch queues job on the next lane in round-robin order.
func (p *LanePool) Dispatch(job Job) *Future {
	n := p.counter.Add(1) - 1
	return p.DispatchLane(int(n%uint64(len(p.lanes))), job)
}

// DispatchLane queues job on a specific lane, spinning its worker up if the
// lane is absent. A spin-up failure or a closed pool resolves the returned
// future with an error immediately.
func (p *LanePool) DispatchLane(index int, job Job) *Future {
	f := newFuture()
	if index < 0 || index >= len(p.lanes) {
		f.resolve(Outcome{ID: job.ID, Lane: index}, fmt.Errorf("parallel: lane %d out of range", index))
		return f
	}

	l := p.lanes[index]
	l.mu.Lock()
	defer l.mu.Unlock()

	if p.closed.Load() {
		f.resolve(Outcome{ID: job.ID, Lane: index}, ErrPoolClosed)
		return f
	}

	l.cancelTimer()

	if l.live == nil {
		r, err := p.factory(index)
		if err != nil {
			f.resolve(Outcome{ID: job.ID, Lane: index}, fmt.Errorf("%w: lane %d: %w", ErrSpinUp, index, err))
			return f
		}
		w := &worker{
			rasterizer: r,
			wake:       make(chan struct{}, 1),
			stop:       make(chan struct{}),
		}
		l.live = w
		p.spinUps.Add(1)
		p.live.Add(1)
		p.wg.Add(1)
		go p.run(l, w)
	}

	l.pending++
	l.live.queue = append(l.live.queue, queued{job: job, future: f})
	p.dispatched.Add(1)

	select {
	case l.live.wake <- struct{}{}:
	default:
	}
	return f
}

// run is the main loop of one worker incarnation.
func (p *LanePool) run(l *lane, w *worker) {
	defer p.wg.Done()
	defer closeWorker(w.rasterizer)

	for {
		if q, ok := l.next(w); ok {
			p.execute(l, w, q)
			continue
		}

		select {
		case <-w.stop:
			// Drain remaining work before exiting
			for {
				q, ok := l.next(w)
				if !ok {
					return
				}
				p.execute(l, w, q)
			}
		case <-w.wake:
		}
	}
}

// next pops the oldest queued job of w.
func (l *lane) next(w *worker) (queued, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(w.queue) == 0 {
		return queued{}, false
	}
	q := w.queue[0]
	w.queue[0] = queued{}
	w.queue = w.queue[1:]
	return q, true
}

func (p *LanePool) execute(l *lane, w *worker, q queued) {
	result, err := rasterize(w.rasterizer, q.job.Task)
	q.future.resolve(Outcome{ID: q.job.ID, Lane: l.id, Result: result}, err)
	p.complete(l)
}

// rasterize calls r, turning a panic into an error so a bad glyph cannot
// take the lane down with it.
func rasterize(r sdf.Rasterizer, task sdf.Task) (result sdf.Result, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("%w: %v", ErrWorkerPanic, v)
		}
	}()
	return r.Rasterize(task)
}

// complete decrements the pending counter and arms the idle timer when the
// lane runs dry.
func (p *LanePool) complete(l *lane) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pending--
	if l.pending > 0 || p.closed.Load() || l.live == nil {
		return
	}

	l.generation++
	gen := l.generation
	l.timer = time.AfterFunc(p.idleTimeout, func() {
		p.teardown(l, gen)
	})
}

// cancelTimer stops any scheduled teardown. Must be called with l.mu held.
func (l *lane) cancelTimer() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.generation++
}

// teardown releases the lane's worker if the timer that fired is still the
// current one and the lane is still idle.
func (p *LanePool) teardown(l *lane, gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.generation != gen || l.pending != 0 || l.live == nil {
		return
	}
	p.stopLocked(l)
}

// stopLocked detaches the live worker. Must be called with l.mu held.
func (p *LanePool) stopLocked(l *lane) {
	close(l.live.stop)
	l.live = nil
	l.timer = nil
	p.tearDowns.Add(1)
	p.live.Add(-1)
}

func closeWorker(r sdf.Rasterizer) {
	if c, ok := r.(io.Closer); ok {
		_ = c.Close()
	}
}

// Close stops accepting work, lets queued jobs finish and tears down every
// live lane. Close is safe to call multiple times.
func (p *LanePool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		// Already closed
		return
	}

	for _, l := range p.lanes {
		l.mu.Lock()
		l.cancelTimer()
		if l.live != nil {
			p.stopLocked(l)
		}
		l.mu.Unlock()
	}

	// Wait for all workers to finish
	p.wg.Wait()
}

// Lanes returns the number of lanes in the pool.
func (p *LanePool) Lanes() int {
	return len(p.lanes)
}

// IsRunning returns true if the pool is still accepting work.
func (p *LanePool) IsRunning() bool {
	return !p.closed.Load()
}

// LaneState reports whether lane index has a live worker and how many jobs
// it has pending.
func (p *LanePool) LaneState(index int) (live bool, pending int) {
	l := p.lanes[index]
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.live != nil, l.pending
}

// Stats holds pool counters.
type Stats struct {
	Lanes      int
	SpinUps    uint64
	TearDowns  uint64
	Dispatched uint64
	Live       int
}

// Stats returns a snapshot of the pool counters.
func (p *LanePool) Stats() Stats {
	return Stats{
		Lanes:      len(p.lanes),
		SpinUps:    p.spinUps.Load(),
		TearDowns:  p.tearDowns.Load(),
		Dispatched: p.dispatched.Load(),
		Live:       int(p.live.Load()),
	}
}
