package sdfcache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gogpu/sdftext/sdf"
)

// DefaultTimeout bounds each backend call made by a Memo.
const DefaultTimeout = 2 * time.Second

// Memo is an sdf.Rasterizer that consults a Backend before delegating.
//
// Thread safety: Memo is safe for concurrent use if the wrapped
// rasterizer is.
type Memo struct {
	next     sdf.Rasterizer
	backend  Backend
	timeout  time.Duration
	counters *Counters
}

// MemoOption configures a Memo.
type MemoOption func(*Memo)

// WithCounters makes the memo count into c, which may be shared by many
// memos. Workers come and go with their lanes; shared counters outlive
// them.
func WithCounters(c *Counters) MemoOption {
	return func(m *Memo) { m.counters = c }
}

// NewMemo wraps next. A nil next uses sdf.NewGenerator.
func NewMemo(next sdf.Rasterizer, backend Backend, opts ...MemoOption) *Memo {
	if next == nil {
		next = sdf.NewGenerator()
	}
	m := &Memo{next: next, backend: backend, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(m)
	}
	if m.counters == nil {
		m.counters = new(Counters)
	}
	return m
}

// Rasterize implements sdf.Rasterizer. A stored result of the wrong size is
// ignored and overwritten.
func (m *Memo) Rasterize(task sdf.Task) (sdf.Result, error) {
	start := time.Now()
	key := TaskKey(task)
	want := task.GlyphSize * task.GlyphSize

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	data, ok, err := m.backend.Get(ctx, key)
	switch {
	case err != nil:
		m.counters.errors.Add(1)
		slogger().Warn("sdfcache: get failed", "key", key.String(), "err", err)
	case ok && len(data) == want:
		m.counters.hits.Add(1)
		return sdf.Result{Data: data, Duration: time.Since(start)}, nil
	case ok:
		slogger().Warn("sdfcache: stored field has wrong size",
			"key", key.String(), "got", len(data), "want", want)
	}
	m.counters.misses.Add(1)

	res, err := m.next.Rasterize(task)
	if err != nil {
		return res, err
	}

	if err := m.backend.Set(ctx, key, res.Data); err != nil {
		m.counters.errors.Add(1)
		slogger().Warn("sdfcache: set failed", "key", key.String(), "err", err)
	}
	return res, nil
}

// Close closes the wrapped rasterizer if it has a Close method. The
// backend is shared and left open.
func (m *Memo) Close() error {
	if c, ok := m.next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// MemoStats holds Memo counters.
type MemoStats struct {
	Hits   uint64
	Misses uint64
	Errors uint64
}

// Counters accumulates memo lookups. The zero value is ready to use.
type Counters struct {
	hits   atomic.Uint64
	misses atomic.Uint64
	errors atomic.Uint64
}

// Stats returns a snapshot of the counters.
func (c *Counters) Stats() MemoStats {
	return MemoStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Errors: c.errors.Load(),
	}
}

// Stats returns the memo counters.
func (m *Memo) Stats() MemoStats {
	return m.counters.Stats()
}
