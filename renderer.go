package sdftext

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/sdftext/atlas"
	"github.com/gogpu/sdftext/glyph"
	"github.com/gogpu/sdftext/internal/parallel"
	"github.com/gogpu/sdftext/sdf"
	"github.com/gogpu/sdftext/sdfcache"
	"github.com/gogpu/sdftext/typeset"
)

// WorkerFactory creates the rasterizer used by one lane while it is live.
// A rasterizer that implements io.Closer is closed when the lane goes idle.
type WorkerFactory func(lane int) (sdf.Rasterizer, error)

// Option configures a Renderer.
type Option func(*Renderer)

// WithRegistry shares a configuration registry. By default each renderer
// has its own.
func WithRegistry(r *Registry) Option {
	return func(rd *Renderer) { rd.registry = r }
}

// WithTypesetter replaces the go-text shaper.
func WithTypesetter(t typeset.Typesetter) Option {
	return func(rd *Renderer) { rd.typesetter = t }
}

// WithWorkerFactory replaces the default sdf.Generator workers.
func WithWorkerFactory(f WorkerFactory) Option {
	return func(rd *Renderer) { rd.factory = f }
}

// WithStore shares an atlas store between renderers.
func WithStore(s *atlas.Store) Option {
	return func(rd *Renderer) { rd.store = s }
}

// WithBaseURL sets the URL relative font references resolve against.
func WithBaseURL(u *url.URL) Option {
	return func(rd *Renderer) { rd.baseURL = u }
}

// WithCache memoizes rasterizations in backend, keyed by the task content.
// Sharing the backend between processes (sdfcache.Redis) lets a restarted
// process rebuild its atlases without rasterizing.
func WithCache(backend sdfcache.Backend) Option {
	return func(rd *Renderer) { rd.cache = backend }
}

// Renderer turns text requests into glyph quads that reference shared SDF
// atlases.
//
// Each distinct glyph of an atlas is rasterized at most once, however many
// requests use it, including requests running concurrently.
//
// Thread safety: Renderer is safe for concurrent use.
type Renderer struct {
	registry   *Registry
	typesetter typeset.Typesetter
	factory    WorkerFactory
	store      *atlas.Store
	baseURL    *url.URL
	cache      sdfcache.Backend

	// start freezes the configuration and builds the pool on first use;
	// running is set once it has.
	start   sync.Once
	running atomic.Bool
	config  Config
	pool    *parallel.LanePool

	closed     atomic.Bool
	renders    atomic.Uint64
	failures   atomic.Uint64
	cacheStats sdfcache.Counters
}

// NewRenderer creates a renderer. Nothing is started until the first
// render, so the registry may still be configured after NewRenderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = NewRegistry()
	}
	if r.store == nil {
		r.store = atlas.NewStore()
	}
	return r
}

// Registry returns the renderer's configuration registry.
func (r *Renderer) Registry() *Registry {
	return r.registry
}

// Store returns the atlas store.
func (r *Renderer) Store() *atlas.Store {
	return r.store
}

// Atlas returns the atlas for key, or nil if no render has created it.
func (r *Renderer) Atlas(key atlas.Key) *atlas.Atlas {
	a, _ := r.store.Get(key)
	return a
}

// init freezes the registry and builds what depends on it.
func (r *Renderer) init() {
	r.start.Do(func() {
		r.config = r.registry.freeze()

		if r.typesetter == nil {
			loader := typeset.NewFontLoader(typeset.WithDefaultFont(r.config.DefaultFontURL))
			r.typesetter = typeset.NewShaper(loader)
		}

		factory := parallel.WorkerFactory(r.factory)
		if factory == nil {
			factory = func(int) (sdf.Rasterizer, error) { return sdf.NewGenerator(), nil }
		}
		if r.cache != nil {
			base, backend := factory, r.cache
			factory = func(lane int) (sdf.Rasterizer, error) {
				w, err := base(lane)
				if err != nil {
					return nil, err
				}
				return sdfcache.NewMemo(w, backend, sdfcache.WithCounters(&r.cacheStats)), nil
			}
		}
		r.pool = parallel.NewLanePool(r.config.Workers, r.config.WorkerIdleTimeout, factory)
		r.running.Store(true)
	})
}

// RenderAsync runs Render on a new goroutine and passes its result to done.
func (r *Renderer) RenderAsync(ctx context.Context, req Request, done func(*RenderInfo, error)) {
	go func() {
		done(r.Render(ctx, req))
	}()
}

// Render typesets req, rasterizes the glyphs its atlas does not have yet
// and returns the quads and slots of every glyph.
//
// Rasterization is not cancelled by ctx: glyphs this call started are
// always finished and written, since other requests may be waiting for
// them. ctx bounds font loading and the wait for glyphs owned by other
// requests.
func (r *Renderer) Render(ctx context.Context, req Request) (*RenderInfo, error) {
	if r.closed.Load() {
		return nil, ErrRendererClosed
	}
	r.init()
	r.renders.Add(1)

	info, err := r.render(ctx, req)
	if err != nil {
		r.failures.Add(1)
		return nil, err
	}
	return info, nil
}

func (r *Renderer) render(ctx context.Context, req Request) (*RenderInfo, error) {
	start := time.Now()
	cfg := r.config
	id := uuid.NewString()
	log := Logger().With("request", id)

	params, err := normalize(req, cfg, r.baseURL)
	if err != nil {
		return nil, err
	}

	key := atlas.Key{FontURL: params.FontURL, GlyphSize: params.SDFGlyphSize}
	a, err := r.store.GetOrCreate(key, atlas.Config{
		TextureWidth: cfg.TextureWidth,
		Margin:       cfg.SDFMargin,
		MaxHeight:    cfg.MaxTextureHeight,
	})
	if err != nil {
		return nil, err
	}

	typesetStart := time.Now()
	layout, err := r.typesetter.Typeset(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("sdftext: typeset: %w", err)
	}
	timings := Timings{
		FontLoad: layout.FontLoad,
		Typeset:  time.Since(typesetStart),
	}

	allocStart := time.Now()
	pl, err := plan(a, layout)
	if err != nil {
		return nil, err
	}
	timings.Allocate = time.Since(allocStart)

	rasterStart := time.Now()
	timings.SDF, err = r.rasterize(a, pl.owned, cfg.SDFExponent)
	timings.Rasterize = time.Since(rasterStart)
	if err != nil {
		log.Warn("sdftext: render failed", "atlas", key.String(), "err", err)
		return nil, err
	}

	waitStart := time.Now()
	if err := waitEntries(ctx, pl.foreign); err != nil {
		return nil, err
	}
	timings.Wait = time.Since(waitStart)
	timings.Total = time.Since(start)

	info := &RenderInfo{
		RequestID:         id,
		Params:            params.Clone(),
		Atlas:             a,
		AtlasKey:          key,
		TextureWidth:      a.Width(),
		TextureHeight:     a.Height(),
		SDFGlyphSize:      params.SDFGlyphSize,
		SDFExponent:       cfg.SDFExponent,
		SDFMargin:         cfg.SDFMargin,
		GlyphBounds:       pl.bounds,
		GlyphAtlasIndices: pl.indices,
		GlyphColors:       cloneSlice(layout.GlyphColors),
		CaretPositions:    cloneSlice(layout.CaretPositions),
		CaretHeight:       layout.CaretHeight,
		ChunkedBounds:     cloneSlice(layout.ChunkedBounds),
		FontSize:          layout.FontSize,
		UnitsPerEm:        layout.UnitsPerEm,
		Ascender:          layout.Ascender,
		Descender:         layout.Descender,
		LineHeight:        layout.LineHeight,
		TopBaseline:       layout.TopBaseline,
		BlockBounds:       layout.BlockBounds,
		VisibleBounds:     layout.VisibleBounds,
		Timings:           timings,
	}

	log.Debug("sdftext: rendered",
		"atlas", key.String(),
		"glyphs", len(pl.indices),
		"rasterized", len(pl.owned),
		"waited", len(pl.foreign),
		"total", timings.Total)
	return info, nil
}

// renderPlan is the allocation outcome of one layout.
type renderPlan struct {
	indices []int
	bounds  []float32

	// owned entries were created by this request, which must rasterize
	// them. foreign entries were created by another request that has not
	// finished them yet.
	owned   []*atlas.Entry
	foreign []*atlas.Entry
}

// plan allocates a slot for every glyph in sequence order and computes the
// quad bounds from the view boxes, which are known before rasterization.
//
// The layout is checked in full before the first allocation: a created
// entry must be rasterized by this request, or nobody will resolve it.
func plan(a *atlas.Atlas, layout *typeset.Layout) (*renderPlan, error) {
	n := len(layout.GlyphIDs)
	if len(layout.GlyphPositions) != n {
		return nil, fmt.Errorf("sdftext: typesetter returned %d positions for %d glyphs",
			len(layout.GlyphPositions), n)
	}
	for _, id := range layout.GlyphIDs {
		if _, ok := layout.GlyphData[id]; !ok {
			return nil, fmt.Errorf("%w: glyph %d", ErrMissingGlyphData, id)
		}
	}

	pl := &renderPlan{
		indices: make([]int, n),
		bounds:  make([]float32, 4*n),
	}
	var scale float64
	if layout.UnitsPerEm > 0 {
		scale = layout.FontSize / layout.UnitsPerEm
	}

	seen := make(map[*atlas.Entry]struct{})
	for i, id := range layout.GlyphIDs {
		gd := layout.GlyphData[id]
		e, created := a.AllocateSlot(id, gd.Path, gd.PathBounds)
		pl.indices[i] = e.Slot

		pos := layout.GlyphPositions[i]
		vb := e.ViewBox
		pl.bounds[i*4+0] = float32(pos.X + vb.MinX*scale)
		pl.bounds[i*4+1] = float32(pos.Y + vb.MinY*scale)
		pl.bounds[i*4+2] = float32(pos.X + vb.MaxX*scale)
		pl.bounds[i*4+3] = float32(pos.Y + vb.MaxY*scale)

		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		switch {
		case created:
			pl.owned = append(pl.owned, e)
		case !e.Ready():
			pl.foreign = append(pl.foreign, e)
		}
	}
	return pl, nil
}

// rasterize dispatches every owned entry to the pool and writes the results
// as they arrive. It returns once every entry is resolved, written or
// failed, and reports the first failure.
//
// A rasterizer error fails the slot for good. Errors from the pool itself
// (closed pool, spin-up failure, worker panic) release the slot instead, so
// a later request rasterizes the glyph again.
func (r *Renderer) rasterize(a *atlas.Atlas, owned []*atlas.Entry, exponent float64) (map[glyph.ID]time.Duration, error) {
	if len(owned) == 0 {
		return nil, nil
	}
	size := a.Key().GlyphSize

	var (
		g       errgroup.Group
		mu      sync.Mutex
		timings = make(map[glyph.ID]time.Duration, len(owned))
	)
	bySlot := make(map[int]*atlas.Entry, len(owned))
	for _, e := range owned {
		bySlot[e.Slot] = e
	}

	for _, e := range owned {
		if e.Empty() {
			// Nothing to rasterize: the slot stays blank.
			if err := a.WriteSlot(e.Slot, make([]byte, size*size)); err != nil {
				a.FailSlot(e.Slot, err)
				g.Go(func() error { return &GlyphError{GlyphID: e.ID, Slot: e.Slot, Err: err} })
			}
			continue
		}

		fut := r.pool.Dispatch(parallel.Job{
			ID: e.Slot,
			Task: sdf.Task{
				GlyphSize:   size,
				Path:        e.Path,
				ViewBox:     e.ViewBox,
				MaxDistance: e.MaxDistance,
				Exponent:    exponent,
			},
		})
		g.Go(func() error {
			out, err := fut.Wait()
			if err != nil {
				if parallel.Transient(err) {
					a.ReleaseSlot(e.Slot, err)
				} else {
					a.FailSlot(e.Slot, err)
				}
				return &GlyphError{GlyphID: e.ID, Slot: e.Slot, Err: err}
			}
			// Results complete out of order; the job ID names the slot.
			target := bySlot[out.ID]
			if err := a.WriteSlot(out.ID, out.Result.Data); err != nil {
				a.FailSlot(out.ID, err)
				return &GlyphError{GlyphID: target.ID, Slot: out.ID, Err: err}
			}
			mu.Lock()
			timings[target.ID] = out.Result.Duration
			mu.Unlock()
			return nil
		})
	}
	return timings, g.Wait()
}

// waitEntries blocks until every entry is resolved.
func waitEntries(ctx context.Context, entries []*atlas.Entry) error {
	for _, e := range entries {
		select {
		case <-e.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := e.Err(); err != nil {
			return &GlyphError{GlyphID: e.ID, Slot: e.Slot, Err: err}
		}
	}
	return nil
}

// RendererStats aggregates renderer, pool and atlas counters.
type RendererStats struct {
	Renders  uint64
	Failures uint64

	Lanes      int
	LiveLanes  int
	SpinUps    uint64
	TearDowns  uint64
	Dispatched uint64

	// Cache sums the memo counters of every worker incarnation. Zero
	// without WithCache.
	Cache sdfcache.MemoStats

	Atlases []atlas.Stats
}

// Stats returns a snapshot of the renderer counters.
func (r *Renderer) Stats() RendererStats {
	st := RendererStats{
		Renders:  r.renders.Load(),
		Failures: r.failures.Load(),
		Cache:    r.cacheStats.Stats(),
		Atlases:  r.store.Stats(),
	}
	if r.running.Load() {
		ps := r.pool.Stats()
		st.Lanes = ps.Lanes
		st.LiveLanes = ps.Live
		st.SpinUps = ps.SpinUps
		st.TearDowns = ps.TearDowns
		st.Dispatched = ps.Dispatched
	}
	return st
}

// Close stops the worker pool. Renders already dispatched finish first.
// Close is idempotent - multiple calls are safe.
func (r *Renderer) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	if r.running.Load() {
		r.pool.Close()
	}
	return nil
}

func cloneSlice[S ~[]E, E any](s S) S {
	if s == nil {
		return nil
	}
	return append(S(nil), s...)
}
