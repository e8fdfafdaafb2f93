package sdftext

import (
	"math"
	"sync"
	"time"

	"github.com/gogpu/sdftext/internal/parallel"
)

// Default configuration values.
const (
	DefaultSDFGlyphSize      = 64
	DefaultSDFMargin         = 1.0 / 16
	DefaultSDFExponent       = 9
	DefaultTextureWidth      = 2048
	DefaultWorkers           = 4
	DefaultWorkerIdleTimeout = parallel.DefaultIdleTimeout
)

// Config holds the process-wide rendering configuration.
type Config struct {
	// DefaultFontURL is used by requests without a font and as the fallback
	// when a font fails to load. Empty selects the embedded Go Regular font.
	DefaultFontURL string `toml:"default_font_url"`

	// SDFGlyphSize is the atlas cell size in pixels. Must be a power of 2.
	SDFGlyphSize int `toml:"sdf_glyph_size"`

	// SDFMargin is the share of SDFGlyphSize kept around each outline for
	// the distance falloff.
	SDFMargin float64 `toml:"sdf_margin"`

	// SDFExponent shapes the distance encoding curve.
	SDFExponent float64 `toml:"sdf_exponent"`

	// TextureWidth is the fixed atlas width. Must be a power of 2.
	TextureWidth int `toml:"texture_width"`

	// Workers is the number of rasterization lanes.
	Workers int `toml:"workers"`

	// WorkerIdleTimeout is how long an idle lane keeps its worker.
	WorkerIdleTimeout time.Duration `toml:"worker_idle_timeout"`

	// MaxTextureHeight caps atlas growth. Zero means unbounded.
	MaxTextureHeight int `toml:"max_texture_height"`
}

// DefaultConfig returns the configuration used when Configure is never called.
func DefaultConfig() Config {
	return Config{
		SDFGlyphSize:      DefaultSDFGlyphSize,
		SDFMargin:         DefaultSDFMargin,
		SDFExponent:       DefaultSDFExponent,
		TextureWidth:      DefaultTextureWidth,
		Workers:           DefaultWorkers,
		WorkerIdleTimeout: DefaultWorkerIdleTimeout,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !isPowerOfTwo(c.SDFGlyphSize) {
		return &ConfigError{Field: "SDFGlyphSize", Reason: "must be a positive power of 2"}
	}
	if !isPowerOfTwo(c.TextureWidth) {
		return &ConfigError{Field: "TextureWidth", Reason: "must be a positive power of 2"}
	}
	if c.TextureWidth < c.SDFGlyphSize {
		return &ConfigError{Field: "TextureWidth", Reason: "must be at least SDFGlyphSize"}
	}
	if math.IsNaN(c.SDFMargin) || c.SDFMargin < 0 || c.SDFMargin >= 0.5 {
		return &ConfigError{Field: "SDFMargin", Reason: "must be in [0, 0.5)"}
	}
	if !(c.SDFExponent > 0) || math.IsInf(c.SDFExponent, 0) {
		return &ConfigError{Field: "SDFExponent", Reason: "must be positive"}
	}
	if c.Workers < 1 {
		return &ConfigError{Field: "Workers", Reason: "must be at least 1"}
	}
	if c.WorkerIdleTimeout <= 0 {
		return &ConfigError{Field: "WorkerIdleTimeout", Reason: "must be positive"}
	}
	if c.MaxTextureHeight < 0 {
		return &ConfigError{Field: "MaxTextureHeight", Reason: "must be non-negative"}
	}
	if c.MaxTextureHeight > 0 && c.MaxTextureHeight < c.SDFGlyphSize {
		return &ConfigError{Field: "MaxTextureHeight", Reason: "must be at least SDFGlyphSize"}
	}
	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// ConfigOption overrides one configuration field.
type ConfigOption func(*Config)

// WithDefaultFontURL sets the default and fallback font.
func WithDefaultFontURL(url string) ConfigOption {
	return func(c *Config) { c.DefaultFontURL = url }
}

// WithSDFGlyphSize sets the default atlas cell size.
func WithSDFGlyphSize(size int) ConfigOption {
	return func(c *Config) { c.SDFGlyphSize = size }
}

// WithSDFMargin sets the margin as a fraction of the glyph size.
func WithSDFMargin(margin float64) ConfigOption {
	return func(c *Config) { c.SDFMargin = margin }
}

// WithSDFExponent sets the distance encoding exponent.
func WithSDFExponent(exp float64) ConfigOption {
	return func(c *Config) { c.SDFExponent = exp }
}

// WithTextureWidth sets the atlas width.
func WithTextureWidth(width int) ConfigOption {
	return func(c *Config) { c.TextureWidth = width }
}

// WithWorkers sets the number of rasterization lanes.
func WithWorkers(n int) ConfigOption {
	return func(c *Config) { c.Workers = n }
}

// WithWorkerIdleTimeout sets how long an idle lane keeps its worker.
func WithWorkerIdleTimeout(d time.Duration) ConfigOption {
	return func(c *Config) { c.WorkerIdleTimeout = d }
}

// WithMaxTextureHeight caps atlas growth.
func WithMaxTextureHeight(h int) ConfigOption {
	return func(c *Config) { c.MaxTextureHeight = h }
}

// WithConfig replaces every field at once.
func WithConfig(cfg Config) ConfigOption {
	return func(c *Config) { *c = cfg }
}

// Registry holds the configuration shared by every request of a Renderer.
//
// The configuration can change until the first render and is frozen from
// then on: atlases keyed on the old values may already exist, and mixing
// glyph sizes or margins inside one atlas would corrupt it.
//
// Thread safety: Registry is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	config Config
	frozen bool
}

// NewRegistry creates a registry holding DefaultConfig.
func NewRegistry() *Registry {
	return &Registry{config: DefaultConfig()}
}

// Configure applies opts on top of the current configuration.
//
// After the first render the call is ignored: a warning is logged and
// ErrConfigFrozen returned. If the result does not validate the
// configuration is left unchanged and the *ConfigError returned.
func (r *Registry) Configure(opts ...ConfigOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		Logger().Warn("sdftext: Configure called after first render, ignored")
		return ErrConfigFrozen
	}

	next := r.config
	for _, opt := range opts {
		opt(&next)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	r.config = next
	return nil
}

// Get returns a snapshot of the current configuration.
func (r *Registry) Get() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config
}

// Frozen reports whether a render has already used the configuration.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// freeze marks the configuration as used and returns it.
func (r *Registry) freeze() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.frozen {
		r.frozen = true
		Logger().Info("sdftext: configuration frozen",
			"glyphSize", r.config.SDFGlyphSize,
			"textureWidth", r.config.TextureWidth,
			"workers", r.config.Workers)
	}
	return r.config
}
