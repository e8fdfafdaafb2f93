package sdftext

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
	if cfg.SDFGlyphSize != 64 || cfg.SDFMargin != 1.0/16 || cfg.SDFExponent != 9 || cfg.TextureWidth != 2048 {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
	if cfg.Workers != 4 || cfg.WorkerIdleTimeout != 2*time.Second {
		t.Errorf("worker defaults = %d, %v", cfg.Workers, cfg.WorkerIdleTimeout)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"glyph size not pow2", func(c *Config) { c.SDFGlyphSize = 48 }, "SDFGlyphSize"},
		{"glyph size zero", func(c *Config) { c.SDFGlyphSize = 0 }, "SDFGlyphSize"},
		{"width not pow2", func(c *Config) { c.TextureWidth = 1000 }, "TextureWidth"},
		{"width below glyph", func(c *Config) { c.TextureWidth = 32 }, "TextureWidth"},
		{"negative margin", func(c *Config) { c.SDFMargin = -1 }, "SDFMargin"},
		{"margin too large", func(c *Config) { c.SDFMargin = 0.5 }, "SDFMargin"},
		{"zero exponent", func(c *Config) { c.SDFExponent = 0 }, "SDFExponent"},
		{"no workers", func(c *Config) { c.Workers = 0 }, "Workers"},
		{"zero idle timeout", func(c *Config) { c.WorkerIdleTimeout = 0 }, "WorkerIdleTimeout"},
		{"max height below glyph", func(c *Config) { c.MaxTextureHeight = 16 }, "MaxTextureHeight"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

func TestRegistryConfigure(t *testing.T) {
	r := NewRegistry()
	err := r.Configure(
		WithDefaultFontURL("builtin:gomono"),
		WithSDFGlyphSize(32),
		WithSDFMargin(0.125),
		WithSDFExponent(4),
		WithTextureWidth(512),
		WithWorkers(2),
		WithWorkerIdleTimeout(time.Second),
		WithMaxTextureHeight(4096),
	)
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	want := Config{
		DefaultFontURL:    "builtin:gomono",
		SDFGlyphSize:      32,
		SDFMargin:         0.125,
		SDFExponent:       4,
		TextureWidth:      512,
		Workers:           2,
		WorkerIdleTimeout: time.Second,
		MaxTextureHeight:  4096,
	}
	if got := r.Get(); got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestRegistryConfigurePartial(t *testing.T) {
	r := NewRegistry()
	if err := r.Configure(WithSDFGlyphSize(128)); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	want := DefaultConfig()
	want.SDFGlyphSize = 128
	if got := r.Get(); got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestRegistryConfigureInvalid(t *testing.T) {
	r := NewRegistry()
	before := r.Get()

	err := r.Configure(WithSDFGlyphSize(32), WithTextureWidth(100))
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Field != "TextureWidth" {
		t.Fatalf("Configure() error = %v, want TextureWidth ConfigError", err)
	}
	if r.Get() != before {
		t.Error("invalid Configure changed the configuration")
	}
}

func TestRegistryFrozenAfterFirstRender(t *testing.T) {
	var calls atomic.Int64
	r := newTestRenderer(t, countingWorker{calls: &calls})

	if r.Registry().Frozen() {
		t.Fatal("registry frozen before first render")
	}
	if _, err := r.Render(context.Background(), Request{Text: "A"}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !r.Registry().Frozen() {
		t.Fatal("registry not frozen after first render")
	}

	before := r.Registry().Get()
	if err := r.Registry().Configure(WithSDFGlyphSize(64)); !errors.Is(err, ErrConfigFrozen) {
		t.Errorf("Configure() after render = %v, want ErrConfigFrozen", err)
	}
	if r.Registry().Get() != before {
		t.Error("Configure after freeze changed the configuration")
	}

	info, err := r.Render(context.Background(), Request{Text: "B"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if info.SDFGlyphSize != 32 {
		t.Errorf("SDFGlyphSize = %d after ignored Configure, want 32", info.SDFGlyphSize)
	}
}

func TestRegistrySharedBetweenRenderers(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Configure(WithSDFGlyphSize(32), WithTextureWidth(128)); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	var calls atomic.Int64
	w := countingWorker{calls: &calls}
	a := NewRenderer(WithRegistry(reg), WithTypesetter(&fakeTypesetter{}), WithWorkerFactory(w.factory()))
	b := NewRenderer(WithRegistry(reg), WithTypesetter(&fakeTypesetter{}), WithWorkerFactory(w.factory()))
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})

	if _, err := a.Render(context.Background(), Request{Text: "A"}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if err := b.Registry().Configure(WithSDFGlyphSize(16)); !errors.Is(err, ErrConfigFrozen) {
		t.Errorf("Configure() through second renderer = %v, want ErrConfigFrozen", err)
	}
}
