package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/sdftext"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sdfatlas.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
sdf_glyph_size = 32
texture_width = 512
worker_idle_timeout = "5s"
default_font_url = "builtin:gomono"
`)
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() error = %v", err)
	}

	if cfg.SDFGlyphSize != 32 {
		t.Errorf("SDFGlyphSize = %d, want 32", cfg.SDFGlyphSize)
	}
	if cfg.TextureWidth != 512 {
		t.Errorf("TextureWidth = %d, want 512", cfg.TextureWidth)
	}
	if cfg.WorkerIdleTimeout != 5*time.Second {
		t.Errorf("WorkerIdleTimeout = %v, want 5s", cfg.WorkerIdleTimeout)
	}
	if cfg.DefaultFontURL != "builtin:gomono" {
		t.Errorf("DefaultFontURL = %q", cfg.DefaultFontURL)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Workers != sdftext.DefaultWorkers {
		t.Errorf("Workers = %d, want default %d", cfg.Workers, sdftext.DefaultWorkers)
	}
	if cfg.SDFExponent != sdftext.DefaultSDFExponent {
		t.Errorf("SDFExponent = %v, want default", cfg.SDFExponent)
	}
}

func TestLoadConfigFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"unknown key", "sdf_glyph_sise = 32\n", "unknown keys: sdf_glyph_sise"},
		{"invalid value", "sdf_glyph_size = 48\n", "SDFGlyphSize"},
		{"syntax", "sdf_glyph_size = \n", "load config"},
		{"wrong type", "workers = \"four\"\n", "load config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFile(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("LoadConfigFile() error = nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("LoadConfigFile() error = nil for a missing file")
		}
	})
}

func TestConfigCommand(t *testing.T) {
	path := writeConfig(t, "sdf_glyph_size = 16\n")

	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "--config", path})

	if err := root.Execute(); err != nil {
		t.Fatalf("config command error = %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"sdf_glyph_size = 16",
		"texture_width = 2048",
		"workers = 4",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	// The printed configuration loads back to the same values.
	cfg, err := LoadConfigFile(writeConfig(t, got))
	if err != nil {
		t.Fatalf("reloading printed config: %v", err)
	}
	if cfg.SDFGlyphSize != 16 || cfg.WorkerIdleTimeout != sdftext.DefaultWorkerIdleTimeout {
		t.Errorf("reloaded config = %+v", cfg)
	}
}

func TestConfigCommandFitGPU(t *testing.T) {
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "--fit-gpu"})

	if err := root.Execute(); err != nil {
		t.Fatalf("config command error = %v", err)
	}
	if !strings.Contains(out.String(), "max_texture_height = 8192") {
		t.Errorf("output does not cap the atlas height:\n%s", out.String())
	}
}
