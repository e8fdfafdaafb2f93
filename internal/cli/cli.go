// Package cli implements the sdfatlas command-line interface.
//
// The commands drive an sdftext.Renderer from the shell:
//   - render: typeset a string and write the atlas PNG plus the render info JSON
//   - serve: expose the renderer over HTTP
//   - config: print the effective configuration as TOML
//
// All commands accept --config to load a TOML configuration file and
// --redis to share rasterized distance fields through Redis. Library
// diagnostics are routed through the CLI logger (charmbracelet/log).
package cli

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gogpu/gputypes"
	"github.com/spf13/cobra"

	"github.com/gogpu/sdftext"
	"github.com/gogpu/sdftext/gpusink"
	"github.com/gogpu/sdftext/sdfcache"
)

const appName = "sdfatlas"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	redisAddr  string
	redisTTL   time.Duration
	fitGPU     bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "sdfatlas builds signed distance field glyph atlases",
		Long:         `sdfatlas typesets text and packs the glyphs' signed distance fields into a channel-packed RGBA texture atlas.`,
		Version:      sdftext.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			sdftext.SetLogger(slog.New(c.Logger))
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&c.configPath, "config", "c", "", "TOML configuration file")
	pf.StringVar(&c.redisAddr, "redis", "", "Redis address for the shared distance field cache")
	pf.BoolVar(&c.fitGPU, "fit-gpu", false, "cap atlas height at the default GPU texture limit")
	pf.DurationVar(&c.redisTTL, "redis-ttl", sdfcache.DefaultRedisTTL, "lifetime of cached distance fields in Redis")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.configCommand())

	return root
}

// newRenderer builds a renderer from the configuration file and the cache
// flags. The returned cleanup closes the renderer and the cache.
func (c *CLI) newRenderer(ctx context.Context, extra ...sdftext.ConfigOption) (*sdftext.Renderer, func(), error) {
	cfg, err := c.loadConfig(extra...)
	if err != nil {
		return nil, nil, err
	}

	registry := sdftext.NewRegistry()
	if err := registry.Configure(sdftext.WithConfig(cfg)); err != nil {
		return nil, nil, err
	}
	opts := []sdftext.Option{sdftext.WithRegistry(registry)}

	var cache *sdfcache.Redis
	if c.redisAddr != "" {
		cache, err = sdfcache.DialRedis(ctx, c.redisAddr, c.redisTTL)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, sdftext.WithCache(cache))
		c.Logger.Debug("Using Redis cache", "addr", c.redisAddr, "ttl", c.redisTTL)
	}

	r := sdftext.NewRenderer(opts...)
	cleanup := func() {
		_ = r.Close()
		if cache != nil {
			_ = cache.Close()
		}
	}
	return r, cleanup, nil
}

// loadConfig reads the configuration file if one was given and applies
// extra on top of it.
func (c *CLI) loadConfig(extra ...sdftext.ConfigOption) (sdftext.Config, error) {
	cfg := sdftext.DefaultConfig()
	if c.configPath != "" {
		loaded, err := LoadConfigFile(c.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	for _, opt := range extra {
		opt(&cfg)
	}
	if c.fitGPU {
		limit := gpusink.MaxAtlasHeight(gputypes.DefaultLimits())
		if cfg.MaxTextureHeight == 0 || cfg.MaxTextureHeight > limit {
			cfg.MaxTextureHeight = limit
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
