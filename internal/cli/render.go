package cli

import (
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/spf13/cobra"

	"github.com/gogpu/sdftext"
	"github.com/gogpu/sdftext/gpusink"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output        string  // base path; ".png" and ".json" are appended
	font          string  // font URL, path or builtin: name
	fontSize      float64 // em size in render units
	glyphSize     int     // per-request SDF glyph size (0 = configured)
	color         string  // base colour, "#rrggbb" or "0xRRGGBB"
	align         string  // left, center, right
	anchorX       string  // left, center, right
	anchorY       string  // top, top-baseline, middle, bottom-baseline, bottom
	direction     string  // auto, ltr, rtl
	maxWidth      float64 // wrap width (0 = no wrapping)
	letterSpacing float64 // extra advance in ems
	lineHeight    float64 // line height in ems (0 = font default)
	noJSON        bool    // skip the render info file
}

func (o *renderOpts) request(text string) sdftext.Request {
	req := sdftext.Request{
		FontURL:       o.font,
		Text:          text,
		FontSize:      o.fontSize,
		SDFGlyphSize:  o.glyphSize,
		LetterSpacing: o.letterSpacing,
		LineHeight:    o.lineHeight,
		MaxWidth:      o.maxWidth,
		TextAlign:     o.align,
		AnchorX:       o.anchorX,
		AnchorY:       o.anchorY,
		Direction:     o.direction,
	}
	if o.color != "" {
		req.Color = o.color
	}
	return req
}

// renderCommand creates the render command. The text is taken from the
// arguments joined by spaces, or from stdin when the only argument is "-".
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{output: "atlas"}

	cmd := &cobra.Command{
		Use:   "render [text...]",
		Short: "Render text and write the atlas PNG and render info JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 1 && args[0] == "-" {
				data, err := readAll(cmd)
				if err != nil {
					return err
				}
				text = data
			}
			return c.runRender(cmd, text, &opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", opts.output, "output base path")
	f.StringVarP(&opts.font, "font", "f", "", "font URL, file path or builtin: name")
	f.Float64VarP(&opts.fontSize, "size", "s", 0, "font size in render units")
	f.IntVarP(&opts.glyphSize, "glyph-size", "g", 0, "SDF glyph size in pixels (power of 2)")
	f.StringVar(&opts.color, "color", "", "text colour (#rrggbb)")
	f.StringVar(&opts.align, "align", "", "text alignment: left, center, right")
	f.StringVar(&opts.anchorX, "anchor-x", "", "horizontal anchor: left, center, right")
	f.StringVar(&opts.anchorY, "anchor-y", "", "vertical anchor: top, top-baseline, middle, bottom-baseline, bottom")
	f.StringVar(&opts.direction, "direction", "", "text direction: auto, ltr, rtl")
	f.Float64Var(&opts.maxWidth, "max-width", 0, "wrap lines longer than this width")
	f.Float64Var(&opts.letterSpacing, "letter-spacing", 0, "extra spacing between letters in ems")
	f.Float64Var(&opts.lineHeight, "line-height", 0, "line height in ems")
	f.BoolVar(&opts.noJSON, "no-json", false, "do not write the render info JSON")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, text string, opts *renderOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	r, cleanup, err := c.newRenderer(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	prog := newProgress(logger)
	info, err := r.Render(ctx, opts.request(text))
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Rendered %d glyphs, %d rasterized", info.Glyphs(), info.Timings.Rasterized()))

	pngPath := opts.output + ".png"
	if err := writePNG(pngPath, info); err != nil {
		return err
	}
	logger.Info("Wrote atlas", "path", pngPath, "width", info.TextureWidth, "height", info.TextureHeight)
	if err := gpusink.CheckLimits(gpusink.Descriptor(info.Atlas), gputypes.DefaultLimits()); err != nil {
		logger.Warn("Atlas will not fit a default GPU texture", "err", err)
	}

	if opts.noJSON {
		return nil
	}
	jsonPath := opts.output + ".json"
	if err := writeJSON(jsonPath, info); err != nil {
		return err
	}
	logger.Info("Wrote render info", "path", jsonPath)
	return nil
}

func writePNG(path string, info *sdftext.RenderInfo) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, info.Atlas.Image()); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func writeJSON(path string, info *sdftext.RenderInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("encode render info: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readAll(cmd *cobra.Command) (string, error) {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}
