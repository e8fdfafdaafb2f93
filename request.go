package sdftext

import (
	"fmt"
	"image/color"
	"math"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/gogpu/sdftext/typeset"
)

// DefaultColor is the colour of text that sets none.
const DefaultColor = 0xFFFFFF

// Request describes one piece of text to render. The zero value of every
// optional field selects its default.
type Request struct {
	// FontURL is an absolute URL, a path or URL relative to the renderer's
	// base URL, or a builtin: name. Empty selects the configured default.
	FontURL string `json:"font,omitempty"`

	// Text is rendered literally; "\n" starts a new line.
	Text string `json:"text"`

	// FontSize is the em size in render units. Zero selects 0.1.
	FontSize float64 `json:"fontSize,omitempty"`

	// SDFGlyphSize overrides the configured atlas cell size for this
	// request only.
	SDFGlyphSize int `json:"sdfGlyphSize,omitempty"`

	LetterSpacing float64 `json:"letterSpacing,omitempty"`
	LineHeight    float64 `json:"lineHeight,omitempty"`
	MaxWidth      float64 `json:"maxWidth,omitempty"`

	// TextAlign is "left", "center" or "right".
	TextAlign string `json:"textAlign,omitempty"`
	// AnchorX is "left", "center" or "right".
	AnchorX string `json:"anchorX,omitempty"`
	// AnchorY is "top", "top-baseline", "middle", "bottom-baseline" or "bottom".
	AnchorY string `json:"anchorY,omitempty"`
	// Direction is "auto", "ltr" or "rtl".
	Direction string `json:"direction,omitempty"`

	// Color is the base text colour. See NormalizeColor for accepted forms.
	Color any `json:"color,omitempty"`

	// ColorRanges maps a character index to the colour used from there on.
	ColorRanges map[int]any `json:"colorRanges,omitempty"`
}

// normalize resolves defaults and converts req into the immutable form the
// typesetter and atlas work with.
func normalize(req Request, cfg Config, base *url.URL) (typeset.Params, error) {
	fontURL, err := resolveFontURL(req.FontURL, cfg.DefaultFontURL, base)
	if err != nil {
		return typeset.Params{}, err
	}

	p := typeset.Params{
		FontURL:       fontURL,
		Text:          req.Text,
		FontSize:      req.FontSize,
		SDFGlyphSize:  req.SDFGlyphSize,
		LetterSpacing: req.LetterSpacing,
		LineHeight:    req.LineHeight,
		MaxWidth:      req.MaxWidth,
	}
	if p.FontSize == 0 {
		p.FontSize = typeset.DefaultFontSize
	}
	if p.SDFGlyphSize == 0 {
		p.SDFGlyphSize = cfg.SDFGlyphSize
	}
	if !isPowerOfTwo(p.SDFGlyphSize) || p.SDFGlyphSize > cfg.TextureWidth {
		return typeset.Params{}, fmt.Errorf("%w: sdfGlyphSize %d must be a power of 2 no larger than the texture width %d",
			ErrInvalidRequest, p.SDFGlyphSize, cfg.TextureWidth)
	}
	if cfg.MaxTextureHeight > 0 && p.SDFGlyphSize > cfg.MaxTextureHeight {
		return typeset.Params{}, fmt.Errorf("%w: sdfGlyphSize %d exceeds the maximum texture height %d",
			ErrInvalidRequest, p.SDFGlyphSize, cfg.MaxTextureHeight)
	}

	if p.TextAlign, err = typeset.ParseAlign(req.TextAlign); err != nil {
		return typeset.Params{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if p.AnchorX, err = typeset.ParseAnchorX(req.AnchorX); err != nil {
		return typeset.Params{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if p.AnchorY, err = typeset.ParseAnchorY(req.AnchorY); err != nil {
		return typeset.Params{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if p.Direction, err = typeset.ParseDirection(req.Direction); err != nil {
		return typeset.Params{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	p.Color = DefaultColor
	if req.Color != nil {
		if p.Color, err = NormalizeColor(req.Color); err != nil {
			return typeset.Params{}, err
		}
	}
	if len(req.ColorRanges) > 0 {
		ranges := make([]typeset.ColorRange, 0, len(req.ColorRanges))
		for start, v := range req.ColorRanges {
			c, err := NormalizeColor(v)
			if err != nil {
				return typeset.Params{}, fmt.Errorf("colour range at %d: %w", start, err)
			}
			ranges = append(ranges, typeset.ColorRange{Start: start, Color: c})
		}
		p.ColorRanges = typeset.SortColorRanges(ranges)
	}

	if err := p.Validate(); err != nil {
		return typeset.Params{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return p, nil
}

// resolveFontURL turns a font reference into the absolute form used as the
// atlas key. Relative references resolve against base, or against the
// working directory when there is no base.
func resolveFontURL(ref, def string, base *url.URL) (string, error) {
	if ref == "" {
		ref = def
	}
	if ref == "" {
		return typeset.DefaultFontURL, nil
	}
	if strings.HasPrefix(ref, typeset.BuiltinPrefix) {
		return ref, nil
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: font URL %q: %w", ErrInvalidRequest, ref, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if base != nil {
		return base.ResolveReference(u).String(), nil
	}

	abs, err := filepath.Abs(filepath.FromSlash(u.Path))
	if err != nil {
		return "", fmt.Errorf("%w: font path %q: %w", ErrInvalidRequest, ref, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

// NormalizeColor converts a colour to 0xRRGGBB. Accepted forms:
//   - integers and integral floats in [0, 0xFFFFFF]
//   - hex strings "#rgb", "#rrggbb", "rgb" or "rrggbb"
//   - any color.Color (alpha is discarded; fully transparent is rejected)
func NormalizeColor(v any) (uint32, error) {
	switch c := v.(type) {
	case int:
		return colorFromInt(int64(c))
	case int32:
		return colorFromInt(int64(c))
	case int64:
		return colorFromInt(c)
	case uint32:
		return colorFromInt(int64(c))
	case uint:
		return colorFromInt(int64(c))
	case float64:
		// JSON numbers decode as float64.
		if c != math.Trunc(c) {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrInvalidColor, c)
		}
		return colorFromInt(int64(c))
	case string:
		return colorFromHex(c)
	case color.Color:
		cf, ok := colorful.MakeColor(c)
		if !ok {
			return 0, fmt.Errorf("%w: fully transparent colour", ErrInvalidColor)
		}
		return packRGB(cf.Clamped().RGB255()), nil
	}
	return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidColor, v)
}

func colorFromInt(n int64) (uint32, error) {
	if n < 0 || n > 0xFFFFFF {
		return 0, fmt.Errorf("%w: %#x out of range", ErrInvalidColor, n)
	}
	return uint32(n), nil
}

func colorFromHex(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if len(s) != 4 && len(s) != 7 {
		return 0, fmt.Errorf("%w: %q is not a hex colour", ErrInvalidColor, s)
	}
	cf, err := colorful.Hex(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidColor, s, err)
	}
	return packRGB(cf.RGB255()), nil
}

func packRGB(r, g, b uint8) uint32 {
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}
