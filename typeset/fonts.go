package typeset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-text/typesetting/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/sync/singleflight"
)

// BuiltinPrefix marks font URLs served from embedded data.
const BuiltinPrefix = "builtin:"

// DefaultFontURL names the embedded Go Regular font.
const DefaultFontURL = BuiltinPrefix + "goregular"

// MaxFontBytes bounds a downloaded font file.
const MaxFontBytes = 32 << 20

var builtinFonts = map[string][]byte{
	"goregular": goregular.TTF,
	"gobold":    gobold.TTF,
	"goitalic":  goitalic.TTF,
	"gomono":    gomono.TTF,
}

// BuiltinFonts returns the names accepted after BuiltinPrefix.
func BuiltinFonts() []string {
	return []string{"gobold", "goitalic", "gomono", "goregular"}
}

// ErrUnsupportedScheme is returned for font URLs that are neither builtin,
// file nor http(s).
var ErrUnsupportedScheme = errors.New("typeset: unsupported font URL scheme")

// Font is a parsed font. It is safe for concurrent use; faces for shaping
// are created per call.
type Font struct {
	// URL is the location that was requested.
	URL string

	// Source is the location the data actually came from. It differs from
	// URL when loading fell back to the default font.
	Source string

	font *font.Font
}

// UnitsPerEm returns the font design grid size.
func (f *Font) UnitsPerEm() int {
	return int(f.font.Upem())
}

// Fallback reports whether the default font stands in for URL.
func (f *Font) Fallback() bool {
	return f.URL != f.Source
}

func (f *Font) newFace() *font.Face {
	return font.NewFace(f.font)
}

// ParseFont parses TrueType or OpenType data.
func ParseFont(url string, data []byte) (*Font, error) {
	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("typeset: parse %s: %w", url, err)
	}
	return &Font{URL: url, Source: url, font: face.Font}, nil
}

// FontLoader fetches and parses fonts by URL and caches them for the life
// of the loader. Concurrent loads of the same URL share one fetch.
//
// Thread safety: FontLoader is safe for concurrent use.
type FontLoader struct {
	client     *http.Client
	defaultURL string

	group singleflight.Group

	mu    sync.RWMutex
	fonts map[string]*Font
}

// LoaderOption configures a FontLoader.
type LoaderOption func(*FontLoader)

// WithHTTPClient sets the client used for http and https URLs.
func WithHTTPClient(c *http.Client) LoaderOption {
	return func(l *FontLoader) {
		if c != nil {
			l.client = c
		}
	}
}

// WithDefaultFont sets the URL used when a font fails to load. An empty
// string selects DefaultFontURL.
func WithDefaultFont(url string) LoaderOption {
	return func(l *FontLoader) {
		if url != "" {
			l.defaultURL = url
		}
	}
}

// NewFontLoader creates a loader with an empty cache.
func NewFontLoader(opts ...LoaderOption) *FontLoader {
	l := &FontLoader{
		client:     &http.Client{Timeout: 30 * time.Second},
		defaultURL: DefaultFontURL,
		fonts:      make(map[string]*Font),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultURL returns the fallback font URL.
func (l *FontLoader) DefaultURL() string {
	return l.defaultURL
}

// Load returns the font at url, or the default font if url cannot be
// loaded. An empty url selects the default font. The only error is a
// failure of the embedded font itself.
func (l *FontLoader) Load(ctx context.Context, url string) (*Font, error) {
	if url == "" {
		url = l.defaultURL
	}
	f, err := l.load(ctx, url)
	if err == nil {
		return f, nil
	}
	slogger().Warn("typeset: font load failed, using default",
		"url", url, "default", l.defaultURL, "err", err)

	if url != l.defaultURL {
		d, derr := l.load(ctx, l.defaultURL)
		if derr == nil {
			return l.fallback(ctx, url, d), nil
		}
		slogger().Warn("typeset: default font load failed", "url", l.defaultURL, "err", derr)
	}

	d, err := l.load(ctx, DefaultFontURL)
	if err != nil {
		return nil, err
	}
	return l.fallback(ctx, url, d), nil
}

// fallback records d as the font for url so the failed fetch is not
// repeated on every request. A fallback caused by a cancelled context is
// not remembered.
func (l *FontLoader) fallback(ctx context.Context, url string, d *Font) *Font {
	f := &Font{URL: url, Source: d.Source, font: d.font}
	if ctx.Err() != nil {
		return f
	}
	l.mu.Lock()
	if existing, ok := l.fonts[url]; ok {
		f = existing
	} else {
		l.fonts[url] = f
	}
	l.mu.Unlock()
	return f
}

func (l *FontLoader) load(ctx context.Context, url string) (*Font, error) {
	// Fast path: read lock
	l.mu.RLock()
	f, ok := l.fonts[url]
	l.mu.RUnlock()
	if ok {
		return f, nil
	}

	v, err, _ := l.group.Do(url, func() (any, error) {
		data, err := l.fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		f, err := ParseFont(url, data)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		if existing, ok := l.fonts[url]; ok {
			f = existing
		} else {
			l.fonts[url] = f
		}
		l.mu.Unlock()
		slogger().Debug("typeset: font loaded", "url", url, "bytes", len(data), "upem", f.UnitsPerEm())
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Font), nil
}

func (l *FontLoader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if name, ok := strings.CutPrefix(rawURL, BuiltinPrefix); ok {
		data, ok := builtinFonts[name]
		if !ok {
			return nil, fmt.Errorf("typeset: unknown builtin font %q", name)
		}
		return data, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("typeset: font URL %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case "":
		return os.ReadFile(rawURL)
	case "file":
		return os.ReadFile(u.Path)
	case "http", "https":
		return l.fetchHTTP(ctx, rawURL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func (l *FontLoader) fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("typeset: fetch %s: %s", rawURL, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFontBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxFontBytes {
		return nil, fmt.Errorf("typeset: fetch %s: font exceeds %d bytes", rawURL, MaxFontBytes)
	}
	return data, nil
}

// Len returns the number of cached fonts.
func (l *FontLoader) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.fonts)
}
