package typeset

import (
	"context"
	"sync"
	"time"
	"unicode"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	ot "github.com/go-text/typesetting/font/opentype"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/bidi"

	"github.com/gogpu/sdftext/glyph"
)

// Shaper is the default Typesetter. It shapes with HarfBuzz through
// go-text/typesetting.
//
// Shaper is safe for concurrent use. Parsed fonts are shared; faces are
// created per Typeset call because font.Face is not safe for concurrent
// use. HarfbuzzShaper instances are pooled for the same reason.
type Shaper struct {
	loader *FontLoader

	shaperPool sync.Pool

	// outlines caches glyph outlines per parsed font.
	mu       sync.RWMutex
	outlines map[outlineKey]GlyphData
}

type outlineKey struct {
	font *font.Font
	id   glyph.ID
}

// NewShaper creates a shaper that resolves fonts through loader.
// A nil loader gets a fresh NewFontLoader.
func NewShaper(loader *FontLoader) *Shaper {
	if loader == nil {
		loader = NewFontLoader()
	}
	return &Shaper{
		loader: loader,
		shaperPool: sync.Pool{
			New: func() any {
				return &shaping.HarfbuzzShaper{}
			},
		},
		outlines: make(map[outlineKey]GlyphData),
	}
}

// Loader returns the font loader.
func (s *Shaper) Loader() *FontLoader {
	return s.loader
}

// placed is a shaped glyph relative to its line origin, in font units.
type placed struct {
	id        font.GID
	x, y      float64
	charIndex int
}

// shapedLine is one laid out line.
type shapedLine struct {
	glyphs []placed
	width  float64
}

// span is a half-open rune range.
type span struct {
	start, end int
}

// Typeset implements Typesetter.
func (s *Shaper) Typeset(ctx context.Context, params Params) (*Layout, error) {
	start := time.Now()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	f, err := s.loader.Load(ctx, params.FontURL)
	if err != nil {
		return nil, err
	}
	fontLoad := time.Since(start)

	face := f.newFace()
	upem := float64(f.UnitsPerEm())
	scale := params.FontSize / upem

	ext, ok := face.FontHExtents()
	if !ok {
		ext = font.FontExtents{Ascender: float32(upem * 0.8), Descender: float32(-upem * 0.2)}
	}
	asc, desc, gap := float64(ext.Ascender), float64(ext.Descender), float64(ext.LineGap)

	lineHeight := params.LineHeight * upem
	if lineHeight == 0 {
		lineHeight = asc - desc + gap
	}

	layout := &Layout{
		GlyphData:  make(map[glyph.ID]GlyphData),
		FontSize:   params.FontSize,
		UnitsPerEm: upem,
		Ascender:   asc * scale,
		Descender:  desc * scale,
		LineHeight: lineHeight * scale,
		FontLoad:   fontLoad,
	}

	if params.Text == "" {
		layout.Duration = time.Since(start)
		return layout, nil
	}

	runes := []rune(params.Text)
	letterSpacing := params.LetterSpacing * upem
	maxWidth := params.MaxWidth / scale

	spans := s.breakLines(face, runes, params.Direction, letterSpacing, maxWidth)
	lines := make([]shapedLine, len(spans))
	var blockWidth float64
	for i, sp := range spans {
		lines[i] = s.shapeLine(face, runes, sp, params.Direction, letterSpacing)
		blockWidth = max(blockWidth, lines[i].width)
	}

	halfLeading := (lineHeight - (asc - desc)) / 2
	topBaseline := -(halfLeading + asc)
	totalHeight := float64(len(lines)) * lineHeight

	var anchorX, anchorY float64
	switch params.AnchorX {
	case AnchorCenter:
		anchorX = -blockWidth / 2
	case AnchorRight:
		anchorX = -blockWidth
	}
	switch params.AnchorY {
	case AnchorTopBaseline:
		anchorY = -topBaseline
	case AnchorMiddle:
		anchorY = totalHeight / 2
	case AnchorBottomBaseline:
		anchorY = -(topBaseline - float64(len(lines)-1)*lineHeight)
	case AnchorBottom:
		anchorY = totalHeight
	}

	withColors := len(params.ColorRanges) > 0
	var visible, chunk glyph.BoundsAccumulator
	chunkStart := 0

	for i, line := range lines {
		baseline := topBaseline - float64(i)*lineHeight + anchorY

		var alignOffset float64
		switch params.TextAlign {
		case AlignCenter:
			alignOffset = (blockWidth - line.width) / 2
		case AlignRight:
			alignOffset = blockWidth - line.width
		}

		for _, g := range line.glyphs {
			data := s.outline(f, face, g.id)
			if data.Path.IsEmpty() {
				continue
			}

			id := glyph.ID(g.id)
			pos := glyph.Point{
				X: (anchorX + alignOffset + g.x) * scale,
				Y: (baseline + g.y) * scale,
			}
			layout.GlyphIDs = append(layout.GlyphIDs, id)
			layout.GlyphPositions = append(layout.GlyphPositions, pos)
			layout.GlyphData[id] = data

			if withColors {
				c := params.colorAt(g.charIndex)
				layout.GlyphColors = append(layout.GlyphColors, uint8(c>>16), uint8(c>>8), uint8(c))
			}

			ink := data.PathBounds.Scale(scale).Translate(pos.X, pos.Y)
			visible.AddRect(ink)
			chunk.AddRect(ink)

			if n := len(layout.GlyphIDs); n-chunkStart == ChunkSize {
				layout.ChunkedBounds = append(layout.ChunkedBounds, ChunkBounds{Start: chunkStart, End: n, Rect: chunk.Bounds()})
				chunkStart = n
				chunk = glyph.BoundsAccumulator{}
			}
		}
	}
	if n := len(layout.GlyphIDs); n > chunkStart {
		layout.ChunkedBounds = append(layout.ChunkedBounds, ChunkBounds{Start: chunkStart, End: n, Rect: chunk.Bounds()})
	}

	layout.TopBaseline = (topBaseline + anchorY) * scale
	layout.BlockBounds = glyph.Rect{
		MinX: anchorX * scale,
		MinY: (anchorY - totalHeight) * scale,
		MaxX: (anchorX + blockWidth) * scale,
		MaxY: anchorY * scale,
	}
	layout.VisibleBounds = visible.Bounds()
	layout.Duration = time.Since(start)

	slogger().Debug("typeset: layout done",
		"font", f.Source, "runes", len(runes), "lines", len(lines),
		"glyphs", len(layout.GlyphIDs), "unique", len(layout.GlyphData))
	return layout, nil
}

// breakLines splits runes at newlines and, when maxWidth is positive,
// wraps each paragraph greedily at whitespace.
func (s *Shaper) breakLines(face *font.Face, runes []rune, dir Direction, letterSpacing, maxWidth float64) []span {
	var lines []span
	paraStart := 0
	for i := 0; i <= len(runes); i++ {
		if i < len(runes) && runes[i] != '\n' {
			continue
		}
		end := i
		if end > paraStart && runes[end-1] == '\r' {
			end--
		}
		if maxWidth > 0 {
			lines = append(lines, s.wrap(face, runes, span{paraStart, end}, dir, letterSpacing, maxWidth)...)
		} else {
			lines = append(lines, span{paraStart, end})
		}
		paraStart = i + 1
	}
	return lines
}

// wrap breaks one paragraph. Each token is a word plus the whitespace
// after it; a token that does not fit starts a new line unless it is the
// first on its line. Overlong words are not split.
func (s *Shaper) wrap(face *font.Face, runes []rune, para span, dir Direction, letterSpacing, maxWidth float64) []span {
	var lines []span
	lineStart := para.start
	var lineWidth float64

	i := para.start
	for i < para.end {
		wordStart := i
		for i < para.end && !unicode.IsSpace(runes[i]) {
			i++
		}
		wordEnd := i
		for i < para.end && unicode.IsSpace(runes[i]) {
			i++
		}

		content := s.measure(face, runes, span{wordStart, wordEnd}, dir, letterSpacing)
		if wordStart > lineStart && lineWidth+content > maxWidth {
			lines = append(lines, span{lineStart, wordStart})
			lineStart = wordStart
			lineWidth = 0
		}
		lineWidth += content + s.measure(face, runes, span{wordEnd, i}, dir, letterSpacing)
	}
	return append(lines, span{lineStart, para.end})
}

// measure returns the advance width of a rune range in font units.
func (s *Shaper) measure(face *font.Face, runes []rune, sp span, dir Direction, letterSpacing float64) float64 {
	if sp.end <= sp.start {
		return 0
	}
	out := s.shape(face, runes, sp, dir == DirectionRTL)
	return fixedToFloat(out.Advance) + letterSpacing*float64(len(out.Glyphs))
}

// shapeLine shapes one line in visual order. Trailing whitespace does not
// count towards the line width.
func (s *Shaper) shapeLine(face *font.Face, runes []rune, sp span, dir Direction, letterSpacing float64) shapedLine {
	end := sp.end
	for end > sp.start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	if end == sp.start {
		return shapedLine{}
	}

	var line shapedLine
	var penX float64
	for _, run := range visualRuns(runes[sp.start:end], dir) {
		out := s.shape(face, runes, span{sp.start + run.start, sp.start + run.end}, run.rtl)
		for _, g := range out.Glyphs {
			line.glyphs = append(line.glyphs, placed{
				id:        g.GlyphID,
				x:         penX + fixedToFloat(g.XOffset),
				y:         fixedToFloat(g.YOffset),
				charIndex: g.TextIndex(),
			})
			penX += fixedToFloat(g.Advance) + letterSpacing
		}
	}
	line.width = penX
	return line
}

// shape runs HarfBuzz over runes[sp.start:sp.end] with the whole slice as
// context, at a size of one unit per font unit.
func (s *Shaper) shape(face *font.Face, runes []rune, sp span, rtl bool) shaping.Output {
	dir := di.DirectionLTR
	if rtl {
		dir = di.DirectionRTL
	}
	input := shaping.Input{
		Text:      runes,
		RunStart:  sp.start,
		RunEnd:    sp.end,
		Direction: dir,
		Face:      face,
		Size:      fixed.Int26_6(int(face.Upem()) << 6),
		Script:    detectScript(runes[sp.start:sp.end]),
		Language:  language.NewLanguage("en"),
	}

	hb := s.shaperPool.Get().(*shaping.HarfbuzzShaper)
	out := hb.Shape(input)
	s.shaperPool.Put(hb)
	return out
}

// outline returns the cached outline of gid.
func (s *Shaper) outline(f *Font, face *font.Face, gid font.GID) GlyphData {
	key := outlineKey{font: f.font, id: glyph.ID(gid)}

	s.mu.RLock()
	data, ok := s.outlines[key]
	s.mu.RUnlock()
	if ok {
		return data
	}

	data = extractOutline(face, gid)

	s.mu.Lock()
	s.outlines[key] = data
	s.mu.Unlock()
	return data
}

// extractOutline converts the vector outline of gid. Bitmap-only and
// missing glyphs yield an empty GlyphData.
func extractOutline(face *font.Face, gid font.GID) GlyphData {
	var outline font.GlyphOutline
	switch g := face.GlyphData(gid).(type) {
	case font.GlyphOutline:
		outline = g
	case font.GlyphSVG:
		outline = g.Outline
	case font.GlyphBitmap:
		if g.Outline == nil {
			return GlyphData{}
		}
		outline = *g.Outline
	default:
		return GlyphData{}
	}

	var b glyph.Builder
	for _, seg := range outline.Segments {
		a := seg.Args
		switch seg.Op {
		case ot.SegmentOpMoveTo:
			b.MoveTo(float64(a[0].X), float64(a[0].Y))
		case ot.SegmentOpLineTo:
			b.LineTo(float64(a[0].X), float64(a[0].Y))
		case ot.SegmentOpQuadTo:
			b.QuadTo(float64(a[0].X), float64(a[0].Y), float64(a[1].X), float64(a[1].Y))
		case ot.SegmentOpCubeTo:
			b.CubicTo(float64(a[0].X), float64(a[0].Y), float64(a[1].X), float64(a[1].Y), float64(a[2].X), float64(a[2].Y))
		}
	}
	path := b.Path()
	if path.IsEmpty() {
		return GlyphData{}
	}
	return GlyphData{Path: path, PathBounds: path.Bounds()}
}

// bidiRun is a directional run, relative to the line start.
type bidiRun struct {
	start, end int
	rtl        bool
}

// visualRuns splits a line into directional runs in display order.
func visualRuns(line []rune, dir Direction) []bidiRun {
	fallback := []bidiRun{{start: 0, end: len(line), rtl: dir == DirectionRTL}}

	var defaultDir bidi.Direction
	switch dir {
	case DirectionRTL:
		defaultDir = bidi.RightToLeft
	case DirectionLTR:
		defaultDir = bidi.LeftToRight
	default:
		if !hasRTL(line) {
			return fallback
		}
		defaultDir = bidi.Neutral
	}

	p := bidi.Paragraph{}
	if _, err := p.SetString(string(line), bidi.DefaultDirection(defaultDir)); err != nil {
		return fallback
	}
	ordering, err := p.Order()
	if err != nil || ordering.NumRuns() == 0 {
		return fallback
	}

	// run.Pos() returns rune indices, end inclusive
	runs := make([]bidiRun, 0, ordering.NumRuns())
	for i := 0; i < ordering.NumRuns(); i++ {
		run := ordering.Run(i)
		startRune, endRune := run.Pos()
		runs = append(runs, bidiRun{
			start: startRune,
			end:   endRune + 1,
			rtl:   run.Direction() == bidi.RightToLeft,
		})
	}
	return runs
}

// hasRTL reports whether the line contains any right-to-left script.
func hasRTL(line []rune) bool {
	for _, r := range line {
		if unicode.In(r, unicode.Arabic, unicode.Hebrew, unicode.Syriac, unicode.Thaana, unicode.Nko) {
			return true
		}
	}
	return false
}

// detectScript returns the script of the first letter, or Latin.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsDigit(r) {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
