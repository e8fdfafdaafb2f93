package atlas

// Config holds atlas configuration.
type Config struct {
	// GlyphSize is the width and height of one glyph cell.
	// Must be a power of 2.
	GlyphSize int

	// TextureWidth is the fixed texture width in pixels.
	// Must be a power of 2 and at least GlyphSize.
	TextureWidth int

	// Margin is the share of GlyphSize reserved around each glyph outline
	// for the distance falloff.
	Margin float64

	// MaxHeight caps texture growth. Zero means unbounded.
	MaxHeight int
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.GlyphSize < 1 || !isPowerOfTwo(c.GlyphSize) {
		return &ConfigError{Field: "GlyphSize", Reason: "must be a positive power of 2"}
	}
	if c.TextureWidth < 1 || !isPowerOfTwo(c.TextureWidth) {
		return &ConfigError{Field: "TextureWidth", Reason: "must be a positive power of 2"}
	}
	if c.TextureWidth < c.GlyphSize {
		return &ConfigError{Field: "TextureWidth", Reason: "must be at least GlyphSize"}
	}
	if c.Margin < 0 || c.Margin >= 0.5 {
		return &ConfigError{Field: "Margin", Reason: "must be in [0, 0.5)"}
	}
	if c.MaxHeight < 0 {
		return &ConfigError{Field: "MaxHeight", Reason: "must be non-negative"}
	}
	if c.MaxHeight > 0 && c.MaxHeight < c.GlyphSize {
		return &ConfigError{Field: "MaxHeight", Reason: "must be at least GlyphSize"}
	}
	return nil
}

// squaresPerRow returns how many glyph squares fit across the texture.
func (c *Config) squaresPerRow() int {
	return c.TextureWidth / c.GlyphSize
}

// capacity returns the number of slots a texture of the given height holds.
func (c *Config) capacity(height int) int {
	return c.squaresPerRow() * (height / c.GlyphSize) * 4
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Address returns the top-left pixel of the square holding slot and the
// colour channel (0=R, 1=G, 2=B, 3=A) the slot occupies.
func Address(slot, glyphSize, textureWidth int) (x, y, channel int) {
	square := slot / 4
	channel = slot % 4
	perRow := textureWidth / glyphSize
	x = (square % perRow) * glyphSize
	y = (square / perRow) * glyphSize
	return x, y, channel
}
