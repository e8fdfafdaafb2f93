package typeset

import (
	"errors"
	"testing"
)

func TestParams_Validate(t *testing.T) {
	valid := Params{FontSize: 1, SDFGlyphSize: 64}

	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr bool
	}{
		{"valid", func(*Params) {}, false},
		{"zero font size", func(p *Params) { p.FontSize = 0 }, true},
		{"zero glyph size", func(p *Params) { p.SDFGlyphSize = 0 }, true},
		{"negative line height", func(p *Params) { p.LineHeight = -1 }, true},
		{"negative max width", func(p *Params) { p.MaxWidth = -1 }, true},
		{"color too wide", func(p *Params) { p.Color = 0x1000000 }, true},
		{"negative range", func(p *Params) { p.ColorRanges = []ColorRange{{Start: -1}} }, true},
		{"range color too wide", func(p *Params) { p.ColorRanges = []ColorRange{{Color: 0xFFFFFFFF}} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidParams) {
				t.Errorf("error %v does not wrap ErrInvalidParams", err)
			}
		})
	}
}

func TestParams_Clone(t *testing.T) {
	p := Params{ColorRanges: []ColorRange{{Start: 1, Color: 2}}}
	c := p.Clone()
	c.ColorRanges[0].Color = 9
	if p.ColorRanges[0].Color != 2 {
		t.Error("Clone shares ColorRanges with the original")
	}
}

func TestSortColorRanges(t *testing.T) {
	got := SortColorRanges([]ColorRange{
		{Start: 5, Color: 1},
		{Start: 0, Color: 2},
		{Start: 5, Color: 3},
	})
	want := []ColorRange{{Start: 0, Color: 2}, {Start: 5, Color: 3}}
	if len(got) != len(want) {
		t.Fatalf("SortColorRanges() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("range %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParams_ColorAt(t *testing.T) {
	p := Params{Color: 0x111111, ColorRanges: []ColorRange{{Start: 2, Color: 0x222222}, {Start: 4, Color: 0x333333}}}
	tests := []struct {
		index int
		want  uint32
	}{
		{0, 0x111111}, {1, 0x111111}, {2, 0x222222}, {3, 0x222222}, {4, 0x333333}, {100, 0x333333},
	}
	for _, tt := range tests {
		if got := p.colorAt(tt.index); got != tt.want {
			t.Errorf("colorAt(%d) = %#x, want %#x", tt.index, got, tt.want)
		}
	}
}

func TestParseEnums(t *testing.T) {
	if a, err := ParseAlign("center"); err != nil || a != AlignCenter {
		t.Errorf("ParseAlign(center) = %v, %v", a, err)
	}
	if _, err := ParseAlign("justify"); err == nil {
		t.Error("ParseAlign(justify) succeeded")
	}
	if a, err := ParseAnchorX("right"); err != nil || a != AnchorRight {
		t.Errorf("ParseAnchorX(right) = %v, %v", a, err)
	}
	if a, err := ParseAnchorY("bottom-baseline"); err != nil || a != AnchorBottomBaseline {
		t.Errorf("ParseAnchorY(bottom-baseline) = %v, %v", a, err)
	}
	if d, err := ParseDirection("rtl"); err != nil || d != DirectionRTL {
		t.Errorf("ParseDirection(rtl) = %v, %v", d, err)
	}
	if d, err := ParseDirection(""); err != nil || d != DirectionAuto {
		t.Errorf("ParseDirection(\"\") = %v, %v", d, err)
	}
	if AlignRight.String() != "right" {
		t.Errorf("AlignRight.String() = %q", AlignRight.String())
	}
}
