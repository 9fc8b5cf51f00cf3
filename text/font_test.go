package text

import (
	"math"
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/sprite"
	"github.com/gogpu/sprite/render"
)

// newTestFont creates a 16px Go Regular font backed by a software device.
func newTestFont(t *testing.T, opts ...Option) *Font {
	t.Helper()
	f, err := NewFont(goregular.TTF, 16, render.NewSoftwareDevice(nil), opts...)
	if err != nil {
		t.Fatalf("NewFont: %v", err)
	}
	return f
}

func collect(t *testing.T, f *Font, s string, rtl bool) []sprite.Glyph {
	t.Helper()
	var out []sprite.Glyph
	err := f.LayoutGlyphs(s, rtl, func(g sprite.Glyph) bool {
		out = append(out, g)
		return true
	})
	if err != nil {
		t.Fatalf("LayoutGlyphs(%q): %v", s, err)
	}
	return out
}

func TestNewFont(t *testing.T) {
	f := newTestFont(t)

	if f.Size() != 16 {
		t.Errorf("Size = %v, want 16", f.Size())
	}
	if f.Ascent() <= 0 || f.Descent() <= 0 {
		t.Errorf("Ascent, Descent = %v, %v, want both > 0", f.Ascent(), f.Descent())
	}
	if f.LineHeight() < f.Ascent() {
		t.Errorf("LineHeight = %v, want >= Ascent %v", f.LineHeight(), f.Ascent())
	}
	tex := f.Texture()
	if tex == nil {
		t.Fatal("Texture is nil")
	}
	if tex.Width() != defaultAtlasWidth {
		t.Errorf("atlas width = %d, want %d", tex.Width(), defaultAtlasWidth)
	}
}

func TestNewFontErrors(t *testing.T) {
	dev := render.NewSoftwareDevice(nil)
	tests := []struct {
		name    string
		ttf     []byte
		size    float64
		creator render.TextureCreator
		opts    []Option
	}{
		{"zero size", goregular.TTF, 0, dev, nil},
		{"nil creator", goregular.TTF, 16, nil, nil},
		{"garbage font", []byte("not a font"), 16, dev, nil},
		{"atlas too narrow", goregular.TTF, 16, dev, []Option{WithAtlasWidth(4)}},
		{"only spaces", goregular.TTF, 16, dev, []Option{WithRunes("  ")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFont(tt.ttf, tt.size, tt.creator, tt.opts...); err == nil {
				t.Error("NewFont succeeded, want error")
			}
		})
	}
}

func TestLayoutGlyphsLatin(t *testing.T) {
	f := newTestFont(t)
	glyphs := collect(t, f, "Hi g", false)

	// The space has no outline.
	if len(glyphs) != 3 {
		t.Fatalf("glyphs = %d, want 3", len(glyphs))
	}
	atlas := sprite.R(0, 0, float32(f.Texture().Width()), float32(f.Texture().Height()))
	for i, g := range glyphs {
		if g.Texture != f.Texture() {
			t.Errorf("glyph %d: texture is not the atlas", i)
		}
		if g.Dest.Width != g.Source.Width || g.Dest.Height != g.Source.Height {
			t.Errorf("glyph %d: dest %+v and source %+v differ in size", i, g.Dest, g.Source)
		}
		if g.Source.X < 0 || g.Source.Y < 0 ||
			g.Source.X+g.Source.Width > atlas.Width || g.Source.Y+g.Source.Height > atlas.Height {
			t.Errorf("glyph %d: source %+v outside atlas %+v", i, g.Source, atlas)
		}
		if i > 0 && g.Dest.X <= glyphs[i-1].Dest.X {
			t.Errorf("glyph %d: x %v not right of previous %v", i, g.Dest.X, glyphs[i-1].Dest.X)
		}
	}
	// 'H' sits on the baseline, 'g' descends below it.
	if h := glyphs[0].Dest; h.Y >= 0 || h.Y+h.Height > 1 {
		t.Errorf("'H' dest %+v, want above the baseline", h)
	}
	if g := glyphs[2].Dest; g.Y+g.Height <= 1 {
		t.Errorf("'g' dest %+v, want a descender", g)
	}
}

func TestLayoutGlyphsLines(t *testing.T) {
	f := newTestFont(t)
	glyphs := collect(t, f, "x\nx", false)
	if len(glyphs) != 2 {
		t.Fatalf("glyphs = %d, want 2", len(glyphs))
	}
	a, b := glyphs[0].Dest, glyphs[1].Dest
	if a.X != b.X {
		t.Errorf("line starts differ: %v and %v", a.X, b.X)
	}
	if d := b.Y - a.Y; math.Abs(float64(d-f.LineHeight())) > 1e-3 {
		t.Errorf("line advance = %v, want %v", d, f.LineHeight())
	}
}

func TestLayoutGlyphsRightToLeft(t *testing.T) {
	f := newTestFont(t)
	glyphs := collect(t, f, "abc", true)
	if len(glyphs) != 3 {
		t.Fatalf("glyphs = %d, want 3", len(glyphs))
	}
	for i, g := range glyphs {
		if right := g.Dest.X + g.Dest.Width; right > 1 {
			t.Errorf("glyph %d: right edge %v, want the line to end at 0", i, right)
		}
	}
	if glyphs[0].Dest.X >= 0 {
		t.Errorf("first glyph x = %v, want negative", glyphs[0].Dest.X)
	}
}

func TestLayoutGlyphsStopsEarly(t *testing.T) {
	f := newTestFont(t)
	n := 0
	err := f.LayoutGlyphs("abcdef", false, func(sprite.Glyph) bool {
		n++
		return n < 2
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("yield called %d times, want 2", n)
	}
}

func TestLayoutGlyphsMissingFromAtlas(t *testing.T) {
	f := newTestFont(t, WithRunes("ab"))
	full := newTestFont(t)

	glyphs := collect(t, f, "abc", false)
	if len(glyphs) != 2 {
		t.Fatalf("glyphs = %d, want 2", len(glyphs))
	}
	if f.Texture().Height() >= full.Texture().Height() {
		t.Errorf("two-glyph atlas height %d, want smaller than %d", f.Texture().Height(), full.Texture().Height())
	}
}

func TestMeasure(t *testing.T) {
	f := newTestFont(t)

	w1, h1, err := f.Measure("a")
	if err != nil {
		t.Fatal(err)
	}
	w2, h2, err := f.Measure("aa\na")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(float64(w2-2*w1)) > 1e-3 {
		t.Errorf("width of \"aa\" = %v, want %v", w2, 2*w1)
	}
	if h1 != f.LineHeight() || h2 != 2*f.LineHeight() {
		t.Errorf("heights = %v, %v, want %v, %v", h1, h2, f.LineHeight(), 2*f.LineHeight())
	}

	if w, _, _ := f.Measure(""); w != 0 {
		t.Errorf("empty width = %v, want 0", w)
	}
}

func TestDrawStringRendersGlyphs(t *testing.T) {
	target := render.NewPixmapTarget(64, 32)
	dev := render.NewSoftwareDevice(target)
	f, err := NewFont(goregular.TTF, 16, dev)
	if err != nil {
		t.Fatal(err)
	}
	b, err := sprite.NewSpriteBatch(dev, sprite.WithCoordinator(sprite.NewCoordinator()))
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	err = b.Scope(sprite.DefaultParams(), func() error {
		return b.DrawString(f, "HH", sprite.TextOptions{Position: sprite.Pt(4, 20)})
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := b.Stats().DrawCalls; got != 1 {
		t.Errorf("DrawCalls = %d, want 1", got)
	}

	img := target.Image()
	lit := 0
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			if img.RGBAAt(x, y).A > 0 {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Error("no pixels drawn")
	}
	// Nothing lands below the baseline for "HH".
	for x := 0; x < 64; x++ {
		if a := img.RGBAAt(x, 22).A; a > 0 {
			t.Errorf("pixel (%d, 22) alpha %d, want 0", x, a)
			break
		}
	}
}
