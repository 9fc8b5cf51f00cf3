package text

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/bidi"

	"github.com/gogpu/sprite"
	"github.com/gogpu/sprite/render"
)

// Font is a font at one pixel size with its glyphs rasterized into an atlas
// texture. It implements sprite.GlyphLayout.
//
// Font is safe for concurrent use. The go-text face and HarfBuzz shaper are
// not, so each layout call takes its own from a pool.
type Font struct {
	gt       *font.Font
	size     float64
	language language.Language

	ascent, descent, lineHeight float32

	texture render.Texture
	glyphs  map[sfnt.GlyphIndex]atlasGlyph

	shapers sync.Pool
}

// NewFont parses ttf, rasterizes the configured rune set at size pixels per
// em and uploads the atlas through creator.
func NewFont(ttf []byte, size float64, creator render.TextureCreator, opts ...Option) (*Font, error) {
	if size <= 0 {
		return nil, fmt.Errorf("text: invalid font size %v", size)
	}
	if creator == nil {
		return nil, errors.New("text: nil texture creator")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	sf, err := sfnt.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("text: parse font: %w", err)
	}
	face, err := font.ParseTTF(bytes.NewReader(ttf))
	if err != nil {
		return nil, fmt.Errorf("text: parse font for shaping: %w", err)
	}

	var buf sfnt.Buffer
	ppem := floatToFixed(size)
	m, err := sf.Metrics(&buf, ppem, xfont.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("text: font metrics: %w", err)
	}

	seen := make(map[sfnt.GlyphIndex]bool)
	masks := make([]glyphMask, 0, len(o.runes))
	for _, r := range o.runes {
		gid, err := sf.GlyphIndex(&buf, r)
		if err != nil || gid == 0 || seen[gid] {
			continue
		}
		seen[gid] = true
		gm, err := rasterizeGlyph(sf, &buf, gid, ppem)
		if err != nil {
			return nil, fmt.Errorf("text: rasterize %q: %w", r, err)
		}
		masks = append(masks, gm)
	}

	atlas, glyphs, err := packAtlas(masks, o.atlasWidth, o.padding)
	if err != nil {
		return nil, fmt.Errorf("text: pack atlas: %w", err)
	}
	tex, err := creator.CreateTexture(atlas)
	if err != nil {
		return nil, fmt.Errorf("text: create atlas texture: %w", err)
	}

	f := &Font{
		gt:         face.Font,
		size:       size,
		language:   language.NewLanguage(o.language),
		ascent:     fixedToFloat(m.Ascent),
		descent:    fixedToFloat(m.Descent),
		lineHeight: fixedToFloat(m.Height),
		texture:    tex,
		glyphs:     glyphs,
	}
	f.shapers.New = func() any { return &shaping.HarfbuzzShaper{} }

	sprite.Logger().Debug("text: font atlas built",
		slog.Float64("size", size),
		slog.Int("glyphs", len(glyphs)),
		slog.Int("width", atlas.Bounds().Dx()),
		slog.Int("height", atlas.Bounds().Dy()))
	return f, nil
}

// Size returns the font size in pixels per em.
func (f *Font) Size() float64 { return f.size }

// Ascent returns the distance from the baseline to the top of the line.
func (f *Font) Ascent() float32 { return f.ascent }

// Descent returns the distance from the baseline to the bottom of the line.
func (f *Font) Descent() float32 { return f.descent }

// LineHeight returns the distance between consecutive baselines.
func (f *Font) LineHeight() float32 { return f.lineHeight }

// Texture returns the glyph atlas.
func (f *Font) Texture() render.Texture { return f.texture }

// LayoutGlyphs implements sprite.GlyphLayout. The pen starts on the
// baseline of the first line; each '\n' moves it down one LineHeight.
// With rtl set, the paragraph direction is right to left and every line
// ends at x = 0.
func (f *Font) LayoutGlyphs(text string, rtl bool, yield func(sprite.Glyph) bool) error {
	for i, line := range strings.Split(text, "\n") {
		glyphs, width, err := f.shapeLine(line, rtl)
		if err != nil {
			return err
		}
		dx := float32(0)
		if rtl {
			dx = -width
		}
		dy := float32(i) * f.lineHeight
		for _, g := range glyphs {
			ag, ok := f.glyphs[g.gid]
			if !ok {
				sprite.Logger().Debug("text: glyph missing from atlas", slog.Int("gid", int(g.gid)))
				continue
			}
			if !ag.visible() {
				continue
			}
			dst := rectOf(ag.bounds)
			dst.X += g.x + dx
			dst.Y += g.y + dy
			if !yield(sprite.Glyph{Texture: f.texture, Dest: dst, Source: rectOf(ag.src)}) {
				return nil
			}
		}
	}
	return nil
}

// Measure returns the width of the widest line and the height of all
// lines of text.
func (f *Font) Measure(text string) (width, height float32, err error) {
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		_, w, err := f.shapeLine(line, false)
		if err != nil {
			return 0, 0, err
		}
		width = max(width, w)
	}
	return width, float32(len(lines)) * f.lineHeight, nil
}

// positioned is a shaped glyph with its pen position relative to the line
// start, y down.
type positioned struct {
	gid  sfnt.GlyphIndex
	x, y float32
}

// shapeLine shapes one line in visual order and returns its advance width.
func (f *Font) shapeLine(line string, rtl bool) ([]positioned, float32, error) {
	if line == "" {
		return nil, 0, nil
	}
	runes := []rune(line)
	runs, err := visualRuns(line, len(runes), rtl)
	if err != nil {
		return nil, 0, fmt.Errorf("text: bidi: %w", err)
	}

	hb := f.shapers.Get().(*shaping.HarfbuzzShaper)
	defer f.shapers.Put(hb)
	face := font.NewFace(f.gt)

	var out []positioned
	var pen float32
	for _, r := range runs {
		dir := di.DirectionLTR
		if r.rtl {
			dir = di.DirectionRTL
		}
		shaped := hb.Shape(shaping.Input{
			Text:      runes,
			RunStart:  r.start,
			RunEnd:    r.end,
			Direction: dir,
			Face:      face,
			Size:      floatToFixed(f.size),
			Script:    detectScript(runes[r.start:r.end]),
			Language:  f.language,
		})
		// Output glyphs are in visual order.
		for _, g := range shaped.Glyphs {
			out = append(out, positioned{
				gid: sfnt.GlyphIndex(g.GlyphID), //nolint:gosec // glyph IDs fit in 16 bits
				x:   pen + fixedToFloat(g.XOffset),
				y:   -fixedToFloat(g.YOffset),
			})
			pen += fixedToFloat(g.Advance)
		}
	}
	return out, pen, nil
}

// run is a directional rune range [start, end).
type run struct {
	start, end int
	rtl        bool
}

// visualRuns splits line into directional runs in visual order.
func visualRuns(line string, n int, rtl bool) ([]run, error) {
	def := bidi.LeftToRight
	if rtl {
		def = bidi.RightToLeft
	}
	var p bidi.Paragraph
	if _, err := p.SetString(line, bidi.DefaultDirection(def)); err != nil {
		return nil, err
	}
	ordering, err := p.Order()
	if err != nil {
		return nil, err
	}
	runs := make([]run, 0, ordering.NumRuns())
	for i := 0; i < ordering.NumRuns(); i++ {
		r := ordering.Run(i)
		// Pos is inclusive, in runes.
		start, end := r.Pos()
		end = min(end+1, n)
		if start >= end {
			continue
		}
		runs = append(runs, run{start: start, end: end, rtl: r.Direction() == bidi.RightToLeft})
	}
	if len(runs) == 0 {
		runs = append(runs, run{start: 0, end: n, rtl: rtl})
	}
	return runs, nil
}

// detectScript returns the script of the first non-space rune.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if r == ' ' || r == '\t' || r == '\r' {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}

func floatToFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(v * 64) }

func fixedToFloat(v fixed.Int26_6) float32 { return float32(v) / 64 }
