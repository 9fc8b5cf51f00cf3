package sprite

import (
	"errors"
	"fmt"

	"github.com/gogpu/sprite/render"
)

// DrawOptions describes one sprite for Batch.Draw. The zero value draws
// the whole texture at its natural size at (0, 0) with a white tint.
type DrawOptions struct {
	// Position is where Origin lands. Ignored when Dest is set.
	Position Point

	// Dest, when set, is the destination rectangle: Dest.X and Dest.Y
	// locate Origin and the quad is stretched to Dest's size.
	Dest *Rect

	// Source is the sampled region in texture pixels. Nil means the
	// whole texture.
	Source *Rect

	// Color is the premultiplied tint. Nil means White; a pointer to
	// Transparent draws a fully transparent sprite.
	Color *Color

	// Rotation in radians around Origin.
	Rotation float32

	// Origin is the pivot in source pixels (see EffectOriginInDest).
	Origin Point

	// Scale multiplies the source size when Dest is nil. The zero Scale
	// means (1, 1).
	Scale Point

	Depth   float32
	Effects Effects
}

// record builds the sprite record. It reports false for a degenerate
// destination.
func (o *DrawOptions) record(tex render.Texture) (Record, bool) {
	src := Rect{Width: float32(tex.Width()), Height: float32(tex.Height())}
	if o.Source != nil {
		src = *o.Source
	}

	var dst Rect
	if o.Dest != nil {
		dst = *o.Dest
	} else {
		scale := o.Scale
		if scale == (Point{}) {
			scale = Point{X: 1, Y: 1}
		}
		dst = Rect{X: o.Position.X, Y: o.Position.Y, Width: src.Width * scale.X, Height: src.Height * scale.Y}
	}
	if dst.Empty() {
		return Record{}, false
	}

	c := White
	if o.Color != nil {
		c = *o.Color
	}
	return Record{
		Source:   src,
		Dest:     dst,
		Origin:   o.Origin,
		Rotation: o.Rotation,
		Depth:    o.Depth,
		Color:    c,
		Effects:  o.Effects,
	}, true
}

// Glyph is one positioned glyph image produced by a GlyphLayout.
type Glyph struct {
	Texture render.Texture

	// Dest is the glyph quad relative to the pen start, y axis down,
	// in unscaled text units.
	Dest Rect

	// Source is the glyph region in Texture.
	Source Rect
}

// GlyphLayout lays out text into glyph quads. LayoutGlyphs calls yield
// for every visible glyph in drawing order and stops early when yield
// returns false.
type GlyphLayout interface {
	LayoutGlyphs(text string, rtl bool, yield func(Glyph) bool) error
}

// TextOptions describes a string for Batch.DrawString.
type TextOptions struct {
	// Position is where Origin lands.
	Position Point

	// Origin is the pivot relative to the pen start, in text units.
	Origin Point

	// Color is the premultiplied tint. Nil means White.
	Color *Color

	Rotation float32

	// Scale multiplies the layout. The zero Scale means (1, 1).
	Scale Point

	Depth float32

	// Effects are applied to every glyph. EffectRightToLeft selects
	// right-to-left layout.
	Effects Effects
}

// DrawString draws text laid out by layout. Every visible glyph becomes
// one sprite with zero per-sprite data, so strings batch together with
// other sprites sharing the glyph texture.
func (b *Batch[D]) DrawString(layout GlyphLayout, text string, opts TextOptions) error {
	if b.closed {
		return ErrClosed
	}
	if !b.begun {
		return fmt.Errorf("%w: DrawString called before Begin", ErrInvalidState)
	}
	if layout == nil {
		return errors.New("sprite: nil glyph layout")
	}

	scale := opts.Scale
	if scale == (Point{}) {
		scale = Point{X: 1, Y: 1}
	}
	rot := Rotate(opts.Rotation)
	effects := opts.Effects &^ (EffectFlipHorizontal | EffectFlipVertical)

	var drawErr error
	err := layout.LayoutGlyphs(text, opts.Effects.Has(EffectRightToLeft), func(g Glyph) bool {
		local := Point{
			X: (g.Dest.X - opts.Origin.X) * scale.X,
			Y: (g.Dest.Y - opts.Origin.Y) * scale.Y,
		}
		p := rot.TransformPoint(local).Add(opts.Position)
		src := g.Source
		drawErr = b.Draw(g.Texture, DrawOptions{
			Dest:     &Rect{X: p.X, Y: p.Y, Width: g.Dest.Width * scale.X, Height: g.Dest.Height * scale.Y},
			Source:   &src,
			Color:    opts.Color,
			Rotation: opts.Rotation,
			Depth:    opts.Depth,
			Effects:  effects,
		})
		return drawErr == nil
	})
	if drawErr != nil {
		return drawErr
	}
	if err != nil {
		return fmt.Errorf("sprite: layout text: %w", err)
	}
	return nil
}
