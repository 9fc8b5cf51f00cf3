package text

import (
	"errors"
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/gogpu/sprite"
)

// atlasGlyph locates one rasterized glyph.
type atlasGlyph struct {
	// bounds is the glyph box relative to the pen on the baseline, y down.
	bounds image.Rectangle

	// src is the glyph region in the atlas image.
	src image.Rectangle
}

func (g atlasGlyph) visible() bool { return !g.bounds.Empty() }

// glyphMask is a rasterized glyph before packing.
type glyphMask struct {
	gid    sfnt.GlyphIndex
	bounds image.Rectangle
	mask   *image.Alpha
}

// rasterizeGlyph renders glyph gid at ppem into an alpha mask. Glyphs with
// no outline (spaces) return a nil mask.
func rasterizeGlyph(f *sfnt.Font, buf *sfnt.Buffer, gid sfnt.GlyphIndex, ppem fixed.Int26_6) (glyphMask, error) {
	segs, err := f.LoadGlyph(buf, gid, ppem, nil)
	if err != nil {
		return glyphMask{}, fmt.Errorf("load glyph %d: %w", gid, err)
	}
	if len(segs) == 0 {
		return glyphMask{gid: gid}, nil
	}

	b := segs.Bounds()
	bounds := image.Rect(b.Min.X.Floor(), b.Min.Y.Floor(), b.Max.X.Ceil(), b.Max.Y.Ceil())
	if bounds.Empty() {
		return glyphMask{gid: gid}, nil
	}

	ox, oy := float32(bounds.Min.X), float32(bounds.Min.Y)
	pt := func(p fixed.Point26_6) (float32, float32) {
		return float32(p.X)/64 - ox, float32(p.Y)/64 - oy
	}

	z := vector.NewRasterizer(bounds.Dx(), bounds.Dy())
	open := false
	for _, s := range segs {
		switch s.Op {
		case sfnt.SegmentOpMoveTo:
			if open {
				z.ClosePath()
			}
			z.MoveTo(pt(s.Args[0]))
			open = true
		case sfnt.SegmentOpLineTo:
			z.LineTo(pt(s.Args[0]))
		case sfnt.SegmentOpQuadTo:
			bx, by := pt(s.Args[0])
			cx, cy := pt(s.Args[1])
			z.QuadTo(bx, by, cx, cy)
		case sfnt.SegmentOpCubeTo:
			bx, by := pt(s.Args[0])
			cx, cy := pt(s.Args[1])
			dx, dy := pt(s.Args[2])
			z.CubeTo(bx, by, cx, cy, dx, dy)
		}
	}
	if open {
		z.ClosePath()
	}

	mask := image.NewAlpha(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return glyphMask{gid: gid, bounds: bounds, mask: mask}, nil
}

// packAtlas places masks on shelves of a width-wide image and returns the
// atlas along with each glyph's location. The atlas is premultiplied white
// with the glyph coverage in every channel.
func packAtlas(masks []glyphMask, width, padding int) (*image.RGBA, map[sfnt.GlyphIndex]atlasGlyph, error) {
	glyphs := make(map[sfnt.GlyphIndex]atlasGlyph, len(masks))
	places := make([]image.Point, len(masks))

	x, y, shelf := padding, padding, 0
	for i, m := range masks {
		if m.mask == nil {
			continue
		}
		w, h := m.bounds.Dx(), m.bounds.Dy()
		if w+2*padding > width {
			return nil, nil, fmt.Errorf("glyph %d is %dpx wide, atlas is %dpx", m.gid, w, width)
		}
		if x+w+padding > width {
			x = padding
			y += shelf + padding
			shelf = 0
		}
		places[i] = image.Pt(x, y)
		x += w + padding
		shelf = max(shelf, h)
	}
	height := y + shelf + padding
	if height <= 2*padding {
		return nil, nil, errors.New("no visible glyphs")
	}

	atlas := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, m := range masks {
		if m.mask == nil {
			glyphs[m.gid] = atlasGlyph{}
			continue
		}
		src := m.mask.Bounds().Add(places[i])
		xdraw.DrawMask(atlas, src, image.White, image.Point{}, m.mask, image.Point{}, xdraw.Over)
		glyphs[m.gid] = atlasGlyph{bounds: m.bounds, src: src}
	}
	return atlas, glyphs, nil
}

func rectOf(r image.Rectangle) sprite.Rect {
	return sprite.R(float32(r.Min.X), float32(r.Min.Y), float32(r.Dx()), float32(r.Dy()))
}
