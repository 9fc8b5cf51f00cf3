package sprite

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/sprite/render"
)

// Generator turns sprite records into vertices for one vertex layout.
//
// Generate writes four vertices per sprite, in top-left, top-right,
// bottom-right, bottom-left order, into dst, which holds exactly
// len(sprites) × 4 × Layout().Stride bytes. data[i] belongs to sprites[i].
// All sprites share tex.
type Generator[D any] interface {
	Layout() render.VertexLayout
	Generate(dst []byte, tex render.Texture, sprites []Record, data []D)
}

// NoData is the per-sprite data of batches that carry none.
type NoData struct{}

// ColorAdd is per-sprite data for PositionColorAddTexture: a premultiplied
// color added to the sampled texel, scaled by its alpha.
type ColorAdd struct {
	Color Color
}

// Corner order shared by every layout. Matches the 0,1,2,2,3,0 index
// pattern.
var (
	cornerX = [4]float32{0, 1, 1, 0}
	cornerY = [4]float32{0, 0, 1, 1}
)

// quad is the geometry of one sprite: target positions and normalized
// texture coordinates per corner.
type quad struct {
	x, y [4]float32
	u, v [4]float32
}

// build computes the corners of r. invW and invH are the reciprocal
// texture size.
func (q *quad) build(r *Record, invW, invH float32) {
	var ox, oy float32
	if r.Effects.Has(EffectOriginInDest) {
		ox, oy = ratio(r.Origin.X, r.Dest.Width), ratio(r.Origin.Y, r.Dest.Height)
	} else {
		ox, oy = ratio(r.Origin.X, r.Source.Width), ratio(r.Origin.Y, r.Source.Height)
	}

	sin, cos := float32(0), float32(1)
	if r.Rotation != 0 {
		s, c := math.Sincos(float64(r.Rotation))
		sin, cos = float32(s), float32(c)
	}

	for i := range 4 {
		lx := (cornerX[i] - ox) * r.Dest.Width
		ly := (cornerY[i] - oy) * r.Dest.Height
		q.x[i] = r.Dest.X + lx*cos - ly*sin
		q.y[i] = r.Dest.Y + lx*sin + ly*cos

		u, v := cornerX[i], cornerY[i]
		if r.Effects.Has(EffectFlipHorizontal) {
			u = 1 - u
		}
		if r.Effects.Has(EffectFlipVertical) {
			v = 1 - v
		}
		q.u[i] = (r.Source.X + u*r.Source.Width) * invW
		q.v[i] = (r.Source.Y + v*r.Source.Height) * invH
	}
}

func ratio(a, b float32) float32 {
	if b == 0 {
		return 0
	}
	return a / b
}

func reciprocalSize(tex render.Texture) (float32, float32) {
	return 1 / float32(max(tex.Width(), 1)), 1 / float32(max(tex.Height(), 1))
}

func putFloat32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func putUnorm16(b []byte, v float32) {
	switch {
	case v <= 0:
		binary.LittleEndian.PutUint16(b, 0)
	case v >= 1:
		binary.LittleEndian.PutUint16(b, math.MaxUint16)
	default:
		binary.LittleEndian.PutUint16(b, uint16(v*math.MaxUint16+0.5))
	}
}

// PositionColorTexture writes float32x3 position, unorm8x4 color and
// float32x2 texture coordinates. 24 bytes per vertex. The per-sprite data
// is ignored.
type PositionColorTexture[D any] struct{}

var positionColorTextureLayout = render.VertexLayout{
	Stride: 24,
	Attributes: []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: render.LocationPosition},
		{Format: gputypes.VertexFormatUnorm8x4, Offset: 12, ShaderLocation: render.LocationColor},
		{Format: gputypes.VertexFormatFloat32x2, Offset: 16, ShaderLocation: render.LocationTexCoord},
	},
}

// Layout returns the vertex layout.
func (PositionColorTexture[D]) Layout() render.VertexLayout { return positionColorTextureLayout }

// Generate writes the vertices of sprites into dst.
func (PositionColorTexture[D]) Generate(dst []byte, tex render.Texture, sprites []Record, _ []D) {
	const stride = 24
	invW, invH := reciprocalSize(tex)
	var q quad
	for i := range sprites {
		r := &sprites[i]
		q.build(r, invW, invH)
		c := r.Color.RGBA8()
		for k := range 4 {
			v := dst[(i*4+k)*stride:]
			putFloat32(v[0:], q.x[k])
			putFloat32(v[4:], q.y[k])
			putFloat32(v[8:], r.Depth)
			copy(v[12:16], c[:])
			putFloat32(v[16:], q.u[k])
			putFloat32(v[20:], q.v[k])
		}
	}
}

// PositionColorTexture16 is PositionColorTexture with texture coordinates
// quantized to unorm16x2. 20 bytes per vertex.
type PositionColorTexture16[D any] struct{}

var positionColorTexture16Layout = render.VertexLayout{
	Stride: 20,
	Attributes: []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: render.LocationPosition},
		{Format: gputypes.VertexFormatUnorm8x4, Offset: 12, ShaderLocation: render.LocationColor},
		{Format: gputypes.VertexFormatUnorm16x2, Offset: 16, ShaderLocation: render.LocationTexCoord},
	},
}

// Layout returns the vertex layout.
func (PositionColorTexture16[D]) Layout() render.VertexLayout { return positionColorTexture16Layout }

// Generate writes the vertices of sprites into dst.
func (PositionColorTexture16[D]) Generate(dst []byte, tex render.Texture, sprites []Record, _ []D) {
	const stride = 20
	invW, invH := reciprocalSize(tex)
	var q quad
	for i := range sprites {
		r := &sprites[i]
		q.build(r, invW, invH)
		c := r.Color.RGBA8()
		for k := range 4 {
			v := dst[(i*4+k)*stride:]
			putFloat32(v[0:], q.x[k])
			putFloat32(v[4:], q.y[k])
			putFloat32(v[8:], r.Depth)
			copy(v[12:16], c[:])
			putUnorm16(v[16:], q.u[k])
			putUnorm16(v[18:], q.v[k])
		}
	}
}

// PositionColorAddTexture extends PositionColorTexture with the
// per-sprite ColorAdd at shader location 3. 28 bytes per vertex.
type PositionColorAddTexture struct{}

var positionColorAddTextureLayout = render.VertexLayout{
	Stride: 28,
	Attributes: []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: render.LocationPosition},
		{Format: gputypes.VertexFormatUnorm8x4, Offset: 12, ShaderLocation: render.LocationColor},
		{Format: gputypes.VertexFormatFloat32x2, Offset: 16, ShaderLocation: render.LocationTexCoord},
		{Format: gputypes.VertexFormatUnorm8x4, Offset: 24, ShaderLocation: render.LocationColorAdd},
	},
}

// Layout returns the vertex layout.
func (PositionColorAddTexture) Layout() render.VertexLayout { return positionColorAddTextureLayout }

// Generate writes the vertices of sprites into dst.
func (PositionColorAddTexture) Generate(dst []byte, tex render.Texture, sprites []Record, data []ColorAdd) {
	const stride = 28
	invW, invH := reciprocalSize(tex)
	var q quad
	for i := range sprites {
		r := &sprites[i]
		q.build(r, invW, invH)
		c := r.Color.RGBA8()
		add := data[i].Color.RGBA8()
		for k := range 4 {
			v := dst[(i*4+k)*stride:]
			putFloat32(v[0:], q.x[k])
			putFloat32(v[4:], q.y[k])
			putFloat32(v[8:], r.Depth)
			copy(v[12:16], c[:])
			putFloat32(v[16:], q.u[k])
			putFloat32(v[20:], q.v[k])
			copy(v[24:28], add[:])
		}
	}
}

var (
	_ Generator[NoData]   = PositionColorTexture[NoData]{}
	_ Generator[NoData]   = PositionColorTexture16[NoData]{}
	_ Generator[ColorAdd] = PositionColorAddTexture{}
)
