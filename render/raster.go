// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

// shadedVertex is a vertex after the transform, in target pixel space.
type shadedVertex struct {
	x, y, z float32
	color   [4]float32
	uv      [2]float32
	add     [4]float32
}

// fetchVertex decodes vertex v of data with the bound layout.
func (d *SoftwareDevice) fetchVertex(data []byte, v int) shadedVertex {
	layout := d.state.Layout
	base := data[v*layout.Stride : (v+1)*layout.Stride]

	out := shadedVertex{color: [4]float32{1, 1, 1, 1}}
	if f, off, ok := layout.Format(LocationPosition); ok {
		p := decodeAttribute(base[off:], f)
		t := d.state.Transform.Mul4x1(mgl32.Vec4{p[0], p[1], p[2], 1})
		out.x, out.y, out.z = t[0], t[1], t[2]
	}
	if f, off, ok := layout.Format(LocationColor); ok {
		out.color = decodeAttribute(base[off:], f)
	}
	if f, off, ok := layout.Format(LocationTexCoord); ok {
		uv := decodeAttribute(base[off:], f)
		out.uv = [2]float32{uv[0], uv[1]}
	}
	if f, off, ok := layout.Format(LocationColorAdd); ok {
		out.add = decodeAttribute(base[off:], f)
	}
	return out
}

// rasterize draws the triangle list idx, offset by baseVertex.
func (d *SoftwareDevice) rasterize(data []byte, idx []uint16, baseVertex int) {
	for i := 0; i+2 < len(idx); i += 3 {
		v0 := d.fetchVertex(data, baseVertex+int(idx[i]))
		v1 := d.fetchVertex(data, baseVertex+int(idx[i+1]))
		v2 := d.fetchVertex(data, baseVertex+int(idx[i+2]))
		d.triangle(v0, v1, v2)
	}
}

func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// topLeft reports whether a->b is a top or left edge of a triangle with
// positive area. Pixels exactly on such edges are filled; pixels on the
// other edges belong to the neighbouring triangle.
func topLeft(a, b shadedVertex) bool {
	dx, dy := b.x-a.x, b.y-a.y
	return (dy == 0 && dx > 0) || dy < 0
}

func inside(w float32, a, b shadedVertex) bool {
	return w > 0 || (w == 0 && topLeft(a, b))
}

// triangle fills one triangle. Positive area in y-down pixel space is the
// front face.
func (d *SoftwareDevice) triangle(v0, v1, v2 shadedVertex) {
	area := edge(v0.x, v0.y, v1.x, v1.y, v2.x, v2.y)
	if area == 0 {
		return
	}
	switch d.state.Rasterizer.CullMode {
	case gputypes.CullModeBack:
		if area < 0 {
			return
		}
	case gputypes.CullModeFront:
		if area > 0 {
			return
		}
	}
	if area < 0 {
		v1, v2 = v2, v1
		area = -area
	}

	w, h := d.target.Width(), d.target.Height()
	minX := clampInt(int(math.Floor(float64(min(v0.x, v1.x, v2.x)))), 0, w)
	maxX := clampInt(int(math.Ceil(float64(max(v0.x, v1.x, v2.x)))), 0, w)
	minY := clampInt(int(math.Floor(float64(min(v0.y, v1.y, v2.y)))), 0, h)
	maxY := clampInt(int(math.Ceil(float64(max(v0.y, v1.y, v2.y)))), 0, h)

	inv := 1 / area
	for y := minY; y < maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x < maxX; x++ {
			px := float32(x) + 0.5
			w0 := edge(v1.x, v1.y, v2.x, v2.y, px, py)
			w1 := edge(v2.x, v2.y, v0.x, v0.y, px, py)
			w2 := edge(v0.x, v0.y, v1.x, v1.y, px, py)
			if !inside(w0, v1, v2) || !inside(w1, v2, v0) || !inside(w2, v0, v1) {
				continue
			}
			b0, b1, b2 := w0*inv, w1*inv, w2*inv
			d.fragment(x, y, b0, b1, b2, &v0, &v1, &v2)
		}
	}
}

func (d *SoftwareDevice) fragment(x, y int, b0, b1, b2 float32, v0, v1, v2 *shadedVertex) {
	z := b0*v0.z + b1*v1.z + b2*v2.z
	ds := d.state.DepthStencil
	di := y*d.target.Width() + x
	if ds.DepthTest && !compareDepth(ds.Compare, z, d.target.depth[di]) {
		return
	}

	u := b0*v0.uv[0] + b1*v1.uv[0] + b2*v2.uv[0]
	v := b0*v0.uv[1] + b1*v1.uv[1] + b2*v2.uv[1]
	texel := d.sample(u, v)

	var src [4]float32
	for c := 0; c < 4; c++ {
		tint := b0*v0.color[c] + b1*v1.color[c] + b2*v2.color[c]
		src[c] = texel[c] * tint
	}
	for c := 0; c < 3; c++ {
		add := b0*v0.add[c] + b1*v1.add[c] + b2*v2.add[c]
		src[c] += add * texel[3]
	}
	if e := d.state.Effect; e != nil && e.Pixel != nil {
		src = e.Pixel(src)
	}

	if ds.DepthTest && ds.DepthWrite {
		d.target.depth[di] = z
	}

	pix := d.target.img.Pix[d.target.pixel(x, y):]
	dst := [4]float32{
		float32(pix[0]) / 255,
		float32(pix[1]) / 255,
		float32(pix[2]) / 255,
		float32(pix[3]) / 255,
	}
	out := blend(d.state.Blend, src, dst)
	for c := 0; c < 4; c++ {
		pix[c] = uint8(clamp01(out[c])*255 + 0.5)
	}
}

// sample reads the bound texture at normalized (u, v).
func (d *SoftwareDevice) sample(u, v float32) [4]float32 {
	tex := d.texture
	tw, th := tex.Width(), tex.Height()
	if tw == 0 || th == 0 {
		return [4]float32{}
	}
	fx, fy := u*float32(tw), v*float32(th)
	mode := d.state.Sampler.AddressMode

	if d.state.Sampler.Filter != gputypes.FilterModeLinear {
		return tex.texel(address(int(math.Floor(float64(fx))), tw, mode), address(int(math.Floor(float64(fy))), th, mode))
	}

	fx -= 0.5
	fy -= 0.5
	x0, y0 := int(math.Floor(float64(fx))), int(math.Floor(float64(fy)))
	tx, ty := fx-float32(x0), fy-float32(y0)
	xa, xb := address(x0, tw, mode), address(x0+1, tw, mode)
	ya, yb := address(y0, th, mode), address(y0+1, th, mode)
	c00, c10 := tex.texel(xa, ya), tex.texel(xb, ya)
	c01, c11 := tex.texel(xa, yb), tex.texel(xb, yb)

	var out [4]float32
	for c := 0; c < 4; c++ {
		top := c00[c] + (c10[c]-c00[c])*tx
		bottom := c01[c] + (c11[c]-c01[c])*tx
		out[c] = top + (bottom-top)*ty
	}
	return out
}

func address(i, n int, mode gputypes.AddressMode) int {
	switch mode {
	case gputypes.AddressModeRepeat:
		i %= n
		if i < 0 {
			i += n
		}
		return i
	case gputypes.AddressModeMirrorRepeat:
		period := 2 * n
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - 1 - i
		}
		return i
	default:
		return clampInt(i, 0, n-1)
	}
}

func compareDepth(f gputypes.CompareFunction, z, stored float32) bool {
	switch f {
	case gputypes.CompareFunctionNever:
		return false
	case gputypes.CompareFunctionLess:
		return z < stored
	case gputypes.CompareFunctionEqual:
		return z == stored
	case gputypes.CompareFunctionLessEqual:
		return z <= stored
	case gputypes.CompareFunctionGreater:
		return z > stored
	case gputypes.CompareFunctionNotEqual:
		return z != stored
	case gputypes.CompareFunctionGreaterEqual:
		return z >= stored
	default:
		return true
	}
}

func blend(s gputypes.BlendState, src, dst [4]float32) [4]float32 {
	var out [4]float32
	for c := 0; c < 3; c++ {
		out[c] = blendComponent(s.Color, c, src, dst)
	}
	out[3] = blendComponent(s.Alpha, 3, src, dst)
	return out
}

func blendComponent(bc gputypes.BlendComponent, c int, src, dst [4]float32) float32 {
	if bc.Operation == gputypes.BlendOperationUndefined {
		return src[c]
	}
	s := src[c] * blendFactor(bc.SrcFactor, c, src, dst)
	d := dst[c] * blendFactor(bc.DstFactor, c, src, dst)
	switch bc.Operation {
	case gputypes.BlendOperationSubtract:
		return s - d
	case gputypes.BlendOperationReverseSubtract:
		return d - s
	case gputypes.BlendOperationMin:
		return min(src[c], dst[c])
	case gputypes.BlendOperationMax:
		return max(src[c], dst[c])
	default:
		return s + d
	}
}

func blendFactor(f gputypes.BlendFactor, c int, src, dst [4]float32) float32 {
	switch f {
	case gputypes.BlendFactorZero:
		return 0
	case gputypes.BlendFactorSrc:
		return src[c]
	case gputypes.BlendFactorOneMinusSrc:
		return 1 - src[c]
	case gputypes.BlendFactorSrcAlpha:
		return src[3]
	case gputypes.BlendFactorOneMinusSrcAlpha:
		return 1 - src[3]
	case gputypes.BlendFactorDst:
		return dst[c]
	case gputypes.BlendFactorOneMinusDst:
		return 1 - dst[c]
	case gputypes.BlendFactorDstAlpha:
		return dst[3]
	case gputypes.BlendFactorOneMinusDstAlpha:
		return 1 - dst[3]
	case gputypes.BlendFactorSrcAlphaSaturated:
		if c == 3 {
			return 1
		}
		return min(src[3], 1-dst[3])
	default:
		return 1
	}
}

func clamp01(v float32) float32 {
	return min(max(v, 0), 1)
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
