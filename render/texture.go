// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image"
	"sync/atomic"

	xdraw "golang.org/x/image/draw"
)

// textureIDs hands out process-unique texture IDs, so textures from
// different devices never compare equal.
var textureIDs atomic.Uint64

func nextTextureID() uint64 { return textureIDs.Add(1) }

// ImageTexture is a CPU texture holding premultiplied RGBA pixels.
type ImageTexture struct {
	id  uint64
	img *image.RGBA
}

// NewImageTexture copies img into a new texture.
func NewImageTexture(img image.Image) *ImageTexture {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)
	return &ImageTexture{id: nextTextureID(), img: rgba}
}

// ID returns the texture ID.
func (t *ImageTexture) ID() uint64 { return t.id }

// Width returns the texture width in pixels.
func (t *ImageTexture) Width() int { return t.img.Bounds().Dx() }

// Height returns the texture height in pixels.
func (t *ImageTexture) Height() int { return t.img.Bounds().Dy() }

// Image returns the texture pixels. The image shares memory with the
// texture.
func (t *ImageTexture) Image() *image.RGBA { return t.img }

// texel returns the premultiplied texel at (x, y) in [0,1].
func (t *ImageTexture) texel(x, y int) [4]float32 {
	i := y*t.img.Stride + x*4
	p := t.img.Pix[i : i+4 : i+4]
	return [4]float32{
		float32(p[0]) / 255,
		float32(p[1]) / 255,
		float32(p[2]) / 255,
		float32(p[3]) / 255,
	}
}
