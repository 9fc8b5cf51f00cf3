// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image"
	"image/color"
)

// PixmapTarget is a CPU-backed render target: an *image.RGBA color plane
// and a float32 depth plane of the same size.
//
// Example:
//
//	target := render.NewPixmapTarget(800, 600)
//	dev := render.NewSoftwareDevice(target)
//	// ... draw sprites ...
//	img := target.Image()
type PixmapTarget struct {
	img   *image.RGBA
	depth []float32
}

// NewPixmapTarget creates a new CPU-backed render target.
func NewPixmapTarget(width, height int) *PixmapTarget {
	return NewPixmapTargetFromImage(image.NewRGBA(image.Rect(0, 0, width, height)))
}

// NewPixmapTargetFromImage wraps an existing *image.RGBA as a render target.
// The image is used directly without copying.
func NewPixmapTargetFromImage(img *image.RGBA) *PixmapTarget {
	t := &PixmapTarget{img: img}
	t.depth = make([]float32, img.Bounds().Dx()*img.Bounds().Dy())
	t.ClearDepth(1)
	return t
}

// Width returns the target width in pixels.
func (t *PixmapTarget) Width() int {
	return t.img.Bounds().Dx()
}

// Height returns the target height in pixels.
func (t *PixmapTarget) Height() int {
	return t.img.Bounds().Dy()
}

// Image returns the underlying *image.RGBA.
// The returned image shares memory with the target.
func (t *PixmapTarget) Image() *image.RGBA {
	return t.img
}

// Clear fills the color plane with c.
func (t *PixmapTarget) Clear(c color.Color) {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	w, h := t.Width(), t.Height()
	for y := 0; y < h; y++ {
		row := t.img.Pix[t.pixel(0, y) : t.pixel(0, y)+w*4]
		for x := 0; x < len(row); x += 4 {
			row[x], row[x+1], row[x+2], row[x+3] = rgba.R, rgba.G, rgba.B, rgba.A
		}
	}
}

// ClearDepth fills the depth plane with d.
func (t *PixmapTarget) ClearDepth(d float32) {
	for i := range t.depth {
		t.depth[i] = d
	}
}

// Depth returns the depth value at (x, y), relative to the image bounds.
func (t *PixmapTarget) Depth(x, y int) float32 {
	return t.depth[y*t.Width()+x]
}

// pixel returns the byte offset of (x, y) in the color plane, with x and y
// relative to the image bounds.
func (t *PixmapTarget) pixel(x, y int) int {
	return y*t.img.Stride + x*4
}
