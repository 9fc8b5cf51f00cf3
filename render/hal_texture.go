// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// HALTexture is a sampled RGBA8 texture created by HALDevice.
type HALTexture struct {
	dev           *HALDevice
	id            uint64
	tex           hal.Texture
	view          hal.TextureView
	width, height int
}

// ID returns the texture ID.
func (t *HALTexture) ID() uint64 { return t.id }

// Width returns the texture width in pixels.
func (t *HALTexture) Width() int { return t.width }

// Height returns the texture height in pixels.
func (t *HALTexture) Height() int { return t.height }

// View returns the texture view, for hosts that sample sprite textures
// themselves.
func (t *HALTexture) View() hal.TextureView { return t.view }

// CreateTexture uploads img as a premultiplied RGBA8 texture. Like every
// HALDevice method it must run on the render thread.
func (d *HALDevice) CreateTexture(img image.Image) (Texture, error) {
	rgba := NewImageTexture(img).Image()
	w, h := rgba.Bounds().Dx(), rgba.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("render: empty texture %dx%d", w, h)
	}

	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "sprite_texture",
		Size:          hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("render: create texture: %w", err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "sprite_texture_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return nil, fmt.Errorf("render: create texture view: %w", err)
	}

	err = d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, Aspect: gputypes.TextureAspectAll},
		rgba.Pix,
		&hal.ImageDataLayout{BytesPerRow: uint32(rgba.Stride), RowsPerImage: uint32(h)},
		&hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
	)
	if err != nil {
		d.device.DestroyTextureView(view)
		d.device.DestroyTexture(tex)
		return nil, fmt.Errorf("render: upload texture: %w", err)
	}

	return &HALTexture{dev: d, id: nextTextureID(), tex: tex, view: view, width: w, height: h}, nil
}

// Destroy releases the texture once the GPU no longer samples it.
// Must run on the render thread.
func (t *HALTexture) Destroy() {
	if t.tex == nil {
		return
	}
	d := t.dev
	d.forgetTexture(t.id)
	if d.texture == t {
		d.texture = nil
	}
	tex, view := t.tex, t.view
	t.tex, t.view = nil, nil
	d.retire(func() {
		d.device.DestroyTextureView(view)
		d.device.DestroyTexture(tex)
	})
}
