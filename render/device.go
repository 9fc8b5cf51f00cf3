// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"image"

	"github.com/gogpu/gputypes"
)

// Sentinel errors returned by devices.
var (
	// ErrDeviceLost is returned when a device can no longer accept work.
	ErrDeviceLost = errors.New("render: device lost")

	// ErrBufferRange is returned when an upload or draw addresses bytes
	// outside a buffer.
	ErrBufferRange = errors.New("render: buffer range out of bounds")

	// ErrForeignResource is returned when a buffer or texture created by a
	// different device is passed in.
	ErrForeignResource = errors.New("render: resource belongs to another device")

	// ErrNoPipeline is returned when a draw is issued before ApplyState.
	ErrNoPipeline = errors.New("render: no pipeline state applied")

	// ErrNoTexture is returned when a draw is issued before a texture is bound.
	ErrNoTexture = errors.New("render: no texture bound")
)

// WriteMode selects how an upload interacts with data the GPU may still be
// reading from the same buffer.
type WriteMode uint8

const (
	// WriteNoOverwrite appends after previously uploaded data. The caller
	// promises not to touch bytes an in-flight draw may be reading, so the
	// device never waits.
	WriteNoOverwrite WriteMode = iota

	// WriteDiscard tells the device the previous contents are no longer
	// needed. The device may hand back fresh storage instead of waiting for
	// pending draws to finish.
	WriteDiscard
)

// String returns the write mode name.
func (m WriteMode) String() string {
	switch m {
	case WriteNoOverwrite:
		return "NoOverwrite"
	case WriteDiscard:
		return "Discard"
	default:
		return "Unknown"
	}
}

// PrimitiveType is the primitive topology used by DrawIndexed.
type PrimitiveType = gputypes.PrimitiveTopology

// TriangleList is the only topology the sprite batcher issues.
const TriangleList = gputypes.PrimitiveTopologyTriangleList

// Texture is a sampled image owned by a device.
//
// ID must be unique among live textures of one device; batches group and
// order sprites by it.
type Texture interface {
	ID() uint64
	Width() int
	Height() int
}

// Buffer is a GPU buffer owned by a device.
type Buffer interface {
	// Size returns the buffer size in bytes.
	Size() int
}

// VertexLayout describes one interleaved vertex stream.
type VertexLayout struct {
	// Stride is the size of one vertex in bytes.
	Stride int

	// Attributes lists the vertex attributes in shader location order.
	Attributes []gputypes.VertexAttribute
}

// Format returns the format of the attribute bound to shader location loc,
// or false if the layout does not carry it.
func (l VertexLayout) Format(loc uint32) (gputypes.VertexFormat, uint64, bool) {
	for _, a := range l.Attributes {
		if a.ShaderLocation == loc {
			return a.Format, a.Offset, true
		}
	}
	return 0, 0, false
}

// Device is the graphics device the sprite batcher drives.
//
// All methods except Invoke must be called on the render thread, that is
// from inside a function passed to Invoke or from code the host already runs
// there.
type Device interface {
	// Invoke runs fn on the render thread and blocks until it returns.
	Invoke(fn func() error) error

	// CreateVertexBuffer allocates a dynamic vertex buffer of size bytes.
	CreateVertexBuffer(size int) (Buffer, error)

	// CreateIndexBuffer allocates an immutable index buffer holding indices.
	CreateIndexBuffer(indices []uint16) (Buffer, error)

	// BufferAlignment returns the byte alignment required for vertex
	// buffer offsets.
	BufferAlignment() int

	// ApplyState binds the pipeline state for subsequent draws.
	ApplyState(state *PipelineState) error

	// SetTexture binds tex for subsequent draws.
	SetTexture(tex Texture) error

	// Upload copies data into buf at offset.
	Upload(buf Buffer, offset int, data []byte, mode WriteMode) error

	// DrawIndexed draws primitiveCount primitives using the bound vertex
	// and index buffers. Vertex indices are offset by baseVertex.
	DrawIndexed(prim PrimitiveType, vertices, indices Buffer, baseVertex, startIndex, primitiveCount int) error

	// DestroyBuffer releases buf.
	DestroyBuffer(buf Buffer)
}

// ContentLossNotifier is implemented by devices that can lose buffer
// contents (for example after a device reset). The callback runs on the
// render thread before the next frame.
type ContentLossNotifier interface {
	OnContentLost(fn func()) (unregister func())
}

// TextureCreator is implemented by devices that can create textures from
// images.
type TextureCreator interface {
	CreateTexture(img image.Image) (Texture, error)
}
