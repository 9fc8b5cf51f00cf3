// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
)

// Errors specific to SoftwareDevice.
var (
	// ErrOutOfMemory is returned when a buffer exceeds the configured limit.
	ErrOutOfMemory = errors.New("render: out of buffer memory")
)

// CallKind identifies a recorded device call.
type CallKind uint8

// Recorded call kinds.
const (
	CallCreateBuffer CallKind = iota
	CallDestroyBuffer
	CallApplyState
	CallSetTexture
	CallUpload
	CallDraw
)

// String returns the call kind name.
func (k CallKind) String() string {
	switch k {
	case CallCreateBuffer:
		return "CreateBuffer"
	case CallDestroyBuffer:
		return "DestroyBuffer"
	case CallApplyState:
		return "ApplyState"
	case CallSetTexture:
		return "SetTexture"
	case CallUpload:
		return "Upload"
	case CallDraw:
		return "Draw"
	default:
		return "Unknown"
	}
}

// Call is one recorded device call. Only the fields relevant to Kind are set.
type Call struct {
	Kind CallKind

	// Upload and CreateBuffer.
	Mode   WriteMode
	Offset int
	Size   int

	// Draw.
	BaseVertex int
	StartIndex int
	Primitives int

	// SetTexture and Draw.
	Texture uint64
}

// SoftwareDevice is a CPU implementation of Device. It keeps buffer
// contents in memory, records every call and, when a target is attached,
// rasterizes draws into it.
//
// SoftwareDevice has no thread affinity: Invoke runs fn on the calling
// goroutine. It is safe for concurrent use, but draws are serialized.
type SoftwareDevice struct {
	mu sync.Mutex

	target    *PixmapTarget
	alignment int
	maxBuffer int

	state   *PipelineState
	texture *ImageTexture

	calls   []Call
	buffers map[*softwareBuffer]struct{}

	lossFns map[int]func()
	lossSeq int
}

type softwareBuffer struct {
	dev   *SoftwareDevice
	data  []byte
	index []uint16
	size  int
}

func (b *softwareBuffer) Size() int { return b.size }

// SoftwareOption configures a SoftwareDevice.
type SoftwareOption func(*SoftwareDevice)

// WithBufferAlignment sets the vertex buffer offset alignment.
// The default is 4.
func WithBufferAlignment(n int) SoftwareOption {
	return func(d *SoftwareDevice) {
		if n > 0 {
			d.alignment = n
		}
	}
}

// WithMaxBufferSize makes buffer creation fail with ErrOutOfMemory for
// buffers larger than n bytes.
func WithMaxBufferSize(n int) SoftwareOption {
	return func(d *SoftwareDevice) {
		d.maxBuffer = n
	}
}

// NewSoftwareDevice creates a CPU device. target may be nil, in which case
// draws are validated and recorded but not rasterized.
func NewSoftwareDevice(target *PixmapTarget, opts ...SoftwareOption) *SoftwareDevice {
	d := &SoftwareDevice{
		target:    target,
		alignment: 4,
		buffers:   make(map[*softwareBuffer]struct{}),
		lossFns:   make(map[int]func()),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Target returns the attached render target, or nil.
func (d *SoftwareDevice) Target() *PixmapTarget { return d.target }

// Invoke runs fn directly.
func (d *SoftwareDevice) Invoke(fn func() error) error {
	return fn()
}

// CreateVertexBuffer allocates a vertex buffer of size bytes.
func (d *SoftwareDevice) CreateVertexBuffer(size int) (Buffer, error) {
	if err := d.checkAlloc(size); err != nil {
		return nil, err
	}
	b := &softwareBuffer{dev: d, data: make([]byte, size), size: size}
	d.mu.Lock()
	d.buffers[b] = struct{}{}
	d.record(Call{Kind: CallCreateBuffer, Size: size})
	d.mu.Unlock()
	slogger().Debug("software: vertex buffer created", slog.Int("bytes", size))
	return b, nil
}

// CreateIndexBuffer allocates an index buffer holding a copy of indices.
func (d *SoftwareDevice) CreateIndexBuffer(indices []uint16) (Buffer, error) {
	size := len(indices) * 2
	if err := d.checkAlloc(size); err != nil {
		return nil, err
	}
	b := &softwareBuffer{dev: d, index: append([]uint16(nil), indices...), size: size}
	d.mu.Lock()
	d.buffers[b] = struct{}{}
	d.record(Call{Kind: CallCreateBuffer, Size: size})
	d.mu.Unlock()
	return b, nil
}

func (d *SoftwareDevice) checkAlloc(size int) error {
	if size <= 0 {
		return fmt.Errorf("render: invalid buffer size %d", size)
	}
	if d.maxBuffer > 0 && size > d.maxBuffer {
		return fmt.Errorf("%w: %d bytes requested, limit %d", ErrOutOfMemory, size, d.maxBuffer)
	}
	return nil
}

// BufferAlignment returns the vertex buffer offset alignment.
func (d *SoftwareDevice) BufferAlignment() int { return d.alignment }

// ApplyState binds the pipeline state. The state is copied.
func (d *SoftwareDevice) ApplyState(state *PipelineState) error {
	if state == nil {
		return ErrNoPipeline
	}
	s := *state
	d.mu.Lock()
	d.state = &s
	d.record(Call{Kind: CallApplyState})
	d.mu.Unlock()
	return nil
}

// SetTexture binds tex. Only textures created by CreateTexture or
// NewImageTexture are accepted.
func (d *SoftwareDevice) SetTexture(tex Texture) error {
	it, ok := tex.(*ImageTexture)
	if !ok {
		return fmt.Errorf("%w: texture %T", ErrForeignResource, tex)
	}
	d.mu.Lock()
	d.texture = it
	d.record(Call{Kind: CallSetTexture, Texture: it.ID()})
	d.mu.Unlock()
	return nil
}

// CreateTexture copies img into a new texture.
func (d *SoftwareDevice) CreateTexture(img image.Image) (Texture, error) {
	return NewImageTexture(img), nil
}

// Upload copies data into buf at offset. WriteDiscard gives the buffer
// fresh storage first, so draws already issued keep reading the old bytes.
func (d *SoftwareDevice) Upload(buf Buffer, offset int, data []byte, mode WriteMode) error {
	b, err := d.own(buf)
	if err != nil {
		return err
	}
	if b.data == nil {
		return fmt.Errorf("render: upload to index buffer")
	}
	if offset < 0 || offset+len(data) > b.size {
		return fmt.Errorf("%w: upload [%d,%d) into %d bytes", ErrBufferRange, offset, offset+len(data), b.size)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if mode == WriteDiscard {
		b.data = make([]byte, b.size)
	}
	copy(b.data[offset:], data)
	d.record(Call{Kind: CallUpload, Mode: mode, Offset: offset, Size: len(data)})
	return nil
}

// DrawIndexed validates the draw against the bound state and buffers,
// records it and rasterizes it into the target.
func (d *SoftwareDevice) DrawIndexed(prim PrimitiveType, vertices, indices Buffer, baseVertex, startIndex, primitiveCount int) error {
	if prim != TriangleList {
		return fmt.Errorf("render: unsupported primitive %v", prim)
	}
	vb, err := d.own(vertices)
	if err != nil {
		return err
	}
	ib, err := d.own(indices)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == nil {
		return ErrNoPipeline
	}
	if d.texture == nil {
		return ErrNoTexture
	}
	stride := d.state.Layout.Stride
	if stride <= 0 {
		return fmt.Errorf("render: invalid vertex stride %d", stride)
	}

	end := startIndex + primitiveCount*3
	if startIndex < 0 || end < startIndex || end > len(ib.index) {
		return fmt.Errorf("%w: indices [%d,%d) of %d", ErrBufferRange, startIndex, end, len(ib.index))
	}
	idx := ib.index[startIndex:end]
	for _, i := range idx {
		v := baseVertex + int(i)
		if v < 0 || (v+1)*stride > vb.size {
			return fmt.Errorf("%w: vertex %d with stride %d in %d bytes", ErrBufferRange, v, stride, vb.size)
		}
	}

	d.record(Call{
		Kind:       CallDraw,
		BaseVertex: baseVertex,
		StartIndex: startIndex,
		Primitives: primitiveCount,
		Texture:    d.texture.ID(),
	})
	if d.target != nil {
		d.rasterize(vb.data, idx, baseVertex)
	}
	return nil
}

// DestroyBuffer releases buf.
func (d *SoftwareDevice) DestroyBuffer(buf Buffer) {
	b, err := d.own(buf)
	if err != nil {
		slogger().Warn("software: destroy foreign buffer", slog.Any("error", err))
		return
	}
	d.mu.Lock()
	delete(d.buffers, b)
	d.record(Call{Kind: CallDestroyBuffer, Size: b.size})
	d.mu.Unlock()
}

func (d *SoftwareDevice) own(buf Buffer) (*softwareBuffer, error) {
	b, ok := buf.(*softwareBuffer)
	if !ok || b.dev != d {
		return nil, fmt.Errorf("%w: buffer %T", ErrForeignResource, buf)
	}
	return b, nil
}

// OnContentLost registers fn to run after LoseContent.
func (d *SoftwareDevice) OnContentLost(fn func()) (unregister func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.lossSeq
	d.lossSeq++
	d.lossFns[id] = fn
	return func() {
		d.mu.Lock()
		delete(d.lossFns, id)
		d.mu.Unlock()
	}
}

// LoseContent simulates a device reset: every buffer's contents are
// zeroed and registered content-loss callbacks run.
func (d *SoftwareDevice) LoseContent() {
	d.mu.Lock()
	for b := range d.buffers {
		clear(b.data)
		clear(b.index)
	}
	fns := make([]func(), 0, len(d.lossFns))
	for _, fn := range d.lossFns {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	slogger().Debug("software: content lost", slog.Int("callbacks", len(fns)))
	for _, fn := range fns {
		fn()
	}
}

// Calls returns a copy of the recorded calls.
func (d *SoftwareDevice) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// ResetCalls drops the recorded calls.
func (d *SoftwareDevice) ResetCalls() {
	d.mu.Lock()
	d.calls = d.calls[:0]
	d.mu.Unlock()
}

// LiveBuffers returns the number of buffers not yet destroyed.
func (d *SoftwareDevice) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers)
}

func (d *SoftwareDevice) record(c Call) {
	d.calls = append(d.calls, c)
}

var (
	_ Device              = (*SoftwareDevice)(nil)
	_ ContentLossNotifier = (*SoftwareDevice)(nil)
	_ TextureCreator      = (*SoftwareDevice)(nil)
)
