// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrNoFrame is returned by HALDevice.DrawIndexed outside BeginFrame/EndFrame.
var ErrNoFrame = errors.New("render: no frame in progress")

const (
	// uniformSlotSize is the stride between per-state projection uniforms.
	// It matches the minimum uniform buffer offset alignment of WebGPU.
	uniformSlotSize = 256
	uniformSize     = 64

	defaultUniformSlots       = 64
	defaultBindGroupCacheSize = 256
)

// HALDevice implements Device on top of a wgpu HAL device.
//
// The HAL device and queue are used only from the device's render thread.
// Sprite batches call Invoke for buffer creation; everything else must run
// between BeginFrame and EndFrame on that thread.
type HALDevice struct {
	thread     *Thread
	ownsThread bool

	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat

	halPipelines

	// Projection uniforms, one 256-byte slot per applied state per frame.
	uniform      hal.Buffer
	uniformGroup hal.BindGroup
	uniformSlots int
	uniformNext  int

	frame   *halFrame
	state   *PipelineState
	texture *HALTexture

	// Dirty flags for the render pass, reset when a frame begins.
	pipelineDirty bool
	uniformDirty  bool
	textureDirty  bool
	uniformOffset uint32

	pending        []retiredResource
	retired        []retiredResource
	lastSubmission uint64
	pool           map[int][]hal.Buffer
}

type halFrame struct {
	encoder       hal.CommandEncoder
	pass          hal.RenderPassEncoder
	width, height int
	depth         bool
	vertices      hal.Buffer
	indices       hal.Buffer
}

// retiredResource is released once the GPU has finished submission.
type retiredResource struct {
	submission uint64
	release    func()
}

// HALFrame describes the attachments of one frame.
type HALFrame struct {
	Color hal.TextureView

	// Depth is optional. It must use TextureFormatDepth32Float.
	Depth hal.TextureView

	Width, Height int

	// Clear, when set, clears the color attachment. Otherwise the previous
	// contents are loaded.
	Clear *gputypes.Color
}

// HALOption configures a HALDevice.
type HALOption func(*halOptions)

type halOptions struct {
	thread         *Thread
	format         gputypes.TextureFormat
	bindGroupCache int
}

// WithThread makes the device run on an existing render thread instead of
// starting its own.
func WithThread(t *Thread) HALOption {
	return func(o *halOptions) { o.thread = t }
}

// WithSurfaceFormat sets the color attachment format. The default is
// TextureFormatBGRA8Unorm.
func WithSurfaceFormat(f gputypes.TextureFormat) HALOption {
	return func(o *halOptions) { o.format = f }
}

// WithBindGroupCacheSize sets how many texture bind groups are kept alive.
func WithBindGroupCacheSize(n int) HALOption {
	return func(o *halOptions) {
		if n > 0 {
			o.bindGroupCache = n
		}
	}
}

// NewHALDevice creates a device that renders with the given HAL device and
// queue. Shaders and layouts are created on the render thread before
// NewHALDevice returns.
func NewHALDevice(device hal.Device, queue hal.Queue, opts ...HALOption) (*HALDevice, error) {
	o := halOptions{
		format:         gputypes.TextureFormatBGRA8Unorm,
		bindGroupCache: defaultBindGroupCacheSize,
	}
	for _, opt := range opts {
		opt(&o)
	}

	d := &HALDevice{
		thread: o.thread,
		device: device,
		queue:  queue,
		format: o.format,
		pool:   make(map[int][]hal.Buffer),
	}
	if d.thread == nil {
		d.thread = NewThread()
		d.ownsThread = true
	}

	groups, err := lru.NewWithEvict[bindGroupKey, hal.BindGroup](o.bindGroupCache, func(_ bindGroupKey, g hal.BindGroup) {
		d.retire(func() { d.device.DestroyBindGroup(g) })
	})
	if err != nil {
		d.stopThread()
		return nil, fmt.Errorf("render: bind group cache: %w", err)
	}
	d.bindGroups = groups

	err = d.thread.Invoke(func() error {
		if err := d.initPipelines(); err != nil {
			return err
		}
		return d.growUniforms(defaultUniformSlots)
	})
	if err != nil {
		_ = d.thread.Invoke(func() error { d.destroy(); return nil })
		d.stopThread()
		return nil, err
	}
	slogger().Info("hal: sprite device ready", slog.String("format", fmt.Sprint(o.format)))
	return d, nil
}

// NewHALDeviceFromProvider creates a device from a host-provided GPU
// context. The provider must expose HalDevice() and HalQueue() returning
// hal.Device and hal.Queue.
func NewHALDeviceFromProvider(provider gpucontext.DeviceProvider, opts ...HALOption) (*HALDevice, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("render: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("render: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("render: provider HalQueue is not hal.Queue")
	}
	opts = append([]HALOption{WithSurfaceFormat(provider.SurfaceFormat())}, opts...)
	return NewHALDevice(device, queue, opts...)
}

// Thread returns the render thread the device runs on.
func (d *HALDevice) Thread() *Thread { return d.thread }

// Invoke runs fn on the render thread and blocks until it returns.
func (d *HALDevice) Invoke(fn func() error) error {
	return d.thread.Invoke(fn)
}

// HALBuffer is a buffer created by HALDevice.
type HALBuffer struct {
	dev   *HALDevice
	buf   hal.Buffer
	size  int
	index bool

	// indices is a CPU copy of an index buffer's contents, used to
	// bounds-check draws.
	indices []uint16
}

// Size returns the buffer size in bytes.
func (b *HALBuffer) Size() int { return b.size }

// CreateVertexBuffer allocates a vertex buffer of size bytes.
func (d *HALDevice) CreateVertexBuffer(size int) (Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("render: invalid buffer size %d", size)
	}
	buf, err := d.newVertexBuffer(size)
	if err != nil {
		return nil, err
	}
	slogger().Debug("hal: vertex buffer created", slog.Int("bytes", size))
	return &HALBuffer{dev: d, buf: buf, size: size}, nil
}

func (d *HALDevice) newVertexBuffer(size int) (hal.Buffer, error) {
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "sprite_vertices",
		Size:  uint64(size),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("render: create vertex buffer (%d bytes): %w", size, err)
	}
	return buf, nil
}

// CreateIndexBuffer allocates an index buffer holding indices.
func (d *HALDevice) CreateIndexBuffer(indices []uint16) (Buffer, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("render: empty index buffer")
	}
	size := len(indices) * 2
	// Buffer writes must be 4-byte aligned.
	alloc := (size + 3) &^ 3
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "sprite_indices",
		Size:  uint64(alloc),
		Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("render: create index buffer (%d bytes): %w", size, err)
	}
	data := make([]byte, alloc)
	for i, v := range indices {
		data[i*2] = byte(v)
		data[i*2+1] = byte(v >> 8)
	}
	if err := d.queue.WriteBuffer(buf, 0, data); err != nil {
		d.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("render: upload index buffer: %w", err)
	}
	return &HALBuffer{dev: d, buf: buf, size: size, index: true, indices: slices.Clone(indices)}, nil
}

// BufferAlignment returns the alignment of vertex buffer writes.
func (d *HALDevice) BufferAlignment() int { return 4 }

// ApplyState binds the pipeline state, creating and caching the pipeline
// on first use.
func (d *HALDevice) ApplyState(state *PipelineState) error {
	if state == nil {
		return ErrNoPipeline
	}
	s := *state
	if _, err := d.pipeline(&s); err != nil {
		return err
	}
	d.state = &s
	d.pipelineDirty = true
	d.uniformDirty = true
	d.textureDirty = true
	return nil
}

// SetTexture binds tex for subsequent draws.
func (d *HALDevice) SetTexture(tex Texture) error {
	t, ok := tex.(*HALTexture)
	if !ok || t.dev != d {
		return fmt.Errorf("%w: texture %T", ErrForeignResource, tex)
	}
	if d.texture != t {
		d.texture = t
		d.textureDirty = true
	}
	return nil
}

// Upload writes data into buf at offset. WriteDiscard swaps in fresh
// storage first; the old buffer returns to a pool once the GPU is done
// with it.
func (d *HALDevice) Upload(buf Buffer, offset int, data []byte, mode WriteMode) error {
	b, err := d.own(buf)
	if err != nil {
		return err
	}
	if b.index {
		return fmt.Errorf("render: upload to index buffer")
	}
	if offset < 0 || offset+len(data) > b.size {
		return fmt.Errorf("%w: upload [%d,%d) into %d bytes", ErrBufferRange, offset, offset+len(data), b.size)
	}
	if mode == WriteDiscard {
		if err := d.rename(b); err != nil {
			return err
		}
	}
	if err := d.queue.WriteBuffer(b.buf, uint64(offset), data); err != nil {
		return fmt.Errorf("render: write vertex buffer: %w", err)
	}
	return nil
}

// rename replaces the storage behind b with a buffer nobody is reading.
func (d *HALDevice) rename(b *HALBuffer) error {
	d.collect()
	old, size := b.buf, b.size
	d.retire(func() { d.pool[size] = append(d.pool[size], old) })

	if free := d.pool[size]; len(free) > 0 {
		b.buf = free[len(free)-1]
		d.pool[size] = free[:len(free)-1]
		return nil
	}
	buf, err := d.newVertexBuffer(size)
	if err != nil {
		return err
	}
	slogger().Debug("hal: vertex buffer renamed", slog.Int("bytes", size))
	b.buf = buf
	return nil
}

// DrawIndexed records an indexed draw into the current frame.
func (d *HALDevice) DrawIndexed(prim PrimitiveType, vertices, indices Buffer, baseVertex, startIndex, primitiveCount int) error {
	if prim != TriangleList {
		return fmt.Errorf("render: unsupported primitive %v", prim)
	}
	f := d.frame
	if f == nil {
		return ErrNoFrame
	}
	if d.state == nil {
		return ErrNoPipeline
	}
	if d.texture == nil {
		return ErrNoTexture
	}
	vb, err := d.own(vertices)
	if err != nil {
		return err
	}
	ib, err := d.own(indices)
	if err != nil {
		return err
	}
	if startIndex < 0 || primitiveCount < 0 || (startIndex+primitiveCount*3)*2 > ib.size {
		return fmt.Errorf("%w: indices [%d,%d)", ErrBufferRange, startIndex, startIndex+primitiveCount*3)
	}
	if err := checkVertexRange(ib.indices[startIndex:startIndex+primitiveCount*3], baseVertex, d.state.Layout.Stride, vb.size); err != nil {
		return err
	}

	if d.pipelineDirty {
		if d.state.DepthStencil.DepthTest && !f.depth {
			return fmt.Errorf("render: depth test without a depth attachment")
		}
		p, err := d.pipeline(d.state)
		if err != nil {
			return err
		}
		f.pass.SetPipeline(p)
		d.pipelineDirty = false
	}
	if d.uniformDirty {
		if err := d.writeUniform(f); err != nil {
			return err
		}
		f.pass.SetBindGroup(0, d.uniformGroup, []uint32{d.uniformOffset})
		d.uniformDirty = false
	}
	if d.textureDirty {
		g, err := d.textureGroup(d.texture, d.state.Sampler)
		if err != nil {
			return err
		}
		f.pass.SetBindGroup(1, g, nil)
		d.textureDirty = false
	}
	if f.vertices != vb.buf {
		f.pass.SetVertexBuffer(0, vb.buf, 0)
		f.vertices = vb.buf
	}
	if f.indices != ib.buf {
		f.pass.SetIndexBuffer(ib.buf, gputypes.IndexFormatUint16, 0)
		f.indices = ib.buf
	}
	f.pass.DrawIndexed(uint32(primitiveCount*3), 1, uint32(startIndex), int32(baseVertex), 0)
	return nil
}

// writeUniform stores projection × transform in the next uniform slot.
func (d *HALDevice) writeUniform(f *halFrame) error {
	if d.uniformNext == d.uniformSlots {
		if err := d.growUniforms(d.uniformSlots * 2); err != nil {
			return err
		}
	}
	m := projection(f.width, f.height).Mul4(d.state.Transform)
	data := make([]byte, uniformSize)
	for i, v := range m {
		putFloat32(data[i*4:], v)
	}
	offset := d.uniformNext * uniformSlotSize
	if err := d.queue.WriteBuffer(d.uniform, uint64(offset), data); err != nil {
		return fmt.Errorf("render: write uniforms: %w", err)
	}
	d.uniformOffset = uint32(offset)
	d.uniformNext++
	return nil
}

// projection maps target pixels (origin top-left, y down) to clip space.
// Depth passes through, so a sprite depth in [0,1] is its clip depth.
func projection(width, height int) mgl32.Mat4 {
	p := mgl32.Ortho2D(0, float32(width), float32(height), 0)
	p[10] = 1
	return p
}

// growUniforms replaces the uniform buffer with one of n slots.
func (d *HALDevice) growUniforms(n int) error {
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "sprite_uniforms",
		Size:  uint64(n * uniformSlotSize),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("render: create uniform buffer: %w", err)
	}
	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "sprite_uniform_group",
		Layout: d.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Size: uniformSize}},
		},
	})
	if err != nil {
		d.device.DestroyBuffer(buf)
		return fmt.Errorf("render: create uniform bind group: %w", err)
	}

	if d.uniform != nil {
		oldBuf, oldGroup := d.uniform, d.uniformGroup
		d.retire(func() {
			d.device.DestroyBindGroup(oldGroup)
			d.device.DestroyBuffer(oldBuf)
		})
	}
	d.uniform, d.uniformGroup = buf, group
	d.uniformSlots, d.uniformNext = n, 0
	return nil
}

// DestroyBuffer releases buf once the GPU no longer uses it.
func (d *HALDevice) DestroyBuffer(buf Buffer) {
	b, err := d.own(buf)
	if err != nil {
		slogger().Warn("hal: destroy foreign buffer", slog.Any("error", err))
		return
	}
	old := b.buf
	b.buf = nil
	d.retire(func() { d.device.DestroyBuffer(old) })
}

func (d *HALDevice) own(buf Buffer) (*HALBuffer, error) {
	b, ok := buf.(*HALBuffer)
	if !ok || b.dev != d || b.buf == nil {
		return nil, fmt.Errorf("%w: buffer %T", ErrForeignResource, buf)
	}
	return b, nil
}

// BeginFrame starts recording a render pass into frame.Color.
func (d *HALDevice) BeginFrame(frame HALFrame) error {
	if d.frame != nil {
		return fmt.Errorf("render: frame already in progress")
	}
	d.collect()

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "sprite_frame"})
	if err != nil {
		return fmt.Errorf("render: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("sprite_frame"); err != nil {
		return fmt.Errorf("render: begin encoding: %w", err)
	}

	color := hal.RenderPassColorAttachment{
		View:    frame.Color,
		LoadOp:  gputypes.LoadOpLoad,
		StoreOp: gputypes.StoreOpStore,
	}
	if frame.Clear != nil {
		color.LoadOp = gputypes.LoadOpClear
		color.ClearValue = *frame.Clear
	}
	desc := &hal.RenderPassDescriptor{
		Label:            "sprite_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{color},
	}
	if frame.Depth != nil {
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:            frame.Depth,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthClearValue: 1,
		}
	}

	d.frame = &halFrame{
		encoder: encoder,
		pass:    encoder.BeginRenderPass(desc),
		width:   frame.Width,
		height:  frame.Height,
		depth:   frame.Depth != nil,
	}
	d.uniformNext = 0
	d.pipelineDirty = true
	d.uniformDirty = true
	d.textureDirty = true
	return nil
}

// EndFrame ends the render pass and submits the recorded commands.
func (d *HALDevice) EndFrame() error {
	f := d.frame
	if f == nil {
		return ErrNoFrame
	}
	d.frame = nil

	f.pass.End()
	cmd, err := f.encoder.EndEncoding()
	if err != nil {
		f.encoder.DiscardEncoding()
		return fmt.Errorf("render: end encoding: %w", err)
	}
	idx, err := d.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		d.device.FreeCommandBuffer(cmd)
		return fmt.Errorf("render: submit: %w", err)
	}
	d.lastSubmission = idx
	for _, r := range d.pending {
		r.submission = idx
		d.retired = append(d.retired, r)
	}
	d.pending = d.pending[:0]
	d.retired = append(d.retired, retiredResource{submission: idx, release: func() { d.device.FreeCommandBuffer(cmd) }})
	return nil
}

// retire schedules release after the GPU has finished all work that may
// reference the resource.
func (d *HALDevice) retire(release func()) {
	if d.frame != nil {
		d.pending = append(d.pending, retiredResource{release: release})
		return
	}
	d.retired = append(d.retired, retiredResource{submission: d.lastSubmission, release: release})
}

// collect releases retired resources whose submission has completed.
func (d *HALDevice) collect() {
	if len(d.retired) == 0 {
		return
	}
	done := d.queue.PollCompleted()
	kept := d.retired[:0]
	for _, r := range d.retired {
		if r.submission <= done {
			r.release()
		} else {
			kept = append(kept, r)
		}
	}
	d.retired = kept
}

// PooledBuffers returns the number of idle vertex buffers kept for
// renaming.
func (d *HALDevice) PooledBuffers() int {
	n := 0
	for _, bufs := range d.pool {
		n += len(bufs)
	}
	return n
}

// Close destroys all device-owned GPU objects and stops the render thread
// if the device started it. The HAL device itself is not destroyed.
func (d *HALDevice) Close() error {
	err := d.thread.Invoke(func() error {
		if d.frame != nil {
			d.frame.pass.End()
			d.frame.encoder.DiscardEncoding()
			d.frame = nil
		}
		d.destroy()
		return nil
	})
	d.stopThread()
	return err
}

func (d *HALDevice) destroy() {
	d.bindGroups.Purge()
	for _, r := range d.pending {
		r.release()
	}
	for _, r := range d.retired {
		r.release()
	}
	d.pending, d.retired = nil, nil
	for _, bufs := range d.pool {
		for _, b := range bufs {
			d.device.DestroyBuffer(b)
		}
	}
	d.pool = make(map[int][]hal.Buffer)
	if d.uniformGroup != nil {
		d.device.DestroyBindGroup(d.uniformGroup)
		d.uniformGroup = nil
	}
	if d.uniform != nil {
		d.device.DestroyBuffer(d.uniform)
		d.uniform = nil
	}
	d.destroyPipelines()
}

// checkVertexRange reports ErrBufferRange if any index, offset by
// baseVertex, addresses a vertex outside a buffer of size bytes.
func checkVertexRange(idx []uint16, baseVertex, stride, size int) error {
	if len(idx) == 0 {
		return nil
	}
	lo, hi := slices.Min(idx), slices.Max(idx)
	if first, last := baseVertex+int(lo), baseVertex+int(hi); first < 0 || (last+1)*stride > size {
		return fmt.Errorf("%w: vertices [%d,%d] with stride %d in %d bytes", ErrBufferRange, first, last, stride, size)
	}
	return nil
}

func (d *HALDevice) stopThread() {
	if d.ownsThread {
		d.thread.Stop()
	}
}

var (
	_ Device         = (*HALDevice)(nil)
	_ TextureCreator = (*HALDevice)(nil)
)
