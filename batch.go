package sprite

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/sprite/internal/store"
	"github.com/gogpu/sprite/internal/stream"
	"github.com/gogpu/sprite/render"
)

// Stats counts the work of the current or last Begin/End pair.
type Stats struct {
	Sprites      int
	DrawCalls    int
	TextureBinds int
	Discards     int
}

// Batch collects sprites between Begin and End and submits them to a
// device with as few draw calls as the sort mode allows. D is the type of
// the per-sprite data handed to the Generator.
//
// A Batch is not safe for concurrent use. Methods that reach the device
// (Begin in Immediate mode, Draw in Immediate mode, End, Flush) must run
// on the device's render thread.
type Batch[D any] struct {
	dev    render.Device
	gen    Generator[D]
	layout render.VertexLayout
	store  *store.Store[Record, D]
	stream *stream.Streamer
	coord  *Coordinator
	log    *slog.Logger

	params Params
	state  *render.PipelineState
	begun  bool
	closed bool

	unregisterLoss func()
}

// NewBatch creates a batch drawing to dev with vertices from gen.
//
// The vertex and index buffers are created on the render thread through
// dev.Invoke; NewBatch blocks until that completes. A creation failure is
// returned as is and never retried.
func NewBatch[D any](dev render.Device, gen Generator[D], opts ...Option) (*Batch[D], error) {
	if dev == nil {
		return nil, errors.New("sprite: nil device")
	}
	if gen == nil {
		return nil, errors.New("sprite: nil generator")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.batchCapacity < 1 || o.batchCapacity > stream.MaxBatchCapacity {
		return nil, fmt.Errorf("%w: batch capacity %d not in [1,%d]", ErrInvalidCapacity, o.batchCapacity, stream.MaxBatchCapacity)
	}
	if o.bufferCapacity < 1 {
		return nil, fmt.Errorf("%w: buffer capacity %d", ErrInvalidCapacity, o.bufferCapacity)
	}
	if o.coordinator == nil {
		o.coordinator = DefaultCoordinator()
	}

	layout := gen.Layout()
	st, err := stream.New(dev, stream.Config{
		Stride:         layout.Stride,
		BatchCapacity:  o.batchCapacity,
		BufferCapacity: o.bufferCapacity,
	})
	if err != nil {
		return nil, fmt.Errorf("sprite: %w", err)
	}
	if err := dev.Invoke(st.Init); err != nil {
		return nil, fmt.Errorf("sprite: create buffers: %w", err)
	}

	b := &Batch[D]{
		dev:    dev,
		gen:    gen,
		layout: layout,
		store:  store.New[Record, D](min(initialStoreCapacity, o.batchCapacity)),
		stream: st,
		coord:  o.coordinator,
		log:    o.logger,
	}
	if n, ok := dev.(render.ContentLossNotifier); ok {
		b.unregisterLoss = n.OnContentLost(b.HandleContentLost)
	}
	b.logger().Debug("sprite: batch created",
		slog.Int("stride", layout.Stride),
		slog.Int("batch_capacity", o.batchCapacity),
		slog.Int("buffer_capacity", o.bufferCapacity))
	return b, nil
}

// NewSpriteBatch creates a batch without per-sprite data using the
// PositionColorTexture layout.
func NewSpriteBatch(dev render.Device, opts ...Option) (*Batch[NoData], error) {
	return NewBatch[NoData](dev, PositionColorTexture[NoData]{}, opts...)
}

func (b *Batch[D]) logger() *slog.Logger {
	if b.log != nil {
		return b.log
	}
	return Logger()
}

// Begin starts a batch with p. Zero fields of p take the defaults
// described on Params.
//
// Begin fails with ErrInvalidState if the batch is already begun, with
// ErrImmediateInUse if p.SortMode is Immediate and another immediate batch
// is open on the same Coordinator, and with ErrUnsupportedSortMode for
// unknown modes. In Immediate mode the render state is applied right away.
func (b *Batch[D]) Begin(p Params) error {
	if b.closed {
		return ErrClosed
	}
	if b.begun {
		return fmt.Errorf("%w: Begin called twice", ErrInvalidState)
	}
	if !p.SortMode.Valid() {
		return fmt.Errorf("%w: %d", ErrUnsupportedSortMode, int(p.SortMode))
	}
	p = p.withDefaults()

	if p.SortMode == Immediate {
		if !b.coord.TryClaimImmediate() {
			return ErrImmediateInUse
		}
	} else {
		b.coord.ClaimDeferred()
	}

	b.params = p
	b.state = p.pipelineState(b.layout)
	b.begun = true
	b.stream.ResetStats()

	if p.SortMode == Immediate {
		if err := b.dev.ApplyState(b.state); err != nil {
			b.abort()
			return fmt.Errorf("sprite: apply state: %w", err)
		}
	}
	return nil
}

// Draw adds one sprite with zero per-sprite data. See DrawData.
func (b *Batch[D]) Draw(tex render.Texture, opts DrawOptions) error {
	var zero D
	return b.DrawData(tex, opts, zero)
}

// DrawData adds one sprite carrying data. A sprite whose destination has
// zero width or height is dropped without error. In Immediate mode the
// sprite is drawn before DrawData returns.
func (b *Batch[D]) DrawData(tex render.Texture, opts DrawOptions, data D) error {
	if b.closed {
		return ErrClosed
	}
	if !b.begun {
		return fmt.Errorf("%w: Draw called before Begin", ErrInvalidState)
	}
	if tex == nil {
		return errors.New("sprite: nil texture")
	}
	rec, ok := opts.record(tex)
	if !ok {
		return nil
	}
	i := b.store.Reserve(tex, data)
	*b.store.Sprite(i) = rec

	if b.params.SortMode == Immediate {
		defer b.store.Clear()
		return b.flush()
	}
	return nil
}

// End submits the collected sprites and returns the batch to the idle
// state. The coordinator claim is released and the batch is idle again
// even when the device reports an error.
func (b *Batch[D]) End() error {
	if b.closed {
		return ErrClosed
	}
	if !b.begun {
		return fmt.Errorf("%w: End called before Begin", ErrInvalidState)
	}
	defer b.release()

	if b.params.SortMode == Immediate || b.store.Count() == 0 {
		return nil
	}
	defer b.store.Clear()
	if err := b.dev.ApplyState(b.state); err != nil {
		return fmt.Errorf("sprite: apply state: %w", err)
	}
	return b.flush()
}

// Flush submits the collected sprites without ending the batch: it is End
// followed by Begin with the same params. The batch stays begun even when
// the submission fails.
func (b *Batch[D]) Flush() error {
	if b.closed {
		return ErrClosed
	}
	if !b.begun {
		return fmt.Errorf("%w: Flush called before Begin", ErrInvalidState)
	}
	p := b.params
	endErr := b.End()
	return errors.Join(endErr, b.Begin(p))
}

// Scope runs fn between Begin(p) and End. The batch is ended on every
// exit path. If fn panics the collected sprites are dropped, the
// coordinator claim is released and the panic continues. fn must not call
// Begin or End.
func (b *Batch[D]) Scope(p Params, fn func() error) error {
	if err := b.Begin(p); err != nil {
		return err
	}
	done := false
	defer func() {
		if !done && b.begun {
			b.abort()
		}
	}()
	fnErr := fn()
	done = true
	return errors.Join(fnErr, b.End())
}

// Close releases the device buffers and any coordinator claim. Later calls
// fail with ErrClosed. Close is idempotent.
func (b *Batch[D]) Close() error {
	if b.closed {
		return nil
	}
	if b.begun {
		b.abort()
	}
	if b.unregisterLoss != nil {
		b.unregisterLoss()
		b.unregisterLoss = nil
	}
	b.closed = true
	return b.dev.Invoke(func() error {
		b.stream.Destroy()
		return nil
	})
}

// Params returns the params of the current batch.
func (b *Batch[D]) Params() (Params, error) {
	if b.closed {
		return Params{}, ErrClosed
	}
	if !b.begun {
		return Params{}, fmt.Errorf("%w: Params called before Begin", ErrInvalidState)
	}
	return b.params, nil
}

// Count returns the number of sprites waiting for End.
func (b *Batch[D]) Count() (int, error) {
	if b.closed {
		return 0, ErrClosed
	}
	if !b.begun {
		return 0, fmt.Errorf("%w: Count called before Begin", ErrInvalidState)
	}
	return b.store.Count(), nil
}

// Stats returns the counters of the current batch, or of the last one
// after End.
func (b *Batch[D]) Stats() Stats {
	st := b.stream.Stats()
	return Stats{
		Sprites:      st.Sprites,
		DrawCalls:    st.DrawCalls,
		TextureBinds: st.TextureSets,
		Discards:     st.Discards,
	}
}

// HandleContentLost rebuilds the index buffer and restarts the vertex
// buffer at offset zero. It is registered automatically with devices that
// implement render.ContentLossNotifier and must run on the render thread.
func (b *Batch[D]) HandleContentLost() {
	if b.closed {
		return
	}
	if err := b.stream.Reset(); err != nil {
		b.logger().Warn("sprite: rebuild buffers after content loss", slog.Any("error", err))
	}
}

// flush sorts the store, splits it into texture runs and streams each run.
func (b *Batch[D]) flush() error {
	n := b.store.Count()
	if n == 0 {
		return nil
	}
	switch b.params.SortMode {
	case Texture:
		b.store.SortByTexture()
	case BackToFront:
		b.store.SortByKey(recordDepth, true)
	case FrontToBack:
		b.store.SortByKey(recordDepth, false)
	default:
		b.store.Unsort()
	}

	sprites, data := b.store.Sorted()
	start := 0
	for i := 1; i <= n; i++ {
		if i < n && b.store.Texture(i).ID() == b.store.Texture(start).ID() {
			continue
		}
		if err := b.drawRun(sprites[start:i], data[start:i], b.store.Texture(start)); err != nil {
			return err
		}
		start = i
	}
	return nil
}

func (b *Batch[D]) drawRun(sprites []Record, data []D, tex render.Texture) error {
	return b.stream.DrawRun(tex, len(sprites), func(dst []byte, first, n int) {
		b.gen.Generate(dst, tex, sprites[first:first+n], data[first:first+n])
	})
}

// release returns the batch to idle and gives up the coordinator claim.
func (b *Batch[D]) release() {
	if b.params.SortMode == Immediate {
		b.coord.ReleaseImmediate()
	} else {
		b.coord.ReleaseDeferred()
	}
	b.begun = false

	st := b.Stats()
	b.logger().Debug("sprite: batch ended",
		slog.String("sort", b.params.SortMode.String()),
		slog.Int("sprites", st.Sprites),
		slog.Int("draw_calls", st.DrawCalls),
		slog.Int("texture_binds", st.TextureBinds),
		slog.Int("discards", st.Discards))
}

// abort drops the collected sprites and releases the claim.
func (b *Batch[D]) abort() {
	b.store.Clear()
	b.release()
}
