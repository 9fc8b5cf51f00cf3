package stream

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/sprite/render"
)

// Quad geometry.
const (
	VerticesPerSprite = 4
	IndicesPerSprite  = 6
)

// MaxBatchCapacity is the largest staging capacity in sprites. Indices are
// 16 bits, so four vertices per sprite cap it at 65536/4.
const MaxBatchCapacity = 1 << 16 / VerticesPerSprite

// ErrInvalidConfig is returned by New for unusable sizes.
var ErrInvalidConfig = errors.New("stream: invalid config")

// Config sizes a Streamer.
type Config struct {
	// Stride is the vertex size in bytes.
	Stride int

	// BatchCapacity is the staging slice size in sprites. It also bounds
	// the sprites covered by one draw call.
	BatchCapacity int

	// BufferCapacity is the GPU vertex buffer size in sprites.
	BufferCapacity int
}

// Stats counts the device work issued by a Streamer.
type Stats struct {
	Sprites     int
	DrawCalls   int
	TextureSets int
	Discards    int
}

// Streamer owns the staging slice and the vertex and index buffers of one
// batch. It is not safe for concurrent use; every method except New must
// run on the device's render thread.
type Streamer struct {
	dev render.Device
	cfg Config

	spriteBytes int
	bufferBytes int
	align       int

	staging  []byte
	vertices render.Buffer
	indices  render.Buffer

	cursor     int // staging position in sprites
	byteCursor int // GPU buffer position in bytes

	stats Stats
}

// New validates cfg and allocates the staging slice. GPU buffers are
// created by Init.
func New(dev render.Device, cfg Config) (*Streamer, error) {
	if cfg.Stride <= 0 {
		return nil, fmt.Errorf("%w: stride %d", ErrInvalidConfig, cfg.Stride)
	}
	if cfg.BatchCapacity < 1 || cfg.BatchCapacity > MaxBatchCapacity {
		return nil, fmt.Errorf("%w: batch capacity %d not in [1,%d]", ErrInvalidConfig, cfg.BatchCapacity, MaxBatchCapacity)
	}
	if cfg.BufferCapacity < 1 {
		return nil, fmt.Errorf("%w: buffer capacity %d", ErrInvalidConfig, cfg.BufferCapacity)
	}
	spriteBytes := cfg.Stride * VerticesPerSprite
	return &Streamer{
		dev:         dev,
		cfg:         cfg,
		spriteBytes: spriteBytes,
		bufferBytes: cfg.BufferCapacity * spriteBytes,
		align:       lcm(cfg.Stride, max(dev.BufferAlignment(), 1)),
		staging:     make([]byte, cfg.BatchCapacity*spriteBytes),
	}, nil
}

// Init creates the vertex and index buffers.
func (s *Streamer) Init() error {
	vb, err := s.dev.CreateVertexBuffer(s.bufferBytes)
	if err != nil {
		return fmt.Errorf("stream: create vertex buffer: %w", err)
	}
	ib, err := s.dev.CreateIndexBuffer(quadIndices(s.cfg.BatchCapacity))
	if err != nil {
		s.dev.DestroyBuffer(vb)
		return fmt.Errorf("stream: create index buffer: %w", err)
	}
	s.vertices, s.indices = vb, ib
	s.cursor, s.byteCursor = 0, 0
	slogger().Debug("stream: buffers created",
		slog.Int("vertex_bytes", s.bufferBytes),
		slog.Int("batch_capacity", s.cfg.BatchCapacity),
		slog.Int("align", s.align))
	return nil
}

// Ready reports whether Init succeeded and Destroy has not run.
func (s *Streamer) Ready() bool { return s.vertices != nil }

// DrawRun binds tex and draws count sprites sharing it. fill writes the
// vertices of sprites [first, first+n) of the run into dst, which holds
// exactly n sprites.
func (s *Streamer) DrawRun(tex render.Texture, count int, fill func(dst []byte, first, n int)) error {
	if s.vertices == nil {
		return fmt.Errorf("stream: buffers not initialized")
	}
	if count <= 0 {
		return nil
	}
	if err := s.dev.SetTexture(tex); err != nil {
		return err
	}
	s.stats.TextureSets++

	offset := 0
	for count > 0 {
		mode := render.WriteNoOverwrite
		drawn := min(count, max(s.bufferBytes-s.byteCursor, 0)/s.spriteBytes)
		if drawn == 0 {
			mode = render.WriteDiscard
			s.byteCursor = 0
			drawn = min(count, s.cfg.BufferCapacity)
			s.stats.Discards++
			slogger().Debug("stream: discard", slog.Int("remaining", count))
		}

		if s.cursor >= s.cfg.BatchCapacity {
			s.cursor = 0
		}
		drawn = min(drawn, s.cfg.BatchCapacity-s.cursor)

		dst := s.staging[s.cursor*s.spriteBytes : (s.cursor+drawn)*s.spriteBytes]
		fill(dst, offset, drawn)

		if err := s.dev.Upload(s.vertices, s.byteCursor, dst, mode); err != nil {
			return fmt.Errorf("stream: upload %d sprites: %w", drawn, err)
		}
		err := s.dev.DrawIndexed(render.TriangleList, s.vertices, s.indices,
			s.byteCursor/s.cfg.Stride, 0, 2*drawn)
		if err != nil {
			return fmt.Errorf("stream: draw %d sprites: %w", drawn, err)
		}
		s.stats.DrawCalls++
		s.stats.Sprites += drawn

		s.cursor += drawn
		s.byteCursor = alignUp(s.byteCursor+drawn*s.spriteBytes, s.align)
		offset += drawn
		count -= drawn
	}
	return nil
}

// Reset rebuilds the index buffer and restarts both cursors. Call it after
// the device lost buffer contents.
func (s *Streamer) Reset() error {
	if s.indices != nil {
		s.dev.DestroyBuffer(s.indices)
		s.indices = nil
	}
	s.cursor, s.byteCursor = 0, 0
	if s.vertices == nil {
		return nil
	}
	ib, err := s.dev.CreateIndexBuffer(quadIndices(s.cfg.BatchCapacity))
	if err != nil {
		return fmt.Errorf("stream: recreate index buffer: %w", err)
	}
	s.indices = ib
	slogger().Debug("stream: reset after content loss")
	return nil
}

// Destroy releases the GPU buffers. The Streamer can be initialized again.
func (s *Streamer) Destroy() {
	if s.vertices != nil {
		s.dev.DestroyBuffer(s.vertices)
		s.vertices = nil
	}
	if s.indices != nil {
		s.dev.DestroyBuffer(s.indices)
		s.indices = nil
	}
}

// Stats returns the counters accumulated since the last ResetStats.
func (s *Streamer) Stats() Stats { return s.stats }

// ResetStats zeroes the counters.
func (s *Streamer) ResetStats() { s.stats = Stats{} }

// ByteCursor returns the GPU buffer write position in bytes.
func (s *Streamer) ByteCursor() int { return s.byteCursor }

// quadIndices returns the index list for n quads.
func quadIndices(n int) []uint16 {
	idx := make([]uint16, 0, n*IndicesPerSprite)
	for i := 0; i < n; i++ {
		v := uint16(i * VerticesPerSprite)
		idx = append(idx, v, v+1, v+2, v+2, v+3, v)
	}
	return idx
}

func alignUp(n, a int) int {
	return (n + a - 1) / a * a
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	return a / gcd(a, b) * b
}
