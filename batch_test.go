package sprite

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/sprite/render"
)

func newTestBatch(t *testing.T, opts ...Option) (*Batch[NoData], *render.SoftwareDevice) {
	t.Helper()
	dev := render.NewSoftwareDevice(nil)
	opts = append([]Option{WithCoordinator(NewCoordinator())}, opts...)
	b, err := NewSpriteBatch(dev, opts...)
	if err != nil {
		t.Fatalf("NewSpriteBatch: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	dev.ResetCalls()
	return b, dev
}

// newTextures returns n 8x8 textures with increasing IDs.
func newTextures(n int) []*render.ImageTexture {
	out := make([]*render.ImageTexture, n)
	for i := range out {
		out[i] = render.NewImageTexture(image.NewRGBA(image.Rect(0, 0, 8, 8)))
	}
	return out
}

func countCalls(dev *render.SoftwareDevice, kind render.CallKind) int {
	n := 0
	for _, c := range dev.Calls() {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// capturingGenerator records the sprites it is asked to generate.
type capturingGenerator struct {
	PositionColorTexture[NoData]
	seen []Record
}

func (g *capturingGenerator) Generate(dst []byte, tex render.Texture, sprites []Record, data []NoData) {
	g.seen = append(g.seen, sprites...)
	g.PositionColorTexture.Generate(dst, tex, sprites, data)
}

type foreignTexture struct{}

func (foreignTexture) ID() uint64  { return 1 << 40 }
func (foreignTexture) Width() int  { return 1 }
func (foreignTexture) Height() int { return 1 }

func TestDeferredVertexAndPrimitiveCounts(t *testing.T) {
	b, dev := newTestBatch(t)
	tex := newTextures(3)

	const k = 7
	if err := b.Begin(Params{}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < k; i++ {
		if err := b.Draw(tex[i%3], DrawOptions{Position: Pt(float32(i), 0)}); err != nil {
			t.Fatalf("Draw %d: %v", i, err)
		}
	}
	if err := b.End(); err != nil {
		t.Fatalf("End: %v", err)
	}

	uploaded, prims := 0, 0
	for _, c := range dev.Calls() {
		switch c.Kind {
		case render.CallUpload:
			uploaded += c.Size
		case render.CallDraw:
			prims += c.Primitives
		}
	}
	stride := b.layout.Stride
	if uploaded != 4*k*stride {
		t.Errorf("uploaded %d bytes = %d vertices, want %d", uploaded, uploaded/stride, 4*k)
	}
	if prims != 2*k {
		t.Errorf("primitives = %d, want %d", prims, 2*k)
	}
	if got := b.Stats().Sprites; got != k {
		t.Errorf("Stats.Sprites = %d, want %d", got, k)
	}
}

func TestDegenerateDestinationDropped(t *testing.T) {
	b, dev := newTestBatch(t)
	tex := newTextures(1)[0]

	if err := b.Begin(Params{}); err != nil {
		t.Fatal(err)
	}
	tests := []DrawOptions{
		{Dest: &Rect{X: 1, Y: 1, Width: 0, Height: 5}},
		{Dest: &Rect{X: 1, Y: 1, Width: 5, Height: 0}},
		{Scale: Pt(0, 2)},
		{Source: &Rect{Width: 0, Height: 8}},
	}
	for i, opts := range tests {
		if err := b.Draw(tex, opts); err != nil {
			t.Errorf("Draw %d: %v", i, err)
		}
	}
	if n, _ := b.Count(); n != 0 {
		t.Errorf("Count = %d after degenerate draws, want 0", n)
	}
	if err := b.End(); err != nil {
		t.Fatal(err)
	}
	if got := countCalls(dev, render.CallDraw); got != 0 {
		t.Errorf("draw calls = %d, want 0", got)
	}
}

func TestTextureRuns(t *testing.T) {
	tex := newTextures(3)
	a, bb, c := tex[0], tex[1], tex[2]
	order := []*render.ImageTexture{a, bb, a, c, bb, a}

	tests := []struct {
		mode      SortMode
		wantBinds int
	}{
		{Deferred, 6},
		{Texture, 3},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			b, dev := newTestBatch(t)
			if err := b.Begin(Params{SortMode: tt.mode}); err != nil {
				t.Fatal(err)
			}
			for _, tx := range order {
				if err := b.Draw(tx, DrawOptions{}); err != nil {
					t.Fatal(err)
				}
			}
			if err := b.End(); err != nil {
				t.Fatal(err)
			}
			binds := countCalls(dev, render.CallSetTexture)
			if binds != tt.wantBinds {
				t.Errorf("texture binds = %d, want %d", binds, tt.wantBinds)
			}
			if binds > len(order) {
				t.Errorf("texture binds %d exceed sprite count %d", binds, len(order))
			}
			if got := countCalls(dev, render.CallDraw); got != tt.wantBinds {
				t.Errorf("draw calls = %d, want %d", got, tt.wantBinds)
			}
		})
	}
}

func TestTextureSortKeepsCallOrderWithinTexture(t *testing.T) {
	gen := &capturingGenerator{}
	dev := render.NewSoftwareDevice(nil)
	b, err := NewBatch[NoData](dev, gen, WithCoordinator(NewCoordinator()))
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	tex := newTextures(2)

	if err := b.Begin(Params{SortMode: Texture}); err != nil {
		t.Fatal(err)
	}
	for i, tx := range []*render.ImageTexture{tex[1], tex[0], tex[1], tex[0]} {
		if err := b.Draw(tx, DrawOptions{Position: Pt(float32(i), 0)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.End(); err != nil {
		t.Fatal(err)
	}
	want := []float32{1, 3, 0, 2}
	for i, r := range gen.seen {
		if r.Dest.X != want[i] {
			t.Errorf("sprite %d has x %v, want %v", i, r.Dest.X, want[i])
		}
	}
}

func TestDepthSortOrder(t *testing.T) {
	tests := []struct {
		mode SortMode
		want []float32
	}{
		{FrontToBack, []float32{0.2, 0.5, 0.8}},
		{BackToFront, []float32{0.8, 0.5, 0.2}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			gen := &capturingGenerator{}
			dev := render.NewSoftwareDevice(nil)
			b, err := NewBatch[NoData](dev, gen, WithCoordinator(NewCoordinator()))
			if err != nil {
				t.Fatal(err)
			}
			defer b.Close()
			tex := newTextures(1)[0]

			if err := b.Begin(Params{SortMode: tt.mode}); err != nil {
				t.Fatal(err)
			}
			for _, d := range []float32{0.5, 0.8, 0.2} {
				if err := b.Draw(tex, DrawOptions{Depth: d}); err != nil {
					t.Fatal(err)
				}
			}
			if err := b.End(); err != nil {
				t.Fatal(err)
			}
			if len(gen.seen) != len(tt.want) {
				t.Fatalf("generated %d sprites, want %d", len(gen.seen), len(tt.want))
			}
			for i, r := range gen.seen {
				if r.Depth != tt.want[i] {
					t.Errorf("sprite %d depth %v, want %v", i, r.Depth, tt.want[i])
				}
			}
		})
	}
}

func TestImmediateExclusive(t *testing.T) {
	coord := NewCoordinator()
	dev := render.NewSoftwareDevice(nil)
	newBatch := func() *Batch[NoData] {
		b, err := NewSpriteBatch(dev, WithCoordinator(coord))
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = b.Close() })
		return b
	}
	first, second, third := newBatch(), newBatch(), newBatch()

	if err := first.Begin(Params{SortMode: Immediate}); err != nil {
		t.Fatalf("first Begin: %v", err)
	}
	if err := second.Begin(Params{SortMode: Immediate}); !errors.Is(err, ErrImmediateInUse) {
		t.Fatalf("second immediate Begin = %v, want ErrImmediateInUse", err)
	}
	if _, err := second.Params(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("rejected batch is begun: Params = %v", err)
	}
	if err := second.Begin(Params{SortMode: Deferred}); err != nil {
		t.Errorf("deferred Begin alongside immediate: %v", err)
	}
	if err := third.Begin(Params{SortMode: Texture}); err != nil {
		t.Errorf("second deferred Begin: %v", err)
	}
	if imm, def := coord.Active(); !imm || def != 2 {
		t.Errorf("Active = %v, %d; want true, 2", imm, def)
	}

	if err := first.End(); err != nil {
		t.Fatal(err)
	}
	if err := first.Begin(Params{SortMode: Immediate}); err != nil {
		t.Errorf("immediate Begin after End: %v", err)
	}
}

func TestImmediateDrawsEachSprite(t *testing.T) {
	b, dev := newTestBatch(t)
	tex := newTextures(1)[0]

	if err := b.Begin(Params{SortMode: Immediate}); err != nil {
		t.Fatal(err)
	}
	if got := countCalls(dev, render.CallApplyState); got != 1 {
		t.Errorf("ApplyState calls after immediate Begin = %d, want 1", got)
	}
	for i := 0; i < 3; i++ {
		if err := b.Draw(tex, DrawOptions{}); err != nil {
			t.Fatal(err)
		}
		if got := countCalls(dev, render.CallDraw); got != i+1 {
			t.Errorf("draw calls after sprite %d = %d, want %d", i, got, i+1)
		}
		if n, _ := b.Count(); n != 0 {
			t.Errorf("Count = %d in immediate mode, want 0", n)
		}
	}
	if err := b.End(); err != nil {
		t.Fatal(err)
	}
	if got := countCalls(dev, render.CallDraw); got != 3 {
		t.Errorf("End issued extra draws: %d", got)
	}
}

func TestProtocolErrors(t *testing.T) {
	b, _ := newTestBatch(t)
	tex := newTextures(1)[0]

	if err := b.Draw(tex, DrawOptions{}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Draw before Begin = %v", err)
	}
	if err := b.End(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("End before Begin = %v", err)
	}
	if err := b.Flush(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Flush before Begin = %v", err)
	}
	if _, err := b.Params(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Params before Begin = %v", err)
	}
	if _, err := b.Count(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Count before Begin = %v", err)
	}
	if err := b.Begin(Params{SortMode: SortMode(42)}); !errors.Is(err, ErrUnsupportedSortMode) {
		t.Errorf("Begin with unknown mode = %v", err)
	}

	if err := b.Begin(Params{}); err != nil {
		t.Fatal(err)
	}
	if err := b.Begin(Params{}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("nested Begin = %v", err)
	}
	if err := b.Draw(nil, DrawOptions{}); err == nil {
		t.Error("Draw with nil texture succeeded")
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if err := b.Begin(Params{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Begin after Close = %v", err)
	}
	if err := b.Draw(tex, DrawOptions{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Draw after Close = %v", err)
	}
	if err := b.End(); !errors.Is(err, ErrClosed) {
		t.Errorf("End after Close = %v", err)
	}
	if imm, def := b.coord.Active(); imm || def != 0 {
		t.Errorf("claims after Close = %v, %d", imm, def)
	}
}

func TestParamsDefaults(t *testing.T) {
	b, _ := newTestBatch(t)
	if err := b.Begin(Params{SortMode: Texture}); err != nil {
		t.Fatal(err)
	}
	defer b.End()
	p, err := b.Params()
	if err != nil {
		t.Fatal(err)
	}
	want := DefaultParams()
	want.SortMode = Texture
	if p.Blend != want.Blend || p.Sampler != want.Sampler || p.Transform != want.Transform {
		t.Errorf("Params = %+v, want defaults %+v", p, want)
	}
}

func TestFlushKeepsBatchOpen(t *testing.T) {
	b, dev := newTestBatch(t)
	tex := newTextures(1)[0]
	params := Params{SortMode: Texture, Transform: Translate(5, 5)}

	if err := b.Begin(params); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := b.Draw(tex, DrawOptions{}); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := countCalls(dev, render.CallDraw); got != 1 {
		t.Errorf("draw calls after Flush = %d, want 1", got)
	}
	p, err := b.Params()
	if err != nil {
		t.Fatalf("Params after Flush: %v", err)
	}
	if p.SortMode != Texture || p.Transform != params.Transform {
		t.Errorf("Params after Flush = %+v", p)
	}
	if n, _ := b.Count(); n != 0 {
		t.Errorf("Count after Flush = %d, want 0", n)
	}
	if err := b.Draw(tex, DrawOptions{}); err != nil {
		t.Errorf("Draw after Flush: %v", err)
	}
	if err := b.End(); err != nil {
		t.Fatal(err)
	}
	if got := countCalls(dev, render.CallDraw); got != 2 {
		t.Errorf("draw calls after End = %d, want 2", got)
	}
}

func TestScopeReleasesOnPanic(t *testing.T) {
	b, _ := newTestBatch(t)
	tex := newTextures(1)[0]

	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic did not propagate")
			}
		}()
		_ = b.Scope(Params{SortMode: Immediate}, func() error {
			if err := b.Draw(tex, DrawOptions{}); err != nil {
				return err
			}
			panic("boom")
		})
	}()

	if imm, _ := b.coord.Active(); imm {
		t.Error("immediate claim held after panic")
	}
	if err := b.Begin(Params{SortMode: Immediate}); err != nil {
		t.Errorf("Begin after panic: %v", err)
	}
	_ = b.End()
}

func TestScopeEndsOnError(t *testing.T) {
	b, dev := newTestBatch(t)
	tex := newTextures(1)[0]
	errStop := errors.New("stop")

	err := b.Scope(Params{}, func() error {
		if err := b.Draw(tex, DrawOptions{}); err != nil {
			return err
		}
		return errStop
	})
	if !errors.Is(err, errStop) {
		t.Errorf("Scope = %v, want errStop", err)
	}
	if got := countCalls(dev, render.CallDraw); got != 1 {
		t.Errorf("draw calls = %d, want 1", got)
	}
	if _, def := b.coord.Active(); def != 0 {
		t.Errorf("deferred claims = %d after Scope, want 0", def)
	}
}

func TestEndReleasesClaimOnDeviceError(t *testing.T) {
	b, _ := newTestBatch(t)
	if err := b.Begin(Params{}); err != nil {
		t.Fatal(err)
	}
	if err := b.Draw(foreignTexture{}, DrawOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := b.End(); !errors.Is(err, render.ErrForeignResource) {
		t.Errorf("End = %v, want ErrForeignResource", err)
	}
	if _, def := b.coord.Active(); def != 0 {
		t.Errorf("deferred claims = %d, want 0", def)
	}
	if err := b.Begin(Params{}); err != nil {
		t.Errorf("Begin after failed End: %v", err)
	}
	if n, _ := b.Count(); n != 0 {
		t.Errorf("Count = %d, want 0", n)
	}
	_ = b.End()
}

func TestSmallBufferDiscards(t *testing.T) {
	b, dev := newTestBatch(t, WithBatchCapacity(4), WithBufferCapacity(4))
	tex := newTextures(1)[0]

	if err := b.Begin(Params{}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		if err := b.Draw(tex, DrawOptions{}); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.End(); err != nil {
		t.Fatal(err)
	}

	discards := 0
	for _, c := range dev.Calls() {
		if c.Kind == render.CallUpload && c.Mode == render.WriteDiscard {
			discards++
		}
		if c.Kind == render.CallDraw && c.BaseVertex+2*c.Primitives > 16 {
			t.Errorf("draw at vertex %d with %d primitives exceeds buffer", c.BaseVertex, c.Primitives)
		}
	}
	if discards == 0 {
		t.Error("no Discard upload")
	}
	st := b.Stats()
	if st.Discards != discards || st.DrawCalls != 3 || st.TextureBinds != 1 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestContentLossRestartsBuffer(t *testing.T) {
	b, dev := newTestBatch(t)
	tex := newTextures(1)[0]
	draw := func() {
		t.Helper()
		if err := b.Scope(Params{}, func() error {
			return b.Draw(tex, DrawOptions{})
		}); err != nil {
			t.Fatal(err)
		}
	}

	draw()
	draw()
	dev.ResetCalls()
	dev.LoseContent()
	draw()

	var uploads []render.Call
	creates := 0
	for _, c := range dev.Calls() {
		switch c.Kind {
		case render.CallUpload:
			uploads = append(uploads, c)
		case render.CallCreateBuffer:
			creates++
		}
	}
	if creates != 1 {
		t.Errorf("buffers created after content loss = %d, want 1", creates)
	}
	if len(uploads) != 1 || uploads[0].Offset != 0 {
		t.Errorf("uploads after content loss = %+v, want one at offset 0", uploads)
	}
}

func TestNewBatchErrors(t *testing.T) {
	dev := render.NewSoftwareDevice(nil, render.WithMaxBufferSize(1024))
	if _, err := NewSpriteBatch(dev); !errors.Is(err, render.ErrOutOfMemory) {
		t.Errorf("NewSpriteBatch with small device = %v, want ErrOutOfMemory", err)
	}

	tests := []struct {
		name string
		opt  Option
	}{
		{"zero batch", WithBatchCapacity(0)},
		{"huge batch", WithBatchCapacity(1 << 20)},
		{"zero buffer", WithBufferCapacity(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSpriteBatch(render.NewSoftwareDevice(nil), tt.opt); !errors.Is(err, ErrInvalidCapacity) {
				t.Errorf("NewSpriteBatch = %v, want ErrInvalidCapacity", err)
			}
		})
	}
}

func TestStoreGrowsPastInitialCapacity(t *testing.T) {
	b, dev := newTestBatch(t)
	tex := newTextures(1)[0]
	const k = initialStoreCapacity*2 + 3

	if err := b.Begin(Params{}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < k; i++ {
		if err := b.Draw(tex, DrawOptions{}); err != nil {
			t.Fatal(err)
		}
	}
	if n, _ := b.Count(); n != k {
		t.Errorf("Count = %d, want %d", n, k)
	}
	if err := b.End(); err != nil {
		t.Fatal(err)
	}
	prims := 0
	for _, c := range dev.Calls() {
		if c.Kind == render.CallDraw {
			prims += c.Primitives
		}
	}
	if prims != 2*k {
		t.Errorf("primitives = %d, want %d", prims, 2*k)
	}
}

func TestRenderToTarget(t *testing.T) {
	target := render.NewPixmapTarget(16, 16)
	dev := render.NewSoftwareDevice(target)
	b, err := NewSpriteBatch(dev, WithCoordinator(NewCoordinator()))
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+3] = 255, 255
	}
	tex, err := dev.CreateTexture(img)
	if err != nil {
		t.Fatal(err)
	}

	err = b.Scope(Params{Sampler: render.SamplerPointClamp}, func() error {
		return b.Draw(tex, DrawOptions{Position: Pt(2, 2), Scale: Pt(2, 2)})
	})
	if err != nil {
		t.Fatal(err)
	}

	out := target.Image()
	if got := out.RGBAAt(5, 5); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("pixel inside sprite = %v, want opaque red", got)
	}
	if got := out.RGBAAt(12, 12); got.A != 0 {
		t.Errorf("pixel outside sprite = %v, want transparent", got)
	}
}
