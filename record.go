package sprite

// Effects are per-sprite flags.
type Effects uint8

const (
	// EffectFlipHorizontal mirrors the source rectangle left to right.
	EffectFlipHorizontal Effects = 1 << iota

	// EffectFlipVertical mirrors the source rectangle top to bottom.
	EffectFlipVertical

	// EffectOriginInDest interprets Record.Origin in destination units
	// instead of texture pixels.
	EffectOriginInDest

	// EffectRightToLeft marks glyphs laid out right to left. It does not
	// change vertex generation.
	EffectRightToLeft
)

// Has reports whether all flags in f are set.
func (e Effects) Has(f Effects) bool { return e&f == f }

// Record describes one sprite quad. Records are stored by value in the
// batch and handed to a Generator at flush time.
type Record struct {
	// Source is the sampled region in texture pixels.
	Source Rect

	// Dest positions the origin at (X, Y) and sizes the quad to
	// Width × Height in target units.
	Dest Rect

	// Origin is the rotation and scale pivot, in texture pixels relative
	// to Source unless EffectOriginInDest is set.
	Origin Point

	// Rotation is the clockwise rotation in radians (y axis down).
	Rotation float32

	// Depth orders sprites in BackToFront and FrontToBack modes and is
	// written as the vertex z coordinate.
	Depth float32

	// Color is the premultiplied tint.
	Color Color

	Effects Effects
}

func recordDepth(r *Record) float32 { return r.Depth }
