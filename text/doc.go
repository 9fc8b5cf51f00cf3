// Package text draws strings through a sprite batch.
//
// A [Font] parses a TrueType or OpenType font once, rasterizes a fixed rune
// set into a single atlas texture and shapes strings with HarfBuzz through
// go-text/typesetting. Because every glyph lives in one texture, a string
// becomes a single texture run and batches with any other sprite drawn from
// the same atlas.
//
// # Example usage
//
//	font, err := text.NewFont(goregular.TTF, 24, dev)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	batch.Begin(sprite.DefaultParams())
//	batch.DrawString(font, "Hello, sprites!", sprite.TextOptions{
//	    Position: sprite.Pt(20, 40),
//	    Color:    &sprite.White,
//	})
//	batch.End()
//
// # Bidirectional Text
//
// Lines are split into directional runs with golang.org/x/text/unicode/bidi
// and each run is shaped in its own direction. Right-to-left lines end at the
// pen start instead of beginning there.
package text
