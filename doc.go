// Package sprite batches 2D textured quads into as few GPU draw calls as
// their ordering allows.
//
// # Overview
//
// A [Batch] collects sprites between Begin and End. At End it sorts them
// by the [SortMode] given to Begin, splits them into runs sharing one
// texture and streams every run through a reusable vertex buffer. Texture
// changes are the only thing that starts a new draw call.
//
// # Quick Start
//
//	target := render.NewPixmapTarget(800, 600)
//	dev := render.NewSoftwareDevice(target)
//	tex, _ := dev.CreateTexture(img)
//
//	b, err := sprite.NewSpriteBatch(dev)
//	if err != nil {
//	    return err
//	}
//	defer b.Close()
//
//	err = b.Scope(sprite.Params{SortMode: sprite.Texture}, func() error {
//	    return b.Draw(tex, sprite.DrawOptions{Position: sprite.Pt(10, 20)})
//	})
//
// # Sort Modes
//
//   - [Deferred]: call order, drawn at End
//   - [Immediate]: every sprite drawn as it is submitted, one draw call each
//   - [Texture]: grouped by texture, call order within a texture
//   - [BackToFront], [FrontToBack]: ordered by Record.Depth
//
// Only one Immediate batch may be open per [Coordinator] at a time;
// deferred batches have no such limit.
//
// # Vertex Layouts
//
// A [Generator] writes the vertices of a run for one vertex layout.
// [PositionColorTexture], [PositionColorTexture16] and
// [PositionColorAddTexture] cover the built-in sprite shaders. Per-sprite
// data of type D flows from [Batch.DrawData] to the generator unchanged.
//
// # Text
//
// [Batch.DrawString] folds glyphs from a [GlyphLayout] back into ordinary
// sprites. The text package provides a layout built from TrueType fonts.
//
// # Devices
//
// The render package defines the [render.Device] contract and provides a
// CPU reference device and a gogpu/wgpu HAL device.
//
// # Coordinate System
//
//   - Origin (0,0) at top-left
//   - X increases right
//   - Y increases down
//   - Rotation in radians, clockwise on screen
package sprite
