// Command spritedemo renders a frame of sprites and text with the software
// device and writes it as a PNG.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"

	"golang.org/x/image/font/gofont/goregular"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gogpu/sprite"
	"github.com/gogpu/sprite/render"
	"github.com/gogpu/sprite/text"
)

func main() {
	var (
		width   = flag.Int("width", 800, "image width")
		height  = flag.Int("height", 600, "image height")
		output  = flag.String("output", "sprites.png", "output file")
		config  = flag.String("config", "", "YAML batch config")
		count   = flag.Int("count", 400, "number of sprites")
		logFile = flag.String("log", "", "JSON log file (rotated)")
		level   = flag.String("level", "info", "log level: debug, info, warn, error")
	)
	flag.Parse()

	if *logFile != "" {
		w := &lumberjack.Logger{
			Filename:   *logFile,
			MaxSize:    16, // MB
			MaxBackups: 1,
		}
		defer w.Close()
		sprite.SetLogger(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(*level)})))
	}

	if err := run(*width, *height, *output, *config, *count); err != nil {
		log.Fatalf("spritedemo: %v", err)
	}
	log.Printf("Demo saved to %s (%dx%d)\n", *output, *width, *height)
}

func run(width, height int, output, configPath string, count int) error {
	cfg := sprite.Config{SortMode: sprite.Texture}
	if configPath != "" {
		var err error
		if cfg, err = sprite.LoadConfig(configPath); err != nil {
			return err
		}
	}
	params, err := cfg.Params()
	if err != nil {
		return err
	}

	target := render.NewPixmapTarget(width, height)
	target.Clear(color.RGBA{R: 0x1a, G: 0x1c, B: 0x2c, A: 0xff})
	dev := render.NewSoftwareDevice(target)

	checker, err := dev.CreateTexture(checkerImage(16, 4))
	if err != nil {
		return err
	}
	disc, err := dev.CreateTexture(discImage(32))
	if err != nil {
		return err
	}
	font, err := text.NewFont(goregular.TTF, 24, dev)
	if err != nil {
		return err
	}

	batch, err := sprite.NewSpriteBatch(dev, cfg.Options()...)
	if err != nil {
		return err
	}
	defer batch.Close()

	err = batch.Scope(params, func() error {
		if err := drawField(batch, []render.Texture{checker, disc}, width, height, count); err != nil {
			return err
		}
		gold := sprite.Hex("#f4b41b")
		return batch.DrawString(font, "gogpu sprite batcher", sprite.TextOptions{
			Position: sprite.Pt(20, float32(height)-20),
			Color:    &gold,
		})
	})
	if err != nil {
		return err
	}
	st := batch.Stats()
	sprite.Logger().Info("spritedemo: sprites drawn",
		slog.Int("sprites", st.Sprites),
		slog.Int("draw_calls", st.DrawCalls),
		slog.Int("discards", st.Discards))

	if err := drawGlow(dev, disc, width, height); err != nil {
		return err
	}
	return savePNG(output, target.Image())
}

// drawField scatters count rotated sprites on a spiral, alternating
// between textures.
func drawField(b *sprite.Batch[sprite.NoData], textures []render.Texture, w, h, count int) error {
	cx, cy := float32(w)/2, float32(h)/2
	maxR := float32(min(w, h)) * 0.45
	for i := range count {
		t := float32(i) / float32(max(count, 1))
		angle := t * 12 * math.Pi
		r := t * maxR
		pos := sprite.Pt(cx, cy).Add(sprite.Pt(r, 0).Rotate(angle))
		tex := textures[i%len(textures)]
		tint := sprite.RGB(0.4+0.6*t, 0.5, 1-0.6*t)
		err := b.Draw(tex, sprite.DrawOptions{
			Position: pos,
			Origin:   sprite.Pt(float32(tex.Width())/2, float32(tex.Height())/2),
			Rotation: angle,
			Scale:    sprite.Pt(0.5+t, 0.5+t),
			Color:    &tint,
			Depth:    t,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// drawGlow adds a brightening pass with the color-add vertex format and
// additive blending.
func drawGlow(dev render.Device, tex render.Texture, w, h int) error {
	b, err := sprite.NewBatch(dev, sprite.PositionColorAddTexture{})
	if err != nil {
		return err
	}
	defer b.Close()

	p := sprite.DefaultParams()
	p.Blend = sprite.BlendAdditive()
	faint := sprite.White.Fade(0.25)
	return b.Scope(p, func() error {
		return b.DrawData(tex, sprite.DrawOptions{
			Dest:  &sprite.Rect{X: float32(w)/2 - 64, Y: float32(h)/2 - 64, Width: 128, Height: 128},
			Color: &faint,
		}, sprite.ColorAdd{Color: sprite.RGB(0.1, 0.05, 0)})
	})
}

func checkerImage(size, cell int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			c := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
			if (x/cell+y/cell)%2 == 1 {
				c = color.RGBA{R: 0x60, G: 0x60, B: 0x60, A: 0xff}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func discImage(size int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	r := float64(size) / 2
	for y := range size {
		for x := range size {
			d := math.Hypot(float64(x)+0.5-r, float64(y)+0.5-r)
			a := math.Max(0, math.Min(1, r-d))
			v := uint8(a * 255)
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: v})
		}
	}
	return img
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
