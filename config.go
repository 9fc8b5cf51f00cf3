package sprite

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gogpu/gputypes"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/sprite/render"
)

// Config is the YAML form of batch options and default Begin params.
//
//	sort_mode: Texture
//	batch_capacity: 1024
//	buffer_capacity: 8192
//	blend: premultiplied
//	sampler: point
//	depth: none
type Config struct {
	SortMode       SortMode `yaml:"sort_mode"`
	BatchCapacity  int      `yaml:"batch_capacity,omitempty"`
	BufferCapacity int      `yaml:"buffer_capacity,omitempty"`
	Blend          string   `yaml:"blend,omitempty"`
	Sampler        string   `yaml:"sampler,omitempty"`
	Depth          string   `yaml:"depth,omitempty"`
}

// ParseConfig decodes a YAML config. Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	return decodeConfig(bytes.NewReader(data))
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("sprite: load config: %w", err)
	}
	defer f.Close()
	return decodeConfig(f)
}

func decodeConfig(r io.Reader) (Config, error) {
	var c Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("sprite: decode config: %w", err)
	}
	if _, err := c.Params(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Options returns the batch options the config sets.
func (c Config) Options() []Option {
	var opts []Option
	if c.BatchCapacity != 0 {
		opts = append(opts, WithBatchCapacity(c.BatchCapacity))
	}
	if c.BufferCapacity != 0 {
		opts = append(opts, WithBufferCapacity(c.BufferCapacity))
	}
	return opts
}

// Params returns the Begin params the config describes.
func (c Config) Params() (Params, error) {
	p := DefaultParams()
	p.SortMode = c.SortMode

	switch strings.ToLower(c.Blend) {
	case "", "premultiplied":
	case "alpha":
		p.Blend = gputypes.BlendStateAlpha()
	case "additive":
		p.Blend = BlendAdditive()
	case "opaque":
		p.Blend = gputypes.BlendStateReplace()
	default:
		return Params{}, fmt.Errorf("sprite: unknown blend %q", c.Blend)
	}

	switch strings.ToLower(c.Sampler) {
	case "", "linear":
	case "point":
		p.Sampler = render.SamplerPointClamp
	case "linear_wrap":
		p.Sampler = render.SamplerState{Filter: gputypes.FilterModeLinear, AddressMode: gputypes.AddressModeRepeat}
	case "point_wrap":
		p.Sampler = render.SamplerState{Filter: gputypes.FilterModeNearest, AddressMode: gputypes.AddressModeRepeat}
	default:
		return Params{}, fmt.Errorf("sprite: unknown sampler %q", c.Sampler)
	}

	switch strings.ToLower(c.Depth) {
	case "", "none":
	case "default":
		p.DepthStencil = render.DepthDefault
	case "read":
		p.DepthStencil = render.DepthRead
	default:
		return Params{}, fmt.Errorf("sprite: unknown depth mode %q", c.Depth)
	}
	return p, nil
}
