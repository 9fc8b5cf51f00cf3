// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
	lru "github.com/hashicorp/golang-lru/v2"
)

//go:embed shaders/sprite.wgsl
var spriteShaderSource string

//go:embed shaders/sprite_add.wgsl
var spriteAddShaderSource string

// halPipelines holds the pipeline objects of a HALDevice: shader modules,
// layouts, cached pipelines, samplers and texture bind groups.
type halPipelines struct {
	shaders       map[shaderKey]hal.ShaderModule
	uniformLayout hal.BindGroupLayout
	textureLayout hal.BindGroupLayout
	pipeLayout    hal.PipelineLayout
	pipelines     map[pipelineKey]hal.RenderPipeline
	samplers      map[SamplerState]hal.Sampler
	bindGroups    *lru.Cache[bindGroupKey, hal.BindGroup]
}

type shaderKey struct {
	effect *Effect
	add    bool
}

type bindGroupKey struct {
	texture uint64
	sampler SamplerState
}

// CompileShader compiles WGSL source to SPIR-V words.
func CompileShader(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("render: compile shader: %w", err)
	}
	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// initPipelines creates the bind group layouts and the pipeline layout.
//
//	group 0, binding 0: projection uniform (dynamic offset, vertex)
//	group 1, binding 0: sampler (fragment)
//	group 1, binding 1: texture (fragment)
func (d *HALDevice) initPipelines() error {
	d.shaders = make(map[shaderKey]hal.ShaderModule)
	d.pipelines = make(map[pipelineKey]hal.RenderPipeline)
	d.samplers = make(map[SamplerState]hal.Sampler)

	uniformLayout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "sprite_uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer: &gputypes.BufferBindingLayout{
					Type:             gputypes.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   uniformSize,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("render: create uniform layout: %w", err)
	}
	d.uniformLayout = uniformLayout

	textureLayout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "sprite_texture_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("render: create texture layout: %w", err)
	}
	d.textureLayout = textureLayout

	pipeLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "sprite_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{d.uniformLayout, d.textureLayout},
	})
	if err != nil {
		return fmt.Errorf("render: create pipeline layout: %w", err)
	}
	d.pipeLayout = pipeLayout

	_, err = d.shader(shaderKey{})
	return err
}

// shader returns the compiled shader for k, compiling it on first use.
func (d *HALDevice) shader(k shaderKey) (hal.ShaderModule, error) {
	if m, ok := d.shaders[k]; ok {
		return m, nil
	}
	src, label := spriteShaderSource, "sprite_shader"
	if k.add {
		src, label = spriteAddShaderSource, "sprite_add_shader"
	}
	if k.effect != nil {
		src, label = k.effect.WGSL, "effect_"+k.effect.Name
	}
	spirv, err := CompileShader(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	m, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{WGSL: src, SPIRV: spirv},
	})
	if err != nil {
		return nil, fmt.Errorf("render: create %s: %w", label, err)
	}
	d.shaders[k] = m
	return m, nil
}

// pipeline returns the render pipeline for s, creating it on first use.
func (d *HALDevice) pipeline(s *PipelineState) (hal.RenderPipeline, error) {
	key := s.key()
	if p, ok := d.pipelines[key]; ok {
		return p, nil
	}

	_, _, add := s.Layout.Format(LocationColorAdd)
	module, err := d.shader(shaderKey{effect: s.Effect, add: add})
	if err != nil {
		return nil, err
	}

	blend := s.Blend
	desc := &hal.RenderPipelineDescriptor{
		Label:  "sprite_pipeline",
		Layout: d.pipeLayout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []gputypes.VertexBufferLayout{{
				ArrayStride: uint64(s.Layout.Stride),
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes:  s.Layout.Attributes,
			}},
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    d.format,
				Blend:     &blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: s.Rasterizer.CullMode,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}
	if ds := s.DepthStencil; ds.DepthTest {
		keep := hal.StencilFaceState{
			Compare:     gputypes.CompareFunctionAlways,
			FailOp:      hal.StencilOperationKeep,
			DepthFailOp: hal.StencilOperationKeep,
			PassOp:      hal.StencilOperationKeep,
		}
		desc.DepthStencil = &hal.DepthStencilState{
			Format:            gputypes.TextureFormatDepth32Float,
			DepthWriteEnabled: ds.DepthWrite,
			DepthCompare:      ds.Compare,
			StencilFront:      keep,
			StencilBack:       keep,
		}
	}

	p, err := d.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("render: create sprite pipeline: %w", err)
	}
	d.pipelines[key] = p
	slogger().Info("hal: sprite pipeline created",
		slog.Int("stride", s.Layout.Stride),
		slog.Bool("depth", s.DepthStencil.DepthTest),
		slog.Int("cached", len(d.pipelines)))
	return p, nil
}

// sampler returns the sampler for s, creating it on first use.
func (d *HALDevice) sampler(s SamplerState) (hal.Sampler, error) {
	if smp, ok := d.samplers[s]; ok {
		return smp, nil
	}
	smp, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "sprite_sampler",
		AddressModeU: s.AddressMode,
		AddressModeV: s.AddressMode,
		AddressModeW: s.AddressMode,
		MagFilter:    s.Filter,
		MinFilter:    s.Filter,
		MipmapFilter: s.Filter,
		LodMaxClamp:  32,
	})
	if err != nil {
		return nil, fmt.Errorf("render: create sampler: %w", err)
	}
	d.samplers[s] = smp
	return smp, nil
}

// textureGroup returns the bind group sampling tex with s. Groups live in
// an LRU cache; evicted groups are destroyed after the GPU is done with
// them.
func (d *HALDevice) textureGroup(tex *HALTexture, s SamplerState) (hal.BindGroup, error) {
	key := bindGroupKey{texture: tex.id, sampler: s}
	if g, ok := d.bindGroups.Get(key); ok {
		return g, nil
	}
	smp, err := d.sampler(s)
	if err != nil {
		return nil, err
	}
	g, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "sprite_texture_group",
		Layout: d.textureLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.SamplerBinding{Sampler: smp.NativeHandle()}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: tex.view.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("render: create texture bind group: %w", err)
	}
	d.bindGroups.Add(key, g)
	return g, nil
}

// forgetTexture drops every cached bind group referencing texture id.
func (d *HALDevice) forgetTexture(id uint64) {
	for _, k := range d.bindGroups.Keys() {
		if k.texture == id {
			d.bindGroups.Remove(k)
		}
	}
}

func (d *HALDevice) destroyPipelines() {
	for _, p := range d.pipelines {
		d.device.DestroyRenderPipeline(p)
	}
	d.pipelines = nil
	for _, s := range d.samplers {
		d.device.DestroySampler(s)
	}
	d.samplers = nil
	for _, m := range d.shaders {
		d.device.DestroyShaderModule(m)
	}
	d.shaders = nil
	if d.pipeLayout != nil {
		d.device.DestroyPipelineLayout(d.pipeLayout)
		d.pipeLayout = nil
	}
	if d.textureLayout != nil {
		d.device.DestroyBindGroupLayout(d.textureLayout)
		d.textureLayout = nil
	}
	if d.uniformLayout != nil {
		d.device.DestroyBindGroupLayout(d.uniformLayout)
		d.uniformLayout = nil
	}
}
