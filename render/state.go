// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

// SamplerState describes how textures are filtered and addressed.
type SamplerState struct {
	Filter      gputypes.FilterMode
	AddressMode gputypes.AddressMode
}

// Common sampler states.
var (
	SamplerLinearClamp = SamplerState{
		Filter:      gputypes.FilterModeLinear,
		AddressMode: gputypes.AddressModeClampToEdge,
	}
	SamplerPointClamp = SamplerState{
		Filter:      gputypes.FilterModeNearest,
		AddressMode: gputypes.AddressModeClampToEdge,
	}
)

// DepthStencilState controls depth testing. A zero value disables it.
type DepthStencilState struct {
	DepthTest  bool
	DepthWrite bool
	Compare    gputypes.CompareFunction
}

// Common depth states.
var (
	DepthNone    = DepthStencilState{}
	DepthDefault = DepthStencilState{DepthTest: true, DepthWrite: true, Compare: gputypes.CompareFunctionLessEqual}
	DepthRead    = DepthStencilState{DepthTest: true, Compare: gputypes.CompareFunctionLessEqual}
)

// RasterizerState controls primitive culling.
type RasterizerState struct {
	CullMode gputypes.CullMode
}

// RasterizerCullNone disables culling. Sprites flipped by negative scale
// stay visible.
var RasterizerCullNone = RasterizerState{CullMode: gputypes.CullModeNone}

// Effect is a custom shader used in place of the built-in sprite shader.
//
// WGSL must declare the same bindings as the built-in shader: the
// transform uniform at group 0 binding 0, the sampler at group 1 binding 0
// and the texture at group 1 binding 1. Devices that cannot compile shaders
// (SoftwareDevice) use Pixel instead when it is set.
type Effect struct {
	Name string
	WGSL string

	// Pixel, when set, post-processes every shaded fragment on CPU devices.
	// Colors are premultiplied RGBA in [0,1].
	Pixel func(c [4]float32) [4]float32
}

// PipelineState is the full render state bound before sprite draws.
type PipelineState struct {
	Blend        gputypes.BlendState
	Sampler      SamplerState
	DepthStencil DepthStencilState
	Rasterizer   RasterizerState
	Effect       *Effect

	// Transform maps vertex positions into target pixel space.
	Transform mgl32.Mat4

	// Layout is the vertex layout of the bound vertex buffer.
	Layout VertexLayout
}

// key identifies pipeline-affecting state, so devices can cache compiled
// pipelines. Transform and sampler are bound per draw, not per pipeline.
type pipelineKey struct {
	blend   gputypes.BlendState
	depth   DepthStencilState
	cull    gputypes.CullMode
	effect  *Effect
	stride  int
	attribs string
}

func (s *PipelineState) key() pipelineKey {
	attribs := make([]byte, 0, len(s.Layout.Attributes)*3)
	for _, a := range s.Layout.Attributes {
		attribs = append(attribs, byte(a.Format), byte(a.Offset), byte(a.ShaderLocation))
	}
	return pipelineKey{
		blend:   s.Blend,
		depth:   s.DepthStencil,
		cull:    s.Rasterizer.CullMode,
		effect:  s.Effect,
		stride:  s.Layout.Stride,
		attribs: string(attribs),
	}
}
