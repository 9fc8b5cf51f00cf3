package sprite

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/sprite/render"
)

// Params is the configuration bundle passed to Batch.Begin. It is read-only
// between Begin and End.
//
// Zero fields take defaults: premultiplied alpha blending, linear clamped
// sampling and an identity transform. The zero DepthStencil and
// Rasterizer disable depth testing and culling.
type Params struct {
	SortMode     SortMode
	Blend        gputypes.BlendState
	Sampler      render.SamplerState
	DepthStencil render.DepthStencilState
	Rasterizer   render.RasterizerState
	Effect       *render.Effect
	Transform    Matrix
}

// DefaultParams returns deferred-mode params with every default applied.
func DefaultParams() Params {
	return Params{
		SortMode:   Deferred,
		Blend:      gputypes.BlendStatePremultiplied(),
		Sampler:    render.SamplerLinearClamp,
		Rasterizer: render.RasterizerCullNone,
		Transform:  Identity(),
	}
}

// withDefaults fills zero fields.
func (p Params) withDefaults() Params {
	if p.Blend == (gputypes.BlendState{}) {
		p.Blend = gputypes.BlendStatePremultiplied()
	}
	if p.Sampler.Filter == gputypes.FilterModeUndefined {
		p.Sampler.Filter = gputypes.FilterModeLinear
	}
	if p.Sampler.AddressMode == gputypes.AddressModeUndefined {
		p.Sampler.AddressMode = gputypes.AddressModeClampToEdge
	}
	if p.Transform == (Matrix{}) {
		p.Transform = Identity()
	}
	return p
}

// pipelineState builds the device state for p and layout.
func (p Params) pipelineState(layout render.VertexLayout) *render.PipelineState {
	return &render.PipelineState{
		Blend:        p.Blend,
		Sampler:      p.Sampler,
		DepthStencil: p.DepthStencil,
		Rasterizer:   p.Rasterizer,
		Effect:       p.Effect,
		Transform:    p.Transform.Mat4(),
		Layout:       layout,
	}
}

// BlendAdditive returns a blend state that adds premultiplied source
// colors to the target.
func BlendAdditive() gputypes.BlendState {
	add := gputypes.BlendComponent{
		SrcFactor: gputypes.BlendFactorOne,
		DstFactor: gputypes.BlendFactorOne,
		Operation: gputypes.BlendOperationAdd,
	}
	return gputypes.BlendState{Color: add, Alpha: add}
}
