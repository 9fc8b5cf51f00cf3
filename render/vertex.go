// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"
)

// Shader locations of the sprite vertex attributes.
const (
	LocationPosition uint32 = 0
	LocationColor    uint32 = 1
	LocationTexCoord uint32 = 2
	LocationColorAdd uint32 = 3
)

// decodeAttribute reads one attribute of format f from b, widening it to
// four float32 components. Missing components are 0 except w, which is 1.
func decodeAttribute(b []byte, f gputypes.VertexFormat) [4]float32 {
	v := [4]float32{0, 0, 0, 1}
	switch f {
	case gputypes.VertexFormatFloat32, gputypes.VertexFormatFloat32x2,
		gputypes.VertexFormatFloat32x3, gputypes.VertexFormatFloat32x4:
		n := int(f.Size() / 4)
		for i := 0; i < n; i++ {
			v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		}
	case gputypes.VertexFormatUnorm8x2, gputypes.VertexFormatUnorm8x4:
		n := int(f.Size())
		for i := 0; i < n; i++ {
			v[i] = float32(b[i]) / 255
		}
	case gputypes.VertexFormatUnorm16x2, gputypes.VertexFormatUnorm16x4:
		n := int(f.Size() / 2)
		for i := 0; i < n; i++ {
			v[i] = float32(binary.LittleEndian.Uint16(b[i*2:])) / 65535
		}
	}
	return v
}

func putFloat32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}
