// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render defines the graphics device the sprite batcher drives and
// provides two implementations of it.
//
// # Device Contract
//
// A [Device] binds pipeline state and textures, streams vertex data into
// buffers with [WriteNoOverwrite] or [WriteDiscard] semantics and issues
// indexed triangle-list draws. Devices that tie API calls to one OS thread
// expose that thread through [Device.Invoke]; buffer creation is always
// routed through it.
//
// # Implementations
//
//   - [SoftwareDevice]: CPU reference device. Rasterizes into a
//     [PixmapTarget], records every call and can simulate content loss.
//   - [HALDevice]: renders through a gogpu/wgpu HAL device. Pipelines are
//     created on demand and cached, texture bind groups live in an LRU
//     cache, and Discard uploads rename the vertex buffer so in-flight
//     frames keep their data.
//
// # Usage
//
// Software rendering:
//
//	target := render.NewPixmapTarget(800, 600)
//	dev := render.NewSoftwareDevice(target)
//	tex, _ := dev.CreateTexture(img)
//	// ... draw with a sprite batch ...
//	png.Encode(w, target.Image())
//
// GPU rendering with a host-provided device:
//
//	dev, err := render.NewHALDeviceFromProvider(provider)
//	...
//	_ = dev.Invoke(func() error {
//	    if err := dev.BeginFrame(render.HALFrame{Color: view, Width: w, Height: h}); err != nil {
//	        return err
//	    }
//	    // ... draw with a sprite batch ...
//	    return dev.EndFrame()
//	})
//
// # Thread Safety
//
// SoftwareDevice is safe for concurrent use. HALDevice methods other than
// Invoke and Close must run on its render thread.
package render
