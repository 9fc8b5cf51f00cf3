// Package stream feeds sprite vertices to a render.Device through one
// reusable vertex buffer.
//
// Vertices are generated into a CPU staging slice and uploaded into a GPU
// ring buffer. Uploads append with render.WriteNoOverwrite while space
// remains and restart at offset zero with render.WriteDiscard when it runs
// out, so the CPU never waits for the GPU. The staging slice and the GPU
// buffer wrap on independent schedules.
//
// The index buffer is built once per Streamer with the 0,1,2,2,3,0 pattern
// for every quad and is rebuilt only after a content loss.
package stream
