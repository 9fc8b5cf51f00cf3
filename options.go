package sprite

import (
	"log/slog"
)

// Default capacities, in sprites.
const (
	DefaultBatchCapacity  = 2048
	DefaultBufferCapacity = 4096

	initialStoreCapacity = 64
)

// Option configures a Batch during creation.
//
// Example:
//
//	b, err := sprite.NewSpriteBatch(dev,
//	    sprite.WithBatchCapacity(1024),
//	    sprite.WithCoordinator(coord))
type Option func(*options)

// options holds optional configuration for Batch creation.
type options struct {
	batchCapacity  int
	bufferCapacity int
	coordinator    *Coordinator
	logger         *slog.Logger
}

// defaultOptions returns the default batch options.
func defaultOptions() options {
	return options{
		batchCapacity:  DefaultBatchCapacity,
		bufferCapacity: DefaultBufferCapacity,
		coordinator:    nil, // DefaultCoordinator()
		logger:         nil, // Logger() at call time
	}
}

// WithBatchCapacity sets the number of sprites one draw call can cover.
// It sizes the staging vertices and the index buffer and must be in
// [1, 16384].
func WithBatchCapacity(n int) Option {
	return func(o *options) {
		o.batchCapacity = n
	}
}

// WithBufferCapacity sets the GPU vertex buffer size in sprites. When the
// buffer is full the batch discards it and starts over at offset zero.
func WithBufferCapacity(n int) Option {
	return func(o *options) {
		o.bufferCapacity = n
	}
}

// WithCoordinator sets the Coordinator enforcing immediate-mode
// exclusivity. Batches that draw to the same device should share one.
func WithCoordinator(c *Coordinator) Option {
	return func(o *options) {
		o.coordinator = c
	}
}

// WithLogger sets a logger for this batch only. By default the batch logs
// through Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
