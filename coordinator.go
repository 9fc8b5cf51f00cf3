package sprite

import "sync"

// Coordinator enforces the cross-batch rule that at most one Immediate
// batch is open at a time, while any number of deferred batches may be.
// Batches sharing a device should share a Coordinator.
type Coordinator struct {
	mu        sync.Mutex
	immediate bool
	deferred  int
}

// NewCoordinator returns an empty Coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

var defaultCoordinator = NewCoordinator()

// DefaultCoordinator returns the process-wide Coordinator used by batches
// created without WithCoordinator.
func DefaultCoordinator() *Coordinator { return defaultCoordinator }

// TryClaimImmediate claims the immediate slot. It reports false if
// another immediate batch holds it.
func (c *Coordinator) TryClaimImmediate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.immediate {
		return false
	}
	c.immediate = true
	return true
}

// ReleaseImmediate frees the immediate slot.
func (c *Coordinator) ReleaseImmediate() {
	c.mu.Lock()
	c.immediate = false
	c.mu.Unlock()
}

// ClaimDeferred registers an open deferred batch.
func (c *Coordinator) ClaimDeferred() {
	c.mu.Lock()
	c.deferred++
	c.mu.Unlock()
}

// ReleaseDeferred unregisters an open deferred batch.
func (c *Coordinator) ReleaseDeferred() {
	c.mu.Lock()
	if c.deferred > 0 {
		c.deferred--
	}
	c.mu.Unlock()
}

// Active returns whether an immediate batch is open and how many deferred
// batches are open.
func (c *Coordinator) Active() (immediate bool, deferred int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.immediate, c.deferred
}
