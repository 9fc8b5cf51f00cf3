// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrThreadStopped is returned by Thread.Invoke after Stop.
var ErrThreadStopped = errors.New("render: thread stopped")

// Thread is a goroutine locked to one OS thread that runs submitted
// functions in order. Graphics APIs that bind a context to the calling
// thread need every call to arrive on the same thread.
//
// Thread is safe for concurrent use. Invoke and Stop may also be called
// from a function already running on the thread.
type Thread struct {
	tasks chan task
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once

	// owner identifies the loop's OS thread (or goroutine on platforms
	// without thread IDs) while the loop runs; zero otherwise.
	owner atomic.Uint64
}

type task struct {
	fn   func() error
	errc chan error
}

// NewThread starts a render thread.
func NewThread() *Thread {
	t := &Thread{
		tasks: make(chan task),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	ready := make(chan struct{})
	go t.loop(ready)
	<-ready
	return t
}

func (t *Thread) loop(ready chan<- struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(t.done)
	defer t.owner.Store(0)

	t.owner.Store(threadToken())
	close(ready)

	for {
		select {
		case tk := <-t.tasks:
			tk.errc <- run(tk.fn)
		case <-t.quit:
			return
		}
	}
}

// run calls fn, turning a panic into an error so one bad task cannot take
// the render thread down.
func run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render: task panicked: %v", r)
		}
	}()
	return fn()
}

// OnThread reports whether the caller is running on the render thread.
func (t *Thread) OnThread() bool {
	owner := t.owner.Load()
	return owner != 0 && owner == threadToken()
}

// Invoke runs fn on the render thread and blocks until it returns.
// Called from the render thread itself, it runs fn inline. It cannot be
// cancelled.
func (t *Thread) Invoke(fn func() error) error {
	if t.OnThread() {
		return run(fn)
	}
	select {
	case <-t.quit:
		return ErrThreadStopped
	default:
	}

	errc := make(chan error, 1)
	select {
	case t.tasks <- task{fn: fn, errc: errc}:
		return <-errc
	case <-t.quit:
		return ErrThreadStopped
	}
}

// Stop ends the thread after the running task, if any, returns. Called
// from outside the thread it waits for the thread to exit; called from a
// task it returns at once and the thread exits when the task does.
// It is safe to call Stop more than once.
func (t *Thread) Stop() {
	t.once.Do(func() { close(t.quit) })
	if t.OnThread() {
		return
	}
	<-t.done
}
