// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !linux && !windows

package render

import (
	"bytes"
	"runtime"
	"strconv"
)

// threadToken returns the calling goroutine's ID, parsed from the
// "goroutine N [" stack header. The render loop never leaves its
// goroutine, so the ID identifies the render thread as well.
func threadToken() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
