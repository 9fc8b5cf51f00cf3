// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build linux

package render

import "golang.org/x/sys/unix"

// threadToken returns the calling OS thread's ID.
func threadToken() uint64 { return uint64(unix.Gettid()) }
