// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package render

import "golang.org/x/sys/windows"

// threadToken returns the calling OS thread's ID.
func threadToken() uint64 { return uint64(windows.GetCurrentThreadId()) }
