// Copyright 2026 The A1FS Authors
// SPDX-License-Identifier: Apache-2.0

// Package a1fscore implements the filesystem operations A1FS exposes
// to its FUSE bridge: path resolution (spec.md §4.3), the directory
// manager (spec.md §4.4), file I/O and truncation (spec.md §4.5), and
// the operation façade (spec.md §6) that ties them to a single mounted
// image.
//
// Every exported operation takes an absolute path and returns a
// *a1fscore.Error on failure, never a bare error, so the bridge can
// recover the errno class without string matching (spec.md §7).
package a1fscore

import (
	"github.com/a1fs/a1fs/lib/a1fslayout"
	"github.com/a1fs/a1fs/lib/clock"
)

// Mount ties a formatted image's View to a Clock and is the receiver
// for every core operation. A Mount is not safe for concurrent use —
// spec.md §5 mandates a single mount, single-threaded access, and the
// bridge (lib/a1fsfuse) serializes calls accordingly.
type Mount struct {
	View  *a1fslayout.View
	Clock clock.Clock
}

// NewMount returns a Mount over an already-opened View.
func NewMount(view *a1fslayout.View, clk clock.Clock) *Mount {
	return &Mount{View: view, Clock: clk}
}

func (m *Mount) sb() *a1fslayout.Superblock { return m.View.Superblock() }

// stamp updates in's mtime to the current time.
func (m *Mount) stamp(in *a1fslayout.Inode) {
	sec, nsec := clock.SecondsNanos(m.Clock.Now())
	in.MtimeSec, in.MtimeNsec = sec, nsec
}
