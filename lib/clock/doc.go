// Copyright 2026 The A1FS Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the wall-clock read the core uses to stamp
// inode mtimes (spec.md §1's "function returning a (seconds,
// nanoseconds) pair").
//
// Production code accepts a Clock parameter instead of calling
// time.Now directly. Real() provides the standard library behavior;
// Fake() gives tests a pinned, advanceable time so mtime assertions
// are deterministic.
package clock
