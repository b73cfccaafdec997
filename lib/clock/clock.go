// Copyright 2026 The A1FS Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the wall-clock read the core uses to stamp inode
// mtimes. Production code injects Real(); tests inject Fake() for a
// deterministic mtime.
//
// Unlike a general-purpose clock abstraction, a1fs never schedules
// timers or sleeps — the core runs to completion between bridge
// callbacks (spec.md §5) — so Clock is trimmed to the one method the
// core actually calls.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SecondsNanos splits t into the (seconds, nanoseconds) pair an inode
// stores as its mtime.
func SecondsNanos(t time.Time) (seconds int64, nanoseconds int64) {
	return t.Unix(), int64(t.Nanosecond())
}
