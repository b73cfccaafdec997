// Copyright 2026 The A1FS Authors
// SPDX-License-Identifier: Apache-2.0

package a1fsfuse

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/a1fs/a1fs/lib/a1fscore"
	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory the image is mounted at. It must
	// already exist (spec.md §5 doesn't ask the driver to create it).
	Mountpoint string

	// Mount is the formatted image's already-opened core.
	Mount *a1fscore.Mount

	// AllowOther permits other users (including root) to access the
	// mount. Requires user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Logger receives diagnostic messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// Mount mounts the A1FS filesystem backed by options.Mount at
// options.Mountpoint. The returned server is already serving; the
// caller must call Unmount (or Wait, to block until unmounted) on it.
//
// A1FS serves a single mount with no concurrent callers in mind
// (spec.md §5), so the server runs in go-fuse's single-threaded mode
// and hands kernel requests to the core one at a time; the caller is
// expected not to run two mounts against the same *a1fscore.Mount.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Mount == nil {
		return nil, fmt.Errorf("mount is required")
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	}

	root := &node{mount: options.Mount, path: "/"}

	entryTimeout := time.Duration(0)
	attrTimeout := time.Duration(0)

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout: &entryTimeout,
		AttrTimeout:  &attrTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     "a1fs",
			Name:       "a1fs",
			AllowOther: options.AllowOther,
			// The core's Mount is not safe for concurrent use.
			SingleThreaded: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting a1fs at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("a1fs mounted", "mountpoint", options.Mountpoint)
	return server, nil
}
