// Copyright 2026 The A1FS Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/a1fs/a1fs/lib/a1fscore"
	"github.com/a1fs/a1fs/lib/a1fsfuse"
	"github.com/a1fs/a1fs/lib/a1fsimage"
	"github.com/a1fs/a1fs/lib/clock"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "a1fs: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: a1fs image mount_point [bridge-options]")
	}
	imagePath := os.Args[1]
	mountpoint := os.Args[2]
	allowOther := hasBridgeOption(os.Args[3:], "allow_other")

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	img, err := a1fsimage.Open(imagePath)
	if err != nil {
		return err
	}
	defer img.Close()

	view, err := a1fsimage.OpenView(img)
	if err != nil {
		return fmt.Errorf("opening %s: %w", imagePath, err)
	}

	mount := a1fscore.NewMount(view, clock.Real())

	server, err := a1fsfuse.Mount(a1fsfuse.Options{
		Mountpoint: mountpoint,
		Mount:      mount,
		AllowOther: allowOther,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	server.Wait()

	if err := img.Flush(); err != nil {
		return fmt.Errorf("flushing image on unmount: %w", err)
	}
	logger.Info("a1fs unmounted cleanly", "mountpoint", mountpoint)
	return nil
}

// hasBridgeOption reports whether name appears in a "-o a,b,c"-style
// option list among args.
func hasBridgeOption(args []string, name string) bool {
	for i, arg := range args {
		var list string
		switch {
		case arg == "-o" && i+1 < len(args):
			list = args[i+1]
		case strings.HasPrefix(arg, "-o"):
			list = strings.TrimPrefix(arg, "-o")
		default:
			continue
		}
		for _, opt := range strings.Split(list, ",") {
			if opt == name {
				return true
			}
		}
	}
	return false
}
