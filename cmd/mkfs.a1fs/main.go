// Copyright 2026 The A1FS Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/a1fs/a1fs/lib/a1fsimage"
	"github.com/a1fs/a1fs/lib/clock"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mkfs.a1fs: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	var (
		force      bool
		zeroFill   bool
		inodeCount uint
	)
	flag.BoolVar(&force, "f", false, "overwrite an already-formatted image")
	flag.BoolVar(&zeroFill, "z", false, "zero-fill the entire image before formatting")
	flag.UintVar(&inodeCount, "i", 0, "number of inodes to allocate (required, must be > 0)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: mkfs.a1fs [-f] [-z] -i N image\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if inodeCount == 0 {
		flag.Usage()
		return fmt.Errorf("-i is required and must be > 0")
	}
	if flag.NArg() != 1 {
		flag.Usage()
		return fmt.Errorf("exactly one image argument is required")
	}
	imagePath := flag.Arg(0)

	img, err := a1fsimage.Open(imagePath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := img.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	logger.Info("formatting image",
		"path", imagePath,
		"size_bytes", img.Size(),
		"inode_count", inodeCount,
		"force", force,
		"zero_fill", zeroFill,
	)

	clk := clock.Real()
	sec, nsec := clock.SecondsNanos(clk.Now())

	view, err := a1fsimage.Format(img, uint32(inodeCount), force, zeroFill, sec, nsec)
	if err != nil {
		return err
	}

	sb := view.Superblock()
	logger.Info("image formatted",
		"total_blocks", view.Layout.TotalBlocks,
		"bitmap_blocks", view.Layout.BitmapBlocks,
		"inode_table_blocks", view.Layout.InodeTableBlocks,
		"data_blocks", sb.DataBlockCount,
		"free_inodes", sb.FreeInodeCount,
	)

	return nil
}
