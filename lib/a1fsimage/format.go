// Copyright 2026 The A1FS Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package a1fsimage

import (
	"fmt"

	"github.com/a1fs/a1fs/lib/a1fsinode"
	"github.com/a1fs/a1fs/lib/a1fslayout"
)

// Detect reports whether img already holds a formatted A1FS image:
// its superblock magic matches and every recorded region offset
// agrees with the layout re-derived from its own size and inode count
// (spec.md §4.6). A mismatch on either count is "not A1FS" — safe to
// format — rather than an error.
func Detect(img *Image) (formatted bool, layout a1fslayout.Layout, err error) {
	if img.Size()%a1fslayout.BlockSize != 0 {
		return false, a1fslayout.Layout{}, nil
	}

	raw := img.Bytes()
	off := int64(a1fslayout.SuperblockBlock) * a1fslayout.BlockSize
	if off+a1fslayout.BlockSize > int64(len(raw)) {
		return false, a1fslayout.Layout{}, nil
	}
	candidate := a1fslayout.OverlaySuperblockBlock(raw[off : off+a1fslayout.BlockSize])

	if candidate.Magic != a1fslayout.A1FSMagic {
		return false, a1fslayout.Layout{}, nil
	}

	derived, err := a1fslayout.LayoutFromSuperblock(candidate)
	if err != nil {
		// Recorded size/inode-count no longer make sense against the
		// region formulas — treat as not-A1FS rather than erroring.
		return false, a1fslayout.Layout{}, nil
	}
	if int64(derived.TotalBlocks)*a1fslayout.BlockSize != img.Size() {
		return false, a1fslayout.Layout{}, nil
	}

	return derived.Matches(candidate), derived, nil
}

// Format initializes img as a fresh A1FS image with inodeCount inodes
// (spec.md §4.6): writes the superblock, zeros the bitmap, marks every
// inode slot free, and allocates inode 0 as the root directory. It
// refuses to overwrite an existing A1FS image unless force is true.
//
// zeroFill additionally zeros the entire data region up front (the
// formatter's -z flag). Without it, data-region bytes left over from
// whatever the image held before are not disturbed — every block a
// live inode can reach still gets explicitly zeroed when it is first
// allocated to that inode (lib/a1fscore's hole-fill and
// directory-block paths), so this is a cosmetic/security difference,
// not a correctness one.
func Format(img *Image, inodeCount uint32, force, zeroFill bool, nowSec, nowNsec int64) (*a1fslayout.View, error) {
	alreadyFormatted, _, err := Detect(img)
	if err != nil {
		return nil, err
	}
	if alreadyFormatted && !force {
		return nil, fmt.Errorf("image is already a formatted A1FS image (use -f to overwrite)")
	}

	layout, err := a1fslayout.ComputeLayout(img.Size(), inodeCount)
	if err != nil {
		return nil, err
	}

	if zeroFill {
		zeroAll(img.Bytes())
	} else {
		zeroMetadataRegions(img.Bytes(), layout)
	}

	view, err := a1fslayout.NewView(img.Bytes(), layout)
	if err != nil {
		return nil, err
	}

	sb := view.Superblock()
	*sb = a1fslayout.Superblock{
		Magic:              a1fslayout.A1FSMagic,
		Size:               uint64(img.Size()),
		InodeCount:         inodeCount,
		FreeInodeCount:     inodeCount,
		DataBlockCount:     layout.DataBlocks,
		FreeDataBlockCount: layout.DataBlocks,
		BitmapStart:        layout.BitmapStart,
		InodeTableStart:    layout.InodeTableStart,
		DataRegionStart:    layout.DataRegionStart,
	}

	root := view.Inode(0)
	a1fsinode.InitInode(root, a1fslayout.ModeDir|0o777, 2, nowSec, nowNsec)
	sb.FreeInodeCount--

	return view, nil
}

func zeroAll(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}

// zeroMetadataRegions zeros every block the formatter always resets —
// the superblock, the bitmap, and the inode table — leaving the data
// region untouched.
func zeroMetadataRegions(buf []byte, layout a1fslayout.Layout) {
	metadataBlocks := layout.DataRegionStart // everything before the data region
	clearBlocks(buf, 0, metadataBlocks)
}

func clearBlocks(buf []byte, startBlock, count uint32) {
	start := int64(startBlock) * a1fslayout.BlockSize
	end := start + int64(count)*a1fslayout.BlockSize
	for i := start; i < end; i++ {
		buf[i] = 0
	}
}
