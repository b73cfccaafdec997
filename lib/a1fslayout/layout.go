// Copyright 2026 The A1FS Authors
// SPDX-License-Identifier: Apache-2.0

// Package a1fslayout defines the on-disk regions, fixed-size records,
// and size/alignment constants of an A1FS image (spec.md §3), plus the
// arithmetic that derives region boundaries from an image size and
// requested inode count (spec.md §3's I/T/DR/D/DB formulas).
//
// Records are accessed as typed overlays on byte slices carved out of
// the mapped image (see lib/a1fsimage) via unsafe.Pointer, the same
// zero-copy technique the pack's on-disk-format code reaches for
// (DESIGN.md has the full justification for not pulling in a
// struct-marshaling library here).
package a1fslayout

import (
	"fmt"
	"unsafe"
)

// BlockSize is B, the fixed unit of allocation and addressing.
const BlockSize = 4096

// A1FSMagic identifies a formatted A1FS image. Changing this value is
// a format-version break (spec.md §6).
const A1FSMagic uint32 = 0xA1F5A1F5

// Reserved and fixed block indices.
const (
	ReservedBlock   = 0 // kept zero
	SuperblockBlock = 1
)

// Inode mode bits, matching the conventional POSIX values so Getattr
// results need no translation.
const (
	ModeFmt  = 0o170000
	ModeDir  = 0o040000
	ModeFile = 0o100000
)

// MaxDirectExtents is the number of extents stored inline in an inode.
const MaxDirectExtents = 10

// MaxExtents is the total number of extents (direct + indirect) an
// inode may hold before the allocator reports no-space (spec.md §4.2).
const MaxExtents = 512

// MaxNameLength is the longest permitted dentry name, in bytes,
// excluding the terminating NUL (spec.md §4.4, §6).
const MaxNameLength = 251

// MaxPathLength bounds an absolute path's length: a path of this many
// bytes or more is rejected (spec.md §4.3).
const MaxPathLength = 4096

// Extent is a contiguous run of data blocks belonging to one inode.
type Extent struct {
	Start uint32
	Count uint32
}

// ExtentSize is sizeof(Extent) in bytes.
const ExtentSize = int(unsafe.Sizeof(Extent{}))

// ExtentsPerBlock is the number of Extent records an indirect block
// holds, packed from offset 0.
const ExtentsPerBlock = BlockSize / ExtentSize

// Inode is the fixed-size on-disk inode record. Links == 0 is the sole
// liveness predicate (spec.md §3): a zero-link slot is free.
type Inode struct {
	Mode              uint32
	Links             uint32
	Size              uint64
	MtimeSec          int64
	MtimeNsec         int64
	NumExtents        uint32
	reserved0         uint32
	DirectExtents     [MaxDirectExtents]Extent
	IndirectExtentBlk uint32
	reserved1         uint32
}

// InodeSize is sizeof(Inode) in bytes.
const InodeSize = int(unsafe.Sizeof(Inode{}))

// InodesPerBlock is the number of inode records packed into one block
// of the inode table.
const InodesPerBlock = BlockSize / InodeSize

// IsDir reports whether the inode's mode bit marks a directory.
func (in *Inode) IsDir() bool { return in.Mode&ModeFmt == ModeDir }

// Allocated reports whether the inode's slot is in use.
func (in *Inode) Allocated() bool { return in.Links > 0 }

// NameFieldSize is the size in bytes of a dentry's name field,
// including the terminating NUL (spec.md §3: "252-byte ... name").
const NameFieldSize = MaxNameLength + 1

// Dentry is a directory-entry record: a name plus the inode number it
// names. A leading NUL byte in Name marks the slot free.
type Dentry struct {
	Name [NameFieldSize]byte
	Ino  uint32
}

// DentrySize is sizeof(Dentry) in bytes.
const DentrySize = int(unsafe.Sizeof(Dentry{}))

// DentriesPerBlock is the number of dentry records packed into one
// directory block.
const DentriesPerBlock = BlockSize / DentrySize

// Free reports whether d is an unused slot.
func (d *Dentry) Free() bool { return d.Name[0] == 0 }

// NameString returns the entry's name as a string, stopping at the
// first NUL (or the field length if unterminated).
func (d *Dentry) NameString() string {
	for i, b := range d.Name {
		if b == 0 {
			return string(d.Name[:i])
		}
	}
	return string(d.Name[:])
}

// SetName writes name into the dentry's name field. The caller must
// have already validated len(name) <= MaxNameLength.
func (d *Dentry) SetName(name string) {
	d.Name = [NameFieldSize]byte{}
	copy(d.Name[:], name)
}

// Superblock is the fixed header stored at SuperblockBlock. The
// remainder of its block is reserved and kept zero.
type Superblock struct {
	Magic              uint32
	Size               uint64
	InodeCount         uint32
	FreeInodeCount     uint32
	DataBlockCount     uint32 // DB: total data-region blocks
	FreeDataBlockCount uint32
	BitmapStart        uint32 // always 2
	InodeTableStart    uint32 // 2 + D
	DataRegionStart    uint32 // 2 + D + I
}

// SuperblockSize is sizeof(Superblock) in bytes.
const SuperblockSize = int(unsafe.Sizeof(Superblock{}))

// OverlaySuperblockBlock overlays block 1's raw bytes as a
// Superblock, for callers (the formatter's "already formatted"
// detection) that need to read the header before a full Layout is
// known. block must be exactly one block long.
func OverlaySuperblockBlock(block []byte) *Superblock {
	return (*Superblock)(unsafe.Pointer(&block[0]))
}

// Layout holds the derived region sizes for an image of a given size
// and requested inode count (spec.md §3).
type Layout struct {
	TotalBlocks     uint32 // T = S/B
	InodeTableBlocks uint32 // I
	BitmapBlocks    uint32 // D
	DataRegionTotal uint32 // DR = T - I - 2
	DataBlocks      uint32 // DB = DR - D
	BitmapStart     uint32
	InodeTableStart uint32
	DataRegionStart uint32
}

// ComputeLayout derives the region layout for an image of imageSize
// bytes holding inodeCount inodes, per spec.md §3's formulas. It
// returns an error if the image has no room for the requested inode
// count plus the mandatory metadata blocks.
func ComputeLayout(imageSize int64, inodeCount uint32) (Layout, error) {
	if imageSize <= 0 || imageSize%BlockSize != 0 {
		return Layout{}, fmt.Errorf("image size %d is not a positive multiple of block size %d", imageSize, BlockSize)
	}
	if inodeCount == 0 {
		return Layout{}, fmt.Errorf("inode count must be > 0")
	}

	total := uint32(imageSize / BlockSize)
	inodeTableBlocks := ceilDiv(uint64(inodeCount)*uint64(InodeSize), BlockSize)

	if uint64(total) < uint64(inodeTableBlocks)+2 {
		return Layout{}, fmt.Errorf("image has %d blocks, too small to hold %d inode-table blocks plus 2 header blocks", total, inodeTableBlocks)
	}

	dataRegionTotal := uint64(total) - inodeTableBlocks - 2
	bitmapBlocks := ceilDiv(dataRegionTotal, 8*BlockSize)

	if dataRegionTotal < bitmapBlocks {
		return Layout{}, fmt.Errorf("image has no room for both a bitmap and a data region")
	}
	dataBlocks := dataRegionTotal - bitmapBlocks

	if uint64(total) < uint64(inodeTableBlocks)+bitmapBlocks+2 {
		return Layout{}, fmt.Errorf("image has %d blocks, needs at least %d for inode table (%d) + bitmap (%d) + 2 header blocks",
			total, inodeTableBlocks+bitmapBlocks+2, inodeTableBlocks, bitmapBlocks)
	}

	layout := Layout{
		TotalBlocks:      total,
		InodeTableBlocks: uint32(inodeTableBlocks),
		BitmapBlocks:     uint32(bitmapBlocks),
		DataRegionTotal:  uint32(dataRegionTotal),
		DataBlocks:       uint32(dataBlocks),
		BitmapStart:      2,
		InodeTableStart:  2 + uint32(bitmapBlocks),
	}
	layout.DataRegionStart = layout.InodeTableStart + layout.InodeTableBlocks
	return layout, nil
}

func ceilDiv(a, b uint64) uint64 {
	return (a + b - 1) / b
}

// LayoutFromSuperblock re-derives the region layout implied by a
// stored superblock's recorded size and inode count, for use by the
// formatter's "already formatted" detection (spec.md §4.6).
func LayoutFromSuperblock(sb *Superblock) (Layout, error) {
	return ComputeLayout(int64(sb.Size), sb.InodeCount)
}

// Matches reports whether sb's recorded region offsets agree with the
// layout re-derived from its own size and inode count — the detection
// rule in spec.md §4.6.
func (l Layout) Matches(sb *Superblock) bool {
	return sb.Magic == A1FSMagic &&
		sb.BitmapStart == l.BitmapStart &&
		sb.InodeTableStart == l.InodeTableStart &&
		sb.DataRegionStart == l.DataRegionStart &&
		sb.DataBlockCount == l.DataBlocks
}
