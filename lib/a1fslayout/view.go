// Copyright 2026 The A1FS Authors
// SPDX-License-Identifier: Apache-2.0

package a1fslayout

import (
	"fmt"
	"unsafe"
)

// View is a bounds-checked typed overlay over the mapped image buffer.
// It is the single place offset math happens (spec.md §9's redesign
// flag calls for exactly this instead of scattered raw pointer
// arithmetic into the mapped image).
//
// View does not own the buffer and performs no I/O; lib/a1fsimage
// constructs one over its mmap'd region.
type View struct {
	buf    []byte
	Layout Layout
}

// NewView wraps buf (the full mapped image) with the given layout.
func NewView(buf []byte, layout Layout) (*View, error) {
	if int64(len(buf)) != int64(layout.TotalBlocks)*BlockSize {
		return nil, fmt.Errorf("buffer is %d bytes, layout expects %d", len(buf), int64(layout.TotalBlocks)*BlockSize)
	}
	return &View{buf: buf, Layout: layout}, nil
}

// block returns the byte range for logical block index b.
func (v *View) block(b uint32) []byte {
	off := int64(b) * BlockSize
	return v.buf[off : off+BlockSize]
}

// Superblock returns a pointer overlaying the superblock block. Writes
// through the returned pointer are visible immediately (same backing
// array) and persisted on the next flush of the mapped image.
func (v *View) Superblock() *Superblock {
	return (*Superblock)(unsafe.Pointer(&v.block(SuperblockBlock)[0]))
}

// bitmapByteAndBit returns the byte of the data bitmap holding bit
// blockIndex's liveness, and the bit's index within that byte.
func (v *View) bitmapByteAndBit(blockIndex uint32) (byteSlice []byte, bitIndex uint) {
	byteOffset := blockIndex / 8
	blockNum := v.Layout.BitmapStart + byteOffset/BlockSize
	withinBlock := byteOffset % BlockSize
	return v.block(blockNum)[withinBlock : withinBlock+1], uint(blockIndex % 8)
}

// BitmapBit reads bit blockIndex of the data bitmap (LSB-first within
// each byte, per spec.md §4.1).
func (v *View) BitmapBit(blockIndex uint32) bool {
	b, bit := v.bitmapByteAndBit(blockIndex)
	return b[0]&(1<<bit) != 0
}

// SetBitmapBit sets or clears bit blockIndex of the data bitmap.
func (v *View) SetBitmapBit(blockIndex uint32, value bool) {
	b, bit := v.bitmapByteAndBit(blockIndex)
	if value {
		b[0] |= 1 << bit
	} else {
		b[0] &^= 1 << bit
	}
}

// BitmapBytes returns the full bitmap region as a byte slice, for
// whole-byte scans (spec.md §4.1's throughput requirement). Only the
// first ceil(DB/8) bytes are logically meaningful; callers must not
// treat bits at index >= DB as free.
func (v *View) BitmapBytes() []byte {
	off := int64(v.Layout.BitmapStart) * BlockSize
	length := int64(v.Layout.BitmapBlocks) * BlockSize
	return v.buf[off : off+length]
}

// Inode returns a pointer overlaying the inode-table slot for inode
// number ino. The caller is responsible for bounds-checking ino
// against the superblock's inode count.
func (v *View) Inode(ino uint32) *Inode {
	blockNum := v.Layout.InodeTableStart + ino/uint32(InodesPerBlock)
	withinBlock := int(ino%uint32(InodesPerBlock)) * InodeSize
	block := v.block(blockNum)
	return (*Inode)(unsafe.Pointer(&block[withinBlock]))
}

// DataBlock returns the data-region block at zero-based index idx, as
// used by bitmap and extents.
func (v *View) DataBlock(idx uint32) []byte {
	return v.block(v.Layout.DataRegionStart + idx)
}

// ExtentsInBlock overlays a data block as a packed Extent array, used
// to read/write an inode's indirect extent block.
func (v *View) ExtentsInBlock(idx uint32) *[ExtentsPerBlock]Extent {
	block := v.DataBlock(idx)
	return (*[ExtentsPerBlock]Extent)(unsafe.Pointer(&block[0]))
}

// DentriesInBlock overlays a data block as a packed Dentry array, used
// to read/write a directory's entries.
func (v *View) DentriesInBlock(idx uint32) *[DentriesPerBlock]Dentry {
	block := v.DataBlock(idx)
	return (*[DentriesPerBlock]Dentry)(unsafe.Pointer(&block[0]))
}

// ZeroDataBlock zero-fills data-region block idx.
func (v *View) ZeroDataBlock(idx uint32) {
	block := v.DataBlock(idx)
	for i := range block {
		block[i] = 0
	}
}
