// Copyright 2026 The A1FS Authors
// SPDX-License-Identifier: Apache-2.0

package a1fslayout

import "testing"

func TestComputeLayoutBasic(t *testing.T) {
	const imageSize = 1 << 20 // 1 MiB, 256 blocks
	layout, err := ComputeLayout(imageSize, 32)
	if err != nil {
		t.Fatalf("ComputeLayout: %v", err)
	}

	if layout.TotalBlocks != imageSize/BlockSize {
		t.Errorf("TotalBlocks = %d, want %d", layout.TotalBlocks, imageSize/BlockSize)
	}
	if layout.BitmapStart != 2 {
		t.Errorf("BitmapStart = %d, want 2", layout.BitmapStart)
	}
	if layout.InodeTableStart != layout.BitmapStart+layout.BitmapBlocks {
		t.Errorf("InodeTableStart = %d, want %d", layout.InodeTableStart, layout.BitmapStart+layout.BitmapBlocks)
	}
	if layout.DataRegionStart != layout.InodeTableStart+layout.InodeTableBlocks {
		t.Errorf("DataRegionStart = %d, want %d", layout.DataRegionStart, layout.InodeTableStart+layout.InodeTableBlocks)
	}
	wantInodeBlocks := uint32(ceilDiv(32*uint64(InodeSize), BlockSize))
	if layout.InodeTableBlocks != wantInodeBlocks {
		t.Errorf("InodeTableBlocks = %d, want %d", layout.InodeTableBlocks, wantInodeBlocks)
	}
	if layout.DataBlocks != layout.DataRegionTotal-layout.BitmapBlocks {
		t.Errorf("DataBlocks = %d, want %d", layout.DataBlocks, layout.DataRegionTotal-layout.BitmapBlocks)
	}
}

func TestComputeLayoutRejectsBadSize(t *testing.T) {
	cases := []struct {
		name       string
		size       int64
		inodeCount uint32
	}{
		{"not a multiple of block size", BlockSize + 1, 1},
		{"zero size", 0, 1},
		{"negative size", -BlockSize, 1},
		{"zero inodes", BlockSize * 16, 0},
		{"too small for metadata", BlockSize * 2, 1 << 20},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := ComputeLayout(c.size, c.inodeCount); err == nil {
				t.Fatalf("ComputeLayout(%d, %d): expected error, got nil", c.size, c.inodeCount)
			}
		})
	}
}

func TestLayoutFromSuperblockMatches(t *testing.T) {
	layout, err := ComputeLayout(BlockSize*256, 32)
	if err != nil {
		t.Fatalf("ComputeLayout: %v", err)
	}

	sb := &Superblock{
		Magic:           A1FSMagic,
		Size:            BlockSize * 256,
		InodeCount:      32,
		BitmapStart:     layout.BitmapStart,
		InodeTableStart: layout.InodeTableStart,
		DataRegionStart: layout.DataRegionStart,
		DataBlockCount:  layout.DataBlocks,
	}

	derived, err := LayoutFromSuperblock(sb)
	if err != nil {
		t.Fatalf("LayoutFromSuperblock: %v", err)
	}
	if !derived.Matches(sb) {
		t.Error("derived layout does not match a superblock built from its own fields")
	}

	sb.BitmapStart++
	if derived.Matches(sb) {
		t.Error("Matches should reject a superblock with a tampered region offset")
	}
}

func TestViewSuperblockRoundTrip(t *testing.T) {
	layout, err := ComputeLayout(BlockSize*64, 16)
	if err != nil {
		t.Fatalf("ComputeLayout: %v", err)
	}
	buf := make([]byte, int64(layout.TotalBlocks)*BlockSize)
	v, err := NewView(buf, layout)
	if err != nil {
		t.Fatalf("NewView: %v", err)
	}

	sb := v.Superblock()
	sb.Magic = A1FSMagic
	sb.InodeCount = 16
	sb.FreeInodeCount = 16

	sb2 := v.Superblock()
	if sb2.Magic != A1FSMagic || sb2.FreeInodeCount != 16 {
		t.Errorf("second Superblock() call did not see the first's writes: %+v", *sb2)
	}
}

func TestViewInodeOverlay(t *testing.T) {
	layout, err := ComputeLayout(BlockSize*64, 16)
	if err != nil {
		t.Fatalf("ComputeLayout: %v", err)
	}
	buf := make([]byte, int64(layout.TotalBlocks)*BlockSize)
	v, err := NewView(buf, layout)
	if err != nil {
		t.Fatalf("NewView: %v", err)
	}

	in := v.Inode(3)
	in.Mode = ModeDir | 0o755
	in.Links = 2

	again := v.Inode(3)
	if again.Mode != ModeDir|0o755 || again.Links != 2 {
		t.Errorf("Inode(3) did not round-trip: %+v", *again)
	}
	if !again.IsDir() {
		t.Error("IsDir() should be true for a directory mode")
	}

	other := v.Inode(4)
	if other.Links != 0 {
		t.Errorf("untouched inode 4 should still read Links == 0, got %d", other.Links)
	}
}

func TestViewBitmapBit(t *testing.T) {
	layout, err := ComputeLayout(BlockSize*64, 16)
	if err != nil {
		t.Fatalf("ComputeLayout: %v", err)
	}
	buf := make([]byte, int64(layout.TotalBlocks)*BlockSize)
	v, err := NewView(buf, layout)
	if err != nil {
		t.Fatalf("NewView: %v", err)
	}

	for _, idx := range []uint32{0, 1, 7, 8, 63, 300} {
		if v.BitmapBit(idx) {
			t.Errorf("bit %d should start clear", idx)
		}
		v.SetBitmapBit(idx, true)
		if !v.BitmapBit(idx) {
			t.Errorf("bit %d should read set after SetBitmapBit(true)", idx)
		}
		v.SetBitmapBit(idx, false)
		if v.BitmapBit(idx) {
			t.Errorf("bit %d should read clear after SetBitmapBit(false)", idx)
		}
	}
}

func TestDentryFreeAndName(t *testing.T) {
	var d Dentry
	if !d.Free() {
		t.Error("zero-value dentry should be free")
	}
	d.SetName("hello")
	d.Ino = 7
	if d.Free() {
		t.Error("dentry with a name should not be free")
	}
	if d.NameString() != "hello" {
		t.Errorf("NameString() = %q, want %q", d.NameString(), "hello")
	}
}

func TestRecordSizesAreRoundBlockDivisors(t *testing.T) {
	if BlockSize%InodeSize != 0 {
		t.Errorf("InodeSize %d does not evenly divide BlockSize %d", InodeSize, BlockSize)
	}
	if BlockSize%DentrySize != 0 {
		t.Errorf("DentrySize %d does not evenly divide BlockSize %d", DentrySize, BlockSize)
	}
	if BlockSize%ExtentSize != 0 {
		t.Errorf("ExtentSize %d does not evenly divide BlockSize %d", ExtentSize, BlockSize)
	}
	if MaxDirectExtents+ExtentsPerBlock < MaxExtents {
		t.Errorf("MaxDirectExtents (%d) + ExtentsPerBlock (%d) must cover MaxExtents (%d)", MaxDirectExtents, ExtentsPerBlock, MaxExtents)
	}
}
