// Copyright 2026 The A1FS Authors
// SPDX-License-Identifier: Apache-2.0

package a1fsbitmap

import (
	"testing"

	"github.com/a1fs/a1fs/lib/a1fslayout"
)

func newTestView(t *testing.T, inodeCount uint32, totalBlocks uint32) *a1fslayout.View {
	t.Helper()
	layout, err := a1fslayout.ComputeLayout(int64(totalBlocks)*a1fslayout.BlockSize, inodeCount)
	if err != nil {
		t.Fatalf("ComputeLayout: %v", err)
	}
	buf := make([]byte, int64(layout.TotalBlocks)*a1fslayout.BlockSize)
	v, err := a1fslayout.NewView(buf, layout)
	if err != nil {
		t.Fatalf("NewView: %v", err)
	}
	return v
}

func TestFindRunOnEmptyBitmap(t *testing.T) {
	v := newTestView(t, 16, 64)
	start, length, ok := FindRun(v, 5)
	if !ok {
		t.Fatal("expected a run on an all-free bitmap")
	}
	if start != 0 || length != 5 {
		t.Errorf("FindRun(5) = (%d, %d), want (0, 5)", start, length)
	}
}

func TestFindRunSkipsUsedBlocks(t *testing.T) {
	v := newTestView(t, 16, 64)
	SetRange(v, 0, 3)
	start, length, ok := FindRun(v, 2)
	if !ok || start != 3 || length != 2 {
		t.Errorf("FindRun(2) = (%d, %d, %v), want (3, 2, true)", start, length, ok)
	}
}

func TestFindRunReturnsLongestWhenNoneLongEnough(t *testing.T) {
	v := newTestView(t, 16, 64)
	db := v.Layout.DataBlocks
	SetRange(v, 0, db) // fill everything
	ClearRange(v, 2, 2) // a 2-block free run
	ClearRange(v, 10, 5) // a 5-block free run, longer

	start, length, ok := FindRun(v, 100)
	if !ok {
		t.Fatal("expected the longest available run, not no-space")
	}
	if start != 10 || length != 5 {
		t.Errorf("FindRun(100) = (%d, %d), want the longer run (10, 5)", start, length)
	}
}

func TestFindRunTieBrokenByLowestStart(t *testing.T) {
	v := newTestView(t, 16, 64)
	db := v.Layout.DataBlocks
	SetRange(v, 0, db)
	ClearRange(v, 20, 3)
	ClearRange(v, 5, 3)

	_, length, ok := FindRun(v, 100)
	if !ok || length != 3 {
		t.Fatalf("FindRun(100) = (_, %d, %v), want length 3", length, ok)
	}

	start, _, _ := FindRun(v, 100)
	if start != 5 {
		t.Errorf("FindRun(100) start = %d, want the earlier of two equal-length runs (5)", start)
	}
}

func TestFindRunNoSpace(t *testing.T) {
	v := newTestView(t, 16, 64)
	SetRange(v, 0, v.Layout.DataBlocks)
	if _, _, ok := FindRun(v, 1); ok {
		t.Error("FindRun on a fully-used bitmap should report no space")
	}
}

func TestTailLength(t *testing.T) {
	v := newTestView(t, 16, 64)
	SetRange(v, 0, 4)
	if got := TailLength(v, 0); got != 0 {
		t.Errorf("TailLength(0) = %d, want 0 (block 0 is used)", got)
	}
	if got := TailLength(v, 4); got != v.Layout.DataBlocks-4 {
		t.Errorf("TailLength(4) = %d, want %d", got, v.Layout.DataBlocks-4)
	}
}

func TestSetClearRangeAndPopCount(t *testing.T) {
	v := newTestView(t, 16, 64)
	SetRange(v, 10, 20)
	if got := PopCount(v); got != 20 {
		t.Errorf("PopCount after SetRange(10,20) = %d, want 20", got)
	}
	ClearRange(v, 15, 5)
	if got := PopCount(v); got != 15 {
		t.Errorf("PopCount after ClearRange(15,5) = %d, want 15", got)
	}
}
