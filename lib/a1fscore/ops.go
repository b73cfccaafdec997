// Copyright 2026 The A1FS Authors
// SPDX-License-Identifier: Apache-2.0

package a1fscore

import (
	"github.com/a1fs/a1fs/lib/a1fslayout"
)

// Attr is the subset of inode state Getattr reports, already shaped
// for the bridge's stat translation.
type Attr struct {
	Mode      uint32
	Links     uint32
	Size      uint64
	Blocks512 uint64 // size rounded up to 512-byte units, stat's st_blocks unit
	MtimeSec  int64
	MtimeNsec int64
}

// Getattr resolves path and reports its inode's attributes (spec.md
// §6). It is one of the three operations that reject an overlong path
// outright rather than leaving that to the resolver.
func (m *Mount) Getattr(path string) (Attr, error) {
	if err := validatePathLength(path); err != nil {
		return Attr{}, err
	}
	ino, err := m.Resolve(path)
	if err != nil {
		return Attr{}, err
	}
	in := m.View.Inode(ino)
	return Attr{
		Mode:      in.Mode,
		Links:     in.Links,
		Size:      in.Size,
		Blocks512: (in.Size + 511) / 512,
		MtimeSec:  in.MtimeSec,
		MtimeNsec: in.MtimeNsec,
	}, nil
}

// Readdir resolves path, which must name a directory, and calls sink
// once for "." and ".." and once per live dentry, in that order
// (spec.md §6, §4.4). It stops and reports out-of-memory if sink
// returns false, the convention FUSE readdir buffers use when a
// caller-supplied buffer fills up.
func (m *Mount) Readdir(path string, sink func(name string, ino uint32) bool) error {
	ino, err := m.Resolve(path)
	if err != nil {
		return err
	}
	in := m.View.Inode(ino)
	if !in.IsDir() {
		return errNotADirectory()
	}
	parent, err := m.parentIno(path)
	if err != nil {
		return err
	}

	if !sink(".", ino) {
		return errOutOfMemory()
	}
	if !sink("..", parent) {
		return errOutOfMemory()
	}

	var sinkErr error
	ForEachDentry(m.View, in, func(d *a1fslayout.Dentry) bool {
		if d.Free() {
			return false
		}
		if !sink(d.NameString(), d.Ino) {
			sinkErr = errOutOfMemory()
			return true
		}
		return false
	})
	return sinkErr
}

// Mkdir creates a new, empty directory at path with the given
// permission bits (spec.md §6): add_dir_entry(path, mode|directory-bit,
// links=2) — the 2 accounts for its own "." and the dentry its parent
// is about to hold.
func (m *Mount) Mkdir(path string, mode uint32) error {
	if err := validatePathLength(path); err != nil {
		return err
	}
	_, err := AddDirEntry(m, path, mode|a1fslayout.ModeDir, 2)
	return err
}

// Create creates a new, empty regular file at path with the given
// mode, which must already carry the regular-file type bit (spec.md
// §6: "caller asserts mode is regular"): add_dir_entry(path, mode,
// links=1).
func (m *Mount) Create(path string, mode uint32) error {
	if err := validatePathLength(path); err != nil {
		return err
	}
	if mode&a1fslayout.ModeFmt != a1fslayout.ModeFile {
		panic("a1fscore: Create called with a non-regular mode")
	}
	_, err := AddDirEntry(m, path, mode, 1)
	return err
}

// Rmdir removes the empty directory at path (spec.md §6):
// remove_dir_entry(path, require_empty=true).
func (m *Mount) Rmdir(path string) error {
	return RemoveDirEntry(m, path, true)
}

// Unlink removes the directory entry at path, freeing its inode once
// its link count reaches zero (spec.md §6):
// remove_dir_entry(path, require_empty=false).
func (m *Mount) Unlink(path string) error {
	return RemoveDirEntry(m, path, false)
}

// Special Nsec values for Utimens, matching FUSE's UTIME_NOW/UTIME_OMIT.
const (
	UTimeNow  = -1
	UTimeOmit = -2
)

// Timespec is a (seconds, nanoseconds) pair. Nsec may instead be
// UTimeNow or UTimeOmit.
type Timespec struct {
	Sec  int64
	Nsec int64
}

// Utimens sets the mtime of the file at path. atime is ignored
// entirely — a1fs has no atime field (spec.md §6). UTimeOmit leaves
// mtime untouched; UTimeNow stamps the current time; any other Nsec
// value is taken as a literal (sec, nsec) pair.
func (m *Mount) Utimens(path string, mtime Timespec) error {
	ino, err := m.Resolve(path)
	if err != nil {
		return err
	}
	in := m.View.Inode(ino)
	switch mtime.Nsec {
	case UTimeOmit:
		return nil
	case UTimeNow:
		m.stamp(in)
	default:
		in.MtimeSec, in.MtimeNsec = mtime.Sec, mtime.Nsec
	}
	return nil
}

// StatfsResult is the subset of statvfs fields spec.md's supplemented
// feature list asks statfs to report.
type StatfsResult struct {
	BlockSize   uint32
	TotalBlocks uint32 // T: every block in the image, including metadata
	FreeBlocks  uint32
	TotalInodes uint32
	FreeInodes  uint32
	MaxNameLen  uint32
}

// Statfs reports whole-image space and inode accounting (spec.md §6,
// SPEC_FULL.md's supplemented statfs fields).
func (m *Mount) Statfs() StatfsResult {
	sb := m.sb()
	return StatfsResult{
		BlockSize:   a1fslayout.BlockSize,
		TotalBlocks: m.View.Layout.TotalBlocks,
		FreeBlocks:  sb.FreeDataBlockCount,
		TotalInodes: sb.InodeCount,
		FreeInodes:  sb.FreeInodeCount,
		MaxNameLen:  a1fslayout.MaxNameLength,
	}
}
