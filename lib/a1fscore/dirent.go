// Copyright 2026 The A1FS Authors
// SPDX-License-Identifier: Apache-2.0

package a1fscore

import (
	"github.com/a1fs/a1fs/lib/a1fsinode"
	"github.com/a1fs/a1fs/lib/a1fslayout"
	"github.com/a1fs/a1fs/lib/clock"
)

// lastBlock returns the logically-last data block of inode in, for
// locating the block a just-completed single-block growth allocated
// (spec.md §4.4's "new directory block" step).
func lastBlock(v *a1fslayout.View, in *a1fslayout.Inode) (uint32, bool) {
	it := a1fsinode.NewBlockIterator(v, in)
	var last uint32
	ok := false
	for {
		blk, more := it.Next()
		if !more {
			break
		}
		last, ok = blk, true
	}
	return last, ok
}

// findFreeDentrySlot scans directory inode in for the first free
// dentry slot in an already-allocated block.
func findFreeDentrySlot(v *a1fslayout.View, in *a1fslayout.Inode) *a1fslayout.Dentry {
	var slot *a1fslayout.Dentry
	ForEachDentry(v, in, func(d *a1fslayout.Dentry) bool {
		if d.Free() {
			slot = d
			return true
		}
		return false
	})
	return slot
}

// dirIsEmpty reports whether directory inode in has no live dentries.
// "." and ".." are synthesized by Readdir, never stored, so an empty
// directory is simply one with no live slots (spec.md §4.4).
func dirIsEmpty(v *a1fslayout.View, in *a1fslayout.Inode) bool {
	empty := true
	ForEachDentry(v, in, func(d *a1fslayout.Dentry) bool {
		if !d.Free() {
			empty = false
			return true
		}
		return false
	})
	return empty
}

// AddDirEntry resolves path's parent, allocates a fresh inode with the
// given mode and initial link count, and links it into the parent
// under path's final component (spec.md §4.4). mkdir and create both
// reduce to this, differing only in the mode and link count they pass.
func AddDirEntry(m *Mount, path string, mode uint32, links uint32) (uint32, error) {
	sb := m.sb()
	if sb.FreeInodeCount == 0 {
		return 0, errNoSpace()
	}

	parentPath, name, err := splitParentAndName(path)
	if err != nil {
		return 0, err
	}
	parentIno, err := m.Resolve(parentPath)
	if err != nil {
		return 0, err
	}
	parentInode := m.View.Inode(parentIno)
	if !parentInode.IsDir() {
		return 0, errNotADirectory()
	}

	isDir := mode&a1fslayout.ModeFmt == a1fslayout.ModeDir
	if isDir {
		parentInode.Links++
	}

	slot := findFreeDentrySlot(m.View, parentInode)
	if slot == nil {
		if err := a1fsinode.AllocateDataBlocks(m.View, sb, parentInode, a1fslayout.BlockSize); err != nil {
			return 0, mapNoSpace(err)
		}
		parentInode.Size += a1fslayout.BlockSize
		newBlock, ok := lastBlock(m.View, parentInode)
		if !ok {
			return 0, errNoSpace()
		}
		m.View.ZeroDataBlock(newBlock)
		slot = &m.View.DentriesInBlock(newBlock)[0]
	}

	childIno, ok := a1fsinode.AllocateInode(m.View, sb)
	if !ok {
		return 0, errNoSpace()
	}
	childInode := m.View.Inode(childIno)
	sec, nsec := clock.SecondsNanos(m.Clock.Now())
	a1fsinode.InitInode(childInode, mode, links, sec, nsec)
	sb.FreeInodeCount--

	slot.SetName(name)
	slot.Ino = childIno

	m.stamp(parentInode)
	return childIno, nil
}

// RemoveDirEntry resolves path's parent, locates the named entry, and
// unlinks it (spec.md §4.4). When requireEmpty is true (rmdir) it
// first verifies a directory target holds no live entries; unlink
// passes requireEmpty=false and never makes that check.
func RemoveDirEntry(m *Mount, path string, requireEmpty bool) error {
	parentPath, name, err := splitParentAndName(path)
	if err != nil {
		return err
	}
	parentIno, err := m.Resolve(parentPath)
	if err != nil {
		return err
	}
	parentInode := m.View.Inode(parentIno)
	if !parentInode.IsDir() {
		return errNotADirectory()
	}

	targetIno, found := lookupInDir(m.View, parentInode, name)
	if !found {
		return errNotFound()
	}
	targetInode := m.View.Inode(targetIno)
	isDir := targetInode.IsDir()

	if requireEmpty && isDir && !dirIsEmpty(m.View, targetInode) {
		return errNotEmpty()
	}

	removed := false
	ForEachDentry(m.View, parentInode, func(d *a1fslayout.Dentry) bool {
		if d.Free() || d.NameString() != name {
			return false
		}
		d.Name[0] = 0
		removed = true
		return true
	})
	if !removed {
		return errNotFound()
	}

	if isDir {
		targetInode.Links-- // its own "."
		parentInode.Links-- // the ".." back-link to parent, now gone
	}
	targetInode.Links-- // the dentry that pointed to it, just removed

	sb := m.sb()
	if targetInode.Links == 0 {
		a1fsinode.FreeAllExtents(m.View, sb, targetInode)
		*targetInode = a1fslayout.Inode{}
		sb.FreeInodeCount++
	}

	m.stamp(parentInode)
	return nil
}
