// Copyright 2026 The A1FS Authors
// SPDX-License-Identifier: Apache-2.0

// Package a1fsfuse is a thin github.com/hanwen/go-fuse/v2 adapter over
// lib/a1fscore's path-keyed operation façade. It is out of the core's
// scope (the core never imports it) and carries no filesystem
// semantics of its own: every node operation forwards the node's full
// path to a *a1fscore.Mount (followed by a Getattr where FUSE wants the
// resulting attributes back), translating a *a1fscore.Error into the
// syscall.Errno FUSE expects.
//
// Adapted from lib/artifactstore/fuse/mount.go, whose node types each
// hold enough context (a hash, a tag prefix) to answer without a
// shared store lookup; a1fs's nodes instead all share one Mount and
// differ only in the path they were looked up at, since the core
// itself is the single source of truth for every inode's state.
package a1fsfuse

import (
	"context"
	"path"
	"syscall"

	"github.com/a1fs/a1fs/lib/a1fscore"
	"github.com/a1fs/a1fs/lib/a1fslayout"
	"github.com/a1fs/a1fs/lib/clock"
	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// node is both the filesystem root (path "/") and every node beneath
// it; which one it is follows entirely from path.
type node struct {
	gofuse.Inode
	mount *a1fscore.Mount
	path  string
}

var _ gofuse.InodeEmbedder = (*node)(nil)
var _ gofuse.NodeLookuper = (*node)(nil)
var _ gofuse.NodeGetattrer = (*node)(nil)
var _ gofuse.NodeSetattrer = (*node)(nil)
var _ gofuse.NodeReaddirer = (*node)(nil)
var _ gofuse.NodeMkdirer = (*node)(nil)
var _ gofuse.NodeCreater = (*node)(nil)
var _ gofuse.NodeUnlinker = (*node)(nil)
var _ gofuse.NodeRmdirer = (*node)(nil)
var _ gofuse.NodeOpener = (*node)(nil)
var _ gofuse.NodeReader = (*node)(nil)
var _ gofuse.NodeWriter = (*node)(nil)
var _ gofuse.NodeStatfser = (*node)(nil)

// childPath joins parent path p with a single path component.
func childPath(p, name string) string {
	if p == "/" {
		return "/" + name
	}
	return path.Join(p, name)
}

func attrOut(a a1fscore.Attr, out *fuse.Attr) {
	out.Mode = a.Mode
	out.Nlink = a.Links
	out.Size = a.Size
	out.Blocks = a.Blocks512
	out.Mtime = uint64(a.MtimeSec)
	out.Mtimensec = uint32(a.MtimeNsec)
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	childP := childPath(n.path, name)
	attr, err := n.mount.Getattr(childP)
	if err != nil {
		return nil, toErrno(err)
	}
	attrOut(attr, &out.Attr)
	child := n.NewInode(ctx, &node{mount: n.mount, path: childP}, gofuse.StableAttr{Mode: attr.Mode})
	return child, 0
}

func (n *node) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, err := n.mount.Getattr(n.path)
	if err != nil {
		return toErrno(err)
	}
	attrOut(attr, &out.Attr)
	return 0
}

// Setattr handles both truncate (SETATTR with a size) and utimensat
// (SETATTR with a modification time) requests; FUSE funnels both
// through this single callback.
func (n *node) Setattr(ctx context.Context, f gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if size, ok := in.GetSize(); ok {
		if err := n.mount.Truncate(n.path, size); err != nil {
			return toErrno(err)
		}
	}
	if mtime, ok := in.GetMTime(); ok {
		sec, nsec := clock.SecondsNanos(mtime)
		if err := n.mount.Utimens(n.path, a1fscore.Timespec{Sec: sec, Nsec: nsec}); err != nil {
			return toErrno(err)
		}
	}
	attr, err := n.mount.Getattr(n.path)
	if err != nil {
		return toErrno(err)
	}
	attrOut(attr, &out.Attr)
	return 0
}

func (n *node) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	var entries []fuse.DirEntry
	err := n.mount.Readdir(n.path, func(name string, ino uint32) bool {
		mode := uint32(syscall.S_IFDIR)
		if name != "." && name != ".." {
			mode = syscall.S_IFREG
			if attr, err := n.mount.Getattr(childPath(n.path, name)); err == nil {
				mode = attr.Mode & a1fslayout.ModeFmt
			}
		}
		entries = append(entries, fuse.DirEntry{Name: name, Ino: uint64(ino), Mode: mode})
		return true
	})
	if err != nil {
		return nil, toErrno(err)
	}
	return &sliceDirStream{entries: entries}, 0
}

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	childP := childPath(n.path, name)
	perm := mode & 0o7777
	if err := n.mount.Mkdir(childP, perm); err != nil {
		return nil, toErrno(err)
	}
	attr, err := n.mount.Getattr(childP)
	if err != nil {
		return nil, toErrno(err)
	}
	attrOut(attr, &out.Attr)
	child := n.NewInode(ctx, &node{mount: n.mount, path: childP}, gofuse.StableAttr{Mode: attr.Mode})
	return child, 0
}

func (n *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	childP := childPath(n.path, name)
	perm := mode & 0o7777
	if err := n.mount.Create(childP, a1fslayout.ModeFile|perm); err != nil {
		return nil, nil, 0, toErrno(err)
	}
	attr, err := n.mount.Getattr(childP)
	if err != nil {
		return nil, nil, 0, toErrno(err)
	}
	attrOut(attr, &out.Attr)
	child := n.NewInode(ctx, &node{mount: n.mount, path: childP}, gofuse.StableAttr{Mode: attr.Mode})
	return child, nil, 0, 0
}

func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	return toErrno(n.mount.Unlink(childPath(n.path, name)))
}

func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return toErrno(n.mount.Rmdir(childPath(n.path, name)))
}

// Open is a no-op: file content always lives in the mounted image, so
// there is no separate handle state to open or close.
func (n *node) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	return nil, 0, 0
}

func (n *node) Read(ctx context.Context, f gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	count, err := n.mount.Read(n.path, dest, off)
	if err != nil {
		return nil, toErrno(err)
	}
	return fuse.ReadResultData(dest[:count]), 0
}

func (n *node) Write(ctx context.Context, f gofuse.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	count, err := n.mount.Write(n.path, data, off)
	if err != nil {
		return 0, toErrno(err)
	}
	return uint32(count), 0
}

func (n *node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	st := n.mount.Statfs()
	out.Bsize = st.BlockSize
	out.Frsize = st.BlockSize
	out.Blocks = uint64(st.TotalBlocks)
	out.Bfree = uint64(st.FreeBlocks)
	out.Bavail = uint64(st.FreeBlocks)
	out.Files = uint64(st.TotalInodes)
	out.Ffree = uint64(st.FreeInodes)
	out.NameLen = st.MaxNameLen
	return 0
}

// sliceDirStream implements gofuse.DirStream from a pre-built slice of
// entries, the same shape the teacher uses for its dynamically listed
// tag directories.
type sliceDirStream struct {
	entries []fuse.DirEntry
	index   int
}

func (s *sliceDirStream) HasNext() bool { return s.index < len(s.entries) }

func (s *sliceDirStream) Next() (fuse.DirEntry, syscall.Errno) {
	if s.index >= len(s.entries) {
		return fuse.DirEntry{}, syscall.EINVAL
	}
	e := s.entries[s.index]
	s.index++
	return e, 0
}

func (s *sliceDirStream) Close() {}
