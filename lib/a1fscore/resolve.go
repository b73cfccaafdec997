// Copyright 2026 The A1FS Authors
// SPDX-License-Identifier: Apache-2.0

package a1fscore

import (
	"strings"

	"github.com/a1fs/a1fs/lib/a1fsinode"
	"github.com/a1fs/a1fs/lib/a1fslayout"
)

const rootIno uint32 = 0

// splitComponents breaks an absolute path into its non-empty
// components, collapsing repeated slashes the way spec.md §4.3
// describes ("split by /, skip empty components"). "/" itself yields
// no components.
func splitComponents(path string) ([]string, error) {
	if len(path) == 0 || path[0] != '/' {
		return nil, errNotFound()
	}
	var comps []string
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			comps = append(comps, part)
		}
	}
	return comps, nil
}

// ForEachDentry visits every dentry slot (live or free) of directory
// inode in, in on-disk order, stopping as soon as visit returns true.
// It is the single walk shared by the resolver, readdir, and the
// directory manager.
func ForEachDentry(v *a1fslayout.View, in *a1fslayout.Inode, visit func(d *a1fslayout.Dentry) bool) {
	it := a1fsinode.NewBlockIterator(v, in)
	for {
		blk, ok := it.Next()
		if !ok {
			return
		}
		arr := v.DentriesInBlock(blk)
		for i := range arr {
			if visit(&arr[i]) {
				return
			}
		}
	}
}

// lookupInDir scans directory inode in for a live entry named name.
func lookupInDir(v *a1fslayout.View, in *a1fslayout.Inode, name string) (ino uint32, found bool) {
	ForEachDentry(v, in, func(d *a1fslayout.Dentry) bool {
		if d.Free() || d.NameString() != name {
			return false
		}
		ino, found = d.Ino, true
		return true
	})
	return ino, found
}

// Resolve walks path component by component from the root inode,
// requiring every non-final component to name a directory (spec.md
// §4.3). It returns the resolved inode number.
func (m *Mount) Resolve(path string) (uint32, error) {
	comps, err := splitComponents(path)
	if err != nil {
		return 0, err
	}
	cur := rootIno
	for _, comp := range comps {
		in := m.View.Inode(cur)
		if !in.IsDir() {
			return 0, errNotADirectory()
		}
		child, found := lookupInDir(m.View, in, comp)
		if !found {
			return 0, errNotFound()
		}
		cur = child
	}
	return cur, nil
}

// splitParentAndName splits path into its parent directory's path and
// its final component, validating the component's length (spec.md
// §4.4). It is used by the directory manager, which resolves the
// parent separately from the child it is about to create or remove.
func splitParentAndName(path string) (parentPath string, name string, err error) {
	comps, err := splitComponents(path)
	if err != nil {
		return "", "", err
	}
	if len(comps) == 0 {
		// path is "/": no final component to create or remove.
		return "", "", errNotFound()
	}
	name = comps[len(comps)-1]
	if len(name) > a1fslayout.MaxNameLength {
		return "", "", errNameTooLong()
	}
	parentComps := comps[:len(comps)-1]
	if len(parentComps) == 0 {
		return "/", name, nil
	}
	return "/" + strings.Join(parentComps, "/"), name, nil
}

// parentIno resolves the inode number of path's parent directory, for
// synthesizing ".." in Readdir. Root is its own parent.
func (m *Mount) parentIno(path string) (uint32, error) {
	comps, err := splitComponents(path)
	if err != nil {
		return 0, err
	}
	if len(comps) == 0 {
		return rootIno, nil
	}
	parentComps := comps[:len(comps)-1]
	if len(parentComps) == 0 {
		return rootIno, nil
	}
	return m.Resolve("/" + strings.Join(parentComps, "/"))
}

// validatePathLength enforces the overall path-length bound spec.md
// §7 attributes to getattr, mkdir, and create specifically (other
// operations rely on the bridge never handing them an overlong path).
func validatePathLength(path string) error {
	if len(path) >= a1fslayout.MaxPathLength {
		return errNameTooLong()
	}
	return nil
}
