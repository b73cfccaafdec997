// Copyright 2026 The A1FS Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

// Package a1fsimage provides the mmap'd backing file for an A1FS
// image (spec.md §1's "writable byte buffer of a known size plus a
// flush/unmap hook"), plus the formatter (spec.md §4.6) and the
// existing-image detection logic it shares with the driver's mount
// path.
//
// Image is adapted from the teacher's CacheDevice
// (lib/artifactstore/cache_device.go): that type maps its backing
// file read-only and routes writes through pwrite to avoid
// read-before-write page faults, because it fronts a cache that is
// mostly read, occasionally appended. A1FS needs the opposite shape —
// the core mutates the bitmap, inode table, and data region in place
// through ordinary Go writes — so Image maps PROT_READ|PROT_WRITE,
// MAP_SHARED and drops the pwrite path entirely.
package a1fsimage

import (
	"fmt"
	"runtime/debug"

	"golang.org/x/sys/unix"
)

// Image is a fixed-size file mapped into memory read-write. All of
// A1FS's on-disk structures are accessed by writing directly into
// Bytes(); durability to the underlying file is the caller's
// responsibility via Flush (spec.md §5).
//
// Image is not safe for concurrent use — spec.md §5 mandates a single
// mount, single-threaded access.
type Image struct {
	fd   int
	data []byte
	size int64
}

// Open memory-maps an existing file at path read-write. The file's
// current size becomes the image size; spec.md §4.6 requires it be a
// multiple of a1fslayout.BlockSize, which the caller validates before
// trusting the mapping's contents as an A1FS layout.
func Open(path string) (*Image, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening image %s: %w", path, err)
	}

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stating image %s: %w", path, err)
	}

	return mapOpenFd(path, fd, stat.Size)
}

// Create opens or creates a file at path and ensures it is exactly
// size bytes, then maps it read-write. If the file already exists at
// a different size, Create truncates (or extends) it to match; bytes
// within the new size are left as they were. The mkfs.a1fs command
// does not use Create: it opens an existing image with Open.
func Create(path string, size int64) (*Image, error) {
	if size <= 0 {
		return nil, fmt.Errorf("image size must be positive, got %d", size)
	}

	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening image %s: %w", path, err)
	}

	if err := unix.Ftruncate(fd, size); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("truncating image %s to %d bytes: %w", path, size, err)
	}

	return mapOpenFd(path, fd, size)
}

func mapOpenFd(path string, fd int, size int64) (*Image, error) {
	if size <= 0 {
		unix.Close(fd)
		return nil, fmt.Errorf("image %s has non-positive size %d", path, size)
	}

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("memory-mapping image %s: %w", path, err)
	}

	return &Image{fd: fd, data: data, size: size}, nil
}

// Bytes returns the full mapped image. Writes through the returned
// slice are visible to every subsequent operation immediately
// (program order within a single thread, per spec.md §5) and become
// durable only after Flush.
func (img *Image) Bytes() []byte { return img.data }

// Size returns the image size in bytes.
func (img *Image) Size() int64 { return img.size }

// Flush synchronizes the mapped pages and the file descriptor to the
// underlying storage. Implementations are expected to call this on
// clean unmount (spec.md §5).
func (img *Image) Flush() (err error) {
	old := debug.SetPanicOnFault(true)
	defer func() {
		debug.SetPanicOnFault(old)
		if r := recover(); r != nil {
			err = fmt.Errorf("page fault flushing image: %v", r)
		}
	}()

	if err := unix.Msync(img.data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("msync image: %w", err)
	}
	if err := unix.Fsync(img.fd); err != nil {
		return fmt.Errorf("fsync image: %w", err)
	}
	return nil
}

// Close flushes, unmaps, and closes the image. Every pointer obtained
// from Bytes (including a1fslayout.View and anything built on it) is
// dangling after Close returns (spec.md §5).
func (img *Image) Close() error {
	flushErr := img.Flush()

	var firstErr error
	if err := unix.Munmap(img.data); err != nil {
		firstErr = fmt.Errorf("unmapping image: %w", err)
	}
	if err := unix.Close(img.fd); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing image fd: %w", err)
	}
	img.data = nil
	img.fd = -1

	if firstErr != nil {
		return firstErr
	}
	return flushErr
}
