// Copyright 2026 The A1FS Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package a1fsimage

import (
	"fmt"

	"github.com/a1fs/a1fs/lib/a1fslayout"
)

// OpenView validates that img holds a properly formatted A1FS image
// and returns a typed View over its bytes. The driver calls this once
// at mount time (spec.md §5: "the mapped buffer is acquired on
// mount").
func OpenView(img *Image) (*a1fslayout.View, error) {
	formatted, layout, err := Detect(img)
	if err != nil {
		return nil, err
	}
	if !formatted {
		return nil, fmt.Errorf("image is not a formatted A1FS image")
	}
	return a1fslayout.NewView(img.Bytes(), layout)
}
