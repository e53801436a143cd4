// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !(darwin || linux)

package archive

import (
	"fmt"
	"os"
)

// openFile opens path for positioned reads. *os.File.ReadAt is safe
// for concurrent use.
func openFile(path string) (*os.File, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("stating %s: %w", path, err)
	}
	if info.Size() < TrailerSize {
		file.Close()
		return nil, 0, formatErrorf(-1, "%s is %d bytes, shorter than the %d-byte trailer", path, info.Size(), TrailerSize)
	}
	return file, info.Size(), nil
}
