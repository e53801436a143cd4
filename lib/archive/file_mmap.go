// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package archive

import (
	"fmt"
	"io"
	"runtime/debug"

	"golang.org/x/sys/unix"
)

// mappedFile is a read-only memory map of a whole archive. ReadAt
// copies straight out of the mapping, with no system call for pages
// already in the page cache. It is safe for concurrent use.
type mappedFile struct {
	data []byte
}

// openFile maps path read-only and returns it with its size. Files
// shorter than a trailer are rejected before mapping, since a
// zero-length mapping is an error.
func openFile(path string) (*mappedFile, int64, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer unix.Close(fd)

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		return nil, 0, fmt.Errorf("stating %s: %w", path, err)
	}
	if stat.Size < TrailerSize {
		return nil, 0, formatErrorf(-1, "%s is %d bytes, shorter than the %d-byte trailer", path, stat.Size, TrailerSize)
	}

	data, err := unix.Mmap(fd, 0, int(stat.Size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, 0, fmt.Errorf("memory-mapping %s: %w", path, err)
	}
	// Entries are read in small random pieces.
	_ = unix.Madvise(data, unix.MADV_RANDOM)

	return &mappedFile{data: data}, stat.Size, nil
}

// ReadAt implements io.ReaderAt over the mapping.
func (m *mappedFile) ReadAt(p []byte, off int64) (readCount int, err error) {
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}

	// An I/O error under a mapped page raises SIGBUS. Convert it to
	// an error for this read instead of crashing the process.
	old := debug.SetPanicOnFault(true)
	defer func() {
		debug.SetPanicOnFault(old)
		if r := recover(); r != nil {
			err = fmt.Errorf("page fault reading archive at offset %d: %v", off, r)
		}
	}()

	readCount = copy(p, m.data[off:])
	if readCount < len(p) {
		return readCount, io.EOF
	}
	return readCount, nil
}

// Close unmaps the file.
func (m *mappedFile) Close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	if err != nil {
		return fmt.Errorf("unmapping archive: %w", err)
	}
	return nil
}
