// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"errors"
	"fmt"
)

// FormatError reports an archive whose trailer or metadata cannot be
// trusted: bad magic, an unsupported version, unknown flags, or sizes
// and offsets outside the file. The whole archive is rejected.
//
//	var formatErr *archive.FormatError
//	if errors.As(err, &formatErr) {
//	    log.Printf("not a tailpack archive: %s", formatErr.Reason)
//	}
type FormatError struct {
	// Reason describes the violated constraint.
	Reason string
	// Offset is the absolute file offset of the offending structure,
	// or -1 when no single offset applies.
	Offset int64
	// Err is the underlying cause, if any.
	Err error
}

func (e *FormatError) Error() string {
	message := "archive: invalid format: " + e.Reason
	if e.Offset >= 0 {
		message += fmt.Sprintf(" (at offset %d)", e.Offset)
	}
	if e.Err != nil {
		message += ": " + e.Err.Error()
	}
	return message
}

func (e *FormatError) Unwrap() error { return e.Err }

// CorruptionError reports an entry whose stored bytes do not decode.
// Other entries in the archive remain readable.
type CorruptionError struct {
	Group  string
	Path   string
	Offset int64
	Err    error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("archive: corrupt entry %s:%s at offset %d: %v", e.Group, e.Path, e.Offset, e.Err)
}

func (e *CorruptionError) Unwrap() error { return e.Err }

// CapacityError reports a size limit being exceeded: metadata larger
// than the configured maximum, an entry too large to describe, or a
// pool string longer than 65535 bytes.
type CapacityError struct {
	// What names the limited quantity, e.g. "metadata".
	What  string
	Size  int64
	Limit int64
	Err   error
}

func (e *CapacityError) Error() string {
	message := fmt.Sprintf("archive: %s is %d bytes, limit is %d", e.What, e.Size, e.Limit)
	if e.Err != nil {
		message += ": " + e.Err.Error()
	}
	return message
}

func (e *CapacityError) Unwrap() error { return e.Err }

// IsFormatError reports whether err is or wraps a *FormatError.
func IsFormatError(err error) bool {
	var formatErr *FormatError
	return errors.As(err, &formatErr)
}

// IsCorruption reports whether err is or wraps a *CorruptionError.
func IsCorruption(err error) bool {
	var corruptionErr *CorruptionError
	return errors.As(err, &corruptionErr)
}

// IsCapacity reports whether err is or wraps a *CapacityError.
func IsCapacity(err error) bool {
	var capacityErr *CapacityError
	return errors.As(err, &capacityErr)
}

func formatErrorf(offset int64, format string, args ...any) *FormatError {
	return &FormatError{Reason: fmt.Sprintf(format, args...), Offset: offset}
}
