// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package classfile

import (
	"encoding/binary"
	"errors"
)

// Magic is the four-byte big-endian signature of every class file.
const Magic uint32 = 0xCAFEBABE

// CodecVersion is the preamble byte of every encoded record.
const CodecVersion = 1

// headerSize covers magic, minor and major version, and the constant
// pool count.
const headerSize = 10

const (
	tagUtf8 = 1

	// tagExternal replaces tagUtf8 in encoded output. Class file tags
	// are all below 0x80, so the two spaces cannot collide.
	tagExternal = 0x80
)

var (
	// ErrNotClassFile is returned when the record does not start with
	// Magic.
	ErrNotClassFile = errors.New("classfile: missing class file magic")

	// ErrTruncated is returned when a record ends inside a header or a
	// constant pool entry.
	ErrTruncated = errors.New("classfile: truncated record")

	// ErrUnsupportedTag is returned for constant pool tags outside the
	// known set.
	ErrUnsupportedTag = errors.New("classfile: unsupported constant pool tag")

	// ErrUnsupportedVersion is returned by Decompress when the preamble
	// names a codec version this package does not implement.
	ErrUnsupportedVersion = errors.New("classfile: unsupported codec version")

	// ErrPoolReference is returned by Decompress when an external
	// constant names an id the pool does not hold.
	ErrPoolReference = errors.New("classfile: invalid pool reference")

	// ErrSizeMismatch is returned by Decompress when the decoded record
	// length differs from the declared size.
	ErrSizeMismatch = errors.New("classfile: decoded size mismatch")
)

// IsClassFile reports whether data starts with the class file magic.
func IsClassFile(data []byte) bool {
	return len(data) >= 4 && binary.BigEndian.Uint32(data) == Magic
}

// fixedPayload returns the payload size of a fixed-width constant and
// the number of constant pool slots it occupies. ok is false for Utf8
// and for unknown tags.
func fixedPayload(tag byte) (size, slots int, ok bool) {
	switch tag {
	case 3, 4: // Integer, Float
		return 4, 1, true
	case 5, 6: // Long, Double
		return 8, 2, true
	case 7, 8, 16, 19, 20: // Class, String, MethodType, Module, Package
		return 2, 1, true
	case 9, 10, 11, 12, 17, 18: // Fieldref, Methodref, InterfaceMethodref, NameAndType, Dynamic, InvokeDynamic
		return 4, 1, true
	case 15: // MethodHandle
		return 3, 1, true
	}
	return 0, 0, false
}
