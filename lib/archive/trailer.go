// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"encoding/binary"
	"fmt"
)

// Trailer format constants. These are protocol constants: changing
// them breaks every existing archive.
const (
	// TrailerSize is the fixed length of the trailer.
	TrailerSize = 48

	// Magic is the little-endian uint32 at the start of the trailer,
	// the bytes "TQPK".
	Magic uint32 = 0x4B505154

	// MajorVersion and MinorVersion must match exactly; there is no
	// forward or backward compatibility.
	MajorVersion uint16 = 1
	MinorVersion uint16 = 0

	// ReservedSize is the length of the uninterpreted trailer tail.
	ReservedSize = 16
)

// Trailer field offsets.
const (
	trailerMagicOffset          = 0
	trailerMajorOffset          = 4
	trailerMinorOffset          = 6
	trailerFlagsOffset          = 8
	trailerContentSizeOffset    = 16
	trailerMetadataOffsetOffset = 24
	trailerReservedOffset       = 32
)

// Trailer is the decoded fixed-size footer of an archive.
type Trailer struct {
	Major uint16
	Minor uint16

	// Flags must be zero. No flags are defined.
	Flags uint64

	// FileContentSize is the length of the content region, trailer
	// included.
	FileContentSize uint64

	// MetadataOffset is the start of the metadata block relative to
	// the content region.
	MetadataOffset uint64

	// Reserved is written as given and never interpreted.
	Reserved [ReservedSize]byte
}

// AppendBinary appends the 48-byte encoding of t to dst.
func (t Trailer) AppendBinary(dst []byte) ([]byte, error) {
	dst = binary.LittleEndian.AppendUint32(dst, Magic)
	dst = binary.LittleEndian.AppendUint16(dst, t.Major)
	dst = binary.LittleEndian.AppendUint16(dst, t.Minor)
	dst = binary.LittleEndian.AppendUint64(dst, t.Flags)
	dst = binary.LittleEndian.AppendUint64(dst, t.FileContentSize)
	dst = binary.LittleEndian.AppendUint64(dst, t.MetadataOffset)
	return append(dst, t.Reserved[:]...), nil
}

// MarshalBinary returns the 48-byte encoding of t.
func (t Trailer) MarshalBinary() ([]byte, error) {
	return t.AppendBinary(make([]byte, 0, TrailerSize))
}

// ParseTrailer decodes and validates a trailer. data must be exactly
// TrailerSize bytes. fileSize is the total archive length, used for
// the size bounds; trailerOffset is where data was read from, used in
// error messages.
func ParseTrailer(data []byte, fileSize int64) (Trailer, error) {
	trailerOffset := fileSize - TrailerSize
	if len(data) != TrailerSize {
		return Trailer{}, formatErrorf(trailerOffset, "trailer is %d bytes, want %d", len(data), TrailerSize)
	}

	if magic := binary.LittleEndian.Uint32(data[trailerMagicOffset:]); magic != Magic {
		return Trailer{}, formatErrorf(trailerOffset, "bad magic %#08x, want %#08x", magic, Magic)
	}

	var trailer Trailer
	trailer.Major = binary.LittleEndian.Uint16(data[trailerMajorOffset:])
	trailer.Minor = binary.LittleEndian.Uint16(data[trailerMinorOffset:])
	trailer.Flags = binary.LittleEndian.Uint64(data[trailerFlagsOffset:])
	trailer.FileContentSize = binary.LittleEndian.Uint64(data[trailerContentSizeOffset:])
	trailer.MetadataOffset = binary.LittleEndian.Uint64(data[trailerMetadataOffsetOffset:])
	copy(trailer.Reserved[:], data[trailerReservedOffset:])

	if err := trailer.validate(fileSize); err != nil {
		return Trailer{}, err
	}
	return trailer, nil
}

// validate checks everything about t that does not need the metadata.
func (t Trailer) validate(fileSize int64) error {
	trailerOffset := fileSize - TrailerSize
	if t.Major != MajorVersion || t.Minor != MinorVersion {
		return formatErrorf(trailerOffset, "format version %d.%d, want %d.%d",
			t.Major, t.Minor, MajorVersion, MinorVersion)
	}
	if t.Flags != 0 {
		return formatErrorf(trailerOffset, "unknown flags %#x", t.Flags)
	}
	if t.FileContentSize < TrailerSize || t.FileContentSize > uint64(fileSize) {
		return formatErrorf(trailerOffset, "content size %d outside [%d, %d]",
			t.FileContentSize, TrailerSize, fileSize)
	}
	if t.MetadataOffset >= t.FileContentSize-TrailerSize {
		return formatErrorf(trailerOffset, "metadata offset %d not below %d",
			t.MetadataOffset, t.FileContentSize-TrailerSize)
	}
	return nil
}

// metadataSize returns the length of the metadata block.
func (t Trailer) metadataSize() int64 {
	return int64(t.FileContentSize - TrailerSize - t.MetadataOffset)
}

func (t Trailer) String() string {
	return fmt.Sprintf("tailpack %d.%d content=%d metadata@%d", t.Major, t.Minor, t.FileContentSize, t.MetadataOffset)
}
