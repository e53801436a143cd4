// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package varint

import (
	"errors"
	"fmt"
	"io"
	"math"
)

// MaxLen is the maximum number of bytes in an encoded value.
const MaxLen = 5

// MaxValue is the largest encodable value.
const MaxValue = math.MaxUint32

var (
	// ErrNegative is returned by the encoders for values below zero.
	ErrNegative = errors.New("varint: negative value")

	// ErrOverflow is returned when a value does not fit in 32 bits,
	// either at encode time or because an encoding runs past MaxLen
	// bytes.
	ErrOverflow = errors.New("varint: value overflows 32 bits")
)

// Size returns the number of bytes Append would emit for v. It
// returns 0 for values that cannot be encoded.
func Size(v int64) int {
	if v < 0 || v > MaxValue {
		return 0
	}
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// Encode returns the encoding of v in a new slice.
func Encode(v int64) ([]byte, error) {
	return Append(make([]byte, 0, MaxLen), v)
}

// Append appends the encoding of v to dst and returns the extended
// slice. On error dst is returned unmodified.
func Append(dst []byte, v int64) ([]byte, error) {
	if v < 0 {
		return dst, fmt.Errorf("%w: %d", ErrNegative, v)
	}
	if v > MaxValue {
		return dst, fmt.Errorf("%w: %d", ErrOverflow, v)
	}
	u := uint64(v)
	for u >= 0x80 {
		dst = append(dst, byte(u)|0x80)
		u >>= 7
	}
	return append(dst, byte(u)), nil
}

// Decode reads one encoded value from r. A reader that runs dry in the
// middle of a value yields an error wrapping io.ErrUnexpectedEOF; a
// reader that is empty before the first byte yields io.EOF.
func Decode(r io.ByteReader) (uint32, error) {
	var value uint64
	for i := 0; i < MaxLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && i > 0 {
				return 0, fmt.Errorf("varint: truncated after %d bytes: %w", i, io.ErrUnexpectedEOF)
			}
			return 0, err
		}
		if i == MaxLen-1 && b > 0x0f {
			// The fifth byte holds bits 28..31 only. Anything above
			// that, including a continuation bit, is malformed.
			return 0, fmt.Errorf("%w: fifth byte 0x%02x", ErrOverflow, b)
		}
		value |= uint64(b&0x7f) << (7 * uint(i))
		if b < 0x80 {
			return uint32(value), nil
		}
	}
	// Unreachable: the fifth byte either terminates or is rejected.
	return 0, ErrOverflow
}

// DecodeBytes decodes one value from the front of b and returns it with
// the number of bytes consumed.
func DecodeBytes(b []byte) (uint32, int, error) {
	var value uint64
	for i := 0; i < MaxLen; i++ {
		if i >= len(b) {
			if i == 0 {
				return 0, 0, io.ErrUnexpectedEOF
			}
			return 0, 0, fmt.Errorf("varint: truncated after %d bytes: %w", i, io.ErrUnexpectedEOF)
		}
		c := b[i]
		if i == MaxLen-1 && c > 0x0f {
			return 0, 0, fmt.Errorf("%w: fifth byte 0x%02x", ErrOverflow, c)
		}
		value |= uint64(c&0x7f) << (7 * uint(i))
		if c < 0x80 {
			return uint32(value), i + 1, nil
		}
	}
	return 0, 0, ErrOverflow
}
