// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lz4block

import (
	"errors"
	"fmt"
)

const (
	// MinMatch is the implicit minimum match length added to every
	// match length field.
	MinMatch = 4

	// wideCopyThreshold is the smallest offset copied in fixed 8-byte
	// strides. Smaller offsets overlap within a stride and use the
	// doubling copy instead.
	wideCopyThreshold = 8

	lengthExtended = 15
)

// ErrCorrupt is wrapped by every decoding failure. Callers can test
// for it with errors.Is; the message carries the failing position.
var ErrCorrupt = errors.New("lz4block: corrupt block")

// Decode decodes src into dst. len(dst) is the declared uncompressed
// size: the block must produce exactly that many bytes. It returns the
// number of bytes written, which on success is always len(dst).
func Decode(dst, src []byte) (int, error) {
	if len(src) == 0 {
		if len(dst) == 0 {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: empty input, expected %d output bytes", ErrCorrupt, len(dst))
	}

	var si, di int
	for si < len(src) {
		token := src[si]
		si++

		literalLength := int(token >> 4)
		if literalLength == lengthExtended {
			extension, err := readLengthExtension(src, &si)
			if err != nil {
				return di, err
			}
			literalLength += extension
		}
		if literalLength > len(src)-si {
			return di, fmt.Errorf("%w: %d literal bytes at input offset %d overrun the %d-byte input",
				ErrCorrupt, literalLength, si, len(src))
		}
		if literalLength > len(dst)-di {
			return di, fmt.Errorf("%w: %d literal bytes at output offset %d overrun the declared %d-byte output",
				ErrCorrupt, literalLength, di, len(dst))
		}
		di += copy(dst[di:], src[si:si+literalLength])
		si += literalLength

		if si == len(src) {
			// Literal-only final sequence.
			break
		}

		if len(src)-si < 2 {
			return di, fmt.Errorf("%w: truncated match offset at input offset %d", ErrCorrupt, si)
		}
		offset := int(src[si]) | int(src[si+1])<<8
		si += 2
		if offset == 0 {
			return di, fmt.Errorf("%w: zero match offset at input offset %d", ErrCorrupt, si-2)
		}
		if offset > di {
			return di, fmt.Errorf("%w: match offset %d at output offset %d points before the output start",
				ErrCorrupt, offset, di)
		}

		matchLength := int(token & 0x0f)
		if matchLength == lengthExtended {
			extension, err := readLengthExtension(src, &si)
			if err != nil {
				return di, err
			}
			matchLength += extension
		}
		matchLength += MinMatch
		if matchLength > len(dst)-di {
			return di, fmt.Errorf("%w: %d-byte match at output offset %d overruns the declared %d-byte output",
				ErrCorrupt, matchLength, di, len(dst))
		}

		copyMatch(dst, di, offset, matchLength)
		di += matchLength
	}

	if di != len(dst) {
		return di, fmt.Errorf("%w: decoded %d bytes, declared size is %d", ErrCorrupt, di, len(dst))
	}
	return di, nil
}

// DecodeAll allocates a size-byte buffer and decodes src into it.
func DecodeAll(src []byte, size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative declared size %d", ErrCorrupt, size)
	}
	dst := make([]byte, size)
	if _, err := Decode(dst, src); err != nil {
		return nil, err
	}
	return dst, nil
}

// readLengthExtension sums 255-continued extension bytes starting at
// src[*si] and advances *si past them.
func readLengthExtension(src []byte, si *int) (int, error) {
	var length int
	for {
		if *si >= len(src) {
			return 0, fmt.Errorf("%w: length extension runs past the end of the %d-byte input",
				ErrCorrupt, len(src))
		}
		b := src[*si]
		*si++
		length += int(b)
		if b != 255 {
			return length, nil
		}
	}
}

// copyMatch copies length bytes from dst[di-offset:] to dst[di:]. The
// ranges may overlap; overlapping bytes repeat with period offset.
func copyMatch(dst []byte, di, offset, length int) {
	source := di - offset
	end := di + length

	switch {
	case offset >= length:
		copy(dst[di:end], dst[source:source+length])

	case offset < wideCopyThreshold:
		// dst[source:di] always holds a whole number of periods, so
		// copying it forward keeps the pattern intact and doubles the
		// window each round.
		for di < end {
			di += copy(dst[di:end], dst[source:di])
		}

	default:
		// Each 8-byte stride reads bytes at least 8 positions behind
		// the ones it writes, all of which are already final.
		for ; di+wideCopyThreshold <= end; di, source = di+wideCopyThreshold, source+wideCopyThreshold {
			copy(dst[di:di+wideCopyThreshold], dst[source:source+wideCopyThreshold])
		}
		for ; di < end; di, source = di+1, source+1 {
			dst[di] = dst[source]
		}
	}
}
