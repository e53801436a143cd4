// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package classfile

import (
	"encoding/binary"
	"fmt"

	"github.com/bureau-foundation/tailpack/lib/bytepool"
	"github.com/bureau-foundation/tailpack/lib/varint"
)

// Decompress reverses Compress, resolving external constants against
// pool. When size is non-negative the decoded record must be exactly
// size bytes long. Inline Utf8 constants are accepted as well as
// external ones.
func Decompress(data []byte, pool *bytepool.Pool, size int) ([]byte, error) {
	if len(data) < 1+headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the preamble and header",
			ErrTruncated, len(data))
	}
	if data[0] != CodecVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, data[0])
	}
	header := data[1 : 1+headerSize]
	if !IsClassFile(header) {
		return nil, fmt.Errorf("%w: got %#08x", ErrNotClassFile, binary.BigEndian.Uint32(header))
	}

	capacity := size
	if capacity < 0 {
		capacity = 2 * len(data)
	}
	output := make([]byte, 0, capacity)
	output = append(output, header...)

	count := int(binary.BigEndian.Uint16(header[8:]))
	position := 1 + headerSize
	for index := 1; index < count; index++ {
		if position >= len(data) {
			return nil, fmt.Errorf("%w: constant %d of %d starts past the end of the %d-byte input",
				ErrTruncated, index, count, len(data))
		}
		tag := data[position]

		switch tag {
		case tagExternal:
			id, n, err := varint.DecodeBytes(data[position+1:])
			if err != nil {
				return nil, fmt.Errorf("%w: pool id for constant %d at offset %d: %v",
					ErrTruncated, index, position, err)
			}
			length, err := pool.EntryLen(int(id))
			if err != nil {
				return nil, fmt.Errorf("%w: constant %d: %v", ErrPoolReference, index, err)
			}
			output = append(output, tagUtf8)
			output = binary.BigEndian.AppendUint16(output, uint16(length))
			output, _ = pool.AppendTo(output, int(id))
			position += 1 + n
			continue

		case tagUtf8:
			if len(data)-position < 3 {
				return nil, fmt.Errorf("%w: Utf8 constant %d length at offset %d", ErrTruncated, index, position)
			}
			end := position + 3 + int(binary.BigEndian.Uint16(data[position+1:]))
			if end > len(data) {
				return nil, fmt.Errorf("%w: Utf8 constant %d at offset %d", ErrTruncated, index, position)
			}
			output = append(output, data[position:end]...)
			position = end
			continue
		}

		payload, slots, ok := fixedPayload(tag)
		if !ok {
			return nil, fmt.Errorf("%w: tag %d for constant %d at offset %d", ErrUnsupportedTag, tag, index, position)
		}
		end := position + 1 + payload
		if end > len(data) {
			return nil, fmt.Errorf("%w: constant %d (tag %d) at offset %d", ErrTruncated, index, tag, position)
		}
		output = append(output, data[position:end]...)
		position = end
		index += slots - 1
	}

	output = append(output, data[position:]...)
	if size >= 0 && len(output) != size {
		return nil, fmt.Errorf("%w: decoded %d bytes, declared %d", ErrSizeMismatch, len(output), size)
	}
	return output, nil
}
