// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package classfile

import (
	"encoding/binary"
	"fmt"

	"github.com/bureau-foundation/tailpack/lib/bytepool"
	"github.com/bureau-foundation/tailpack/lib/varint"
)

// Compress encodes record, adding every Utf8 constant to pool. The
// returned slice is newly allocated; record is not retained.
//
// Pool ids are assigned in constant pool order, so compressing the same
// record into a fresh pool is deterministic.
func Compress(record []byte, pool bytepool.Interner) ([]byte, error) {
	if len(record) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the %d-byte header",
			ErrTruncated, len(record), headerSize)
	}
	if !IsClassFile(record) {
		return nil, fmt.Errorf("%w: got %#08x", ErrNotClassFile, binary.BigEndian.Uint32(record))
	}

	output := make([]byte, 0, len(record)+1)
	output = append(output, CodecVersion)
	output = append(output, record[:headerSize]...)

	count := int(binary.BigEndian.Uint16(record[8:]))
	position := headerSize
	for index := 1; index < count; index++ {
		if position >= len(record) {
			return nil, fmt.Errorf("%w: constant %d of %d starts past the end of the %d-byte record",
				ErrTruncated, index, count, len(record))
		}
		tag := record[position]

		if tag == tagUtf8 {
			if len(record)-position < 3 {
				return nil, fmt.Errorf("%w: Utf8 constant %d length at offset %d", ErrTruncated, index, position)
			}
			length := int(binary.BigEndian.Uint16(record[position+1:]))
			start := position + 3
			if length > len(record)-start {
				return nil, fmt.Errorf("%w: Utf8 constant %d declares %d bytes at offset %d, %d remain",
					ErrTruncated, index, length, start, len(record)-start)
			}
			id, err := pool.Add(record[start : start+length])
			if err != nil {
				return nil, fmt.Errorf("classfile: pooling Utf8 constant %d: %w", index, err)
			}
			output = append(output, tagExternal)
			output, err = varint.Append(output, int64(id))
			if err != nil {
				return nil, fmt.Errorf("classfile: encoding pool id for constant %d: %w", index, err)
			}
			position = start + length
			continue
		}

		size, slots, ok := fixedPayload(tag)
		if !ok {
			return nil, fmt.Errorf("%w: tag %d for constant %d at offset %d", ErrUnsupportedTag, tag, index, position)
		}
		end := position + 1 + size
		if end > len(record) {
			return nil, fmt.Errorf("%w: constant %d (tag %d) at offset %d", ErrTruncated, index, tag, position)
		}
		output = append(output, record[position:end]...)
		position = end
		index += slots - 1
	}

	return append(output, record[position:]...), nil
}
