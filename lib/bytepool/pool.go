// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bytepool

import (
	"encoding/binary"
	"fmt"
	"io"
)

// headerSize is the fixed prefix of a serialized pool: entry count and
// backing buffer size.
const headerSize = 8

// Pool is a finished, immutable byte pool. It is safe for concurrent
// use.
type Pool struct {
	buffer  []byte
	offsets []uint32
	lengths []uint16
}

// Len returns the number of entries.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.offsets)
}

// Size returns the number of bytes in the backing buffer.
func (p *Pool) Size() int {
	if p == nil {
		return 0
	}
	return len(p.buffer)
}

// EntryLen returns the length of entry id.
func (p *Pool) EntryLen(id int) (int, error) {
	if id < 0 || id >= p.Len() {
		return 0, fmt.Errorf("%w: %d (pool has %d entries)", ErrOutOfRange, id, p.Len())
	}
	return int(p.lengths[id]), nil
}

// Get returns a copy of entry id.
func (p *Pool) Get(id int) ([]byte, error) {
	length, err := p.EntryLen(id)
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, p.view(id))
	return out, nil
}

// CopyTo copies entry id into dst and returns the number of bytes
// copied. It fails with io.ErrShortBuffer when dst cannot hold the
// whole entry.
func (p *Pool) CopyTo(dst []byte, id int) (int, error) {
	length, err := p.EntryLen(id)
	if err != nil {
		return 0, err
	}
	if len(dst) < length {
		return 0, fmt.Errorf("bytepool: entry %d is %d bytes, destination holds %d: %w",
			id, length, len(dst), io.ErrShortBuffer)
	}
	return copy(dst, p.view(id)), nil
}

// AppendTo appends entry id to dst.
func (p *Pool) AppendTo(dst []byte, id int) ([]byte, error) {
	if _, err := p.EntryLen(id); err != nil {
		return dst, err
	}
	return append(dst, p.view(id)...), nil
}

func (p *Pool) view(id int) []byte {
	offset := p.offsets[id]
	return p.buffer[offset : offset+uint32(p.lengths[id])]
}

// SerializedSize returns the number of bytes WriteTo emits.
func (p *Pool) SerializedSize() int64 {
	return headerSize + int64(p.Size()) + 2*int64(p.Len())
}

// WriteTo writes the serialized pool to w.
func (p *Pool) WriteTo(w io.Writer) (int64, error) {
	var written int64

	var header [headerSize]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(p.Len()))
	binary.LittleEndian.PutUint32(header[4:8], uint32(p.Size()))
	n, err := w.Write(header[:])
	written += int64(n)
	if err != nil {
		return written, fmt.Errorf("writing pool header: %w", err)
	}

	n, err = w.Write(p.buffer)
	written += int64(n)
	if err != nil {
		return written, fmt.Errorf("writing pool buffer: %w", err)
	}

	lengths := make([]byte, 2*p.Len())
	for id, length := range p.lengths {
		binary.LittleEndian.PutUint16(lengths[2*id:], length)
	}
	n, err = w.Write(lengths)
	written += int64(n)
	if err != nil {
		return written, fmt.Errorf("writing pool length table: %w", err)
	}

	return written, nil
}

// Parse decodes a serialized pool occupying exactly data. The returned
// Pool aliases data.
func Parse(data []byte) (*Pool, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("bytepool: table is %d bytes, shorter than its %d-byte header", len(data), headerSize)
	}
	count := int64(binary.LittleEndian.Uint32(data[0:4]))
	size := int64(binary.LittleEndian.Uint32(data[4:8]))

	want := headerSize + size + 2*count
	if want != int64(len(data)) {
		return nil, fmt.Errorf("bytepool: table declares %d entries over %d bytes (%d bytes total), have %d bytes",
			count, size, want, len(data))
	}

	buffer := data[headerSize : headerSize+size]
	table := data[headerSize+size:]

	pool := &Pool{
		buffer:  buffer,
		offsets: make([]uint32, count),
		lengths: make([]uint16, count),
	}
	var offset int64
	for id := range pool.lengths {
		length := binary.LittleEndian.Uint16(table[2*id:])
		pool.offsets[id] = uint32(offset)
		pool.lengths[id] = length
		offset += int64(length)
		if offset > size {
			return nil, fmt.Errorf("bytepool: entry %d ends at %d, past the %d-byte buffer", id, offset, size)
		}
	}
	if offset != size {
		return nil, fmt.Errorf("bytepool: entries cover %d bytes of a %d-byte buffer", offset, size)
	}

	return pool, nil
}

// Read reads a serialized pool from r. limit bounds the number of bytes
// the table may claim, so a corrupt header cannot force an arbitrarily
// large allocation.
func Read(r io.Reader, limit int64) (*Pool, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("reading pool header: %w", err)
	}
	count := int64(binary.LittleEndian.Uint32(header[0:4]))
	size := int64(binary.LittleEndian.Uint32(header[4:8]))

	total := headerSize + size + 2*count
	if total > limit {
		return nil, fmt.Errorf("bytepool: table claims %d bytes, limit is %d", total, limit)
	}

	data := make([]byte, total)
	copy(data, header[:])
	if _, err := io.ReadFull(r, data[headerSize:]); err != nil {
		return nil, fmt.Errorf("reading pool body (%d bytes): %w", total-headerSize, err)
	}
	return Parse(data)
}
