// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bytepool

import (
	"bytes"
	"errors"
	"fmt"
	"math"
)

// MaxEntrySize is the largest pooled byte string. Entry lengths are
// stored in 16 bits.
const MaxEntrySize = math.MaxUint16

// MaxBufferSize is the largest backing buffer a pool can describe; the
// buffer size is stored in 32 bits.
const MaxBufferSize = math.MaxUint32

var (
	// ErrEntryTooLarge is returned by Add for strings longer than
	// MaxEntrySize. Callers treat it as a capacity failure of the
	// record being compressed, not of the pool.
	ErrEntryTooLarge = errors.New("bytepool: entry exceeds 65535 bytes")

	// ErrPoolFull is returned by Add when the backing buffer would
	// exceed MaxBufferSize.
	ErrPoolFull = errors.New("bytepool: backing buffer exceeds 4 GiB")

	// ErrOutOfRange is returned for ids that were never assigned.
	ErrOutOfRange = errors.New("bytepool: id out of range")
)

// Interner is the insertion side of a pool. *Builder and *Server both
// implement it.
type Interner interface {
	// Add returns the id of data, inserting it if it is not already
	// present. The caller keeps ownership of data.
	Add(data []byte) (int, error)
}

// Builder accumulates deduplicated byte strings. The zero value is not
// usable; create one with [NewBuilder]. A Builder must be used from a
// single goroutine at a time.
type Builder struct {
	buffer  []byte
	offsets []uint32
	lengths []uint16

	// index maps content digests to the ids carrying that digest.
	// Nearly every slice has one element; more only on a digest
	// collision, which Add resolves by comparing bytes.
	index    map[Digest][]int
	digester *digester
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		index:    make(map[Digest][]int),
		digester: newDigester(),
	}
}

// Add returns the id of data, appending it to the pool on first sight.
func (b *Builder) Add(data []byte) (int, error) {
	if len(data) > MaxEntrySize {
		return 0, fmt.Errorf("%w: %d bytes", ErrEntryTooLarge, len(data))
	}

	digest := b.digester.sum(data)
	for _, id := range b.index[digest] {
		if bytes.Equal(b.entry(id), data) {
			return id, nil
		}
	}

	if uint64(len(b.buffer))+uint64(len(data)) > MaxBufferSize {
		return 0, fmt.Errorf("%w: adding %d bytes to %d", ErrPoolFull, len(data), len(b.buffer))
	}

	id := len(b.offsets)
	b.offsets = append(b.offsets, uint32(len(b.buffer)))
	b.lengths = append(b.lengths, uint16(len(data)))
	b.buffer = append(b.buffer, data...)
	b.index[digest] = append(b.index[digest], id)
	return id, nil
}

// Len returns the number of distinct entries.
func (b *Builder) Len() int {
	return len(b.offsets)
}

// Size returns the number of bytes in the backing buffer.
func (b *Builder) Size() int {
	return len(b.buffer)
}

// Pool returns an immutable snapshot of the entries added so far. The
// Builder can keep growing afterwards without affecting the snapshot.
func (b *Builder) Pool() *Pool {
	pool := &Pool{
		buffer:  make([]byte, len(b.buffer)),
		offsets: make([]uint32, len(b.offsets)),
		lengths: make([]uint16, len(b.lengths)),
	}
	copy(pool.buffer, b.buffer)
	copy(pool.offsets, b.offsets)
	copy(pool.lengths, b.lengths)
	return pool
}

func (b *Builder) entry(id int) []byte {
	offset := b.offsets[id]
	return b.buffer[offset : offset+uint32(b.lengths[id])]
}
