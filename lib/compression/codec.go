// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compression

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/pierrec/lz4/v4"

	"github.com/bureau-foundation/tailpack/lib/bytepool"
	"github.com/bureau-foundation/tailpack/lib/classfile"
	"github.com/bureau-foundation/tailpack/lib/lz4block"
)

var (
	// ErrUnknownMethod is returned for tags outside the defined set.
	ErrUnknownMethod = errors.New("compression: unknown method")

	// ErrSizeMismatch is returned when decoded output differs from
	// the declared uncompressed size.
	ErrSizeMismatch = errors.New("compression: decoded size mismatch")

	// ErrNoPool is returned when a structural entry is encoded or
	// decoded without a byte pool.
	ErrNoPool = errors.New("compression: structural method requires a byte pool")
)

// genericLevel is the DEFLATE level for Generic entries.
const genericLevel = flate.DefaultCompression

// Compress encodes data with method. pool receives Utf8 constants for
// Structural and is ignored otherwise. None returns data itself.
func Compress(method Method, data []byte, pool bytepool.Interner) ([]byte, error) {
	switch method {
	case None:
		return data, nil
	case Generic:
		return compressGeneric(data)
	case Block:
		return compressBlock(data)
	case Structural:
		if pool == nil {
			return nil, ErrNoPool
		}
		return classfile.Compress(data, pool)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, uint8(method))
	}
}

// Decompress decodes data stored with method into exactly size bytes.
// pool is consulted for Structural only. For None the returned slice
// is data itself.
func Decompress(method Method, data []byte, size int, pool *bytepool.Pool) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative declared size %d", ErrSizeMismatch, size)
	}
	switch method {
	case None:
		if len(data) != size {
			return nil, fmt.Errorf("%w: stored entry is %d bytes, declared %d", ErrSizeMismatch, len(data), size)
		}
		return data, nil
	case Generic:
		return decompressGeneric(data, size)
	case Block:
		return lz4block.DecodeAll(data, size)
	case Structural:
		if pool == nil {
			return nil, ErrNoPool
		}
		return classfile.Decompress(data, pool, size)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, uint8(method))
	}
}

// Block: one LZ4 block, no frame. The uncompressed size lives in the
// entry descriptor.

func compressBlock(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	return destination[:written], nil
}

// Generic: raw DEFLATE. Writers and readers are pooled; both are
// comparatively expensive to allocate.

var flateWriters = sync.Pool{
	New: func() any {
		writer, err := flate.NewWriter(nil, genericLevel)
		if err != nil {
			panic("compression: flate writer initialization failed: " + err.Error())
		}
		return writer
	},
}

var flateReaders = sync.Pool{
	New: func() any {
		return flate.NewReader(bytes.NewReader(nil))
	},
}

func compressGeneric(data []byte) ([]byte, error) {
	var output bytes.Buffer
	output.Grow(len(data)/2 + 64)

	writer := flateWriters.Get().(*flate.Writer)
	defer flateWriters.Put(writer)
	writer.Reset(&output)

	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("flate compress: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("flate compress: %w", err)
	}
	return output.Bytes(), nil
}

// getFlateReader returns a pooled DEFLATE reader reset onto source.
// Callers return it with flateReaders.Put once done.
func getFlateReader(source io.Reader) (io.ReadCloser, error) {
	reader := flateReaders.Get().(io.ReadCloser)
	if err := reader.(flate.Resetter).Reset(source, nil); err != nil {
		flateReaders.Put(reader)
		return nil, fmt.Errorf("flate reset: %w", err)
	}
	return reader, nil
}

func decompressGeneric(data []byte, size int) ([]byte, error) {
	reader, err := getFlateReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer flateReaders.Put(reader)

	output := make([]byte, size)
	if _, err := io.ReadFull(reader, output); err != nil {
		return nil, fmt.Errorf("flate decompress: %w", err)
	}
	// The stream must end exactly at size.
	var probe [1]byte
	if n, _ := reader.Read(probe[:]); n != 0 {
		return nil, fmt.Errorf("%w: DEFLATE stream holds more than the declared %d bytes", ErrSizeMismatch, size)
	}
	return output, nil
}
