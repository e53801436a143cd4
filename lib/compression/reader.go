// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compression

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/bureau-foundation/tailpack/lib/bytepool"
)

// NewReader returns a stream of the decoded entry whose stored bytes
// are the first stored bytes of source.
//
// None and Generic decode incrementally as the stream is read. Block
// and Structural need the whole stored form, so they read and decode
// it on the first call to Read. In every case nothing is read from
// source before the first Read, and a stream that would produce more
// or fewer than size bytes fails with ErrSizeMismatch.
func NewReader(method Method, source io.Reader, stored, size int64, pool *bytepool.Pool) (io.ReadCloser, error) {
	if stored < 0 || size < 0 {
		return nil, fmt.Errorf("%w: negative stored (%d) or declared (%d) size", ErrSizeMismatch, stored, size)
	}
	limited := io.LimitReader(source, stored)

	switch method {
	case None:
		if stored != size {
			return nil, fmt.Errorf("%w: stored entry is %d bytes, declared %d", ErrSizeMismatch, stored, size)
		}
		return &checkedReader{source: limited, size: size}, nil

	case Generic:
		return &checkedReader{source: &deferredFlate{source: limited}, size: size}, nil

	case Block, Structural:
		if method == Structural && pool == nil {
			return nil, ErrNoPool
		}
		return &bufferedReader{load: func() ([]byte, error) {
			data := make([]byte, stored)
			if _, err := io.ReadFull(limited, data); err != nil {
				return nil, fmt.Errorf("reading %d stored bytes: %w", stored, err)
			}
			return Decompress(method, data, int(size), pool)
		}}, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, uint8(method))
	}
}

var errReaderClosed = errors.New("compression: read from closed entry stream")

// checkedReader passes reads through and fails once the stream has
// produced more than size bytes or ends short of it.
type checkedReader struct {
	source io.Reader
	size   int64
	read   int64
}

func (c *checkedReader) Read(p []byte) (int, error) {
	n, err := c.source.Read(p)
	c.read += int64(n)
	if c.read > c.size {
		return n, fmt.Errorf("%w: stream exceeds the declared %d bytes", ErrSizeMismatch, c.size)
	}
	if err == io.EOF && c.read != c.size {
		return n, fmt.Errorf("%w: stream ended after %d bytes, declared %d", ErrSizeMismatch, c.read, c.size)
	}
	return n, err
}

func (c *checkedReader) Close() error {
	if closer, ok := c.source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// deferredFlate takes a pooled DEFLATE reader on first Read and
// returns it on Close.
type deferredFlate struct {
	source io.Reader
	reader io.ReadCloser
	closed bool
}

func (d *deferredFlate) Read(p []byte) (int, error) {
	if d.closed {
		return 0, errReaderClosed
	}
	if d.reader == nil {
		reader, err := getFlateReader(d.source)
		if err != nil {
			return 0, err
		}
		d.reader = reader
	}
	n, err := d.reader.Read(p)
	if err != nil && err != io.EOF {
		err = fmt.Errorf("flate decompress: %w", err)
	}
	return n, err
}

func (d *deferredFlate) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if d.reader != nil {
		flateReaders.Put(d.reader)
		d.reader = nil
	}
	return nil
}

// bufferedReader decodes its whole entry on first Read.
type bufferedReader struct {
	load   func() ([]byte, error)
	reader *bytes.Reader
	err    error
}

func (b *bufferedReader) Read(p []byte) (int, error) {
	if b.reader == nil && b.err == nil {
		data, err := b.load()
		if err != nil {
			b.err = err
		} else {
			b.reader = bytes.NewReader(data)
		}
		b.load = nil
	}
	if b.err != nil {
		return 0, b.err
	}
	return b.reader.Read(p)
}

func (b *bufferedReader) Close() error {
	b.reader = nil
	if b.err == nil {
		b.err = errReaderClosed
	}
	return nil
}
