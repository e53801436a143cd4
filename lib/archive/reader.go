// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/tailpack/lib/bytepool"
	"github.com/bureau-foundation/tailpack/lib/compression"
)

// tailWindow is how far before the trailer the first read reaches, so
// that small metadata blocks arrive with the trailer in one read.
const tailWindow = 64 << 10

// ReaderOption configures a Reader.
type ReaderOption func(*readerConfig)

type readerConfig struct {
	logger          *slog.Logger
	maxMetadataSize int64
}

// WithReaderLogger sets the logger. The default discards all output.
func WithReaderLogger(logger *slog.Logger) ReaderOption {
	return func(config *readerConfig) { config.logger = logger }
}

// WithMaxMetadataSize bounds the metadata block the Reader will load.
// Larger blocks fail with a CapacityError.
func WithMaxMetadataSize(size int64) ReaderOption {
	return func(config *readerConfig) { config.maxMetadataSize = size }
}

// Reader resolves and decodes entries of an archive. It is immutable
// after construction and safe for concurrent use.
type Reader struct {
	source io.ReaderAt
	closer io.Closer
	size   int64
	logger *slog.Logger

	trailer       Trailer
	contentOffset int64
	document      *metadataDocument

	groupIndex map[string]int
	entryIndex []map[string]int32

	poolOnce sync.Once
	pool     *bytepool.Pool
	poolErr  error
}

// Open opens the archive at path. On Linux and macOS the file is
// memory-mapped. Close releases it.
func Open(path string, options ...ReaderOption) (*Reader, error) {
	file, size, err := openFile(path)
	if err != nil {
		return nil, err
	}
	reader, err := NewReader(file, size, options...)
	if err != nil {
		file.Close()
		return nil, err
	}
	reader.closer = file
	return reader, nil
}

// NewReader reads the trailer and metadata of the size-byte archive r.
// Entry data is not read until requested. The Reader does not close r.
func NewReader(r io.ReaderAt, size int64, options ...ReaderOption) (*Reader, error) {
	config := readerConfig{maxMetadataSize: DefaultMaxMetadataSize}
	for _, option := range options {
		option(&config)
	}
	if config.logger == nil {
		config.logger = slog.New(slog.DiscardHandler)
	}

	if size < TrailerSize {
		return nil, formatErrorf(-1, "archive is %d bytes, shorter than the %d-byte trailer", size, TrailerSize)
	}

	windowSize := min(size, TrailerSize+tailWindow)
	windowOffset := size - windowSize
	window := make([]byte, windowSize)
	if err := readFull(r, window, windowOffset); err != nil {
		return nil, fmt.Errorf("archive: reading tail window: %w", err)
	}

	trailer, err := ParseTrailer(window[windowSize-TrailerSize:], size)
	if err != nil {
		return nil, err
	}
	contentOffset := size - int64(trailer.FileContentSize)

	metadataSize := trailer.metadataSize()
	if metadataSize > config.maxMetadataSize {
		return nil, &CapacityError{What: "metadata", Size: metadataSize, Limit: config.maxMetadataSize}
	}
	metadataStart := contentOffset + int64(trailer.MetadataOffset)

	var block []byte
	if metadataStart >= windowOffset {
		start := metadataStart - windowOffset
		block = window[start : start+metadataSize]
	} else {
		block = make([]byte, metadataSize)
		if err := readFull(r, block, metadataStart); err != nil {
			return nil, fmt.Errorf("archive: reading %d-byte metadata block: %w", metadataSize, err)
		}
	}

	document, err := decodeMetadata(block, trailer, metadataStart)
	if err != nil {
		return nil, err
	}

	reader := &Reader{
		source:        r,
		size:          size,
		logger:        config.logger,
		trailer:       trailer,
		contentOffset: contentOffset,
		document:      document,
		groupIndex:    make(map[string]int, len(document.Groups)),
		entryIndex:    make([]map[string]int32, len(document.Groups)),
	}
	for groupIndex, group := range document.Groups {
		reader.groupIndex[group.Name] = groupIndex
		paths := make(map[string]int32, len(group.Entries))
		for entryIndex, entry := range group.Entries {
			paths[entry.Path] = int32(entryIndex)
		}
		reader.entryIndex[groupIndex] = paths
	}

	config.logger.Debug("archive opened",
		"size", size,
		"content_offset", contentOffset,
		"metadata_bytes", metadataSize,
		"groups", len(document.Groups),
		"second_read", metadataStart < windowOffset,
	)
	return reader, nil
}

// Close releases the file opened by Open. It is a no-op for Readers
// created with NewReader.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// Trailer returns the decoded trailer.
func (r *Reader) Trailer() Trailer {
	return r.trailer
}

// ContentOffset returns the absolute offset of the content region,
// which is also the length of the host prefix.
func (r *Reader) ContentOffset() int64 {
	return r.contentOffset
}

// Groups returns every group in archive order.
func (r *Reader) Groups() []GroupInfo {
	groups := make([]GroupInfo, len(r.document.Groups))
	for i, group := range r.document.Groups {
		groups[i] = GroupInfo{Kind: group.Kind, Name: group.Name, Entries: len(group.Entries)}
	}
	return groups
}

// Entries yields the paths of group in archive order. An unknown group
// yields nothing. The sequence can be iterated any number of times.
func (r *Reader) Entries(group string) iter.Seq[string] {
	return func(yield func(string) bool) {
		groupIndex, ok := r.groupIndex[group]
		if !ok {
			return
		}
		for _, entry := range r.document.Groups[groupIndex].Entries {
			if !yield(entry.Path) {
				return
			}
		}
	}
}

// Resolve looks up path within the group named group, which must be of
// the given kind. A missing entry is reported with false, not an
// error.
func (r *Reader) Resolve(kind, group, path string) (Handle, bool) {
	groupIndex, ok := r.groupIndex[group]
	if !ok || r.document.Groups[groupIndex].Kind != kind {
		return Handle{}, false
	}
	entryIndex, ok := r.entryIndex[groupIndex][path]
	if !ok {
		return Handle{}, false
	}
	return Handle{group: int32(groupIndex), entry: entryIndex, valid: true}, true
}

// Descriptor returns where and how the entry is stored. ok is false
// for a handle that did not come from this Reader.
func (r *Reader) Descriptor(h Handle) (Descriptor, bool) {
	group, entry, ok := r.lookup(h)
	if !ok {
		return Descriptor{}, false
	}
	return Descriptor{
		Group:  group.Name,
		Path:   entry.Path,
		Offset: r.contentOffset + entry.Offset,
		Stored: entry.Stored,
		Size:   entry.Size,
		Method: entry.Method,
	}, true
}

// Size returns the uncompressed length of the entry, or -1 for a
// handle that did not come from this Reader.
func (r *Reader) Size(h Handle) int64 {
	_, entry, ok := r.lookup(h)
	if !ok {
		return -1
	}
	return entry.Size
}

// ReadAll reads and decodes the whole entry.
func (r *Reader) ReadAll(h Handle) ([]byte, error) {
	descriptor, ok := r.Descriptor(h)
	if !ok {
		return nil, errInvalidHandle
	}

	pool, err := r.poolFor(descriptor.Method)
	if err != nil {
		return nil, err
	}
	stored := make([]byte, descriptor.Stored)
	if err := readFull(r.source, stored, descriptor.Offset); err != nil {
		return nil, fmt.Errorf("archive: reading %s:%s: %w", descriptor.Group, descriptor.Path, err)
	}
	data, err := compression.Decompress(descriptor.Method, stored, int(descriptor.Size), pool)
	if err != nil {
		return nil, &CorruptionError{Group: descriptor.Group, Path: descriptor.Path, Offset: descriptor.Offset, Err: err}
	}
	return data, nil
}

// Open returns a stream of the decoded entry. Stored bytes are read
// as the stream is consumed; structural and block entries are decoded
// in full on the first Read. Decode failures surface from Read as
// *CorruptionError.
func (r *Reader) Open(h Handle) (io.ReadCloser, error) {
	descriptor, ok := r.Descriptor(h)
	if !ok {
		return nil, errInvalidHandle
	}
	pool, err := r.poolFor(descriptor.Method)
	if err != nil {
		return nil, err
	}
	section := io.NewSectionReader(r.source, descriptor.Offset, descriptor.Stored)
	stream, err := compression.NewReader(descriptor.Method, section, descriptor.Stored, descriptor.Size, pool)
	if err != nil {
		return nil, &CorruptionError{Group: descriptor.Group, Path: descriptor.Path, Offset: descriptor.Offset, Err: err}
	}
	return &entryStream{stream: stream, descriptor: descriptor}, nil
}

// Pool returns the archive's byte pool, loading it on first use. An
// archive without structural entries has an empty pool.
func (r *Reader) Pool() (*bytepool.Pool, error) {
	r.poolOnce.Do(func() {
		r.pool, r.poolErr = r.loadPool()
	})
	return r.pool, r.poolErr
}

var errInvalidHandle = errors.New("archive: handle does not belong to this reader")

func (r *Reader) lookup(h Handle) (*groupRecord, *entryRecord, bool) {
	if !h.valid || int(h.group) >= len(r.document.Groups) {
		return nil, nil, false
	}
	group := &r.document.Groups[h.group]
	if int(h.entry) >= len(group.Entries) {
		return nil, nil, false
	}
	return group, &group.Entries[h.entry], true
}

func (r *Reader) poolFor(method compression.Method) (*bytepool.Pool, error) {
	if method != compression.Structural {
		return nil, nil
	}
	return r.Pool()
}

func (r *Reader) loadPool() (*bytepool.Pool, error) {
	record := r.document.Pool
	if record == nil {
		return bytepool.NewBuilder().Pool(), nil
	}
	offset := r.contentOffset + record.Offset
	table := make([]byte, record.Length)
	if err := readFull(r.source, table, offset); err != nil {
		return nil, fmt.Errorf("archive: reading pool table: %w", err)
	}
	pool, err := bytepool.Parse(table)
	if err != nil {
		return nil, &FormatError{Reason: "unreadable pool table", Offset: offset, Err: err}
	}
	if pool.Len() != record.Entries || pool.SerializedSize() != record.Length {
		return nil, formatErrorf(offset, "pool table holds %d entries in %d bytes, metadata declares %d in %d",
			pool.Len(), pool.SerializedSize(), record.Entries, record.Length)
	}
	r.logger.Debug("byte pool loaded", "entries", pool.Len(), "bytes", pool.Size())
	return pool, nil
}

// entryStream tags decode failures with the entry they came from.
type entryStream struct {
	stream     io.ReadCloser
	descriptor Descriptor
}

func (s *entryStream) Read(p []byte) (int, error) {
	n, err := s.stream.Read(p)
	if err != nil && err != io.EOF {
		err = &CorruptionError{Group: s.descriptor.Group, Path: s.descriptor.Path, Offset: s.descriptor.Offset, Err: err}
	}
	return n, err
}

func (s *entryStream) Close() error {
	return s.stream.Close()
}

// readFull fills p from r at offset, treating a short read as
// io.ErrUnexpectedEOF.
func readFull(r io.ReaderAt, p []byte, offset int64) error {
	n, err := r.ReadAt(p, offset)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("read %d of %d bytes at offset %d: %w", n, len(p), offset, err)
}
