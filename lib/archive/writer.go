// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"github.com/bureau-foundation/tailpack/lib/bytepool"
	"github.com/bureau-foundation/tailpack/lib/compression"
)

// ErrWriterClosed is returned by Writer methods called after Finish or
// after an I/O failure.
var ErrWriterClosed = errors.New("archive: writer is closed")

// WriterOption configures a Writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	logger     *slog.Logger
	policy     compression.Policy
	hostPrefix io.Reader
	reserved   [ReservedSize]byte
	workers    int
}

// WithLogger sets the logger for packing progress. The default
// discards all output.
func WithLogger(logger *slog.Logger) WriterOption {
	return func(config *writerConfig) { config.logger = logger }
}

// WithPolicy replaces the default compression policy.
func WithPolicy(policy compression.Policy) WriterOption {
	return func(config *writerConfig) { config.policy = policy }
}

// WithHostPrefix copies r to the output before the content region,
// producing a single file that is both the host binary and the
// archive.
func WithHostPrefix(r io.Reader) WriterOption {
	return func(config *writerConfig) { config.hostPrefix = r }
}

// WithReserved sets the trailer's reserved bytes.
func WithReserved(reserved [ReservedSize]byte) WriterOption {
	return func(config *writerConfig) { config.reserved = reserved }
}

// WithWorkers bounds the number of goroutines PutEntries compresses
// on. Values below 1 mean runtime.GOMAXPROCS(0).
func WithWorkers(workers int) WriterOption {
	return func(config *writerConfig) { config.workers = workers }
}

// Writer assembles an archive. It is not safe for concurrent use;
// PutEntries provides the concurrency.
//
// Typical usage:
//
//	writer, err := archive.NewWriter(file, archive.WithHostPrefix(launcher))
//	writer.BeginGroup(archive.KindClasspath, "app")
//	writer.PutEntry("app", "com/example/Main.class", classBytes, "")
//	contentSize, err := writer.Finish()
type Writer struct {
	output     io.Writer
	config     writerConfig
	logger     *slog.Logger
	builder    *bytepool.Builder
	dispatcher *compression.Dispatcher

	groups     []*groupState
	groupIndex map[string]int

	// position is the number of content-region bytes written so far.
	position int64
	started  bool
	closed   bool
	ioErr    error
}

type groupState struct {
	record groupRecord
	paths  map[string]struct{}
}

// NewWriter creates a Writer emitting to w. Nothing is written until
// the first entry or Finish.
func NewWriter(w io.Writer, options ...WriterOption) (*Writer, error) {
	config := writerConfig{policy: compression.DefaultPolicy()}
	for _, option := range options {
		option(&config)
	}
	if config.logger == nil {
		config.logger = slog.New(slog.DiscardHandler)
	}
	if config.workers < 1 {
		config.workers = runtime.GOMAXPROCS(0)
	}

	builder := bytepool.NewBuilder()
	dispatcher, err := compression.NewDispatcher(config.policy, builder, config.logger)
	if err != nil {
		return nil, err
	}

	return &Writer{
		output:     w,
		config:     config,
		logger:     config.logger,
		builder:    builder,
		dispatcher: dispatcher,
		groupIndex: make(map[string]int),
	}, nil
}

// BeginGroup declares a resource group. Group names are unique within
// an archive regardless of kind.
func (w *Writer) BeginGroup(kind, name string) error {
	if err := w.usable(); err != nil {
		return err
	}
	if err := validateToken("kind", kind); err != nil {
		return err
	}
	if err := validateToken("name", name); err != nil {
		return err
	}
	if _, exists := w.groupIndex[name]; exists {
		return fmt.Errorf("archive: group %q already declared", name)
	}
	w.groupIndex[name] = len(w.groups)
	w.groups = append(w.groups, &groupState{
		record: groupRecord{Kind: kind, Name: name},
		paths:  make(map[string]struct{}),
	})
	w.logger.Debug("group declared", "kind", kind, "group", name)
	return nil
}

// PutEntry compresses data and appends it to group under path.
// extensionHint, when non-empty, replaces path for choosing the
// compression method.
func (w *Writer) PutEntry(group, path string, data []byte, extensionHint string) error {
	if err := checkEntrySize(group, path, data); err != nil {
		return err
	}
	state, err := w.reserve(group, path)
	if err != nil {
		return err
	}

	result, err := w.dispatcher.Compress(data, methodName(path, extensionHint))
	if err != nil {
		delete(state.paths, path)
		return fmt.Errorf("archive: %s:%s: %w", group, path, err)
	}
	return w.append(state, path, result)
}

// PutEntries compresses entries concurrently and appends them to group
// in input order. Pool insertions from all workers go through one
// bytepool.Server. If an entry fails, entries before it are kept and
// entries after it are not written.
func (w *Writer) PutEntries(ctx context.Context, group string, entries []Entry) error {
	state, err := w.lookupGroup(group)
	if err != nil {
		return err
	}
	batch := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if err := ValidatePath(entry.Path); err != nil {
			return fmt.Errorf("archive: group %q: %w", group, err)
		}
		if err := checkEntrySize(group, entry.Path, entry.Data); err != nil {
			return err
		}
		if _, exists := state.paths[entry.Path]; exists {
			return fmt.Errorf("archive: %s:%s: duplicate path", group, entry.Path)
		}
		if _, exists := batch[entry.Path]; exists {
			return fmt.Errorf("archive: %s:%s: duplicate path in batch", group, entry.Path)
		}
		batch[entry.Path] = struct{}{}
	}
	if len(entries) == 0 {
		return nil
	}

	server := bytepool.NewServer(w.builder)
	defer server.Close()
	dispatcher, err := compression.NewDispatcher(w.config.policy, server, w.logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		result compression.Result
		err    error
		done   chan struct{}
	}
	outcomes := make([]outcome, len(entries))
	for i := range outcomes {
		outcomes[i].done = make(chan struct{})
	}

	jobs := make(chan int)
	var workers sync.WaitGroup
	for range min(w.config.workers, len(entries)) {
		workers.Go(func() {
			for index := range jobs {
				entry := entries[index]
				if err := ctx.Err(); err != nil {
					outcomes[index].err = err
				} else {
					outcomes[index].result, outcomes[index].err =
						dispatcher.Compress(entry.Data, methodName(entry.Path, entry.ExtensionHint))
				}
				close(outcomes[index].done)
			}
		})
	}
	go func() {
		defer close(jobs)
		for index := range entries {
			select {
			case jobs <- index:
			case <-ctx.Done():
				return
			}
		}
	}()
	defer workers.Wait()

	w.logger.Debug("compressing batch", "group", group, "entries", len(entries), "workers", min(w.config.workers, len(entries)))
	for index, entry := range entries {
		select {
		case <-outcomes[index].done:
		case <-ctx.Done():
			return fmt.Errorf("archive: %s:%s: %w", group, entry.Path, ctx.Err())
		}
		if err := outcomes[index].err; err != nil {
			cancel()
			return fmt.Errorf("archive: %s:%s: %w", group, entry.Path, err)
		}
		state.paths[entry.Path] = struct{}{}
		if err := w.append(state, entry.Path, outcomes[index].result); err != nil {
			cancel()
			return err
		}
	}
	return nil
}

// Finish writes the pool table, metadata block, and trailer, and
// returns the size of the content region (trailer included). The
// Writer cannot be used afterwards. Finish does not close the
// underlying writer.
func (w *Writer) Finish() (int64, error) {
	if err := w.usable(); err != nil {
		return 0, err
	}
	w.closed = true
	if err := w.start(); err != nil {
		return 0, err
	}

	document := &metadataDocument{Format: MetadataFormat, Groups: make([]groupRecord, 0, len(w.groups))}
	for _, state := range w.groups {
		document.Groups = append(document.Groups, state.record)
	}

	if w.builder.Len() > 0 {
		pool := w.builder.Pool()
		record := &poolRecord{Offset: w.position, Length: pool.SerializedSize(), Entries: pool.Len()}
		written, err := pool.WriteTo(w.output)
		w.position += written
		if err != nil {
			return 0, w.fail(fmt.Errorf("archive: writing pool table: %w", err))
		}
		document.Pool = record
	}

	metadata, err := encodeMetadata(document)
	if err != nil {
		return 0, err
	}
	metadataOffset := w.position
	if err := w.write(metadata); err != nil {
		return 0, err
	}

	trailer := Trailer{
		Major:           MajorVersion,
		Minor:           MinorVersion,
		FileContentSize: uint64(w.position + TrailerSize),
		MetadataOffset:  uint64(metadataOffset),
		Reserved:        w.config.reserved,
	}
	encoded, err := trailer.MarshalBinary()
	if err != nil {
		return 0, err
	}
	if err := w.write(encoded); err != nil {
		return 0, err
	}

	w.logger.Info("archive written",
		"groups", len(w.groups),
		"pool_entries", w.builder.Len(),
		"metadata_bytes", len(metadata),
		"content_bytes", w.position,
	)
	return w.position, nil
}

// PoolLen returns the number of distinct byte strings pooled so far.
func (w *Writer) PoolLen() int {
	return w.builder.Len()
}

func (w *Writer) usable() error {
	if w.ioErr != nil {
		return fmt.Errorf("%w: %v", ErrWriterClosed, w.ioErr)
	}
	if w.closed {
		return ErrWriterClosed
	}
	return nil
}

func (w *Writer) lookupGroup(group string) (*groupState, error) {
	if err := w.usable(); err != nil {
		return nil, err
	}
	index, ok := w.groupIndex[group]
	if !ok {
		return nil, fmt.Errorf("archive: group %q was not declared", group)
	}
	return w.groups[index], nil
}

// reserve validates path and claims it within group.
func (w *Writer) reserve(group, path string) (*groupState, error) {
	state, err := w.lookupGroup(group)
	if err != nil {
		return nil, err
	}
	if err := ValidatePath(path); err != nil {
		return nil, fmt.Errorf("archive: group %q: %w", group, err)
	}
	if _, exists := state.paths[path]; exists {
		return nil, fmt.Errorf("archive: %s:%s: duplicate path", group, path)
	}
	state.paths[path] = struct{}{}
	return state, nil
}

// append writes one compressed entry and records its descriptor.
func (w *Writer) append(state *groupState, path string, result compression.Result) error {
	if err := w.start(); err != nil {
		return err
	}
	offset := w.position
	if err := w.write(result.Data); err != nil {
		return err
	}
	state.record.Entries = append(state.record.Entries, entryRecord{
		Path:   path,
		Offset: offset,
		Stored: int64(len(result.Data)),
		Size:   int64(result.Size),
		Method: result.Method,
	})
	return nil
}

// start copies the host prefix on first use.
func (w *Writer) start() error {
	if w.started {
		return nil
	}
	w.started = true
	if w.config.hostPrefix == nil {
		return nil
	}
	copied, err := io.Copy(w.output, w.config.hostPrefix)
	if err != nil {
		return w.fail(fmt.Errorf("archive: copying host prefix: %w", err))
	}
	w.logger.Debug("host prefix copied", "bytes", copied)
	return nil
}

func (w *Writer) write(data []byte) error {
	written, err := w.output.Write(data)
	w.position += int64(written)
	if err != nil {
		return w.fail(fmt.Errorf("archive: writing at content offset %d: %w", w.position, err))
	}
	return nil
}

// fail records an I/O error; the output is in an unknown state, so the
// Writer refuses further use.
func (w *Writer) fail(err error) error {
	w.ioErr = err
	return err
}

func checkEntrySize(group, path string, data []byte) error {
	if int64(len(data)) > MaxEntrySize {
		return &CapacityError{What: fmt.Sprintf("entry %s:%s", group, path), Size: int64(len(data)), Limit: MaxEntrySize}
	}
	return nil
}

func methodName(path, extensionHint string) string {
	if extensionHint != "" {
		if extensionHint[0] != '.' {
			return "." + extensionHint
		}
		return extensionHint
	}
	return path
}
