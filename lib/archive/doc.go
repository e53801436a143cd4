// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive reads and writes tailpack archives: a content region
// of compressed entries appended to an arbitrary host binary and
// located through a fixed-size trailer at the very end of the file.
//
// File layout:
//
//	host prefix (opaque, any length)
//	entry bytes, one stored form per entry, in write order
//	byte pool table (present when any entry is structural)
//	metadata block (YAML)
//	trailer (48 bytes)
//
// The trailer records fileContentSize, the length of everything after
// the host prefix including the trailer itself, and metadataOffset.
// All offsets inside the content region, in the trailer and in the
// metadata, are relative to the start of the content region, so the
// same region can be appended to any host binary unchanged. The
// [Reader] converts them to absolute file offsets.
//
// The metadata block lists resource groups. Each group has a kind
// ("classpath", "module", or any other token) and a name unique within
// the archive, and maps slash-separated paths to entry descriptors
// (offset, stored length, uncompressed length, compression method).
//
// A [Writer] is single-owner. [Writer.PutEntries] compresses a batch on
// a bounded worker pool, serializing byte pool insertions through a
// bytepool.Server and writing results in input order.
//
// A [Reader] is immutable after [NewReader] returns and safe for
// concurrent use. Entry reads use ReadAt only; the byte pool table is
// loaded once, on the first structural read. [Open] memory-maps the
// archive on Linux and macOS.
//
// Failures are classified as [FormatError] (the archive as a whole is
// unusable), [CorruptionError] (one entry cannot be decoded), and
// [CapacityError] (a size limit was exceeded). A path that is not in
// the archive is not an error: [Reader.Resolve] reports it with a
// false second result.
package archive
