// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bytepool implements the content-addressed byte pool shared by
// every structurally compressed entry in an archive.
//
// During packing a [Builder] deduplicates byte strings: the first
// insertion of a string appends it to a single backing buffer and
// assigns the next dense id; later insertions of byte-identical content
// return the same id. Deduplication is keyed by a domain-separated
// BLAKE3 digest of the content and confirmed by byte comparison, so a
// digest collision can never alias two different strings.
//
// The Builder is not safe for concurrent use. Packers that compress on
// several goroutines route insertions through a [Server], a single
// goroutine that owns the Builder and answers requests over a channel.
// Both satisfy [Interner].
//
// A finished pool is an immutable [Pool]. On disk it is:
//
//	u32 entry count | u32 buffer size | buffer | u16 length per id
//
// all little-endian. Offsets are not stored; [Parse] and [Read]
// reconstruct them by accumulating lengths in id order.
package bytepool
