// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package lz4block decodes the LZ4 block format without any third-party
// code, so that extracting an entry from an archive never depends on
// an external library. Encoding happens at pack time and is delegated
// to github.com/pierrec/lz4/v4 by lib/compression.
//
// A block is a sequence of sequences. Each starts with a token byte:
// the high nibble is the literal length and the low nibble the match
// length minus [MinMatch]. A nibble of 15 is extended by following
// bytes, each added to the length, until a byte below 255. The literal
// bytes follow, then a 2-byte little-endian offset back into the
// already-decoded output, then the match is copied. The last sequence
// carries literals only and no offset.
//
// Matches may overlap their own output (offset smaller than length),
// which is how LZ4 encodes runs. Short offsets are expanded by
// repeatedly doubling the copied window; long offsets are copied in
// 8-byte strides, which can never read bytes the same stride writes.
package lz4block
