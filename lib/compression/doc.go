// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compression chooses and applies the per-entry compression
// method of an archive.
//
// [Method] is a closed set of four tags stored in every entry
// descriptor: [None], [Generic] (DEFLATE), [Block] (LZ4 block format),
// and [Structural] (the class-file codec in lib/classfile). Decoding
// dispatches on the stored tag alone and never sniffs content.
//
// [Compress] and [Decompress] are the single dispatch points per
// direction. Block encoding uses github.com/pierrec/lz4/v4; block
// decoding uses lib/lz4block so that reading an archive needs no
// third-party codec. Generic encoding and decoding use
// github.com/klauspost/compress/flate with pooled writers and readers.
//
// A [Dispatcher] applies a [Policy] to raw entries:
//
//  1. entries at or below Policy.MinSize are stored ([None])
//  2. entries with a stored extension (images, audio, archives) are stored
//  3. class files use [Structural], falling back to Policy.Default on any
//     structural failure
//  4. entries with a generic extension (text formats) use [Generic]
//  5. everything else uses Policy.Default
//
// Whatever method was chosen, output that is not strictly smaller than
// the input is discarded and the entry is stored. A Result's stored
// size never exceeds its raw size.
package compression
