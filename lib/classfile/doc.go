// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package classfile implements the structural codec for compiled class
// files.
//
// A class file starts with a constant pool: a self-describing table of
// typed entries. Most of a class file's bytes are Utf8 constants (class
// names, descriptors, member names, attribute names), and the same
// strings recur across every class in an application. [Compress] walks
// the constant pool, moves each Utf8 constant into a shared byte pool,
// and replaces it with a one-byte external tag followed by the varint
// pool id. Every other constant and everything after the constant pool
// is copied through unchanged. [Decompress] reverses the walk and
// reproduces the original record byte for byte.
//
// Encoded form:
//
//	u8 codec version (1)
//	u32 magic | u16 minor | u16 major | u16 constant pool count
//	constant pool, with Utf8 entries as 0x80 varint(id)
//	remaining class bytes, verbatim
//
// Compression fails closed. Any malformed record, unknown constant tag,
// or pool capacity error is returned as an error, and nothing has been
// committed beyond pool insertions, which are harmless: a pooled
// string nobody references costs bytes but never corrupts another
// entry. Callers fall back to a byte-oriented codec for that entry.
package classfile
