// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package varint encodes and decodes non-negative integers in the
// compact little-endian base-128 form used by the byte pool and the
// class-file structural codec.
//
// Each byte carries seven value bits, least significant group first.
// The high bit is set when more bytes follow. Zero encodes as a single
// 0x00 byte. Encoded values are limited to 32 bits, so a valid encoding
// is at most [MaxLen] bytes long; the fifth byte may never carry a
// continuation bit.
//
// This package has no tailpack-internal dependencies.
package varint
