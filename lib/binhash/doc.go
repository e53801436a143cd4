// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash computes BLAKE3 digests of files and file sections.
//
// tailpack identifies an archive by the digest of its content region,
// the bytes from the end of the host prefix through the trailer. Two
// binaries built around different launchers but carrying the same
// archive share that digest, and "tailpack inspect" reports it so
// archives can be compared without extracting them.
//
// Hashing streams through the hasher with constant memory regardless
// of the section size.
package binhash
