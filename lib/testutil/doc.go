// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for tailpack packages.
//
// [ClassFile] builds synthetic compiled class files from a
// [ClassSpec]. The output is a structurally valid class file whose
// constant pool exercises every constant kind the structural codec
// understands (including the two-slot Long and Double constants), plus
// a method table with Code attributes so that the bytes after the
// constant pool are non-trivial. Tests use it instead of checked-in
// binary fixtures.
//
// [WriteTree] and [TempFile] lay out files under t.TempDir() for tests
// that pack directories or open archives by path.
//
// [RequireReceive] and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback) so
// that individual tests do not need direct time.After calls.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation, such as distinct group names within one archive.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no tailpack-internal dependencies.
package testutil
