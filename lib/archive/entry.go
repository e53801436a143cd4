// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"fmt"
	"path"
	"strings"

	"github.com/bureau-foundation/tailpack/lib/compression"
)

// Well-known group kinds. Any other non-empty token is also valid.
const (
	KindClasspath = "classpath"
	KindModule    = "module"
)

// MaxEntrySize is the largest uncompressed entry an archive holds.
const MaxEntrySize = 1<<31 - 1

// Entry is one raw input to [Writer.PutEntries].
type Entry struct {
	// Path is the slash-separated path within the group.
	Path string

	// Data is the uncompressed content. The writer does not retain it
	// after PutEntries returns.
	Data []byte

	// ExtensionHint, when non-empty, replaces Path for choosing the
	// compression method (".png", "class").
	ExtensionHint string
}

// Handle identifies a resolved entry within one Reader. The zero value
// is not a valid handle; use [Reader.Resolve] to obtain one.
type Handle struct {
	group int32
	entry int32
	valid bool
}

// Descriptor describes where and how an entry is stored.
type Descriptor struct {
	Group string
	Path  string

	// Offset is the absolute file offset of the stored bytes.
	Offset int64

	// Stored is the number of stored bytes; Size the uncompressed
	// length.
	Stored int64
	Size   int64

	Method compression.Method
}

// GroupInfo summarizes a resource group.
type GroupInfo struct {
	Kind    string
	Name    string
	Entries int
}

// ValidatePath checks that p is a clean, relative, slash-separated
// path: no leading slash, no "." or ".." elements, no empty elements,
// no backslashes or NUL bytes. Extracting an archive writes entries
// under a destination directory, so paths must not escape it.
func ValidatePath(p string) error {
	switch {
	case p == "":
		return fmt.Errorf("empty path")
	case strings.ContainsAny(p, "\\\x00"):
		return fmt.Errorf("path %q contains a backslash or NUL byte", p)
	case strings.HasPrefix(p, "/"):
		return fmt.Errorf("path %q is absolute", p)
	case path.Clean(p) != p || p == "." || p == ".." || strings.HasPrefix(p, "../"):
		return fmt.Errorf("path %q is not clean", p)
	}
	return nil
}

// validateToken checks a group kind or name.
func validateToken(what, value string) error {
	if value == "" {
		return fmt.Errorf("empty group %s", what)
	}
	if strings.ContainsAny(value, "\x00\n") {
		return fmt.Errorf("group %s %q contains a NUL byte or newline", what, value)
	}
	return nil
}
