// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compression

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// DefaultMinSize is the size at or below which entries are stored
// uncompressed.
const DefaultMinSize = 64

// DefaultStoredExtensions are formats that are already compressed.
var DefaultStoredExtensions = []string{
	"png", "jpg", "jpeg", "gif", "webp", "ico",
	"mp3", "ogg", "wav", "flac", "mp4", "mkv", "webm",
	"zip", "jar", "gz", "tgz", "bz2", "xz", "zst", "lz4", "7z", "rar",
	"woff", "woff2", "br",
}

// DefaultGenericExtensions are text formats that DEFLATE handles well.
var DefaultGenericExtensions = []string{
	"txt", "xml", "html", "css", "js", "json", "properties", "mf",
	"md", "yaml", "yml", "csv", "sql", "sf", "list",
}

// Policy configures a Dispatcher. Extensions are compared case
// insensitively and without the leading dot.
type Policy struct {
	// MinSize is the largest entry stored without trying to
	// compress it.
	MinSize int

	// StoredExtensions are always stored as None.
	StoredExtensions []string

	// GenericExtensions use Generic.
	GenericExtensions []string

	// Default applies to entries no other rule matches, and to class
	// files the structural codec rejects.
	Default Method
}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() Policy {
	return Policy{
		MinSize:           DefaultMinSize,
		StoredExtensions:  append([]string(nil), DefaultStoredExtensions...),
		GenericExtensions: append([]string(nil), DefaultGenericExtensions...),
		Default:           Block,
	}
}

// Validate reports every problem with the policy.
func (p Policy) Validate() error {
	var errs []error
	if p.MinSize < 0 {
		errs = append(errs, fmt.Errorf("min_size must be non-negative, got %d", p.MinSize))
	}
	switch p.Default {
	case None, Generic, Block:
	default:
		errs = append(errs, fmt.Errorf("default method must be none, generic, or block, got %s", p.Default))
	}
	for _, extension := range p.StoredExtensions {
		if normalizeExtension(extension) == "" {
			errs = append(errs, errors.New("stored_extensions contains an empty extension"))
			break
		}
	}
	for _, extension := range p.GenericExtensions {
		if normalizeExtension(extension) == "" {
			errs = append(errs, errors.New("generic_extensions contains an empty extension"))
			break
		}
	}
	return errors.Join(errs...)
}

// extensionSet is a lookup table built from a Policy's extension
// lists.
type extensionSet map[string]struct{}

func newExtensionSet(extensions []string) extensionSet {
	set := make(extensionSet, len(extensions))
	for _, extension := range extensions {
		if normalized := normalizeExtension(extension); normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}

func (s extensionSet) contains(extension string) bool {
	_, ok := s[extension]
	return ok
}

func normalizeExtension(extension string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(extension), "."))
}

// Extension returns the normalized extension of a slash-separated
// entry name: lower case, no leading dot, empty when there is none.
func Extension(name string) string {
	return normalizeExtension(path.Ext(name))
}
