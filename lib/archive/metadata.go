// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/tailpack/lib/compression"
)

// MetadataFormat is the value of the metadata "format" field.
const MetadataFormat = 1

// DefaultMaxMetadataSize bounds the metadata block a Reader will load.
const DefaultMaxMetadataSize = 64 << 20

var metadataPrefix = []byte("format: ")

// metadataDocument is the YAML root of the metadata block. Offsets are
// relative to the content region.
type metadataDocument struct {
	Format int           `yaml:"format"`
	Pool   *poolRecord   `yaml:"pool,omitempty"`
	Groups []groupRecord `yaml:"groups"`
}

type poolRecord struct {
	Offset  int64 `yaml:"offset"`
	Length  int64 `yaml:"length"`
	Entries int   `yaml:"entries"`
}

type groupRecord struct {
	Kind    string        `yaml:"kind"`
	Name    string        `yaml:"name"`
	Entries []entryRecord `yaml:"entries"`
}

type entryRecord struct {
	Path   string             `yaml:"path"`
	Offset int64              `yaml:"offset"`
	Stored int64              `yaml:"stored"`
	Size   int64              `yaml:"size"`
	Method compression.Method `yaml:"method"`
}

// plainEntry has entryRecord's fields without its MarshalYAML method.
type plainEntry entryRecord

// MarshalYAML writes each entry as a single-line flow mapping.
func (e entryRecord) MarshalYAML() (any, error) {
	var node yaml.Node
	if err := node.Encode(plainEntry(e)); err != nil {
		return nil, err
	}
	node.Style = yaml.FlowStyle
	return &node, nil
}

func (e entryRecord) end() int64 {
	return e.Offset + e.Stored
}

func encodeMetadata(document *metadataDocument) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(2)
	if err := encoder.Encode(document); err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	return buffer.Bytes(), nil
}

// decodeMetadata parses and validates a metadata block against the
// trailer that located it. blockOffset is the absolute file offset of
// the block, used in error messages.
func decodeMetadata(block []byte, trailer Trailer, blockOffset int64) (*metadataDocument, error) {
	// The writer always emits the format field first. Requiring it at
	// the very start catches a block boundary shifted by a damaged
	// trailer, which YAML alone may not notice.
	if !bytes.HasPrefix(block, metadataPrefix) {
		return nil, formatErrorf(blockOffset, "metadata block does not start with %q", metadataPrefix)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(block))
	decoder.KnownFields(true)

	var document metadataDocument
	if err := decoder.Decode(&document); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty document")
		}
		return nil, &FormatError{Reason: "unparseable metadata", Offset: blockOffset, Err: err}
	}
	if document.Format != MetadataFormat {
		return nil, formatErrorf(blockOffset, "metadata format %d, want %d", document.Format, MetadataFormat)
	}
	if err := validateLayout(&document, int64(trailer.MetadataOffset)); err != nil {
		return nil, &FormatError{Reason: "inconsistent metadata", Offset: blockOffset, Err: err}
	}
	return &document, nil
}

// validateLayout checks that every group, entry, and the pool table
// are well formed and that together they fill the content region up
// to the metadata block exactly.
func validateLayout(document *metadataDocument, metadataOffset int64) error {
	var errs []error
	var dataEnd int64
	structural := false

	groupNames := make(map[string]struct{}, len(document.Groups))
	for groupIndex := range document.Groups {
		group := &document.Groups[groupIndex]
		if group.Kind == "" || group.Name == "" {
			errs = append(errs, fmt.Errorf("group %d has an empty kind or name", groupIndex))
			continue
		}
		if _, duplicate := groupNames[group.Name]; duplicate {
			errs = append(errs, fmt.Errorf("duplicate group %q", group.Name))
			continue
		}
		groupNames[group.Name] = struct{}{}

		paths := make(map[string]struct{}, len(group.Entries))
		for _, entry := range group.Entries {
			if err := ValidatePath(entry.Path); err != nil {
				errs = append(errs, fmt.Errorf("group %q: %w", group.Name, err))
				continue
			}
			if _, duplicate := paths[entry.Path]; duplicate {
				errs = append(errs, fmt.Errorf("group %q: duplicate path %q", group.Name, entry.Path))
				continue
			}
			paths[entry.Path] = struct{}{}

			switch {
			case !entry.Method.Valid():
				errs = append(errs, fmt.Errorf("%s:%s: invalid method %d", group.Name, entry.Path, uint8(entry.Method)))
			case entry.Offset < 0 || entry.Stored < 0 || entry.Size < 0:
				errs = append(errs, fmt.Errorf("%s:%s: negative offset or length", group.Name, entry.Path))
			case entry.Size > MaxEntrySize:
				errs = append(errs, fmt.Errorf("%s:%s: size %d exceeds %d", group.Name, entry.Path, entry.Size, MaxEntrySize))
			case entry.end() > metadataOffset || entry.end() < entry.Offset:
				errs = append(errs, fmt.Errorf("%s:%s: extent [%d, %d) overlaps the metadata at %d",
					group.Name, entry.Path, entry.Offset, entry.end(), metadataOffset))
			case entry.Method == compression.None && entry.Stored != entry.Size:
				errs = append(errs, fmt.Errorf("%s:%s: stored entry has %d stored and %d raw bytes",
					group.Name, entry.Path, entry.Stored, entry.Size))
			}
			if entry.Method == compression.Structural {
				structural = true
			}
			dataEnd = max(dataEnd, entry.end())
		}
	}

	if pool := document.Pool; pool != nil {
		end := pool.Offset + pool.Length
		if pool.Offset < 0 || pool.Length < 0 || pool.Entries < 0 || end > metadataOffset || end < pool.Offset {
			errs = append(errs, fmt.Errorf("pool table [%d, %d) with %d entries is outside the data region [0, %d)",
				pool.Offset, end, pool.Entries, metadataOffset))
		}
		dataEnd = max(dataEnd, end)
	} else if structural {
		errs = append(errs, errors.New("structural entries present but no pool table"))
	}

	if len(errs) == 0 && dataEnd != metadataOffset {
		errs = append(errs, fmt.Errorf("data region ends at %d, metadata starts at %d", dataEnd, metadataOffset))
	}
	return errors.Join(errs...)
}
