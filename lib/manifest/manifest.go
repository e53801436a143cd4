// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/tailpack/lib/archive"
)

// Manifest describes the inputs of one archive.
type Manifest struct {
	// Host is the binary the archive is appended to. Relative paths
	// are resolved against BaseDir. Empty means no host prefix.
	Host string `json:"host,omitempty"`

	// Groups are packed in order.
	Groups []Group `json:"groups"`

	// BaseDir resolves relative Host and Root paths. ReadFile sets it
	// to the manifest's directory.
	BaseDir string `json:"-"`
}

// Group is one resource group and the directory tree it is collected
// from.
type Group struct {
	Kind string `json:"kind"`
	Name string `json:"name"`

	// Root is the directory whose files become entries. Entry paths
	// are relative to it.
	Root string `json:"root"`

	// Include selects files by slash-separated path relative to Root.
	// Empty means every file.
	Include []string `json:"include,omitempty"`

	// Exclude removes files Include selected.
	Exclude []string `json:"exclude,omitempty"`

	// Hints override the extension used to pick a compression method.
	// The first matching hint applies.
	Hints []Hint `json:"hints,omitempty"`
}

// Hint assigns an extension to files matching Match, for files whose
// names do not reveal their format.
type Hint struct {
	Match     string `json:"match"`
	Extension string `json:"extension"`
}

// Parse strips JSONC comments and trailing commas from data, then
// decodes the manifest. Unknown fields are errors.
func Parse(data []byte) (*Manifest, error) {
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.DisallowUnknownFields()

	var manifest Manifest
	if err := decoder.Decode(&manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// ReadFile reads and parses a JSONC manifest, resolving relative paths
// against its directory.
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	manifest, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	manifest.BaseDir = filepath.Dir(path)
	return manifest, nil
}

// Validate reports every structural problem in the manifest.
func (m *Manifest) Validate() error {
	var errs []error
	if len(m.Groups) == 0 {
		errs = append(errs, errors.New("manifest declares no groups"))
	}
	names := make(map[string]bool, len(m.Groups))
	for index, group := range m.Groups {
		label := fmt.Sprintf("groups[%d]", index)
		if group.Name != "" {
			label = fmt.Sprintf("group %q", group.Name)
		}
		if group.Kind == "" {
			errs = append(errs, fmt.Errorf("%s: kind is required", label))
		}
		if group.Name == "" {
			errs = append(errs, fmt.Errorf("%s: name is required", label))
		} else if names[group.Name] {
			errs = append(errs, fmt.Errorf("%s: declared twice", label))
		}
		names[group.Name] = true
		if group.Root == "" {
			errs = append(errs, fmt.Errorf("%s: root is required", label))
		}
		for _, pattern := range append(append([]string(nil), group.Include...), group.Exclude...) {
			if err := ValidatePattern(pattern); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", label, err))
			}
		}
		for _, hint := range group.Hints {
			if err := ValidatePattern(hint.Match); err != nil {
				errs = append(errs, fmt.Errorf("%s: hint: %w", label, err))
			}
			if hint.Extension == "" {
				errs = append(errs, fmt.Errorf("%s: hint for %q has no extension", label, hint.Match))
			}
		}
	}
	return errors.Join(errs...)
}

// HostPath returns the resolved host binary path, or "" if the
// manifest names none.
func (m *Manifest) HostPath() string {
	if m.Host == "" {
		return ""
	}
	return m.resolve(m.Host)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) || m.BaseDir == "" {
		return p
	}
	return filepath.Join(m.BaseDir, p)
}

// Collect reads the files of group in lexical path order. Directories
// and files that are not regular (after following symlinks) are
// skipped.
func (m *Manifest) Collect(ctx context.Context, group Group, logger *slog.Logger) ([]archive.Entry, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	root := m.resolve(group.Root)

	var entries []archive.Entry
	err := filepath.WalkDir(root, func(filePath string, dirEntry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if dirEntry.IsDir() {
			return nil
		}

		relative, err := filepath.Rel(root, filePath)
		if err != nil {
			return err
		}
		entryPath := filepath.ToSlash(relative)
		if len(group.Include) > 0 && !matchAny(group.Include, entryPath) {
			return nil
		}
		if matchAny(group.Exclude, entryPath) {
			return nil
		}

		info, err := os.Stat(filePath)
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			logger.Debug("skipping non-regular file", "group", group.Name, "path", entryPath, "mode", info.Mode().String())
			return nil
		}
		if err := archive.ValidatePath(entryPath); err != nil {
			return err
		}
		data, err := os.ReadFile(filePath)
		if err != nil {
			return err
		}
		entries = append(entries, archive.Entry{
			Path:          entryPath,
			Data:          data,
			ExtensionHint: group.hintFor(entryPath),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collecting group %q from %s: %w", group.Name, root, err)
	}
	logger.Debug("group collected", "group", group.Name, "root", root, "entries", len(entries))
	return entries, nil
}

func (g Group) hintFor(entryPath string) string {
	for _, hint := range g.Hints {
		if Match(hint.Match, entryPath) {
			return hint.Extension
		}
	}
	return ""
}

// Stats summarizes a [Manifest.Pack] run.
type Stats struct {
	Groups  int
	Entries int
	Bytes   int64
}

// Pack collects every group and writes it to writer, in manifest
// order. It does not call Finish.
func (m *Manifest) Pack(ctx context.Context, writer *archive.Writer, logger *slog.Logger) (Stats, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var stats Stats
	for _, group := range m.Groups {
		entries, err := m.Collect(ctx, group, logger)
		if err != nil {
			return stats, err
		}
		if err := writer.BeginGroup(group.Kind, group.Name); err != nil {
			return stats, err
		}
		if err := writer.PutEntries(ctx, group.Name, entries); err != nil {
			return stats, err
		}
		stats.Groups++
		stats.Entries += len(entries)
		for _, entry := range entries {
			stats.Bytes += int64(len(entry.Data))
		}
	}
	return stats, nil
}
