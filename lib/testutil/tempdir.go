// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// WriteTree creates a temporary directory and writes files into it.
// Keys are slash-separated paths relative to the directory; parent
// directories are created as needed. Returns the directory path.
//
//	root := testutil.WriteTree(t, map[string][]byte{
//		"com/example/App.class": classBytes,
//		"META-INF/MANIFEST.MF":  []byte("Manifest-Version: 1.0\n"),
//	})
func WriteTree(t *testing.T, files map[string][]byte) string {
	t.Helper()
	root := t.TempDir()

	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		absolutePath := filepath.Join(root, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(absolutePath), 0o755); err != nil {
			t.Fatalf("creating parent of %s: %v", path, err)
		}
		if err := os.WriteFile(absolutePath, files[path], 0o644); err != nil {
			t.Fatalf("writing %s: %v", path, err)
		}
	}
	return root
}

// TempFile writes data to a new file in a test-scoped temporary
// directory and returns its path. The file is removed when the test
// completes.
func TempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}
