// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/bureau-foundation/tailpack/lib/archive"
	"github.com/bureau-foundation/tailpack/lib/testutil"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern, path string
		want          bool
	}{
		{"**", "a/b/c.txt", true},
		{"*.txt", "notes.txt", true},
		{"*.txt", "dir/notes.txt", false},
		{"**/*.class", "A.class", true},
		{"**/*.class", "com/example/A.class", true},
		{"**/*.class", "com/example/A.java", false},
		{"com/**", "com/A.class", true},
		{"com/**", "com", true},
		{"com/**", "org/A.class", false},
		{"com/**/A.class", "com/A.class", true},
		{"com/**/A.class", "com/x/y/A.class", true},
		{"com/**/A.class", "com/x/y/B.class", false},
		{"META-INF/**/*.MF", "META-INF/MANIFEST.MF", true},
		{"a/**/b/**/c", "a/x/b/y/z/c", true},
		{"a/**/b/**/c", "a/x/y/z/c", false},
		{"dat?/*", "data/x", true},
		{"[", "[", false},
	}
	for _, tt := range tests {
		if got := Match(tt.pattern, tt.path); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}

func TestValidatePattern(t *testing.T) {
	valid := []string{"**", "*.class", "com/**/A.class", "a/[bc]/d"}
	for _, pattern := range valid {
		if err := ValidatePattern(pattern); err != nil {
			t.Errorf("ValidatePattern(%q) failed: %v", pattern, err)
		}
	}
	invalid := []string{"", "a**/b", "**.class", "a/[b"}
	for _, pattern := range invalid {
		if err := ValidatePattern(pattern); err == nil {
			t.Errorf("ValidatePattern(%q) accepted a malformed pattern", pattern)
		}
	}
}

func TestParse(t *testing.T) {
	manifest, err := Parse([]byte(`{
		// The launcher this archive rides on.
		"host": "bin/launcher",
		"groups": [
			{
				"kind": "classpath",
				"name": "app",
				"root": "build/classes",
				"include": ["**/*.class"], /* only classes */
			},
			{
				"kind": "module",
				"name": "assets",
				"root": "/srv/assets",
				"exclude": ["**/.DS_Store"],
				"hints": [{"match": "blobs/**", "extension": "png"}],
			},
		],
	}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if manifest.Host != "bin/launcher" {
		t.Errorf("Host = %q", manifest.Host)
	}
	if len(manifest.Groups) != 2 {
		t.Fatalf("parsed %d groups, want 2", len(manifest.Groups))
	}
	app, assets := manifest.Groups[0], manifest.Groups[1]
	if app.Kind != "classpath" || app.Name != "app" || app.Root != "build/classes" {
		t.Errorf("first group = %+v", app)
	}
	if !slices.Equal(app.Include, []string{"**/*.class"}) {
		t.Errorf("Include = %v", app.Include)
	}
	if len(assets.Hints) != 1 || assets.Hints[0].Extension != "png" {
		t.Errorf("Hints = %+v", assets.Hints)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
	}{
		{"malformed", `{"groups": [`, []string{"parsing manifest"}},
		{"unknown field", `{"groups": [{"kind": "k", "name": "n", "root": "r", "inclde": []}]}`, []string{"inclde"}},
		{"no groups", `{"groups": []}`, []string{"no groups"}},
		{
			"every problem reported",
			`{"groups": [
				{"kind": "", "name": "a", "root": "r"},
				{"kind": "k", "name": "a", "root": ""},
				{"kind": "k", "name": "", "root": "r", "include": ["x**"]},
				{"kind": "k", "name": "h", "root": "r", "hints": [{"match": "*.bin", "extension": ""}]},
			]}`,
			[]string{"kind is required", "declared twice", "root is required", "name is required", "whole path segment", "no extension"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			for _, want := range tt.contains {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not mention %q", err.Error(), want)
				}
			}
		})
	}
}

func TestReadFileResolvesRelativePaths(t *testing.T) {
	directory := testutil.WriteTree(t, map[string][]byte{
		"pack.jsonc":        []byte(`{"host": "bin/launcher", "groups": [{"kind": "classpath", "name": "app", "root": "classes"}]}`),
		"bin/launcher":      []byte("#!/bin/sh\n"),
		"classes/A.class":   testutil.ClassFile(testutil.ClassSpec{Name: "A"}),
		"classes/res/x.txt": []byte("x"),
		"elsewhere/ignored": []byte("not in any group"),
	})

	manifest, err := ReadFile(filepath.Join(directory, "pack.jsonc"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if got, want := manifest.HostPath(), filepath.Join(directory, "bin", "launcher"); got != want {
		t.Errorf("HostPath = %q, want %q", got, want)
	}

	entries, err := manifest.Collect(context.Background(), manifest.Groups[0], nil)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	var paths []string
	for _, entry := range entries {
		paths = append(paths, entry.Path)
	}
	if want := []string{"A.class", "res/x.txt"}; !slices.Equal(paths, want) {
		t.Errorf("collected %v, want %v", paths, want)
	}

	if _, err := ReadFile(filepath.Join(directory, "missing.jsonc")); err == nil {
		t.Error("ReadFile of a missing file succeeded")
	}
}

func TestHostPath(t *testing.T) {
	tests := []struct {
		manifest Manifest
		want     string
	}{
		{Manifest{}, ""},
		{Manifest{Host: "/abs/launcher", BaseDir: "/base"}, "/abs/launcher"},
		{Manifest{Host: "rel/launcher"}, "rel/launcher"},
		{Manifest{Host: "rel/launcher", BaseDir: "/base"}, "/base/rel/launcher"},
	}
	for _, tt := range tests {
		if got := tt.manifest.HostPath(); got != tt.want {
			t.Errorf("HostPath(%+v) = %q, want %q", tt.manifest, got, tt.want)
		}
	}
}

func TestCollectFilters(t *testing.T) {
	root := testutil.WriteTree(t, map[string][]byte{
		"com/example/App.class": []byte("app"),
		"com/example/App.java":  []byte("source"),
		"com/example/.DS_Store": []byte("junk"),
		"META-INF/MANIFEST.MF":  []byte("Manifest-Version: 1.0\n"),
		"blobs/sprite":          []byte("binary"),
		"blobs/deeper/sheet":    []byte("binary"),
		"z-last.properties":     []byte("k=v"),
	})
	manifest := &Manifest{}
	group := Group{
		Kind:    archive.KindClasspath,
		Name:    "app",
		Root:    root,
		Include: []string{"**/*.class", "META-INF/**", "blobs/**", "*.properties"},
		Exclude: []string{"**/.DS_Store"},
		Hints:   []Hint{{Match: "blobs/**", Extension: "png"}},
	}

	entries, err := manifest.Collect(context.Background(), group, nil)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	want := []struct {
		path, hint string
	}{
		{"META-INF/MANIFEST.MF", ""},
		{"blobs/deeper/sheet", "png"},
		{"blobs/sprite", "png"},
		{"com/example/App.class", ""},
		{"z-last.properties", ""},
	}
	if len(entries) != len(want) {
		t.Fatalf("collected %d entries, want %d: %+v", len(entries), len(want), entries)
	}
	for i, entry := range entries {
		if entry.Path != want[i].path || entry.ExtensionHint != want[i].hint {
			t.Errorf("entry %d = (%s, %q), want (%s, %q)", i, entry.Path, entry.ExtensionHint, want[i].path, want[i].hint)
		}
	}
}

func TestCollectSkipsNonRegularFiles(t *testing.T) {
	root := testutil.WriteTree(t, map[string][]byte{
		"real/file.txt": []byte("content"),
	})
	if err := os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "dirlink")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Join(root, "real", "file.txt"), filepath.Join(root, "filelink")); err != nil {
		t.Fatalf("creating file symlink: %v", err)
	}

	entries, err := (&Manifest{}).Collect(context.Background(), Group{Kind: "k", Name: "g", Root: root}, nil)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	var paths []string
	for _, entry := range entries {
		paths = append(paths, entry.Path)
	}
	if want := []string{"filelink", "real/file.txt"}; !slices.Equal(paths, want) {
		t.Errorf("collected %v, want %v", paths, want)
	}
}

func TestCollectErrors(t *testing.T) {
	missing := Group{Kind: "k", Name: "g", Root: filepath.Join(t.TempDir(), "absent")}
	if _, err := (&Manifest{}).Collect(context.Background(), missing, nil); err == nil {
		t.Error("Collect of a missing root succeeded")
	}

	root := testutil.WriteTree(t, map[string][]byte{"a": []byte("a")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Manifest{}).Collect(ctx, Group{Kind: "k", Name: "g", Root: root}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Collect with a cancelled context: error = %v, want context.Canceled", err)
	}
}

func TestPack(t *testing.T) {
	appClass := testutil.ClassFile(testutil.ClassSpec{Name: "com/example/App", Methods: []string{"<init>", "main"}})
	directory := testutil.WriteTree(t, map[string][]byte{
		"classes/com/example/App.class": appClass,
		"classes/config.properties":     []byte(strings.Repeat("key=value\n", 20)),
		"assets/icon.png":               bytes.Repeat([]byte{0x89, 'P', 'N', 'G'}, 50),
	})
	manifest := &Manifest{
		BaseDir: directory,
		Groups: []Group{
			{Kind: archive.KindClasspath, Name: "app", Root: "classes"},
			{Kind: archive.KindModule, Name: "assets", Root: "assets"},
		},
	}

	var output bytes.Buffer
	writer, err := archive.NewWriter(&output)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	stats, err := manifest.Pack(context.Background(), writer, nil)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if _, err := writer.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if stats.Groups != 2 || stats.Entries != 3 {
		t.Errorf("stats = %+v, want 2 groups and 3 entries", stats)
	}

	reader, err := archive.NewReader(bytes.NewReader(output.Bytes()), int64(output.Len()))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	handle, ok := reader.Resolve(archive.KindClasspath, "app", "com/example/App.class")
	if !ok {
		t.Fatal("App.class missing from the archive")
	}
	data, err := reader.ReadAll(handle)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.Equal(data, appClass) {
		t.Error("App.class did not roundtrip")
	}
	if _, ok := reader.Resolve(archive.KindModule, "assets", "icon.png"); !ok {
		t.Error("icon.png missing from the archive")
	}
}
