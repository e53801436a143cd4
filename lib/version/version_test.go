// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	originalCommit, originalDirty, originalTime := GitCommit, GitDirty, BuildTime
	t.Cleanup(func() { GitCommit, GitDirty, BuildTime = originalCommit, originalDirty, originalTime })

	tests := []struct {
		dirty string
		want  string
	}{
		{"false", Version + " (abc1234, 2026-10-16T00:00:00Z)"},
		{"true", Version + " (abc1234-dirty, 2026-10-16T00:00:00Z)"},
	}
	for _, tt := range tests {
		GitCommit, GitDirty, BuildTime = "abc1234", tt.dirty, "2026-10-16T00:00:00Z"
		if got := Info(); got != tt.want {
			t.Errorf("Info() with GitDirty=%s = %q, want %q", tt.dirty, got, tt.want)
		}
	}
	if Commit() != "abc1234" {
		t.Errorf("Commit() = %q", Commit())
	}
}

func TestFullIncludesFormats(t *testing.T) {
	full := Full()
	for _, want := range []string{Short(), "Platform:", "Archive format: 1.0", "Metadata format: 1", "Class codec: 1", "none, generic, block, structural"} {
		if !strings.Contains(full, want) {
			t.Errorf("Full() does not mention %q:\n%s", want, full)
		}
	}
}
