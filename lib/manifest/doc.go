// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest reads pack manifests: JSONC files (JSON with
// comments and trailing commas) naming the host binary and the
// directory trees that become an archive's resource groups.
//
//	{
//	  "host": "bin/launcher",  // optional
//	  "groups": [
//	    {"kind": "classpath", "name": "app", "root": "build/classes",
//	     "include": ["**/*.class", "META-INF/**"]},
//	  ],
//	}
//
// [Manifest.Collect] walks a group's root in lexical order, so the same
// tree always produces the same archive. [Manifest.Pack] feeds every
// group to an [archive.Writer].
package manifest
