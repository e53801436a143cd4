// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for tailpack.
//
// Configuration is loaded from a single file named by either the
// TAILPACK_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no search path and no environment
// variable overrides individual keys. Without a file, commands run on
// [Default].
//
// Keys absent from the file keep their default values. Unknown keys
// are rejected so that a typo cannot silently leave a default in
// place. pack.host_binary supports ${VAR} and ${VAR:-default}
// expansion, with ${CONFIG_DIR} naming the directory of the config
// file.
//
// Key exports:
//
//   - [Config] -- compression, pack, reader, and log sections
//   - [Default] -- the built-in configuration
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.Policy] -- the compression section as a [compression.Policy]
package config
