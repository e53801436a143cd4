// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for tailpack.
//
// The central type is [Command], a named subcommand with optional
// nested [Command.Subcommands], a [pflag.FlagSet] factory, and a Run
// function. Commands are assembled into a tree in cmd/tailpack and
// dispatched via [Command.Execute], which handles flag parsing,
// subcommand routing, and help output with examples.
//
// When a user types an unknown subcommand or flag, the framework
// suggests the closest known name by Levenshtein edit distance
// (threshold: distance <= 3).
//
// [NewCommandLogger] builds the slog logger commands report on, and
// [JSONOutput] adds a --json flag for machine-readable output.
// [ExitError] lets a command exit non-zero after printing its own
// diagnosis.
package cli
