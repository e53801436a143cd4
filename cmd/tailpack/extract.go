// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tailpack/cmd/tailpack/cli"
	"github.com/bureau-foundation/tailpack/lib/archive"
)

type extractOptions struct {
	commonOptions
	directory string
	group     string
}

func (a *app) extractCommand() *cli.Command {
	var options extractOptions
	return &cli.Command{
		Name:    "extract",
		Summary: "Write entries to a directory",
		Description: `Write every entry to <directory>/<group>/<path>. Existing files are
overwritten. Entries are decoded as they are written, so corrupt
entries are reported by path.`,
		Usage: "tailpack extract <archive> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("extract", pflag.ContinueOnError)
			flagSet.StringVarP(&options.directory, "directory", "d", ".", "destination directory")
			flagSet.StringVarP(&options.group, "group", "g", "", "only extract this group")
			options.commonOptions.addFlags(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.RequireArgs(args, "archive"); err != nil {
				return err
			}
			reader, logger, err := options.openArchive(args[0], "extract")
			if err != nil {
				return err
			}
			defer reader.Close()

			entries, err := collectEntries(reader, options.group)
			if err != nil {
				return err
			}
			for _, entry := range entries {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := extractEntry(reader, entry, options.directory); err != nil {
					return err
				}
			}
			logger.Info("extracted", "entries", len(entries), "directory", options.directory)
			fmt.Fprintf(a.stdout, "extracted %d entries to %s\n", len(entries), options.directory)
			return nil
		},
		Examples: []cli.Example{
			{Command: "tailpack extract dist/app -d /tmp/app"},
		},
	}
}

func extractEntry(reader *archive.Reader, entry listedEntry, directory string) error {
	// Group names are free-form; as a directory they must not escape.
	if err := archive.ValidatePath(entry.Group); err != nil {
		return fmt.Errorf("group %q cannot be extracted: %w", entry.Group, err)
	}
	if err := archive.ValidatePath(entry.Path); err != nil {
		return fmt.Errorf("%s: %w", entry.Group, err)
	}
	destination := filepath.Join(directory, filepath.FromSlash(entry.Group), filepath.FromSlash(entry.Path))

	handle, ok := reader.Resolve(entry.Kind, entry.Group, entry.Path)
	if !ok {
		return fmt.Errorf("%s:%s not resolvable", entry.Group, entry.Path)
	}
	stream, err := reader.Open(handle)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return err
	}
	file, err := os.Create(destination)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, stream); err != nil {
		file.Close()
		return fmt.Errorf("extracting %s:%s: %w", entry.Group, entry.Path, err)
	}
	return file.Close()
}
