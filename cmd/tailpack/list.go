// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tailpack/cmd/tailpack/cli"
	"github.com/bureau-foundation/tailpack/lib/archive"
)

type listOptions struct {
	commonOptions
	cli.JSONOutput
	group string
	long  bool
}

// listedEntry is one row of "tailpack list --json".
type listedEntry struct {
	Kind   string `json:"kind"`
	Group  string `json:"group"`
	Path   string `json:"path"`
	Method string `json:"method"`
	Offset int64  `json:"offset"`
	Stored int64  `json:"stored"`
	Size   int64  `json:"size"`
}

func (a *app) listCommand() *cli.Command {
	var options listOptions
	return &cli.Command{
		Name:    "list",
		Summary: "List archive entries",
		Usage:   "tailpack list <archive> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flagSet.StringVarP(&options.group, "group", "g", "", "only list this group")
			flagSet.BoolVarP(&options.long, "long", "l", false, "show method and sizes")
			options.JSONOutput.AddFlag(flagSet)
			options.commonOptions.addFlags(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.RequireArgs(args, "archive"); err != nil {
				return err
			}
			reader, _, err := options.openArchive(args[0], "list")
			if err != nil {
				return err
			}
			defer reader.Close()
			return a.list(reader, &options)
		},
		Examples: []cli.Example{
			{Command: "tailpack list dist/app"},
			{Description: "Sizes of one group as JSON", Command: "tailpack list dist/app --group app --json"},
		},
	}
}

func (a *app) list(reader *archive.Reader, options *listOptions) error {
	entries, err := collectEntries(reader, options.group)
	if err != nil {
		return err
	}
	if done, err := options.EmitJSON(a.stdout, entries); done {
		return err
	}

	if !options.long {
		for _, entry := range entries {
			fmt.Fprintf(a.stdout, "%s:%s\n", entry.Group, entry.Path)
		}
		return nil
	}
	tw := tabwriter.NewWriter(a.stdout, 2, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "METHOD\tSTORED\tSIZE\t ENTRY\t\n")
	for _, entry := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t %s:%s\t\n", entry.Method,
			humanize.IBytes(uint64(entry.Stored)), humanize.IBytes(uint64(entry.Size)), entry.Group, entry.Path)
	}
	return tw.Flush()
}

// collectEntries describes every entry of group, or of every group
// when group is empty, in archive order.
func collectEntries(reader *archive.Reader, group string) ([]listedEntry, error) {
	var entries []listedEntry
	found := group == ""
	for _, info := range reader.Groups() {
		if group != "" && info.Name != group {
			continue
		}
		found = true
		for path := range reader.Entries(info.Name) {
			handle, ok := reader.Resolve(info.Kind, info.Name, path)
			if !ok {
				return nil, fmt.Errorf("%s:%s listed but not resolvable", info.Name, path)
			}
			descriptor, _ := reader.Descriptor(handle)
			entries = append(entries, listedEntry{
				Kind:   info.Kind,
				Group:  info.Name,
				Path:   path,
				Method: descriptor.Method.String(),
				Offset: descriptor.Offset,
				Stored: descriptor.Stored,
				Size:   descriptor.Size,
			})
		}
	}
	if !found {
		return nil, fmt.Errorf("archive has no group %q", group)
	}
	return entries, nil
}

func (a *app) catCommand() *cli.Command {
	var options commonOptions
	return &cli.Command{
		Name:    "cat",
		Summary: "Write one entry to stdout",
		Usage:   "tailpack cat <archive> <kind> <group> <path> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("cat", pflag.ContinueOnError)
			options.addFlags(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.RequireArgs(args, "archive", "kind", "group", "path"); err != nil {
				return err
			}
			reader, logger, err := options.openArchive(args[0], "cat")
			if err != nil {
				return err
			}
			defer reader.Close()

			kind, group, path := args[1], args[2], args[3]
			handle, ok := reader.Resolve(kind, group, path)
			if !ok {
				fmt.Fprintf(a.stderr, "tailpack cat: %s %s:%s not found in %s\n", kind, group, path, args[0])
				return &cli.ExitError{Code: 1}
			}
			stream, err := reader.Open(handle)
			if err != nil {
				return err
			}
			defer stream.Close()
			written, err := io.Copy(a.stdout, stream)
			if err != nil {
				return err
			}
			logger.Debug("entry written", "group", group, "path", path, "bytes", written)
			return nil
		},
		Examples: []cli.Example{
			{Command: "tailpack cat dist/app classpath app META-INF/MANIFEST.MF"},
		},
	}
}
