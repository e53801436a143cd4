// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tailpack/cmd/tailpack/cli"
	"github.com/bureau-foundation/tailpack/lib/archive"
	"github.com/bureau-foundation/tailpack/lib/binhash"
	"github.com/bureau-foundation/tailpack/lib/compression"
	"github.com/bureau-foundation/tailpack/lib/version"
)

type inspectOptions struct {
	commonOptions
	cli.JSONOutput
}

// inspection is the report "tailpack inspect" prints.
type inspection struct {
	Version         string         `json:"version"`
	ContentOffset   int64          `json:"content_offset"`
	FileContentSize uint64         `json:"file_content_size"`
	MetadataOffset  uint64         `json:"metadata_offset"`
	Reserved        string         `json:"reserved"`
	ContentDigest   string         `json:"content_digest"`
	PoolEntries     int            `json:"pool_entries"`
	PoolBytes       int            `json:"pool_bytes"`
	Groups          []groupSummary `json:"groups"`
	Methods         []methodUsage  `json:"methods"`
}

type groupSummary struct {
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	Entries int    `json:"entries"`
	Stored  int64  `json:"stored"`
	Size    int64  `json:"size"`
}

type methodUsage struct {
	Method  string `json:"method"`
	Entries int    `json:"entries"`
	Stored  int64  `json:"stored"`
	Size    int64  `json:"size"`
}

func (a *app) inspectCommand() *cli.Command {
	var options inspectOptions
	return &cli.Command{
		Name:    "inspect",
		Summary: "Describe an archive's trailer, groups, and compression",
		Usage:   "tailpack inspect <archive> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
			options.JSONOutput.AddFlag(flagSet)
			options.commonOptions.addFlags(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.RequireArgs(args, "archive"); err != nil {
				return err
			}
			reader, _, err := options.openArchive(args[0], "inspect")
			if err != nil {
				return err
			}
			defer reader.Close()

			report, err := inspect(args[0], reader)
			if err != nil {
				return err
			}
			if done, err := options.EmitJSON(a.stdout, report); done {
				return err
			}
			return a.printInspection(args[0], report)
		},
	}
}

func inspect(path string, reader *archive.Reader) (*inspection, error) {
	trailer := reader.Trailer()
	pool, err := reader.Pool()
	if err != nil {
		return nil, err
	}
	digest, err := contentDigest(path, reader)
	if err != nil {
		return nil, err
	}
	report := &inspection{
		Version:         fmt.Sprintf("%d.%d", trailer.Major, trailer.Minor),
		ContentOffset:   reader.ContentOffset(),
		FileContentSize: trailer.FileContentSize,
		MetadataOffset:  trailer.MetadataOffset,
		Reserved:        hex.EncodeToString(trailer.Reserved[:]),
		ContentDigest:   digest.String(),
		PoolEntries:     pool.Len(),
		PoolBytes:       pool.Size(),
	}

	usage := make([]methodUsage, len(compression.Methods))
	for i, method := range compression.Methods {
		usage[i].Method = method.String()
	}
	entries, err := collectEntries(reader, "")
	if err != nil {
		return nil, err
	}
	groupIndex := make(map[string]int)
	for _, info := range reader.Groups() {
		groupIndex[info.Name] = len(report.Groups)
		report.Groups = append(report.Groups, groupSummary{Kind: info.Kind, Name: info.Name, Entries: info.Entries})
	}
	for _, entry := range entries {
		group := &report.Groups[groupIndex[entry.Group]]
		group.Stored += entry.Stored
		group.Size += entry.Size

		method, err := compression.ParseMethod(entry.Method)
		if err != nil {
			return nil, err
		}
		usage[method].Entries++
		usage[method].Stored += entry.Stored
		usage[method].Size += entry.Size
	}
	for _, row := range usage {
		if row.Entries > 0 {
			report.Methods = append(report.Methods, row)
		}
	}
	return report, nil
}

// contentDigest hashes the archive without its host prefix, so the
// same archive behind different launchers has one digest.
func contentDigest(path string, reader *archive.Reader) (binhash.Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return binhash.Digest{}, err
	}
	defer file.Close()
	return binhash.HashSection(file, reader.ContentOffset(), int64(reader.Trailer().FileContentSize))
}

func (a *app) printInspection(path string, report *inspection) error {
	fmt.Fprintf(a.stdout, "%s: tailpack format %s (this build: %s)\n", path, report.Version, version.Short())
	fmt.Fprintf(a.stdout, "  host prefix:   %s\n", humanize.IBytes(uint64(report.ContentOffset)))
	fmt.Fprintf(a.stdout, "  content:       %s\n", humanize.IBytes(report.FileContentSize))
	fmt.Fprintf(a.stdout, "  metadata at:   +%d\n", report.MetadataOffset)
	fmt.Fprintf(a.stdout, "  reserved:      %s\n", report.Reserved)
	fmt.Fprintf(a.stdout, "  digest:        blake3:%s\n", report.ContentDigest)
	fmt.Fprintf(a.stdout, "  byte pool:     %d entries, %s\n", report.PoolEntries, humanize.IBytes(uint64(report.PoolBytes)))

	tw := tabwriter.NewWriter(a.stdout, 2, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\nGROUP\tKIND\tENTRIES\tSTORED\tSIZE\n")
	for _, group := range report.Groups {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", group.Name, group.Kind, group.Entries,
			humanize.IBytes(uint64(group.Stored)), humanize.IBytes(uint64(group.Size)))
	}
	fmt.Fprintf(tw, "\nMETHOD\tENTRIES\tSTORED\tSIZE\tRATIO\n")
	for _, row := range report.Methods {
		ratio := "-"
		if row.Size > 0 {
			ratio = fmt.Sprintf("%.1f%%", 100*float64(row.Stored)/float64(row.Size))
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", row.Method, row.Entries,
			humanize.IBytes(uint64(row.Stored)), humanize.IBytes(uint64(row.Size)), ratio)
	}
	return tw.Flush()
}

func (a *app) versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version and supported formats",
		Run: func(ctx context.Context, args []string) error {
			fmt.Fprintf(a.stdout, "tailpack %s\n", version.Full())
			return nil
		},
	}
}
