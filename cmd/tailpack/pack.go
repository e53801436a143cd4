// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tailpack/cmd/tailpack/cli"
	"github.com/bureau-foundation/tailpack/lib/archive"
	"github.com/bureau-foundation/tailpack/lib/manifest"
)

type packOptions struct {
	commonOptions
	manifestPath string
	outputPath   string
	hostPath     string
	noHost       bool
	workers      int
}

func (a *app) packCommand() *cli.Command {
	var options packOptions
	return &cli.Command{
		Name:    "pack",
		Summary: "Create an archive from a manifest",
		Description: `Collect the groups a JSONC manifest names and write them, compressed,
after the host binary. The output replaces any existing file atomically.

The host binary is taken from --host, else the manifest's "host", else
pack.host_binary in the config file.`,
		Usage: "tailpack pack --manifest <file> -o <output> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("pack", pflag.ContinueOnError)
			flagSet.StringVarP(&options.manifestPath, "manifest", "m", "", "JSONC pack manifest (required)")
			flagSet.StringVarP(&options.outputPath, "output", "o", "", "archive to write (required)")
			flagSet.StringVar(&options.hostPath, "host", "", "host binary to prepend")
			flagSet.BoolVar(&options.noHost, "no-host", false, "write a bare archive with no host prefix")
			flagSet.IntVar(&options.workers, "workers", 0, "compression workers (default: pack.workers, else one per CPU)")
			options.addFlags(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments %v", args)
			}
			return a.pack(ctx, &options)
		},
		Examples: []cli.Example{
			{Command: "tailpack pack --manifest app.jsonc -o dist/app"},
			{Description: "Archive only, for inspection", Command: "tailpack pack -m app.jsonc -o app.tpk --no-host"},
		},
	}
}

func (a *app) pack(ctx context.Context, options *packOptions) error {
	if options.manifestPath == "" || options.outputPath == "" {
		return errors.New("--manifest and --output are required")
	}
	cfg, err := options.load()
	if err != nil {
		return err
	}
	logger := options.logger(cfg, "pack")

	packManifest, err := manifest.ReadFile(options.manifestPath)
	if err != nil {
		return err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	hostPath := options.hostPath
	if hostPath == "" {
		hostPath = packManifest.HostPath()
	}
	if hostPath == "" {
		hostPath = cfg.Pack.HostBinary
	}
	if options.noHost {
		hostPath = ""
	}

	workers := options.workers
	if workers == 0 {
		workers = cfg.Pack.Workers
	}

	writerOptions := []archive.WriterOption{
		archive.WithLogger(logger),
		archive.WithPolicy(policy),
		archive.WithWorkers(workers),
	}
	var hostSize int64
	if hostPath != "" {
		host, err := os.Open(hostPath)
		if err != nil {
			return fmt.Errorf("opening host binary: %w", err)
		}
		defer host.Close()
		info, err := host.Stat()
		if err != nil {
			return fmt.Errorf("opening host binary: %w", err)
		}
		hostSize = info.Size()
		writerOptions = append(writerOptions, archive.WithHostPrefix(host))
	}

	output, err := os.CreateTemp(filepath.Dir(options.outputPath), "."+filepath.Base(options.outputPath)+".*")
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			output.Close()
			os.Remove(output.Name())
		}
	}()

	writer, err := archive.NewWriter(output, writerOptions...)
	if err != nil {
		return err
	}
	stats, err := packManifest.Pack(ctx, writer, logger)
	if err != nil {
		return err
	}
	contentSize, err := writer.Finish()
	if err != nil {
		return err
	}

	mode := os.FileMode(0o644)
	if hostPath != "" {
		mode = 0o755
	}
	if err := output.Chmod(mode); err != nil {
		return fmt.Errorf("setting output mode: %w", err)
	}
	if err := output.Sync(); err != nil {
		return fmt.Errorf("syncing output: %w", err)
	}
	if err := output.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}
	if err := os.Rename(output.Name(), options.outputPath); err != nil {
		return fmt.Errorf("renaming output: %w", err)
	}
	committed = true

	logger.Info("packed",
		"output", options.outputPath,
		"groups", stats.Groups,
		"entries", stats.Entries,
		"input_bytes", stats.Bytes,
		"host_bytes", hostSize,
		"archive_bytes", contentSize,
	)
	fmt.Fprintf(a.stdout, "%s: %d entries in %d groups, %s -> %s\n",
		options.outputPath, stats.Entries, stats.Groups, humanize.IBytes(uint64(stats.Bytes)), humanize.IBytes(uint64(contentSize)))
	return nil
}
