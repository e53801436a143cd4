// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tailpack/cmd/tailpack/cli"
	"github.com/bureau-foundation/tailpack/lib/archive"
	"github.com/bureau-foundation/tailpack/lib/config"
)

// app carries the output streams every command writes to.
type app struct {
	stdout io.Writer
	stderr io.Writer
}

func root(stdout, stderr io.Writer) *cli.Command {
	a := &app{stdout: stdout, stderr: stderr}
	return &cli.Command{
		Name:    "tailpack",
		Summary: "Pack resources into an archive appended to a binary",
		Description: `tailpack packs directory trees into a single archive appended to a host
binary. Entries are compressed per file type, class files share a
deduplicated string pool, and any entry can be read back without
touching the rest of the file.`,
		Stderr: stderr,
		Subcommands: []*cli.Command{
			a.packCommand(),
			a.listCommand(),
			a.catCommand(),
			a.extractCommand(),
			a.inspectCommand(),
			a.versionCommand(),
		},
		Examples: []cli.Example{
			{Description: "Pack an application behind its launcher", Command: "tailpack pack --manifest app.jsonc -o dist/app"},
			{Description: "Print one class from the archive", Command: "tailpack cat dist/app classpath app com/example/Main.class"},
		},
	}
}

// commonOptions are the flags shared by every command that loads
// configuration.
type commonOptions struct {
	configPath string
	verbose    bool
}

func (o *commonOptions) addFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&o.configPath, "config", "", "config file (default: $"+config.EnvVar+", else built-in defaults)")
	flagSet.BoolVarP(&o.verbose, "verbose", "v", false, "log at debug level")
}

// load returns the configuration named by --config or TAILPACK_CONFIG,
// or the built-in defaults when neither is set.
func (o *commonOptions) load() (*config.Config, error) {
	path := o.configPath
	if path == "" {
		path = os.Getenv(config.EnvVar)
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadFile(path)
}

func (o *commonOptions) logger(cfg *config.Config, command string) *slog.Logger {
	level, _ := cfg.LogLevel()
	if o.verbose {
		level = slog.LevelDebug
	}
	return cli.NewCommandLogger(level).With("command", command)
}

// openArchive loads configuration and opens path for reading.
func (o *commonOptions) openArchive(path, command string) (*archive.Reader, *slog.Logger, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	logger := o.logger(cfg, command)
	reader, err := archive.Open(path,
		archive.WithReaderLogger(logger),
		archive.WithMaxMetadataSize(cfg.Reader.MaxMetadataSize),
	)
	if err != nil {
		return nil, nil, err
	}
	return reader, logger, nil
}
