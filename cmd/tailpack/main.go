// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// tailpack packs directory trees into an archive appended to a host
// binary, and lists, extracts, and inspects such archives.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		// Commands that print their own diagnosis return an ExitError
		// with the desired code.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	return root(stdout, stderr).Execute(ctx, args)
}
