// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compression

import (
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/tailpack/lib/bytepool"
	"github.com/bureau-foundation/tailpack/lib/classfile"
)

// Result is the outcome of compressing one entry.
type Result struct {
	// Method is the method Data was produced with.
	Method Method

	// Data is the stored form. For None it aliases the input.
	Data []byte

	// Size is the uncompressed length.
	Size int
}

// Dispatcher applies a Policy to raw entries. It is safe for
// concurrent use when its Interner is (a *bytepool.Server is; a
// *bytepool.Builder is not).
type Dispatcher struct {
	policy  Policy
	stored  extensionSet
	generic extensionSet
	pool    bytepool.Interner
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher. pool receives the constants of
// structurally compressed entries; when it is nil, class files are
// treated like any other binary entry. A nil logger discards output.
func NewDispatcher(policy Policy, pool bytepool.Interner, logger *slog.Logger) (*Dispatcher, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid compression policy: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		policy:  policy,
		stored:  newExtensionSet(policy.StoredExtensions),
		generic: newExtensionSet(policy.GenericExtensions),
		pool:    pool,
		logger:  logger,
	}, nil
}

// Choose returns the method the policy selects for data named name,
// before the structural fallback and the must-shrink check.
func (d *Dispatcher) Choose(data []byte, name string) Method {
	extension := Extension(name)
	switch {
	case len(data) <= d.policy.MinSize:
		return None
	case d.stored.contains(extension):
		return None
	case d.pool != nil && (extension == "class" || classfile.IsClassFile(data)):
		return Structural
	case d.generic.contains(extension):
		return Generic
	default:
		return d.policy.Default
	}
}

// Compress selects a method for data and applies it. name is the entry
// path or an extension hint such as ".png"; only its extension is
// used. The returned Result never stores more bytes than len(data).
func (d *Dispatcher) Compress(data []byte, name string) (Result, error) {
	method := d.Choose(data, name)
	if method == None {
		return stored(data), nil
	}

	output, err := Compress(method, data, d.pool)
	if err != nil && method == Structural {
		d.logger.Debug("structural compression failed, using fallback",
			"name", name,
			"fallback", d.policy.Default.String(),
			"error", err,
		)
		method = d.policy.Default
		output, err = Compress(method, data, d.pool)
	}
	if err != nil {
		return Result{}, fmt.Errorf("compressing %s with %s: %w", name, method, err)
	}

	if len(output) >= len(data) {
		return stored(data), nil
	}
	return Result{Method: method, Data: output, Size: len(data)}, nil
}

func stored(data []byte) Result {
	return Result{Method: None, Data: data, Size: len(data)}
}
