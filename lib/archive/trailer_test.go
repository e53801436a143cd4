// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func validTrailer() Trailer {
	return Trailer{
		Major:           MajorVersion,
		Minor:           MinorVersion,
		FileContentSize: 200,
		MetadataOffset:  100,
		Reserved:        [ReservedSize]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
	}
}

func TestTrailerEncoding(t *testing.T) {
	trailer := validTrailer()
	encoded, err := trailer.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	if len(encoded) != TrailerSize {
		t.Fatalf("encoded trailer is %d bytes, want %d", len(encoded), TrailerSize)
	}
	if !bytes.Equal(encoded[:4], []byte("TQPK")) {
		t.Errorf("magic bytes = %q, want TQPK", encoded[:4])
	}
	if got := binary.LittleEndian.Uint64(encoded[16:]); got != 200 {
		t.Errorf("content size field = %d, want 200", got)
	}
	if got := binary.LittleEndian.Uint64(encoded[24:]); got != 100 {
		t.Errorf("metadata offset field = %d, want 100", got)
	}

	parsed, err := ParseTrailer(encoded, 1000)
	if err != nil {
		t.Fatalf("ParseTrailer failed: %v", err)
	}
	if parsed != trailer {
		t.Errorf("ParseTrailer = %+v, want %+v", parsed, trailer)
	}
}

func TestParseTrailerRejects(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Trailer)
		raw      func([]byte)
		fileSize int64
	}{
		{name: "bad magic", raw: func(b []byte) { b[0] = 'X' }, fileSize: 1000},
		{name: "major version", mutate: func(tr *Trailer) { tr.Major = 2 }, fileSize: 1000},
		{name: "minor version", mutate: func(tr *Trailer) { tr.Minor = 1 }, fileSize: 1000},
		{name: "unknown flags", mutate: func(tr *Trailer) { tr.Flags = 1 << 40 }, fileSize: 1000},
		{name: "content smaller than trailer", mutate: func(tr *Trailer) { tr.FileContentSize = 47; tr.MetadataOffset = 0 }, fileSize: 1000},
		{name: "content larger than file", fileSize: 199},
		{name: "metadata offset at trailer", mutate: func(tr *Trailer) { tr.MetadataOffset = 152 }, fileSize: 1000},
		{name: "metadata offset past content", mutate: func(tr *Trailer) { tr.MetadataOffset = 1 << 60 }, fileSize: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trailer := validTrailer()
			if tt.mutate != nil {
				tt.mutate(&trailer)
			}
			encoded, err := trailer.MarshalBinary()
			if err != nil {
				t.Fatalf("MarshalBinary failed: %v", err)
			}
			if tt.raw != nil {
				tt.raw(encoded)
			}
			_, err = ParseTrailer(encoded, tt.fileSize)
			if !IsFormatError(err) {
				t.Fatalf("ParseTrailer error = %v, want FormatError", err)
			}
		})
	}

	if _, err := ParseTrailer(make([]byte, 10), 1000); !IsFormatError(err) {
		t.Errorf("ParseTrailer(short) error = %v, want FormatError", err)
	}
}
