// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lz4block

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/pierrec/lz4/v4"
)

// referenceEncode compresses data with the pierrec encoder, the same
// encoder lib/compression uses when packing.
func referenceEncode(t *testing.T, data []byte) []byte {
	t.Helper()
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		t.Fatalf("reference CompressBlock failed: %v", err)
	}
	if written == 0 {
		t.Fatalf("reference CompressBlock reported %d bytes incompressible with a full-size buffer", len(data))
	}
	return destination[:written]
}

func TestDecodeMatchesReferenceEncoder(t *testing.T) {
	random := rand.New(rand.NewSource(42))
	randomBytes := make([]byte, 64*1024)
	random.Read(randomBytes)

	text := bytes.Repeat([]byte("public final class Example extends java/lang/Object implements Runnable;\n"), 300)

	mixed := make([]byte, 0, 128*1024)
	for len(mixed) < 120*1024 {
		if random.Intn(3) == 0 {
			chunk := make([]byte, random.Intn(200))
			random.Read(chunk)
			mixed = append(mixed, chunk...)
		} else {
			start := random.Intn(len(text) - 300)
			mixed = append(mixed, text[start:start+random.Intn(300)]...)
		}
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"single byte", []byte{'x'}},
		{"short literal", []byte("hello")},
		{"long run of one byte", bytes.Repeat([]byte{'a'}, 100000)},
		{"run with period 2", bytes.Repeat([]byte("ab"), 40000)},
		{"run with period 3", bytes.Repeat([]byte("abc"), 30000)},
		{"run with period 7", bytes.Repeat([]byte("abcdefg"), 10000)},
		{"run with period 9", bytes.Repeat([]byte("abcdefghi"), 10000)},
		{"text", text},
		{"random", randomBytes},
		{"mixed", mixed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compressed := referenceEncode(t, tt.data)
			decoded, err := DecodeAll(compressed, len(tt.data))
			if err != nil {
				t.Fatalf("DecodeAll failed: %v", err)
			}
			if !bytes.Equal(decoded, tt.data) {
				t.Fatalf("decoded %d bytes do not match the %d-byte original", len(decoded), len(tt.data))
			}
		})
	}
}

func TestDecodeEveryShortLength(t *testing.T) {
	random := rand.New(rand.NewSource(1))
	source := make([]byte, 600)
	for i := range source {
		// Small alphabet so short inputs still produce matches.
		source[i] = byte('a' + random.Intn(4))
	}

	for length := 1; length <= len(source); length++ {
		data := source[:length]
		decoded, err := DecodeAll(referenceEncode(t, data), length)
		if err != nil {
			t.Fatalf("length %d: DecodeAll failed: %v", length, err)
		}
		if !bytes.Equal(decoded, data) {
			t.Fatalf("length %d: roundtrip mismatch", length)
		}
	}
}

func TestDecodeEmpty(t *testing.T) {
	// An empty block, and the single zero token encoders emit for
	// empty input, both decode to nothing.
	for _, block := range [][]byte{nil, {0x00}} {
		decoded, err := DecodeAll(block, 0)
		if err != nil {
			t.Fatalf("DecodeAll(% x, 0) failed: %v", block, err)
		}
		if len(decoded) != 0 {
			t.Errorf("DecodeAll(% x, 0) = % x, want empty", block, decoded)
		}
	}
}

func TestDecodeHandBuiltOverlap(t *testing.T) {
	// Literal "ab", then a match of offset 2 and length 4+6=10:
	// token 0x26, literals 'a' 'b', offset 0x0002, then final
	// literal-only sequence "Z".
	block := []byte{0x26, 'a', 'b', 0x02, 0x00, 0x10, 'Z'}
	want := []byte("abababababab" + "Z")

	decoded, err := DecodeAll(block, len(want))
	if err != nil {
		t.Fatalf("DecodeAll failed: %v", err)
	}
	if !bytes.Equal(decoded, want) {
		t.Errorf("decoded %q, want %q", decoded, want)
	}
}

func TestDecodeExtendedLengths(t *testing.T) {
	// 15 + 255 + 10 = 280 literal bytes in a single literal-only sequence.
	literals := bytes.Repeat([]byte{'q'}, 280)
	block := append([]byte{0xf0, 0xff, 0x0a}, literals...)

	decoded, err := DecodeAll(block, 280)
	if err != nil {
		t.Fatalf("DecodeAll failed: %v", err)
	}
	if !bytes.Equal(decoded, literals) {
		t.Error("extended literal length decoded incorrectly")
	}
}

func TestDecodeCorruptInputs(t *testing.T) {
	tests := []struct {
		name  string
		block []byte
		size  int
	}{
		{"empty input with declared output", nil, 4},
		{"literal length extension past input", []byte{0xf0, 0xff}, 400},
		{"literals past input", []byte{0x50, 'a', 'b'}, 5},
		{"literals past declared output", []byte{0x30, 'a', 'b', 'c'}, 2},
		{"truncated offset", []byte{0x10, 'a', 0x01}, 10},
		{"zero offset", []byte{0x10, 'a', 0x00, 0x00, 0x00}, 10},
		{"offset before output start", []byte{0x10, 'a', 0x02, 0x00, 0x00}, 10},
		{"match past declared output", []byte{0x1f, 'a', 0x01, 0x00, 0x20, 0x00}, 10},
		{"match length extension past input", []byte{0x1f, 'a', 0x01, 0x00, 0xff}, 1000},
		{"output shorter than declared", []byte{0x20, 'a', 'b'}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAll(tt.block, tt.size)
			if !errors.Is(err, ErrCorrupt) {
				t.Fatalf("DecodeAll error = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestDecodeRejectsNegativeSize(t *testing.T) {
	if _, err := DecodeAll([]byte{0x00}, -1); !errors.Is(err, ErrCorrupt) {
		t.Errorf("DecodeAll(size -1) error = %v, want ErrCorrupt", err)
	}
}

func TestDecodeRandomGarbageNeverPanics(t *testing.T) {
	random := rand.New(rand.NewSource(99))
	for i := 0; i < 5000; i++ {
		garbage := make([]byte, random.Intn(64))
		random.Read(garbage)
		// Any outcome is fine except a panic or an out-of-bounds write.
		_, _ = DecodeAll(garbage, random.Intn(512))
	}
}

func BenchmarkDecodeText(b *testing.B) {
	data := bytes.Repeat([]byte("<init>()V java/lang/Object Code LineNumberTable "), 4096)
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		b.Fatal(err)
	}
	compressed := destination[:written]
	output := make([]byte, len(data))

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Decode(output, compressed); err != nil {
			b.Fatal(err)
		}
	}
}
