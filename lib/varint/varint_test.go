// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package varint

import (
	"bytes"
	"errors"
	"io"
	"math"
	"math/rand"
	"testing"
)

func TestEncodeKnownValues(t *testing.T) {
	tests := []struct {
		value int64
		want  []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xac, 0x02}},
		{16383, []byte{0xff, 0x7f}},
		{16384, []byte{0x80, 0x80, 0x01}},
		{math.MaxInt32, []byte{0xff, 0xff, 0xff, 0xff, 0x07}},
		{math.MaxUint32, []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
	}

	for _, tt := range tests {
		got, err := Encode(tt.value)
		if err != nil {
			t.Fatalf("Encode(%d) failed: %v", tt.value, err)
		}
		if !bytes.Equal(got, tt.want) {
			t.Errorf("Encode(%d) = %x, want %x", tt.value, got, tt.want)
		}
		if Size(tt.value) != len(tt.want) {
			t.Errorf("Size(%d) = %d, want %d", tt.value, Size(tt.value), len(tt.want))
		}
	}
}

func TestEncodeRejectsNegative(t *testing.T) {
	for _, value := range []int64{-1, -128, math.MinInt64} {
		if _, err := Encode(value); !errors.Is(err, ErrNegative) {
			t.Errorf("Encode(%d) error = %v, want ErrNegative", value, err)
		}
	}
}

func TestEncodeRejectsOverflow(t *testing.T) {
	if _, err := Encode(math.MaxUint32 + 1); !errors.Is(err, ErrOverflow) {
		t.Errorf("Encode(2^32) error = %v, want ErrOverflow", err)
	}
}

func TestAppendLeavesDestinationOnError(t *testing.T) {
	dst := []byte{0xaa}
	got, err := Append(dst, -5)
	if err == nil {
		t.Fatal("Append(-5) should fail")
	}
	if !bytes.Equal(got, []byte{0xaa}) {
		t.Errorf("Append modified dst on error: %x", got)
	}
}

func TestRoundtripBoundaries(t *testing.T) {
	values := []int64{0, 1, 127, 128, 255, 256, 16383, 16384, 2097151, 2097152,
		268435455, 268435456, math.MaxInt32 - 1, math.MaxInt32}
	for shift := 0; shift < 31; shift++ {
		values = append(values, int64(1)<<shift, int64(1)<<shift-1)
	}

	for _, value := range values {
		checkRoundtrip(t, value)
	}
}

func TestRoundtripRandom(t *testing.T) {
	random := rand.New(rand.NewSource(7))
	for i := 0; i < 100000; i++ {
		checkRoundtrip(t, int64(random.Int31()))
	}
}

func checkRoundtrip(t *testing.T, value int64) {
	t.Helper()

	encoded, err := Encode(value)
	if err != nil {
		t.Fatalf("Encode(%d) failed: %v", value, err)
	}

	decoded, err := Decode(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("Decode(%x) failed: %v", encoded, err)
	}
	if int64(decoded) != value {
		t.Fatalf("Decode(Encode(%d)) = %d", value, decoded)
	}

	decoded, n, err := DecodeBytes(encoded)
	if err != nil {
		t.Fatalf("DecodeBytes(%x) failed: %v", encoded, err)
	}
	if int64(decoded) != value || n != len(encoded) {
		t.Fatalf("DecodeBytes(Encode(%d)) = (%d, %d), want (%d, %d)", value, decoded, n, value, len(encoded))
	}
}

func TestDecodeSequence(t *testing.T) {
	var stream []byte
	inputs := []int64{5, 1000, 0, 70000, math.MaxInt32}
	for _, value := range inputs {
		var err error
		stream, err = Append(stream, value)
		if err != nil {
			t.Fatalf("Append(%d) failed: %v", value, err)
		}
	}

	reader := bytes.NewReader(stream)
	for _, want := range inputs {
		got, err := Decode(reader)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if int64(got) != want {
			t.Errorf("Decode = %d, want %d", got, want)
		}
	}
	if _, err := Decode(reader); err != io.EOF {
		t.Errorf("Decode at end of stream error = %v, want io.EOF", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		wantErr error
	}{
		{"fifth byte continues", []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}, ErrOverflow},
		{"fifth byte too wide", []byte{0xff, 0xff, 0xff, 0xff, 0x10}, ErrOverflow},
		{"truncated", []byte{0x80, 0x80}, io.ErrUnexpectedEOF},
		{"empty", nil, io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeBytes(tt.input); !errors.Is(err, tt.wantErr) {
				t.Errorf("DecodeBytes(%x) error = %v, want %v", tt.input, err, tt.wantErr)
			}
			if len(tt.input) == 0 {
				return
			}
			if _, err := Decode(bytes.NewReader(tt.input)); !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode(%x) error = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
