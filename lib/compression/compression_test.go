// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compression

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/tailpack/lib/bytepool"
	"github.com/bureau-foundation/tailpack/lib/testutil"
)

func randomBytes(seed int64, n int) []byte {
	data := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(data)
	return data
}

func TestMethodNames(t *testing.T) {
	for _, method := range Methods {
		parsed, err := ParseMethod(method.String())
		if err != nil {
			t.Fatalf("ParseMethod(%q) failed: %v", method.String(), err)
		}
		if parsed != method {
			t.Errorf("ParseMethod(%q) = %d, want %d", method.String(), parsed, method)
		}
		if !method.Valid() {
			t.Errorf("%s.Valid() = false", method)
		}
	}

	if Method(4).Valid() {
		t.Error("Method(4).Valid() = true")
	}
	if got := Method(9).String(); got != "unknown(9)" {
		t.Errorf("Method(9).String() = %q", got)
	}
	if _, err := ParseMethod("zstd"); err == nil {
		t.Error("ParseMethod(zstd) succeeded")
	}
	if _, err := Method(7).MarshalText(); err == nil {
		t.Error("MarshalText of an invalid method succeeded")
	}
}

func TestMethodYAML(t *testing.T) {
	type document struct {
		Method Method `yaml:"method"`
	}

	encoded, err := yaml.Marshal(document{Method: Structural})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.TrimSpace(string(encoded)) != "method: structural" {
		t.Errorf("Marshal = %q, want %q", encoded, "method: structural")
	}

	var decoded document
	if err := yaml.Unmarshal([]byte("method: generic\n"), &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Method != Generic {
		t.Errorf("decoded method = %s, want generic", decoded.Method)
	}

	for _, input := range []string{"method: brotli\n", "method: [block]\n"} {
		if err := yaml.Unmarshal([]byte(input), &decoded); err == nil {
			t.Errorf("Unmarshal(%q) succeeded", input)
		}
	}
}

func TestPolicyValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("DefaultPolicy().Validate() = %v", err)
	}

	policy := DefaultPolicy()
	policy.MinSize = -1
	policy.Default = Structural
	policy.StoredExtensions = append(policy.StoredExtensions, " . ")
	err := policy.Validate()
	if err == nil {
		t.Fatal("Validate accepted an invalid policy")
	}
	for _, want := range []string{"min_size", "default method", "stored_extensions"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate error %q does not mention %s", err, want)
		}
	}
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"a/b/C.class":      "class",
		"IMAGE.PNG":        "png",
		".json":            "json",
		"META-INF/LICENSE": "",
		"archive.tar.gz":   "gz",
		"":                 "",
	}
	for name, want := range tests {
		if got := Extension(name); got != want {
			t.Errorf("Extension(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestCompressDecompressRoundtrip(t *testing.T) {
	text := bytes.Repeat([]byte("key=value\nother.key=another value\n"), 200)
	class := testutil.ClassFile(testutil.ClassSpec{
		Name:    "com/example/Roundtrip",
		Methods: []string{"<init>", "run"},
		Strings: []string{"hello", "world"},
	})

	tests := []struct {
		method Method
		data   []byte
	}{
		{None, []byte("stored verbatim")},
		{None, nil},
		{Generic, text},
		{Generic, nil},
		{Generic, randomBytes(1, 4096)},
		{Block, text},
		{Block, nil},
		{Block, randomBytes(2, 4096)},
		{Structural, class},
	}

	for _, tt := range tests {
		t.Run(tt.method.String(), func(t *testing.T) {
			builder := bytepool.NewBuilder()
			encoded, err := Compress(tt.method, tt.data, builder)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}
			decoded, err := Decompress(tt.method, encoded, len(tt.data), builder.Pool())
			if err != nil {
				t.Fatalf("Decompress failed: %v", err)
			}
			if !bytes.Equal(decoded, tt.data) {
				t.Fatal("roundtrip mismatch")
			}
		})
	}
}

func TestDecompressErrors(t *testing.T) {
	text := bytes.Repeat([]byte("abcdefgh"), 100)
	generic, err := Compress(Generic, text, nil)
	if err != nil {
		t.Fatalf("Compress(Generic) failed: %v", err)
	}
	block, err := Compress(Block, text, nil)
	if err != nil {
		t.Fatalf("Compress(Block) failed: %v", err)
	}

	tests := []struct {
		name   string
		method Method
		data   []byte
		size   int
		want   error
	}{
		{"unknown method", Method(12), text, len(text), ErrUnknownMethod},
		{"negative size", Generic, generic, -1, ErrSizeMismatch},
		{"stored size mismatch", None, text, len(text) - 1, ErrSizeMismatch},
		{"generic stream longer than declared", Generic, generic, len(text) - 1, ErrSizeMismatch},
		{"generic stream shorter than declared", Generic, generic, len(text) + 1, io.ErrUnexpectedEOF},
		{"structural without pool", Structural, []byte{1}, 1, ErrNoPool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decompress(tt.method, tt.data, tt.size, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Decompress error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Decompress(Block, block, len(text)+1, nil); err == nil {
		t.Error("Decompress(Block) accepted a wrong declared size")
	}
	if _, err := Compress(Structural, text, nil); !errors.Is(err, ErrNoPool) {
		t.Errorf("Compress(Structural, nil pool) error = %v, want ErrNoPool", err)
	}
}

func TestDispatcherRules(t *testing.T) {
	class := testutil.ClassFile(testutil.ClassSpec{
		Name:       "com/example/Dispatch",
		Methods:    []string{"<init>", "run", "call"},
		Strings:    []string{"a fairly long string literal that pads the constant pool"},
		SourceFile: "Dispatch.java",
	})
	text := bytes.Repeat([]byte("<element attribute=\"value\">text</element>\n"), 50)
	repetitiveBinary := bytes.Repeat([]byte{0, 1, 2, 3, 4, 5, 6, 7, 0xff, 0xfe}, 200)
	fakeClass := append([]byte{0xca, 0xfe, 0xba, 0xbe}, bytes.Repeat([]byte{0x02}, 400)...)

	tests := []struct {
		name string
		path string
		data []byte
		want Method
	}{
		{"empty", "empty.bin", nil, None},
		{"at threshold", "small.txt", bytes.Repeat([]byte{'a'}, DefaultMinSize), None},
		{"stored extension", "images/logo.png", repetitiveBinary, None},
		{"stored extension hint", ".JAR", repetitiveBinary, None},
		{"class by extension", "com/example/Dispatch.class", class, Structural},
		{"class by magic", "com/example/Dispatch.bin", class, Structural},
		{"malformed class falls back", "com/example/Broken.class", fakeClass, Block},
		{"generic extension", "config/app.xml", text, Generic},
		{"default method", "lib/native.so", repetitiveBinary, Block},
		{"incompressible", "lib/random.bin", randomBytes(3, 2048), None},
		{"incompressible text", "notes.txt", randomBytes(4, 2048), None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher, err := NewDispatcher(DefaultPolicy(), bytepool.NewBuilder(), nil)
			if err != nil {
				t.Fatalf("NewDispatcher failed: %v", err)
			}
			result, err := dispatcher.Compress(tt.data, tt.path)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}
			if result.Method != tt.want {
				t.Errorf("method = %s, want %s", result.Method, tt.want)
			}
			if result.Size != len(tt.data) {
				t.Errorf("Size = %d, want %d", result.Size, len(tt.data))
			}
			if len(result.Data) > len(tt.data) {
				t.Errorf("stored %d bytes for a %d-byte entry", len(result.Data), len(tt.data))
			}
			if result.Method != None && len(result.Data) >= len(tt.data) {
				t.Errorf("%s output of %d bytes is not smaller than the %d-byte input",
					result.Method, len(result.Data), len(tt.data))
			}
		})
	}
}

func TestDispatcherNeverGrowsEntries(t *testing.T) {
	dispatcher, err := NewDispatcher(DefaultPolicy(), bytepool.NewBuilder(), nil)
	if err != nil {
		t.Fatalf("NewDispatcher failed: %v", err)
	}
	names := []string{"a.txt", "a.bin", "a.class", "a.png", "a"}
	random := rand.New(rand.NewSource(5))
	for i := 0; i < 300; i++ {
		data := make([]byte, random.Intn(600))
		if i%2 == 0 {
			random.Read(data)
		} else {
			for j := range data {
				data[j] = byte('a' + random.Intn(3))
			}
		}
		name := names[i%len(names)]
		result, err := dispatcher.Compress(data, name)
		if err != nil {
			t.Fatalf("Compress(%d bytes, %s) failed: %v", len(data), name, err)
		}
		if len(result.Data) > len(data) {
			t.Fatalf("Compress(%d bytes, %s) stored %d bytes", len(data), name, len(result.Data))
		}
		if len(data) <= DefaultMinSize && result.Method != None {
			t.Fatalf("Compress(%d bytes, %s) used %s below the threshold", len(data), name, result.Method)
		}
	}
}

func TestDispatcherWithoutPoolSkipsStructural(t *testing.T) {
	class := testutil.ClassFile(testutil.ClassSpec{Name: "com/example/NoPool", Methods: []string{"a", "b", "c"}})
	dispatcher, err := NewDispatcher(DefaultPolicy(), nil, nil)
	if err != nil {
		t.Fatalf("NewDispatcher failed: %v", err)
	}
	if method := dispatcher.Choose(class, "com/example/NoPool.class"); method != Block {
		t.Errorf("Choose = %s, want block", method)
	}
}

func TestDispatcherLogsStructuralFallback(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	policy := DefaultPolicy()
	policy.Default = Generic
	dispatcher, err := NewDispatcher(policy, bytepool.NewBuilder(), logger)
	if err != nil {
		t.Fatalf("NewDispatcher failed: %v", err)
	}

	broken := append([]byte{0xca, 0xfe, 0xba, 0xbe, 0, 0, 0, 61, 0, 2, 0x7e}, bytes.Repeat([]byte("pad"), 100)...)
	result, err := dispatcher.Compress(broken, "Broken.class")
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if result.Method != Generic {
		t.Errorf("method = %s, want generic fallback", result.Method)
	}
	if !strings.Contains(logs.String(), "structural compression failed") {
		t.Errorf("fallback was not logged; logs: %s", logs.String())
	}
}

func TestNewDispatcherRejectsInvalidPolicy(t *testing.T) {
	policy := DefaultPolicy()
	policy.Default = Method(10)
	if _, err := NewDispatcher(policy, nil, nil); err == nil {
		t.Fatal("NewDispatcher accepted an invalid default method")
	}
}

// countingSource records whether it has been read.
type countingSource struct {
	reader io.Reader
	reads  int
}

func (c *countingSource) Read(p []byte) (int, error) {
	c.reads++
	return c.reader.Read(p)
}

func TestNewReaderStreams(t *testing.T) {
	text := bytes.Repeat([]byte("streamed entry content, "), 400)
	class := testutil.ClassFile(testutil.ClassSpec{Name: "com/example/Stream", Methods: []string{"<init>"}})

	tests := []struct {
		method Method
		data   []byte
	}{
		{None, text},
		{Generic, text},
		{Block, text},
		{Structural, class},
	}

	for _, tt := range tests {
		t.Run(tt.method.String(), func(t *testing.T) {
			builder := bytepool.NewBuilder()
			encoded, err := Compress(tt.method, tt.data, builder)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}

			// Trailing bytes after the stored form belong to the
			// next entry and must not be consumed.
			source := &countingSource{reader: bytes.NewReader(append(append([]byte(nil), encoded...), "NEXT"...))}
			stream, err := NewReader(tt.method, source, int64(len(encoded)), int64(len(tt.data)), builder.Pool())
			if err != nil {
				t.Fatalf("NewReader failed: %v", err)
			}
			if source.reads != 0 {
				t.Errorf("NewReader read from the source before the first Read")
			}

			decoded, err := io.ReadAll(stream)
			if err != nil {
				t.Fatalf("ReadAll failed: %v", err)
			}
			if !bytes.Equal(decoded, tt.data) {
				t.Fatal("stream produced different bytes")
			}
			if err := stream.Close(); err != nil {
				t.Errorf("Close failed: %v", err)
			}
			if _, err := stream.Read(make([]byte, 1)); err == nil && tt.method != None {
				t.Error("Read after Close succeeded")
			}
		})
	}
}

func TestNewReaderSizeMismatch(t *testing.T) {
	text := bytes.Repeat([]byte("0123456789"), 100)
	generic, err := Compress(Generic, text, nil)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	if _, err := NewReader(None, bytes.NewReader(text), 10, 11, nil); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("NewReader(None, stored != size) error = %v, want ErrSizeMismatch", err)
	}
	if _, err := NewReader(Structural, bytes.NewReader(text), 10, 10, nil); !errors.Is(err, ErrNoPool) {
		t.Errorf("NewReader(Structural, nil pool) error = %v, want ErrNoPool", err)
	}
	if _, err := NewReader(Method(99), bytes.NewReader(text), 10, 10, nil); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("NewReader(unknown) error = %v, want ErrUnknownMethod", err)
	}

	stream, err := NewReader(Generic, bytes.NewReader(generic), int64(len(generic)), int64(len(text)-5), nil)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer stream.Close()
	if _, err := io.ReadAll(stream); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("reading an oversized stream: error = %v, want ErrSizeMismatch", err)
	}

	// A None entry whose source ends early.
	stream, err = NewReader(None, bytes.NewReader(text[:5]), 10, 10, nil)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if _, err := io.ReadAll(stream); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("reading a short stored stream: error = %v, want ErrSizeMismatch", err)
	}
}
