// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Digest is a BLAKE3-256 hash.
type Digest [32]byte

// String returns the hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// HashFile streams the file at path through BLAKE3.
func HashFile(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	digest, err := HashReader(file)
	if err != nil {
		return Digest{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	return digest, nil
}

// HashSection hashes size bytes of r starting at offset. It fails if r
// ends before offset+size.
func HashSection(r io.ReaderAt, offset, size int64) (Digest, error) {
	section := io.NewSectionReader(r, offset, size)
	hasher := blake3.New()
	copied, err := io.Copy(hasher, section)
	if err != nil {
		return Digest{}, err
	}
	if copied != size {
		return Digest{}, fmt.Errorf("section [%d, %d) truncated after %d bytes: %w", offset, offset+size, copied, io.ErrUnexpectedEOF)
	}
	return sum(hasher), nil
}

// HashReader hashes everything r yields.
func HashReader(r io.Reader) (Digest, error) {
	hasher := blake3.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return Digest{}, err
	}
	return sum(hasher), nil
}

// Sum hashes data.
func Sum(data []byte) Digest {
	return Digest(blake3.Sum256(data))
}

func sum(hasher *blake3.Hasher) Digest {
	var digest Digest
	hasher.Sum(digest[:0])
	return digest
}

// ParseDigest parses the 64-character hex form produced by
// [Digest.String].
func ParseDigest(hexString string) (Digest, error) {
	var digest Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return digest, fmt.Errorf("parsing hash digest: %w", err)
	}
	if len(decoded) != len(digest) {
		return digest, fmt.Errorf("hash digest is %d bytes, want %d", len(decoded), len(digest))
	}
	copy(digest[:], decoded)
	return digest, nil
}
