// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bytepool

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Digest is the 32-byte BLAKE3 keyed hash used as the deduplication
// key for pool entries.
type Digest [32]byte

// String returns the hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// poolDomainKey separates pool digests from any other BLAKE3 use of the
// same bytes. The value is the ASCII domain name, zero-padded to 32
// bytes. Changing it changes every digest but not the on-disk format,
// since digests are never persisted.
var poolDomainKey = [32]byte{
	't', 'a', 'i', 'l', 'p', 'a', 'c', 'k', '.', 'b', 'y', 't', 'e', 'p', 'o', 'o',
	'l', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// digester wraps a keyed hasher that is reset between uses. It is owned
// by a single Builder and shares its concurrency rules.
type digester struct {
	hasher *blake3.Hasher
}

func newDigester() *digester {
	// NewKeyed only fails for keys that are not 32 bytes long.
	hasher, err := blake3.NewKeyed(poolDomainKey[:])
	if err != nil {
		panic("bytepool: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return &digester{hasher: hasher}
}

func (d *digester) sum(data []byte) Digest {
	d.hasher.Reset()
	d.hasher.Write(data)
	var digest Digest
	d.hasher.Sum(digest[:0])
	return digest
}

// Sum computes the pool digest of data.
func Sum(data []byte) Digest {
	return newDigester().sum(data)
}
