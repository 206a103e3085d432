// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package evidence

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte BLAKE3 digest. Item content hashes and bundle
// manifest digests are this size.
type Hash [32]byte

// domainKey is a 32-byte key for BLAKE3 keyed hashing. Domain
// separation ensures the same input bytes produce different hashes in
// different contexts, preventing cross-domain collisions.
type domainKey [32]byte

// Domain separation keys. Fixed constants; changing them invalidates
// every existing digest in that domain. The byte values are the ASCII
// encoding of the domain name, zero-padded to 32 bytes, so the keys
// stay readable in hex dumps without weakening keyed mode.
var (
	itemDomainKey = domainKey{
		's', 't', 'a', 'g', 'e', 'g', 'a', 't', 'e', '.', 'e', 'v', 'i', 'd', 'e', 'n',
		'c', 'e', '.', 'i', 't', 'e', 'm', 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	bundleDomainKey = domainKey{
		's', 't', 'a', 'g', 'e', 'g', 'a', 't', 'e', '.', 'e', 'v', 'i', 'd', 'e', 'n',
		'c', 'e', '.', 'b', 'u', 'n', 'd', 'l', 'e', 0, 0, 0, 0, 0, 0, 0,
	}
)

// HashContent computes the item-domain keyed hash of raw content
// bytes. This is the digest stored on every evidence item, pinning
// the exact artifact a reviewer approved.
func HashContent(content []byte) Hash {
	return keyedHash(itemDomainKey, content)
}

// hashManifest computes the bundle-domain keyed hash of a canonical
// manifest encoding. The digest is a content address: two bundles
// with identical task, gate type, git ref, summary, and ordered items
// share it regardless of id or creation time.
func hashManifest(encoded []byte) Hash {
	return keyedHash(bundleDomainKey, encoded)
}

// FormatHash returns the hex encoding of a hash. This is the
// canonical format in stored records, events, and CLI output.
func FormatHash(hash Hash) string {
	return hex.EncodeToString(hash[:])
}

// ParseHash parses a 64-character hex string into a Hash.
func ParseHash(hexString string) (Hash, error) {
	var hash Hash
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return hash, fmt.Errorf("evidence: parsing hash: %w", err)
	}
	if len(decoded) != 32 {
		return hash, fmt.Errorf("evidence: hash is %d bytes, want 32", len(decoded))
	}
	copy(hash[:], decoded)
	return hash, nil
}

// keyedHash computes the BLAKE3 keyed hash with the given domain key.
func keyedHash(key domainKey, data []byte) Hash {
	// NewKeyed only fails for a wrong key length, which the
	// fixed-size domainKey type rules out.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("evidence: keyed hasher: " + err.Error())
	}
	hasher.Write(data)
	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash
}
