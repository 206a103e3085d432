// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"encoding/hex"
	"time"

	"github.com/zeebo/blake3"

	"github.com/stagegate-io/stagegate/lib/codec"
)

// entryDomainKey is the BLAKE3 key for audit entry digests. A fixed
// constant; changing it invalidates every digest already stored. The
// byte values are the ASCII encoding of the domain name, zero-padded
// to 32 bytes, so the key stays readable in hex dumps without
// weakening keyed mode.
var entryDomainKey = [32]byte{
	's', 't', 'a', 'g', 'e', 'g', 'a', 't', 'e', '.', 'a', 'u', 'd', 'i', 't', '.',
	'e', 'n', 't', 'r', 'y', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// digestInput mirrors Entry minus Digest. The timestamp is encoded
// as an RFC 3339 string so the digest input never depends on CBOR
// time representation details.
type digestInput struct {
	Kind       string `cbor:"kind"`
	TaskID     string `cbor:"task_id"`
	RequestID  string `cbor:"request_id"`
	DecisionID string `cbor:"decision_id"`
	GateType   string `cbor:"gate_type"`
	Actor      string `cbor:"actor"`
	Outcome    string `cbor:"outcome"`
	Reason     string `cbor:"reason"`
	Timestamp  string `cbor:"timestamp"`
}

// digestEntry computes the hex keyed-BLAKE3 digest of an entry's
// canonical encoding, excluding the Digest field itself.
func digestEntry(entry *Entry) (string, error) {
	encoded, err := codec.Marshal(digestInput{
		Kind:       string(entry.Kind),
		TaskID:     entry.TaskID,
		RequestID:  entry.RequestID,
		DecisionID: entry.DecisionID,
		GateType:   entry.GateType,
		Actor:      entry.Actor,
		Outcome:    entry.Outcome,
		Reason:     entry.Reason,
		Timestamp:  entry.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", err
	}

	// NewKeyed only fails for a wrong key length, which the fixed
	// array rules out.
	hasher, err := blake3.NewKeyed(entryDomainKey[:])
	if err != nil {
		panic("audit: keyed hasher: " + err.Error())
	}
	hasher.Write(encoded)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
