// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed provides age encryption and decryption for StageGate
// secrets, primarily the Redis connection password referenced by the
// config file. It wraps filippo.io/age for the specific operations
// StageGate needs: generate x25519 keypairs, encrypt to multiple
// recipients, parse identity files, and decrypt files produced by the
// age CLI in either binary or armored form.
//
// Ciphertext from [Encrypt] is ASCII-armored, interchangeable with
// `age -a` output; [DecryptFile] accepts both that and the raw binary
// form.
//
// Key exports:
//
//   - [GenerateKeypair] -- new age x25519 keypair
//   - [Encrypt] / [Decrypt] -- armored ciphertext to/from recipients
//   - [LoadIdentities] -- parse an age identity file from disk
//   - [DecryptFile] -- decrypt an age-encrypted file (binary or armored)
package sealed
