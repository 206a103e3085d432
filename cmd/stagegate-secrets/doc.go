// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

// Stagegate-secrets generates age keypairs and seals secrets for the
// configuration file: keygen produces the identity file that
// redis.identity_file points at, seal produces the encrypted password
// file that redis.password_file points at. Ciphertext is
// ASCII-armored and interchangeable with the age CLI's.
// Subcommands: keygen, seal, version.
package main
