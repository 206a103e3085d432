// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// Keypair holds an age x25519 keypair. The private key must never be
// logged or included in CLI arguments; the public key is safe to
// publish.
type Keypair struct {
	// PrivateKey is the secret key in AGE-SECRET-KEY-1... format.
	PrivateKey string

	// PublicKey is the corresponding public key in age1... format.
	PublicKey string
}

// GenerateKeypair generates a new age x25519 keypair.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age keypair: %w", err)
	}
	return &Keypair{
		PrivateKey: identity.String(),
		PublicKey:  identity.Recipient().String(),
	}, nil
}

// Encrypt encrypts plaintext to one or more recipients specified by
// their age public key strings (age1... format). Returns the
// ciphertext in age's ASCII armor format, the same text `age -a`
// writes, so it can go straight into the file a password_file setting
// points at.
//
// At least one recipient is required. Encrypting to both the service
// key and an operator escrow key keeps the secret recoverable.
func Encrypt(plaintext []byte, recipientKeys []string) (string, error) {
	if len(recipientKeys) == 0 {
		return "", fmt.Errorf("at least one recipient is required")
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return "", fmt.Errorf("parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var ciphertextBuffer bytes.Buffer
	armorWriter := armor.NewWriter(&ciphertextBuffer)
	writer, err := age.Encrypt(armorWriter, recipients...)
	if err != nil {
		return "", fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return "", fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalizing age encryption: %w", err)
	}
	if err := armorWriter.Close(); err != nil {
		return "", fmt.Errorf("finalizing armor: %w", err)
	}

	return ciphertextBuffer.String(), nil
}

// Decrypt decrypts an armored ciphertext string with any of the given
// identities. Surrounding whitespace is tolerated.
func Decrypt(ciphertext string, identities []age.Identity) ([]byte, error) {
	reader := armor.NewReader(strings.NewReader(strings.TrimSpace(ciphertext)))
	return decrypt(reader, identities)
}

// LoadIdentities reads an age identity file from disk and parses it.
// The format is the one `age-keygen` writes: one AGE-SECRET-KEY-1...
// line per identity, with # comment lines allowed.
func LoadIdentities(path string) ([]age.Identity, error) {
	if path == "" {
		return nil, fmt.Errorf("no identity file configured")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening identity file: %w", err)
	}
	defer file.Close()

	identities, err := age.ParseIdentities(file)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return identities, nil
}

// DecryptFile reads and decrypts an age-encrypted file. Both output
// forms of the age CLI are accepted: raw binary and ASCII armor
// (`age -a`). Trailing whitespace around armored content is
// tolerated.
func DecryptFile(path string, identities []age.Identity) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var reader io.Reader = bytes.NewReader(data)
	if strings.HasPrefix(strings.TrimSpace(string(data)), armor.Header) {
		reader = armor.NewReader(bytes.NewReader(bytes.TrimSpace(data)))
	}

	plaintext, err := decrypt(reader, identities)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return plaintext, nil
}

func decrypt(ciphertext io.Reader, identities []age.Identity) ([]byte, error) {
	if len(identities) == 0 {
		return nil, fmt.Errorf("at least one identity is required")
	}

	reader, err := age.Decrypt(ciphertext, identities...)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted plaintext: %w", err)
	}
	return plaintext, nil
}

// ParsePublicKey validates an age public key string. Useful for
// validating operator-supplied recipients before encrypting to them.
func ParsePublicKey(publicKey string) error {
	_, err := age.ParseX25519Recipient(publicKey)
	if err != nil {
		return fmt.Errorf("invalid age public key: %w", err)
	}
	return nil
}
