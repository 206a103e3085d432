// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filippo.io/age"
	"filippo.io/age/armor"
)

func TestGenerateKeypair(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}

	if !strings.HasPrefix(keypair.PrivateKey, "AGE-SECRET-KEY-1") {
		t.Errorf("PrivateKey = %q, want prefix AGE-SECRET-KEY-1", keypair.PrivateKey)
	}
	if !strings.HasPrefix(keypair.PublicKey, "age1") {
		t.Errorf("PublicKey = %q, want prefix age1", keypair.PublicKey)
	}

	other, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	if keypair.PrivateKey == other.PrivateKey {
		t.Error("two generated keypairs have identical private keys")
	}
}

func writeIdentityFile(t *testing.T, keypair *Keypair) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "identity.txt")
	content := "# created for tests\n" + keypair.PrivateKey + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}

	plaintext := []byte("redis-password-7f2a")
	ciphertext, err := Encrypt(plaintext, []string{keypair.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	if !strings.HasPrefix(ciphertext, armor.Header) {
		t.Errorf("Encrypt() output does not start with %q:\n%s", armor.Header, ciphertext)
	}

	identities, err := LoadIdentities(writeIdentityFile(t, keypair))
	if err != nil {
		t.Fatal(err)
	}
	decrypted, err := Decrypt(ciphertext, identities)
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("decrypted = %q, want %q", decrypted, plaintext)
	}

	// Encrypt output written to disk is a valid age file.
	path := filepath.Join(t.TempDir(), "secret.age")
	if err := os.WriteFile(path, []byte(ciphertext), 0o600); err != nil {
		t.Fatal(err)
	}
	fromFile, err := DecryptFile(path, identities)
	if err != nil {
		t.Fatalf("DecryptFile() on Encrypt output: %v", err)
	}
	if !bytes.Equal(fromFile, plaintext) {
		t.Errorf("DecryptFile = %q, want %q", fromFile, plaintext)
	}
}

func TestEncryptRequiresRecipient(t *testing.T) {
	if _, err := Encrypt([]byte("x"), nil); err == nil {
		t.Error("expected error for zero recipients")
	}
	if _, err := Encrypt([]byte("x"), []string{"not-a-key"}); err == nil {
		t.Error("expected error for malformed recipient")
	}
}

func TestDecryptWrongIdentity(t *testing.T) {
	owner, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	stranger, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}

	ciphertext, err := Encrypt([]byte("secret"), []string{owner.PublicKey})
	if err != nil {
		t.Fatal(err)
	}

	identities, err := LoadIdentities(writeIdentityFile(t, stranger))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decrypt(ciphertext, identities); err == nil {
		t.Error("decryption with the wrong identity succeeded")
	}
}

func TestDecryptFileBinary(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	recipient, err := age.ParseX25519Recipient(keypair.PublicKey)
	if err != nil {
		t.Fatal(err)
	}

	// Write a raw binary age file the way `age -o` does.
	var raw bytes.Buffer
	writer, err := age.Encrypt(&raw, recipient)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := writer.Write([]byte("binary-password")); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "password.age")
	if err := os.WriteFile(path, raw.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	identities, err := LoadIdentities(writeIdentityFile(t, keypair))
	if err != nil {
		t.Fatal(err)
	}
	plaintext, err := DecryptFile(path, identities)
	if err != nil {
		t.Fatal(err)
	}
	if string(plaintext) != "binary-password" {
		t.Errorf("plaintext = %q", plaintext)
	}
}

func TestDecryptFileArmored(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	recipient, err := age.ParseX25519Recipient(keypair.PublicKey)
	if err != nil {
		t.Fatal(err)
	}

	// Write an armored age file the way `age -a -o` does, plus a
	// trailing newline as editors tend to add.
	var raw bytes.Buffer
	armorWriter := armor.NewWriter(&raw)
	writer, err := age.Encrypt(armorWriter, recipient)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := writer.Write([]byte("armored-password")); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	if err := armorWriter.Close(); err != nil {
		t.Fatal(err)
	}
	raw.WriteString("\n")
	path := filepath.Join(t.TempDir(), "password.age")
	if err := os.WriteFile(path, raw.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	identities, err := LoadIdentities(writeIdentityFile(t, keypair))
	if err != nil {
		t.Fatal(err)
	}
	plaintext, err := DecryptFile(path, identities)
	if err != nil {
		t.Fatal(err)
	}
	if string(plaintext) != "armored-password" {
		t.Errorf("plaintext = %q", plaintext)
	}
}

func TestLoadIdentitiesErrors(t *testing.T) {
	if _, err := LoadIdentities(""); err == nil {
		t.Error("expected error for empty path")
	}
	if _, err := LoadIdentities(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "garbage.txt")
	if err := os.WriteFile(path, []byte("not an identity\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadIdentities(path); err == nil {
		t.Error("expected error for malformed identity file")
	}
}

func TestParsePublicKey(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	if err := ParsePublicKey(keypair.PublicKey); err != nil {
		t.Errorf("valid key rejected: %v", err)
	}
	if err := ParsePublicKey("age1notakey"); err == nil {
		t.Error("invalid key accepted")
	}
}
