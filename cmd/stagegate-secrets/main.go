// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/stagegate-io/stagegate/lib/sealed"
	"github.com/stagegate-io/stagegate/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		printUsage()
		return fmt.Errorf("subcommand required")
	}

	switch args[0] {
	case "keygen":
		return runKeygen(args[1:])
	case "seal":
		return runSeal(args[1:])
	case "version":
		fmt.Printf("stagegate-secrets %s\n", version.Info())
		return nil
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %q", args[0])
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: stagegate-secrets <subcommand> [flags]

Subcommands:
  keygen      Generate an age keypair for sealing secrets
  seal        Encrypt a secret to one or more age public keys
  version     Print version information

A typical setup seals the Redis password to the service key and
points the config file at the results:

  stagegate-secrets keygen --identity /etc/stagegate/identity.txt
  echo -n "$PASSWORD" | stagegate-secrets seal \
      --recipient age1... --out /etc/stagegate/redis.age

Run 'stagegate-secrets <subcommand> --help' for subcommand flags.
`)
}

// runKeygen generates an age keypair. The public key goes to stdout;
// the private key goes to the --identity file, or to stderr when no
// file is given.
func runKeygen(args []string) error {
	flags := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
	identityPath := flags.String("identity", "", "write the private key to this file (mode 0600) instead of stderr")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		return err
	}

	if *identityPath != "" {
		// Same layout age-keygen writes; LoadIdentities skips the
		// comment lines.
		content := fmt.Sprintf("# created: %s\n# public key: %s\n%s\n",
			time.Now().Format(time.RFC3339), keypair.PublicKey, keypair.PrivateKey)
		if err := os.WriteFile(*identityPath, []byte(content), 0o600); err != nil {
			return fmt.Errorf("writing identity file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "private key written to %s\n", *identityPath)
	} else {
		fmt.Fprintf(os.Stderr, "# Private key (keep this secret, store securely):\n%s\n", keypair.PrivateKey)
	}
	fmt.Println(keypair.PublicKey)
	return nil
}

// runSeal encrypts a secret read from stdin or --in and writes the
// armored ciphertext to stdout or --out.
func runSeal(args []string) error {
	flags := pflag.NewFlagSet("seal", pflag.ContinueOnError)
	recipients := flags.StringArray("recipient", nil, "age public key to encrypt to (repeatable, required)")
	inPath := flags.String("in", "", "read the secret from this file instead of stdin")
	outPath := flags.String("out", "", "write the ciphertext to this file (mode 0600) instead of stdout")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if len(*recipients) == 0 {
		return fmt.Errorf("at least one --recipient is required")
	}
	for i, key := range *recipients {
		if err := sealed.ParsePublicKey(key); err != nil {
			return fmt.Errorf("recipient %d: %w", i+1, err)
		}
	}

	secret, err := readSecret(*inPath)
	if err != nil {
		return err
	}
	if len(secret) == 0 {
		return fmt.Errorf("empty secret (pipe it to stdin or use --in)")
	}

	ciphertext, err := sealed.Encrypt(secret, *recipients)
	if err != nil {
		return err
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, []byte(ciphertext), 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", *outPath, err)
		}
		return nil
	}
	fmt.Print(ciphertext)
	return nil
}

// readSecret reads the secret bytes from path or stdin. One trailing
// newline is stripped: a piped `echo` adds one that is not part of
// the secret.
func readSecret(path string) ([]byte, error) {
	var reader io.Reader = os.Stdin
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening secret file: %w", err)
		}
		defer file.Close()
		reader = file
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading secret: %w", err)
	}
	data = bytes.TrimSuffix(data, []byte("\n"))
	data = bytes.TrimSuffix(data, []byte("\r"))
	return data, nil
}
