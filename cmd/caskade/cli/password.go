// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/caskade-network/caskade/lib/secret"
)

// ReadPassphrase obtains a keystore passphrase. If passwordFile is a
// path, the file's contents are used (trailing newlines stripped). If
// passwordFile is empty or "-", the operator is prompted on the
// terminal with echo disabled. With confirm set, the interactive
// prompt asks twice and requires both entries to match, which is what
// keystore creation wants.
func ReadPassphrase(passwordFile string, confirm bool) (*secret.Buffer, error) {
	if passwordFile != "" && passwordFile != "-" {
		return readSecretFile(passwordFile)
	}

	stdinFileDescriptor := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFileDescriptor) {
		return nil, Validation("no terminal available for interactive password prompt (use --password-file)")
	}

	first, err := promptPassword(stdinFileDescriptor, "Enter keystore password: ")
	if err != nil {
		return nil, err
	}
	if !confirm {
		return first, nil
	}

	second, err := promptPassword(stdinFileDescriptor, "Confirm keystore password: ")
	if err != nil {
		first.Close()
		return nil, err
	}
	defer second.Close()

	if !first.Equal(second.Bytes()) {
		first.Close()
		return nil, Validation("passwords do not match")
	}
	return first, nil
}

func promptPassword(fd int, prompt string) (*secret.Buffer, error) {
	fmt.Fprint(os.Stderr, prompt)
	passwordBytes, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, Internal("reading password: %w", err)
	}

	buffer, err := secret.NewFromBytes(passwordBytes)
	if err != nil {
		secret.Zero(passwordBytes)
		return nil, err
	}
	return buffer, nil
}

// readSecretFile reads a secret from a file path into a secret.Buffer.
// Strips trailing newlines (common with echo/printf pipelines).
func readSecretFile(path string) (*secret.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Internal("reading %s: %w", path, err)
	}

	for len(data) > 0 && (data[len(data)-1] == '\n' || data[len(data)-1] == '\r') {
		data = data[:len(data)-1]
	}

	if len(data) == 0 {
		secret.Zero(data)
		return nil, Validation("file %s is empty (after stripping trailing newlines)", path)
	}

	buffer, err := secret.NewFromBytes(data)
	if err != nil {
		secret.Zero(data)
		return nil, err
	}
	return buffer, nil
}
