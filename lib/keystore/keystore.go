// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package keystore

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"github.com/caskade-network/caskade/lib/secret"
)

// MasterSecretSize is the byte length of an authority master secret.
// All signing, encrypting, and policy keys are derived from it.
const MasterSecretSize = 32

// EnvPassphrase is the environment variable supplying the keystore
// passphrase for machine-readable (IPC) startup. It is honored only in
// that mode; interactive startup always prompts.
const EnvPassphrase = "CASKADE_AUTHORITY_PASSWORD"

// ErrAuthenticationFailed is returned by Unlock when the supplied
// passphrase does not decrypt the sealed master secret. The caller
// terminates the process with a distinguished exit status; there is no
// retry here.
var ErrAuthenticationFailed = errors.New("keystore: authentication failed")

// scryptWorkFactor is the age scrypt work factor for sealing. Lowered
// in tests to keep them fast.
var scryptWorkFactor = 18

// Generate creates a fresh master secret, seals it to path under the
// given passphrase, and returns the unlocked secret. Fails if a sealed
// keystore already exists at path — overwriting key material requires
// an explicit destroy first.
//
// The passphrase buffer is borrowed, not closed.
func Generate(path string, passphrase *secret.Buffer) (*secret.Buffer, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("keystore: refusing to overwrite existing keystore at %s", path)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("keystore: checking %s: %w", path, err)
	}

	master, err := Ephemeral()
	if err != nil {
		return nil, err
	}

	if err := seal(master, path, passphrase); err != nil {
		master.Close()
		return nil, err
	}
	return master, nil
}

// Ephemeral generates a master secret that lives only in memory. Used
// by ephemeral (development) authorities; nothing is written to disk
// and no credential is involved.
func Ephemeral() (*secret.Buffer, error) {
	raw := make([]byte, MasterSecretSize)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("keystore: generating master secret: %w", err)
	}
	// NewFromBytes zeros raw.
	master, err := secret.NewFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("keystore: protecting master secret: %w", err)
	}
	return master, nil
}

// Unlock decrypts the sealed master secret at path with the given
// passphrase. Exactly one attempt is made: any decryption mismatch is
// reported as ErrAuthenticationFailed. A missing or unreadable file is
// an I/O error, not an authentication failure.
//
// The passphrase buffer is borrowed, not closed. The returned master
// secret is exclusively owned by the caller for the remainder of the
// process.
func Unlock(path string, passphrase *secret.Buffer) (*secret.Buffer, error) {
	sealed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keystore: reading %s: %w", path, err)
	}

	identity, err := age.NewScryptIdentity(passphrase.String())
	if err != nil {
		return nil, fmt.Errorf("keystore: preparing identity: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(sealed), identity)
	if err != nil {
		// age reports a passphrase mismatch as "no identity matched";
		// a corrupted header surfaces the same way to the operator.
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	if len(plaintext) != MasterSecretSize {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("keystore: sealed secret has length %d, want %d", len(plaintext), MasterSecretSize)
	}

	master, err := secret.NewFromBytes(plaintext)
	if err != nil {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("keystore: protecting master secret: %w", err)
	}
	return master, nil
}

// WalletProver obtains the keystore unseal secret from an operator-
// controlled wallet. The device or signer interaction happens outside
// this package; here the proof is just another unseal credential.
type WalletProver interface {
	UnsealSecret(ctx context.Context) (*secret.Buffer, error)
}

// GenerateWithProver is Generate for a keystore sealed to a wallet
// proof instead of a passphrase.
func GenerateWithProver(ctx context.Context, path string, prover WalletProver) (*secret.Buffer, error) {
	unseal, err := prover.UnsealSecret(ctx)
	if err != nil {
		return nil, fmt.Errorf("keystore: obtaining wallet proof: %w", err)
	}
	defer unseal.Close()
	return Generate(path, unseal)
}

// UnlockWithProver is Unlock for a wallet-sealed keystore. A proof
// from the wrong wallet fails to decrypt the sealed secret and
// surfaces as ErrAuthenticationFailed, the same as a wrong passphrase.
func UnlockWithProver(ctx context.Context, path string, prover WalletProver) (*secret.Buffer, error) {
	unseal, err := prover.UnsealSecret(ctx)
	if err != nil {
		return nil, fmt.Errorf("keystore: obtaining wallet proof: %w", err)
	}
	defer unseal.Close()
	return Unlock(path, unseal)
}

// EnvPassphraseBuffer reads the passphrase from EnvPassphrase. The
// second return value reports whether the variable is set: absence is
// a typed condition, never treated as an empty passphrase.
func EnvPassphraseBuffer() (*secret.Buffer, bool, error) {
	value, present := os.LookupEnv(EnvPassphrase)
	if !present {
		return nil, false, nil
	}
	if value == "" {
		return nil, true, fmt.Errorf("keystore: %s is set but empty", EnvPassphrase)
	}
	buffer, err := secret.NewFromBytes([]byte(value))
	if err != nil {
		return nil, true, err
	}
	return buffer, true, nil
}

// seal encrypts master under the passphrase and writes it to path with
// owner-only permissions.
func seal(master *secret.Buffer, path string, passphrase *secret.Buffer) error {
	recipient, err := age.NewScryptRecipient(passphrase.String())
	if err != nil {
		return fmt.Errorf("keystore: preparing recipient: %w", err)
	}
	recipient.SetWorkFactor(scryptWorkFactor)

	var sealed bytes.Buffer
	writer, err := age.Encrypt(&sealed, recipient)
	if err != nil {
		return fmt.Errorf("keystore: creating encryptor: %w", err)
	}
	if _, err := writer.Write(master.Bytes()); err != nil {
		return fmt.Errorf("keystore: sealing master secret: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("keystore: finalizing seal: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("keystore: creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, sealed.Bytes(), 0o600); err != nil {
		return fmt.Errorf("keystore: writing %s: %w", path, err)
	}
	return nil
}
