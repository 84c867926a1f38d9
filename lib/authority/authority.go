// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/hkdf"

	"github.com/caskade-network/caskade/lib/config"
	"github.com/caskade-network/caskade/lib/keystore"
	"github.com/caskade-network/caskade/lib/secret"
)

// HKDF info labels for the authority's two long-term keys.
const (
	verifyingKeyInfo  = "caskade/authority/verifying-key/v1"
	encryptingKeyInfo = "caskade/authority/encrypting-key/v1"
)

// policyKeyContext is the BLAKE3 derive-key context prefix for
// per-label policy keys. The policy label is appended, giving each
// label its own derivation domain.
const policyKeyContext = "caskade.network 2026-01-01 policy-key "

// Authority is the unlocked policy authority. Created once by
// [Unlock]; read-only afterwards. Close zeroizes the master secret at
// shutdown.
type Authority struct {
	master          *secret.Buffer
	signingKey      *ecdsa.PrivateKey
	encryptingKey   *ecdsa.PrivateKey
	federatedOnly   bool
	operatorAccount string
	domains         []string
	middleware      config.Middleware
}

// Unlock authenticates against the configuration's custody boundary
// and returns the unlocked Authority.
//
// Ephemeral configurations need no credential: a fresh master secret
// is generated in memory. Persistent configurations require the
// keystore passphrase; a mismatch surfaces as
// keystore.ErrAuthenticationFailed and the caller terminates the
// process. The passphrase buffer is borrowed, not closed.
func Unlock(configuration *config.Configuration, passphrase *secret.Buffer) (*Authority, error) {
	var master *secret.Buffer
	var err error

	if configuration.Ephemeral() {
		master, err = keystore.Ephemeral()
	} else {
		if passphrase == nil {
			return nil, fmt.Errorf("authority: a passphrase is required to unlock a persistent authority")
		}
		master, err = keystore.Unlock(configuration.KeystorePath(), passphrase)
	}
	if err != nil {
		return nil, err
	}

	auth, err := New(configuration, master)
	if err != nil {
		master.Close()
		return nil, err
	}
	return auth, nil
}

// UnlockWithProver unlocks a persistent authority whose keystore is
// sealed to a hardware-wallet proof instead of a passphrase. The
// prover supplies the unseal credential; a proof from the wrong wallet
// surfaces as keystore.ErrAuthenticationFailed.
func UnlockWithProver(ctx context.Context, configuration *config.Configuration, prover keystore.WalletProver) (*Authority, error) {
	if configuration.Ephemeral() {
		return Unlock(configuration, nil)
	}

	master, err := keystore.UnlockWithProver(ctx, configuration.KeystorePath(), prover)
	if err != nil {
		return nil, err
	}

	auth, err := New(configuration, master)
	if err != nil {
		master.Close()
		return nil, err
	}
	return auth, nil
}

// New constructs an Authority from an already-unlocked master secret.
// The Authority takes ownership of the buffer. A nil or wrong-sized
// master secret is a construction failure — an Authority without its
// secret is never a runtime state.
func New(configuration *config.Configuration, master *secret.Buffer) (*Authority, error) {
	if master == nil {
		return nil, fmt.Errorf("authority: master secret is required")
	}
	if master.Len() != keystore.MasterSecretSize {
		return nil, fmt.Errorf("authority: master secret has length %d, want %d",
			master.Len(), keystore.MasterSecretSize)
	}

	signingKey, err := expandKey(master.Bytes(), verifyingKeyInfo)
	if err != nil {
		return nil, fmt.Errorf("authority: deriving verifying key: %w", err)
	}
	encryptingKey, err := expandKey(master.Bytes(), encryptingKeyInfo)
	if err != nil {
		return nil, fmt.Errorf("authority: deriving encrypting key: %w", err)
	}

	return &Authority{
		master:          master,
		signingKey:      signingKey,
		encryptingKey:   encryptingKey,
		federatedOnly:   configuration.FederatedOnly(),
		operatorAccount: configuration.OperatorAccount(),
		domains:         configuration.Domains(),
		middleware:      configuration.Middleware(),
	}, nil
}

// FederatedOnly reports whether the authority operates without
// blockchain backing. Copied from the configuration at creation.
func (a *Authority) FederatedOnly() bool { return a.federatedOnly }

// OperatorAccount returns the EIP-55 checksum address of the
// operator's chain account, or "" when federated.
func (a *Authority) OperatorAccount() string { return a.operatorAccount }

// Domains returns the network domains the authority serves.
func (a *Authority) Domains() []string {
	domains := make([]string, len(a.domains))
	copy(domains, a.domains)
	return domains
}

// Middleware returns the peer-discovery transport handle injected at
// configuration time. Opaque to this package.
func (a *Authority) Middleware() config.Middleware { return a.middleware }

// VerifyingKey returns the authority's public verifying key as a
// 33-byte compressed secp256k1 point.
func (a *Authority) VerifyingKey() []byte {
	return crypto.CompressPubkey(&a.signingKey.PublicKey)
}

// EncryptingKey returns the authority's public encrypting key as a
// 33-byte compressed secp256k1 point.
func (a *Authority) EncryptingKey() []byte {
	return crypto.CompressPubkey(&a.encryptingKey.PublicKey)
}

// VerifyingKeyHex returns the hex encoding of VerifyingKey, the form
// shown in startup banners and CLI output.
func (a *Authority) VerifyingKeyHex() string {
	return hex.EncodeToString(a.VerifyingKey())
}

// DerivePolicyPublicKey derives the policy public key for a label.
// Deterministic: the same (Authority, label) pair always yields the
// same key. The label must be non-empty; the dispatcher validates this
// before calling.
func (a *Authority) DerivePolicyPublicKey(label string) ([]byte, error) {
	if label == "" {
		return nil, fmt.Errorf("authority: policy label is empty")
	}

	// BLAKE3 derive-key with the label folded into the context gives
	// each label an independent derivation domain. The counter suffix
	// only matters in the astronomically unlikely case the derived
	// scalar is not a valid secp256k1 key.
	for counter := 0; counter < 128; counter++ {
		var scalar [32]byte
		context := fmt.Sprintf("%s%s/%d", policyKeyContext, label, counter)
		blake3.DeriveKey(context, a.master.Bytes(), scalar[:])

		policyKey, err := crypto.ToECDSA(scalar[:])
		secret.Zero(scalar[:])
		if err != nil {
			continue
		}
		return crypto.CompressPubkey(&policyKey.PublicKey), nil
	}
	return nil, fmt.Errorf("authority: could not derive a valid policy key for label %q", label)
}

// Close zeroizes the master secret and drops the derived private keys.
// The Authority must not be used afterwards.
func (a *Authority) Close() error {
	a.signingKey = nil
	a.encryptingKey = nil
	if a.master != nil {
		err := a.master.Close()
		a.master = nil
		return err
	}
	return nil
}

// expandKey derives a secp256k1 private key from the master secret via
// HKDF-SHA256 under the given info label. Reads candidate scalars from
// the HKDF stream until one is a valid key; in practice the first read
// succeeds.
func expandKey(master []byte, info string) (*ecdsa.PrivateKey, error) {
	stream := hkdf.New(sha256.New, master, nil, []byte(info))
	for attempt := 0; attempt < 128; attempt++ {
		var scalar [32]byte
		if _, err := io.ReadFull(stream, scalar[:]); err != nil {
			return nil, fmt.Errorf("reading HKDF stream: %w", err)
		}
		key, err := crypto.ToECDSA(scalar[:])
		secret.Zero(scalar[:])
		if err != nil {
			continue
		}
		return key, nil
	}
	return nil, fmt.Errorf("no valid scalar in %d HKDF reads", 128)
}
