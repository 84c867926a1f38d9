// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package chain

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/zeebo/blake3"

	"github.com/caskade-network/caskade/lib/secret"
)

// walletChallenge is the fixed message the operator's wallet signs to
// prove key custody. The challenge is public; the signature over it is
// not. It never leaves the host and the keystore unseal secret is
// derived from it.
const walletChallenge = "caskade authority keystore unseal v1"

// unsealContext is the BLAKE3 derive-key context for turning the
// wallet signature into the keystore unseal secret.
const unsealContext = "caskade.network 2026-01-01 keystore-unseal"

// WalletProver obtains the keystore unseal secret from the wallet
// managed by the operator's chain provider. The provider asks the
// wallet (a hardware device, or the node's own signer) to sign a fixed
// challenge for the operator account; the unseal secret is derived
// from the signature.
//
// The signature must be deterministic for the same key and message,
// which RFC 6979 signers provide. A wallet that randomizes nonces
// would produce a different secret on every unlock and could never
// reopen its own keystore.
type WalletProver struct {
	ProviderURI string
	Account     string
}

// UnsealSecret requests the wallet proof and derives the unseal
// secret. Every failure here is a provider or device failure, not an
// authentication failure: a wrong wallet produces a well-formed proof
// that simply fails to decrypt the keystore.
func (p *WalletProver) UnsealSecret(ctx context.Context) (*secret.Buffer, error) {
	client, err := rpc.DialContext(ctx, p.ProviderURI)
	if err != nil {
		return nil, fmt.Errorf("connecting to provider %s: %w", p.ProviderURI, err)
	}
	defer client.Close()

	var signature hexutil.Bytes
	err = client.CallContext(ctx, &signature, "personal_sign",
		hexutil.Bytes([]byte(walletChallenge)), common.HexToAddress(p.Account))
	if err != nil {
		return nil, fmt.Errorf("requesting wallet proof for %s: %w", p.Account, err)
	}
	if len(signature) != 65 {
		return nil, fmt.Errorf("wallet proof is %d bytes, want 65", len(signature))
	}

	var key [32]byte
	blake3.DeriveKey(unsealContext, signature, key[:])
	secret.Zero(signature)

	// Hex form: the keystore treats the unseal secret as a passphrase
	// string. NewFromBytes zeros encoded.
	encoded := make([]byte, hex.EncodedLen(len(key)))
	hex.Encode(encoded, key[:])
	secret.Zero(key[:])

	buffer, err := secret.NewFromBytes(encoded)
	if err != nil {
		return nil, fmt.Errorf("protecting unseal secret: %w", err)
	}
	return buffer, nil
}
