// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

// Request is the closed set of control-plane operations. Variants
// carry wire-level field values; the dispatcher owns all validation
// and typing, so transports stay dumb decoders.
type Request interface {
	// Action is the wire name of the operation.
	Action() string

	isRequest()
}

// PublicKeysRequest asks for the authority's long-term public keys.
// Read-only; carries no fields.
type PublicKeysRequest struct{}

func (PublicKeysRequest) Action() string { return "public_keys" }
func (PublicKeysRequest) isRequest()     {}

// DerivePolicyKeyRequest asks for the policy public key of a label.
// Read-only and deterministic.
type DerivePolicyKeyRequest struct {
	Label string `json:"label" cbor:"label"`
}

func (DerivePolicyKeyRequest) Action() string { return "derive_policy_encrypting_key" }
func (DerivePolicyKeyRequest) isRequest()     {}

// GrantRequest issues an access policy to a recipient. Expiration is
// RFC 3339; Value and Rate are decimal wei strings and are only legal
// when the authority is chain-backed.
type GrantRequest struct {
	BobEncryptingKey string `json:"bob_encrypting_key" cbor:"bob_encrypting_key"`
	BobVerifyingKey  string `json:"bob_verifying_key" cbor:"bob_verifying_key"`
	Label            string `json:"label" cbor:"label"`
	M                int    `json:"m" cbor:"m"`
	N                int    `json:"n" cbor:"n"`
	Expiration       string `json:"expiration" cbor:"expiration"`
	Value            string `json:"value,omitempty" cbor:"value,omitempty"`
	Rate             string `json:"rate,omitempty" cbor:"rate,omitempty"`
}

func (GrantRequest) Action() string { return "grant" }
func (GrantRequest) isRequest()     {}

// RevokeRequest withdraws a previously granted policy.
type RevokeRequest struct {
	Label           string `json:"label" cbor:"label"`
	BobVerifyingKey string `json:"bob_verifying_key" cbor:"bob_verifying_key"`
}

func (RevokeRequest) Action() string { return "revoke" }
func (RevokeRequest) isRequest()     {}

// DecryptRequest decrypts a message kit under a policy label the
// authority itself owns. MessageKit is the base64 CBOR envelope.
type DecryptRequest struct {
	Label      string `json:"label" cbor:"label"`
	MessageKit string `json:"message_kit" cbor:"message_kit"`
}

func (DecryptRequest) Action() string { return "decrypt" }
func (DecryptRequest) isRequest()     {}

// PublicKey is a validated 33-byte compressed secp256k1 point.
type PublicKey []byte

// ParsePublicKey decodes and validates a hex-encoded compressed
// secp256k1 public key.
func ParsePublicKey(encoded string) (PublicKey, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("not hex: %v", err)
	}
	if len(raw) != 33 {
		return nil, fmt.Errorf("compressed point is %d bytes, want 33", len(raw))
	}
	if _, err := crypto.DecompressPubkey(raw); err != nil {
		return nil, fmt.Errorf("not a point on secp256k1: %v", err)
	}
	return PublicKey(raw), nil
}

// Hex returns the lowercase hex encoding used on the wire.
func (k PublicKey) Hex() string { return hex.EncodeToString(k) }

// Wei is a non-negative payment amount in wei. It round-trips as a
// decimal string in both JSON and CBOR.
type Wei struct {
	value big.Int
}

// ParseWei parses a decimal wei string. Negative amounts and
// non-decimal input are rejected.
func ParseWei(amount string) (*Wei, error) {
	var value big.Int
	if _, ok := value.SetString(amount, 10); !ok {
		return nil, fmt.Errorf("not a decimal integer: %q", amount)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %q", amount)
	}
	return &Wei{value: value}, nil
}

func (w *Wei) String() string { return w.value.String() }

func (w *Wei) MarshalText() ([]byte, error) {
	return []byte(w.value.String()), nil
}

func (w *Wei) UnmarshalText(text []byte) error {
	parsed, err := ParseWei(string(text))
	if err != nil {
		return err
	}
	w.value = parsed.value
	return nil
}

// GrantTerms is a fully validated grant, the only form the crypto
// service ever sees. Value and Rate are nil in federated mode.
type GrantTerms struct {
	BobEncryptingKey PublicKey
	BobVerifyingKey  PublicKey
	Label            string
	M                int
	N                int
	Expiration       time.Time
	Value            *Wei
	Rate             *Wei
}

// Revocation is a validated revoke request.
type Revocation struct {
	Label           string
	BobVerifyingKey PublicKey
}

// DecryptionRequest is a validated decrypt request: the label plus the
// already-parsed message kit.
type DecryptionRequest struct {
	Label      string
	MessageKit *MessageKit
}
