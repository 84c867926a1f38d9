// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"encoding/base64"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/caskade-network/caskade/lib/codec"
)

// CapsuleSize is the wire size of a re-encryption capsule: two
// compressed secp256k1 points plus one 32-byte scalar.
const CapsuleSize = 98

// MessageKit is the sealed payload a recipient submits for decryption:
// the KEM capsule, the symmetric ciphertext, and the sender's
// compressed verifying key. Transported as base64 over deterministic
// CBOR.
type MessageKit struct {
	Capsule            []byte `cbor:"capsule"`
	Ciphertext         []byte `cbor:"ciphertext"`
	SenderVerifyingKey []byte `cbor:"sender_verifying_key"`
}

// ParseMessageKit decodes and validates a base64 message kit. All
// failures are local validation failures; nothing external is
// consulted.
func ParseMessageKit(encoded string) (*MessageKit, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("not base64: %v", err)
	}

	var kit MessageKit
	if err := codec.Unmarshal(raw, &kit); err != nil {
		return nil, fmt.Errorf("not a message kit envelope: %v", err)
	}

	if len(kit.Capsule) != CapsuleSize {
		return nil, fmt.Errorf("capsule is %d bytes, want %d", len(kit.Capsule), CapsuleSize)
	}
	if len(kit.Ciphertext) == 0 {
		return nil, fmt.Errorf("ciphertext is empty")
	}
	if _, err := crypto.DecompressPubkey(kit.SenderVerifyingKey); err != nil {
		return nil, fmt.Errorf("sender verifying key: %v", err)
	}
	return &kit, nil
}

// Encode serializes the kit back to its base64 wire form.
func (kit *MessageKit) Encode() (string, error) {
	raw, err := codec.Marshal(kit)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
