// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func TestParseMessageKit_RoundTrip(t *testing.T) {
	encoded := encodedMessageKit(t)

	kit, err := ParseMessageKit(encoded)
	if err != nil {
		t.Fatalf("ParseMessageKit() error: %v", err)
	}
	if len(kit.Capsule) != CapsuleSize {
		t.Errorf("Capsule length = %d, want %d", len(kit.Capsule), CapsuleSize)
	}
	if !bytes.Equal(kit.Ciphertext, []byte("sealed payload")) {
		t.Errorf("Ciphertext = %q, want %q", kit.Ciphertext, "sealed payload")
	}
}

func TestParseMessageKit_Rejects(t *testing.T) {
	sender, err := ParsePublicKey(testKeyHex(t, 0x33))
	if err != nil {
		t.Fatalf("ParsePublicKey() error: %v", err)
	}

	encode := func(kit *MessageKit) string {
		encoded, err := kit.Encode()
		if err != nil {
			t.Fatalf("Encode() error: %v", err)
		}
		return encoded
	}

	cases := []struct {
		name    string
		encoded string
	}{
		{"not base64", "!!!"},
		{"not cbor", base64.StdEncoding.EncodeToString([]byte("junk"))},
		{"short capsule", encode(&MessageKit{
			Capsule:            make([]byte, 10),
			Ciphertext:         []byte("x"),
			SenderVerifyingKey: sender,
		})},
		{"empty ciphertext", encode(&MessageKit{
			Capsule:            make([]byte, CapsuleSize),
			SenderVerifyingKey: sender,
		})},
		{"bad sender key", encode(&MessageKit{
			Capsule:            make([]byte, CapsuleSize),
			Ciphertext:         []byte("x"),
			SenderVerifyingKey: make([]byte, 33),
		})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseMessageKit(tc.encoded); err == nil {
				t.Error("ParseMessageKit() accepted a malformed kit")
			}
		})
	}
}
