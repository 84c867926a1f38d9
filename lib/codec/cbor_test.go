// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

func TestMarshal_Deterministic(t *testing.T) {
	value := map[string]any{
		"label":  "secrets/research",
		"m":      2,
		"n":      3,
		"action": "grant",
	}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	second, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("Marshal() produced different bytes for the same value:\n%x\n%x", first, second)
	}
}

func TestUnmarshal_IgnoresUnknownFields(t *testing.T) {
	encoded, err := Marshal(map[string]any{
		"label":   "secrets/research",
		"unknown": "future field",
	})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var decoded struct {
		Label string `cbor:"label"`
	}
	if err := Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if decoded.Label != "secrets/research" {
		t.Errorf("Label = %q, want %q", decoded.Label, "secrets/research")
	}
}

func TestUnmarshal_AnyTargetUsesStringKeys(t *testing.T) {
	encoded, err := Marshal(map[string]any{"key": "value"})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var decoded any
	if err := Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if _, ok := decoded.(map[string]any); !ok {
		t.Errorf("decoded type = %T, want map[string]any", decoded)
	}
}

func TestEncoderDecoder_Stream(t *testing.T) {
	var stream bytes.Buffer

	type envelope struct {
		Action string `cbor:"action"`
		Label  string `cbor:"label"`
	}
	sent := envelope{Action: "derive-policy-pubkey", Label: "secrets/research"}

	if err := NewEncoder(&stream).Encode(sent); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	var received envelope
	if err := NewDecoder(&stream).Decode(&received); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if received != sent {
		t.Errorf("round trip = %+v, want %+v", received, sent)
	}
}
