// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import "testing"

// The action names are the control-plane wire vocabulary: HTTP routes,
// CBOR action headers, and crypto service calls all key on them.
func TestRequest_WireActions(t *testing.T) {
	actions := map[string]Request{
		"public_keys":                  PublicKeysRequest{},
		"derive_policy_encrypting_key": DerivePolicyKeyRequest{},
		"grant":                        GrantRequest{},
		"revoke":                       RevokeRequest{},
		"decrypt":                      DecryptRequest{},
	}
	for want, request := range actions {
		if got := request.Action(); got != want {
			t.Errorf("%T.Action() = %q, want %q", request, got, want)
		}
	}
}
