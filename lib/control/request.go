// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"fmt"

	"github.com/caskade-network/caskade/lib/policy"
)

// decodeRequest maps a wire action name to its typed request and fills
// it via the transport's decoder. Both transports share this table, so
// the action vocabulary cannot drift between them.
func decodeRequest(action string, decode func(any) error) (policy.Request, error) {
	switch action {
	case policy.PublicKeysRequest{}.Action():
		return policy.PublicKeysRequest{}, nil
	case policy.DerivePolicyKeyRequest{}.Action():
		var request policy.DerivePolicyKeyRequest
		if err := decode(&request); err != nil {
			return nil, fmt.Errorf("decoding %s request: %w", action, err)
		}
		return &request, nil
	case policy.GrantRequest{}.Action():
		var request policy.GrantRequest
		if err := decode(&request); err != nil {
			return nil, fmt.Errorf("decoding %s request: %w", action, err)
		}
		return &request, nil
	case policy.RevokeRequest{}.Action():
		var request policy.RevokeRequest
		if err := decode(&request); err != nil {
			return nil, fmt.Errorf("decoding %s request: %w", action, err)
		}
		return &request, nil
	case policy.DecryptRequest{}.Action():
		var request policy.DecryptRequest
		if err := decode(&request); err != nil {
			return nil, fmt.Errorf("decoding %s request: %w", action, err)
		}
		return &request, nil
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}
}
