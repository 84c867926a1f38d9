// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import "context"

// Service is the policy enactment boundary: the re-encryption crypto
// service that splits keys into fragments, places them with nodes, and
// performs threshold decryption. Everything crossing this interface
// has already been validated by the dispatcher.
//
// Errors returned here are collaborator failures; the dispatcher wraps
// them in [OperationError] without altering the underlying error.
type Service interface {
	// Grant enacts a policy and returns the enactment receipt.
	Grant(ctx context.Context, terms GrantTerms) (GrantReceipt, error)

	// Revoke withdraws a policy. Revoking an already-revoked policy is
	// acknowledged, not an error.
	Revoke(ctx context.Context, revocation Revocation) error

	// Decrypt recovers the cleartext of a message kit under a label
	// the authority owns.
	Decrypt(ctx context.Context, request DecryptionRequest) ([]byte, error)
}

// GrantReceipt is the enactment record produced by the crypto service.
// The dispatcher returns it to the caller unmodified; field meaning is
// the service's contract with its operators, not ours.
type GrantReceipt map[string]any
