// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/caskade-network/caskade/lib/authority"
)

// Response types returned by Dispatch. Transports serialize them as-is
// (JSON over HTTP, deterministic CBOR over the socket).
type (
	// PublicKeysResponse carries the authority's long-term public keys.
	PublicKeysResponse struct {
		VerifyingKey  string `json:"public_verifying_key" cbor:"public_verifying_key"`
		EncryptingKey string `json:"public_encrypting_key" cbor:"public_encrypting_key"`
	}

	// DerivePolicyKeyResponse carries the per-label policy public key.
	DerivePolicyKeyResponse struct {
		PolicyEncryptingKey string `json:"policy_encrypting_key" cbor:"policy_encrypting_key"`
	}

	// GrantResponse carries the enactment receipt.
	GrantResponse struct {
		Receipt GrantReceipt `json:"receipt" cbor:"receipt"`
	}

	// RevokeResponse acknowledges a revocation.
	RevokeResponse struct {
		Label           string `json:"label" cbor:"label"`
		BobVerifyingKey string `json:"bob_verifying_key" cbor:"bob_verifying_key"`
		Acknowledged    bool   `json:"acknowledged" cbor:"acknowledged"`
	}

	// DecryptResponse carries the recovered cleartext. JSON encodes it
	// base64; CBOR carries raw bytes.
	DecryptResponse struct {
		Cleartext []byte `json:"cleartext" cbor:"cleartext"`
	}
)

// Dispatcher routes validated requests to the authority and the crypto
// service. One dispatcher serves the whole process; transports hand it
// one request at a time.
type Dispatcher struct {
	authority *authority.Authority
	service   Service
	logger    *slog.Logger
}

// NewDispatcher wires the dispatcher. The service may be nil for an
// authority that only answers read-only requests (public keys, policy
// key derivation); grant, revoke, and decrypt then fail with an
// OperationError instead of a crash.
func NewDispatcher(auth *authority.Authority, service Service, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{authority: auth, service: service, logger: logger}
}

// Dispatch validates and executes one request. Validation is complete
// before any external call: a request that returns ValidationError has
// caused no chain transaction, no node placement, no crypto service
// call. Collaborator failures come back as OperationError with the
// underlying error intact.
func (d *Dispatcher) Dispatch(ctx context.Context, request Request) (any, error) {
	start := time.Now()
	result, err := d.dispatch(ctx, request)
	if err != nil {
		d.logger.Warn("request failed",
			"action", request.Action(),
			"duration", time.Since(start),
			"error", err)
		return nil, err
	}
	d.logger.Info("request served",
		"action", request.Action(),
		"duration", time.Since(start))
	return result, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, request Request) (any, error) {
	switch request := request.(type) {
	case PublicKeysRequest, *PublicKeysRequest:
		return d.publicKeys()
	case *DerivePolicyKeyRequest:
		return d.derivePolicyKey(request)
	case *GrantRequest:
		return d.grant(ctx, request)
	case *RevokeRequest:
		return d.revoke(ctx, request)
	case *DecryptRequest:
		return d.decrypt(ctx, request)
	default:
		return nil, fmt.Errorf("unhandled request type %T", request)
	}
}

func (d *Dispatcher) publicKeys() (*PublicKeysResponse, error) {
	return &PublicKeysResponse{
		VerifyingKey:  d.authority.VerifyingKeyHex(),
		EncryptingKey: hex.EncodeToString(d.authority.EncryptingKey()),
	}, nil
}

func (d *Dispatcher) derivePolicyKey(request *DerivePolicyKeyRequest) (*DerivePolicyKeyResponse, error) {
	if request.Label == "" {
		return nil, invalidField("label", "must not be empty")
	}
	key, err := d.authority.DerivePolicyPublicKey(request.Label)
	if err != nil {
		return nil, &OperationError{Op: "derive policy key", Err: err}
	}
	return &DerivePolicyKeyResponse{PolicyEncryptingKey: hex.EncodeToString(key)}, nil
}

func (d *Dispatcher) grant(ctx context.Context, request *GrantRequest) (*GrantResponse, error) {
	terms, err := d.validateGrant(request)
	if err != nil {
		return nil, err
	}

	if d.service == nil {
		return nil, &OperationError{Op: "grant", Err: errServiceUnavailable()}
	}
	receipt, err := d.service.Grant(ctx, *terms)
	if err != nil {
		return nil, &OperationError{Op: "grant", Err: err}
	}

	return &GrantResponse{Receipt: receipt}, nil
}

// validateGrant checks every field of a grant before anything external
// happens. Checks run in wire-field order so the first error an
// operator sees names the first bad field.
func (d *Dispatcher) validateGrant(request *GrantRequest) (*GrantTerms, error) {
	encryptingKey, err := ParsePublicKey(request.BobEncryptingKey)
	if err != nil {
		return nil, invalidField("bob_encrypting_key", "%v", err)
	}
	verifyingKey, err := ParsePublicKey(request.BobVerifyingKey)
	if err != nil {
		return nil, invalidField("bob_verifying_key", "%v", err)
	}
	if request.Label == "" {
		return nil, invalidField("label", "must not be empty")
	}
	if request.N < 1 {
		return nil, invalidField("n", "must be at least 1, got %d", request.N)
	}
	if request.M < 1 || request.M > request.N {
		return nil, invalidField("m", "must satisfy 1 <= m <= n, got m=%d n=%d", request.M, request.N)
	}
	if request.Expiration == "" {
		return nil, invalidField("expiration", "must not be empty")
	}
	expiration, err := time.Parse(time.RFC3339, request.Expiration)
	if err != nil {
		return nil, invalidField("expiration", "not an RFC 3339 timestamp: %v", err)
	}

	terms := &GrantTerms{
		BobEncryptingKey: encryptingKey,
		BobVerifyingKey:  verifyingKey,
		Label:            request.Label,
		M:                request.M,
		N:                request.N,
		Expiration:       expiration,
	}

	if d.authority.FederatedOnly() {
		// A federated authority has no payment rail. Accepting a value
		// here would silently grant an unpaid policy the caller
		// believed was paid.
		if request.Value != "" {
			return nil, invalidField("value", "payment is not available in federated mode")
		}
		if request.Rate != "" {
			return nil, invalidField("rate", "payment is not available in federated mode")
		}
		return terms, nil
	}

	if request.Value != "" {
		if terms.Value, err = ParseWei(request.Value); err != nil {
			return nil, invalidField("value", "%v", err)
		}
	}
	if request.Rate != "" {
		if terms.Rate, err = ParseWei(request.Rate); err != nil {
			return nil, invalidField("rate", "%v", err)
		}
	}
	return terms, nil
}

func (d *Dispatcher) revoke(ctx context.Context, request *RevokeRequest) (*RevokeResponse, error) {
	if request.Label == "" {
		return nil, invalidField("label", "must not be empty")
	}
	verifyingKey, err := ParsePublicKey(request.BobVerifyingKey)
	if err != nil {
		return nil, invalidField("bob_verifying_key", "%v", err)
	}

	if d.service == nil {
		return nil, &OperationError{Op: "revoke", Err: errServiceUnavailable()}
	}
	revocation := Revocation{Label: request.Label, BobVerifyingKey: verifyingKey}
	if err := d.service.Revoke(ctx, revocation); err != nil {
		return nil, &OperationError{Op: "revoke", Err: err}
	}

	return &RevokeResponse{
		Label:           request.Label,
		BobVerifyingKey: verifyingKey.Hex(),
		Acknowledged:    true,
	}, nil
}

func (d *Dispatcher) decrypt(ctx context.Context, request *DecryptRequest) (*DecryptResponse, error) {
	if request.Label == "" {
		return nil, invalidField("label", "must not be empty")
	}
	if request.MessageKit == "" {
		return nil, invalidField("message_kit", "must not be empty")
	}
	kit, err := ParseMessageKit(request.MessageKit)
	if err != nil {
		return nil, invalidField("message_kit", "%v", err)
	}

	if d.service == nil {
		return nil, &OperationError{Op: "decrypt", Err: errServiceUnavailable()}
	}
	cleartext, err := d.service.Decrypt(ctx, DecryptionRequest{Label: request.Label, MessageKit: kit})
	if err != nil {
		return nil, &OperationError{Op: "decrypt", Err: err}
	}
	return &DecryptResponse{Cleartext: cleartext}, nil
}

// errServiceUnavailable guards the nil-service case for read-mostly
// deployments.
func errServiceUnavailable() error {
	return fmt.Errorf("no crypto service is attached to this authority")
}
