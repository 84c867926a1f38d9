// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/caskade-network/caskade/lib/authority"
	"github.com/caskade-network/caskade/lib/config"
	"github.com/caskade-network/caskade/lib/keystore"
	"github.com/caskade-network/caskade/lib/secret"
)

// recordingService captures every call that crosses the Service
// boundary so tests can assert both what was forwarded and, more
// importantly, what was never forwarded.
type recordingService struct {
	grants      []GrantTerms
	revocations []Revocation
	decryptions []DecryptionRequest

	grantErr   error
	revokeErr  error
	decryptErr error

	receipt   GrantReceipt
	cleartext []byte
}

func (s *recordingService) Grant(_ context.Context, terms GrantTerms) (GrantReceipt, error) {
	s.grants = append(s.grants, terms)
	if s.grantErr != nil {
		return nil, s.grantErr
	}
	return s.receipt, nil
}

func (s *recordingService) Revoke(_ context.Context, revocation Revocation) error {
	s.revocations = append(s.revocations, revocation)
	return s.revokeErr
}

func (s *recordingService) Decrypt(_ context.Context, request DecryptionRequest) ([]byte, error) {
	s.decryptions = append(s.decryptions, request)
	if s.decryptErr != nil {
		return nil, s.decryptErr
	}
	return s.cleartext, nil
}

func (s *recordingService) callCount() int {
	return len(s.grants) + len(s.revocations) + len(s.decryptions)
}

const checksummedAccount = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedMaster(t *testing.T, fill byte) *secret.Buffer {
	t.Helper()
	raw := make([]byte, keystore.MasterSecretSize)
	for i := range raw {
		raw[i] = fill
	}
	master, err := secret.NewFromBytes(raw)
	if err != nil {
		t.Fatalf("NewFromBytes() error: %v", err)
	}
	return master
}

func federatedAuthority(t *testing.T) *authority.Authority {
	t.Helper()
	configuration, err := config.Resolver{}.Resolve(config.Params{Ephemeral: true})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	auth, err := authority.New(configuration, fixedMaster(t, 0x42))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { auth.Close() })
	return auth
}

func chainBackedAuthority(t *testing.T) *authority.Authority {
	t.Helper()
	configuration, err := config.Resolver{}.Generate(context.Background(), config.Params{
		ProviderURI:     "http://localhost:8545",
		OperatorAccount: checksummedAccount,
	}, nil, nil)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	auth, err := authority.New(configuration, fixedMaster(t, 0x42))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { auth.Close() })
	return auth
}

// testKeyHex derives a deterministic valid compressed secp256k1 point
// from a fill byte.
func testKeyHex(t *testing.T, fill byte) string {
	t.Helper()
	scalar := make([]byte, 32)
	for i := range scalar {
		scalar[i] = fill
	}
	key, err := crypto.ToECDSA(scalar)
	if err != nil {
		t.Fatalf("ToECDSA() error: %v", err)
	}
	return PublicKey(crypto.CompressPubkey(&key.PublicKey)).Hex()
}

func validGrant(t *testing.T) *GrantRequest {
	t.Helper()
	return &GrantRequest{
		BobEncryptingKey: testKeyHex(t, 0x11),
		BobVerifyingKey:  testKeyHex(t, 0x22),
		Label:            "secrets/research",
		M:                2,
		N:                3,
		Expiration:       "2027-06-01T00:00:00Z",
	}
}

func encodedMessageKit(t *testing.T) string {
	t.Helper()
	sender, err := ParsePublicKey(testKeyHex(t, 0x33))
	if err != nil {
		t.Fatalf("ParsePublicKey() error: %v", err)
	}
	kit := &MessageKit{
		Capsule:            make([]byte, CapsuleSize),
		Ciphertext:         []byte("sealed payload"),
		SenderVerifyingKey: sender,
	}
	encoded, err := kit.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	return encoded
}

// wantValidationError asserts err is a ValidationError naming field
// and that the service saw no traffic.
func wantValidationError(t *testing.T, err error, field string, service *recordingService) {
	t.Helper()
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if validation.Field != field {
		t.Errorf("ValidationError.Field = %q, want %q", validation.Field, field)
	}
	if service.callCount() != 0 {
		t.Errorf("service saw %d calls after a validation failure, want 0", service.callCount())
	}
}

func TestDispatch_PublicKeys(t *testing.T) {
	auth := federatedAuthority(t)
	dispatcher := NewDispatcher(auth, &recordingService{}, testLogger())

	result, err := dispatcher.Dispatch(context.Background(), PublicKeysRequest{})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	response, ok := result.(*PublicKeysResponse)
	if !ok {
		t.Fatalf("result type = %T, want *PublicKeysResponse", result)
	}
	if response.VerifyingKey != auth.VerifyingKeyHex() {
		t.Errorf("VerifyingKey = %q, want %q", response.VerifyingKey, auth.VerifyingKeyHex())
	}
	if response.EncryptingKey == "" || response.EncryptingKey == response.VerifyingKey {
		t.Errorf("EncryptingKey = %q, want a distinct non-empty key", response.EncryptingKey)
	}
}

func TestDispatch_DerivePolicyKey(t *testing.T) {
	auth := federatedAuthority(t)
	dispatcher := NewDispatcher(auth, &recordingService{}, testLogger())

	result, err := dispatcher.Dispatch(context.Background(), &DerivePolicyKeyRequest{Label: "secrets/research"})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	response := result.(*DerivePolicyKeyResponse)

	direct, err := auth.DerivePolicyPublicKey("secrets/research")
	if err != nil {
		t.Fatalf("DerivePolicyPublicKey() error: %v", err)
	}
	if response.PolicyEncryptingKey != PublicKey(direct).Hex() {
		t.Errorf("PolicyEncryptingKey = %q, want %q", response.PolicyEncryptingKey, PublicKey(direct).Hex())
	}
}

func TestDispatch_DerivePolicyKey_EmptyLabel(t *testing.T) {
	service := &recordingService{}
	dispatcher := NewDispatcher(federatedAuthority(t), service, testLogger())

	_, err := dispatcher.Dispatch(context.Background(), &DerivePolicyKeyRequest{})
	wantValidationError(t, err, "label", service)
}

func TestDispatch_Grant(t *testing.T) {
	service := &recordingService{receipt: GrantReceipt{"tx_hash": "0xabc"}}
	dispatcher := NewDispatcher(federatedAuthority(t), service, testLogger())

	request := validGrant(t)
	result, err := dispatcher.Dispatch(context.Background(), request)
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	response := result.(*GrantResponse)

	if len(service.grants) != 1 {
		t.Fatalf("service saw %d grants, want 1", len(service.grants))
	}
	terms := service.grants[0]
	if terms.Label != request.Label || terms.M != 2 || terms.N != 3 {
		t.Errorf("forwarded terms = %+v, want label/m/n from the request", terms)
	}
	if terms.BobEncryptingKey.Hex() != request.BobEncryptingKey {
		t.Errorf("forwarded encrypting key = %q, want %q", terms.BobEncryptingKey.Hex(), request.BobEncryptingKey)
	}
	if terms.Value != nil || terms.Rate != nil {
		t.Errorf("federated grant forwarded payment fields: value=%v rate=%v", terms.Value, terms.Rate)
	}
	if response.Receipt["tx_hash"] != "0xabc" {
		t.Errorf("receipt = %v, want the service receipt unmodified", response.Receipt)
	}
}

func TestDispatch_Grant_FederatedRejectsPayment(t *testing.T) {
	for _, field := range []string{"value", "rate"} {
		t.Run(field, func(t *testing.T) {
			service := &recordingService{}
			dispatcher := NewDispatcher(federatedAuthority(t), service, testLogger())

			request := validGrant(t)
			if field == "value" {
				request.Value = "1000000"
			} else {
				request.Rate = "50"
			}
			_, err := dispatcher.Dispatch(context.Background(), request)
			wantValidationError(t, err, field, service)
		})
	}
}

func TestDispatch_Grant_ChainBackedForwardsPayment(t *testing.T) {
	service := &recordingService{receipt: GrantReceipt{}}
	dispatcher := NewDispatcher(chainBackedAuthority(t), service, testLogger())

	request := validGrant(t)
	request.Value = "1000000000000000000"
	if _, err := dispatcher.Dispatch(context.Background(), request); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}

	if len(service.grants) != 1 {
		t.Fatalf("service saw %d grants, want 1", len(service.grants))
	}
	value := service.grants[0].Value
	if value == nil || value.String() != "1000000000000000000" {
		t.Errorf("forwarded value = %v, want 1000000000000000000", value)
	}
}

func TestDispatch_Grant_RejectsBadFields(t *testing.T) {
	mutations := []struct {
		field  string
		mutate func(*GrantRequest)
	}{
		{"bob_encrypting_key", func(r *GrantRequest) { r.BobEncryptingKey = "zz" }},
		{"bob_verifying_key", func(r *GrantRequest) { r.BobVerifyingKey = "00" }},
		{"label", func(r *GrantRequest) { r.Label = "" }},
		{"n", func(r *GrantRequest) { r.N = 0 }},
		{"m", func(r *GrantRequest) { r.M = 5 }},
		{"m", func(r *GrantRequest) { r.M = 0 }},
		{"expiration", func(r *GrantRequest) { r.Expiration = "tomorrow" }},
		{"expiration", func(r *GrantRequest) { r.Expiration = "" }},
	}
	for _, mutation := range mutations {
		t.Run(mutation.field, func(t *testing.T) {
			service := &recordingService{}
			dispatcher := NewDispatcher(federatedAuthority(t), service, testLogger())

			request := validGrant(t)
			mutation.mutate(request)
			_, err := dispatcher.Dispatch(context.Background(), request)
			wantValidationError(t, err, mutation.field, service)
		})
	}
}

func TestDispatch_Grant_ChainBackedRejectsBadValue(t *testing.T) {
	service := &recordingService{}
	dispatcher := NewDispatcher(chainBackedAuthority(t), service, testLogger())

	request := validGrant(t)
	request.Value = "-5"
	_, err := dispatcher.Dispatch(context.Background(), request)
	wantValidationError(t, err, "value", service)
}

func TestDispatch_Grant_ServiceFailure(t *testing.T) {
	serviceErr := errors.New("no nodes accepted the fragments")
	service := &recordingService{grantErr: serviceErr}
	dispatcher := NewDispatcher(federatedAuthority(t), service, testLogger())

	_, err := dispatcher.Dispatch(context.Background(), validGrant(t))
	var operation *OperationError
	if !errors.As(err, &operation) {
		t.Fatalf("error = %v, want *OperationError", err)
	}
	if !errors.Is(err, serviceErr) {
		t.Errorf("error chain does not preserve the service error: %v", err)
	}
}

func TestDispatch_Revoke(t *testing.T) {
	service := &recordingService{}
	dispatcher := NewDispatcher(federatedAuthority(t), service, testLogger())

	bobKey := testKeyHex(t, 0x22)
	result, err := dispatcher.Dispatch(context.Background(), &RevokeRequest{
		Label:           "secrets/research",
		BobVerifyingKey: bobKey,
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}

	if len(service.revocations) != 1 {
		t.Fatalf("service saw %d revocations, want 1", len(service.revocations))
	}
	if service.revocations[0].BobVerifyingKey.Hex() != bobKey {
		t.Errorf("forwarded key = %q, want %q", service.revocations[0].BobVerifyingKey.Hex(), bobKey)
	}
	response := result.(*RevokeResponse)
	if !response.Acknowledged {
		t.Error("revocation was not acknowledged")
	}
}

func TestDispatch_Revoke_RejectsMissingFields(t *testing.T) {
	service := &recordingService{}
	dispatcher := NewDispatcher(federatedAuthority(t), service, testLogger())

	_, err := dispatcher.Dispatch(context.Background(), &RevokeRequest{BobVerifyingKey: testKeyHex(t, 0x22)})
	wantValidationError(t, err, "label", service)

	_, err = dispatcher.Dispatch(context.Background(), &RevokeRequest{Label: "secrets/research"})
	wantValidationError(t, err, "bob_verifying_key", service)
}

func TestDispatch_Decrypt(t *testing.T) {
	service := &recordingService{cleartext: []byte("the plans")}
	dispatcher := NewDispatcher(federatedAuthority(t), service, testLogger())

	result, err := dispatcher.Dispatch(context.Background(), &DecryptRequest{
		Label:      "secrets/research",
		MessageKit: encodedMessageKit(t),
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}

	if len(service.decryptions) != 1 {
		t.Fatalf("service saw %d decryptions, want 1", len(service.decryptions))
	}
	if service.decryptions[0].MessageKit == nil {
		t.Fatal("forwarded decryption request has no parsed message kit")
	}
	response := result.(*DecryptResponse)
	if !bytes.Equal(response.Cleartext, []byte("the plans")) {
		t.Errorf("Cleartext = %q, want %q", response.Cleartext, "the plans")
	}
}

func TestDispatch_Decrypt_RejectsMalformedKit(t *testing.T) {
	service := &recordingService{}
	dispatcher := NewDispatcher(federatedAuthority(t), service, testLogger())

	_, err := dispatcher.Dispatch(context.Background(), &DecryptRequest{
		Label:      "secrets/research",
		MessageKit: "not base64!!",
	})
	wantValidationError(t, err, "message_kit", service)
}

func TestDispatch_NoService(t *testing.T) {
	dispatcher := NewDispatcher(federatedAuthority(t), nil, testLogger())

	// Read-only requests still work.
	if _, err := dispatcher.Dispatch(context.Background(), PublicKeysRequest{}); err != nil {
		t.Fatalf("Dispatch(public keys) error: %v", err)
	}

	_, err := dispatcher.Dispatch(context.Background(), validGrant(t))
	var operation *OperationError
	if !errors.As(err, &operation) {
		t.Fatalf("error = %v, want *OperationError", err)
	}
}
