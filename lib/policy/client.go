// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/caskade-network/caskade/lib/codec"
)

// dialTimeout covers only the connect phase to the crypto service
// socket; handler execution time is covered by responseReadTimeout.
const dialTimeout = 5 * time.Second

// responseReadTimeout is how long the client waits for a response
// after writing the request. Grant enactment can involve placing key
// fragments with several network nodes, so this is generous.
const responseReadTimeout = 120 * time.Second

// maxResponseSize bounds a single CBOR response from the crypto
// service.
const maxResponseSize = 1024 * 1024

// SocketService is the production [Service]: a CBOR-over-unix-socket
// client for the co-located crypto service process. Each call opens a
// fresh connection, sends one request, reads one response, and closes.
type SocketService struct {
	socketPath string
}

// NewSocketService creates a client for the crypto service listening
// on socketPath. No connection is made until the first call.
func NewSocketService(socketPath string) *SocketService {
	return &SocketService{socketPath: socketPath}
}

// serviceResponse is the crypto service's reply envelope.
type serviceResponse struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

func (s *SocketService) Grant(ctx context.Context, terms GrantTerms) (GrantReceipt, error) {
	fields := map[string]any{
		"bob_encrypting_key": terms.BobEncryptingKey.Hex(),
		"bob_verifying_key":  terms.BobVerifyingKey.Hex(),
		"label":              terms.Label,
		"m":                  terms.M,
		"n":                  terms.N,
		"expiration":         terms.Expiration.Format(time.RFC3339),
	}
	if terms.Value != nil {
		fields["value"] = terms.Value.String()
	}
	if terms.Rate != nil {
		fields["rate"] = terms.Rate.String()
	}

	var receipt GrantReceipt
	if err := s.call(ctx, "grant", fields, &receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *SocketService) Revoke(ctx context.Context, revocation Revocation) error {
	fields := map[string]any{
		"label":             revocation.Label,
		"bob_verifying_key": revocation.BobVerifyingKey.Hex(),
	}
	return s.call(ctx, "revoke", fields, nil)
}

func (s *SocketService) Decrypt(ctx context.Context, request DecryptionRequest) ([]byte, error) {
	kit, err := request.MessageKit.Encode()
	if err != nil {
		return nil, fmt.Errorf("re-encoding message kit: %w", err)
	}
	fields := map[string]any{
		"label":       request.Label,
		"message_kit": kit,
	}

	var result struct {
		Cleartext []byte `cbor:"cleartext"`
	}
	if err := s.call(ctx, "decrypt", fields, &result); err != nil {
		return nil, err
	}
	return result.Cleartext, nil
}

// call sends one request and decodes the response envelope. A reply
// with ok=false becomes a plain error carrying the service's message
// verbatim; the dispatcher adds the OperationError wrapper.
func (s *SocketService) call(ctx context.Context, action string, fields map[string]any, result any) error {
	request := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		request[key] = value
	}
	request["action"] = action

	response, err := s.send(ctx, request)
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, s.socketPath, err)
	}
	if !response.OK {
		return fmt.Errorf("%s", response.Error)
	}
	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", action, err)
		}
	}
	return nil
}

func (s *SocketService) send(ctx context.Context, request any) (*serviceResponse, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", s.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	// Half-close the write side so the server's read loop sees a clean
	// EOF after the request.
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	var response serviceResponse
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &response, nil
}
