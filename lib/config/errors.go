// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package config

import "fmt"

// ErrorKind classifies configuration resolution failures so callers
// can branch without parsing message text.
type ErrorKind string

const (
	// KindIncompatibleModeFlags indicates a managed chain client and
	// federated-only operation were both requested.
	KindIncompatibleModeFlags ErrorKind = "incompatible_mode_flags"

	// KindInvalidEphemeralFederation indicates an ephemeral
	// configuration explicitly disabled federation. Ephemeral
	// authorities are always federated.
	KindInvalidEphemeralFederation ErrorKind = "invalid_ephemeral_federation"

	// KindMissingConfigFile indicates the persistent configuration
	// file does not exist. Recoverable: the caller may offer to
	// generate one.
	KindMissingConfigFile ErrorKind = "missing_config_file"

	// KindMissingProviderURI indicates a chain-backed configuration
	// was requested without a provider endpoint.
	KindMissingProviderURI ErrorKind = "missing_provider_uri"
)

// Error is a typed configuration resolution failure.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Recoverable reports whether the caller can recover from this error
// without operator intervention beyond answering a prompt. Only a
// missing configuration file is recoverable — it triggers the
// interactive creation flow.
func (e *Error) Recoverable() bool {
	return e.Kind == KindMissingConfigFile
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
