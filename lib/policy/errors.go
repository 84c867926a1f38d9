// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import "fmt"

// ValidationError rejects a request before any external call. Field
// names the offending request field; Reason is operator-readable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

func invalidField(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// OperationError wraps a failure surfaced by an external collaborator
// (chain call, crypto service). The underlying error is propagated
// verbatim, never swallowed.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }
