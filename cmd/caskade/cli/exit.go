// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// Process exit codes with a contract beyond "non-zero". Deployment
// tooling keys off these, so they are constants rather than ad hoc
// values at the call sites.
const (
	// ExitAuthenticationFailed is returned when the keystore
	// passphrase is wrong. Distinguished so supervisors can stop
	// retrying instead of hammering a sealed keystore.
	ExitAuthenticationFailed = 3
)

// ExitError signals a non-zero exit code without printing an extra
// error message. When a command handler returns an ExitError, main
// exits with the specified code without printing the error string; the
// command is expected to have already written its own output.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code. main checks for this interface on
// returned errors to distinguish "handled non-zero exit" from
// "unexpected error to display".
func (e *ExitError) ExitCode() int {
	return e.Code
}
