// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package control

import "fmt"

// State is the listener lifecycle state. Transitions are one-way:
// Created -> Bound -> Serving -> (Stopped | Crashed), with dry-run
// short-circuiting Bound -> Stopped.
type State int32

const (
	StateCreated State = iota
	StateBound
	StateServing
	StateStopped
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateBound:
		return "bound"
	case StateServing:
		return "serving"
	case StateStopped:
		return "stopped"
	case StateCrashed:
		return "crashed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ListenerError is a bind or transport setup failure. Always fatal:
// the process exits non-zero without serving anything.
type ListenerError struct {
	Transport Transport
	Err       error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("%s listener: %v", e.Transport, e.Err)
}

func (e *ListenerError) Unwrap() error { return e.Err }
