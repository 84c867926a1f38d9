// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync/atomic"

	"github.com/caskade-network/caskade/lib/policy"
)

// Transport selects the control-plane wire protocol.
type Transport string

const (
	// TransportIPC serves deterministic CBOR on a unix socket.
	TransportIPC Transport = "ipc"

	// TransportHTTP serves JSON on a TCP port.
	TransportHTTP Transport = "http"
)

// Options configure a Listener. Exactly one transport target must be
// set: SocketPath for TransportIPC, Address for TransportHTTP.
type Options struct {
	Transport  Transport
	SocketPath string
	Address    string

	// DryRun binds the transport, then stops without serving. The
	// process exits 0 if the bind succeeded.
	DryRun bool

	// Debug re-raises an unrecoverable dispatch failure after
	// reporting it, so the runtime prints a full stack trace and the
	// process exits non-zero.
	Debug bool

	Dispatcher *policy.Dispatcher
	Logger     *slog.Logger
}

// Listener owns the control-plane transport for the process lifetime.
// Create with NewListener, then call Run exactly once.
type Listener struct {
	options Options
	logger  *slog.Logger

	state atomic.Int32

	// ready is closed once the transport is bound. Tests and managed
	// supervisors wait on it before connecting.
	ready chan struct{}

	// addr is the resolved bind target, valid after ready closes.
	addr net.Addr
}

// NewListener validates the transport selection and returns a listener
// in StateCreated. Selecting both transports, or neither, is rejected
// here; the CLI layer should have caught it already.
func NewListener(options Options) (*Listener, error) {
	if options.Dispatcher == nil {
		return nil, fmt.Errorf("control: a dispatcher is required")
	}
	if options.Logger == nil {
		return nil, fmt.Errorf("control: a logger is required")
	}

	switch options.Transport {
	case TransportIPC:
		if options.SocketPath == "" {
			return nil, fmt.Errorf("control: ipc transport requires a socket path")
		}
		if options.Address != "" {
			return nil, fmt.Errorf("control: ipc transport must not carry a TCP address")
		}
	case TransportHTTP:
		if options.Address == "" {
			return nil, fmt.Errorf("control: http transport requires a TCP address")
		}
		if options.SocketPath != "" {
			return nil, fmt.Errorf("control: http transport must not carry a socket path")
		}
	default:
		return nil, fmt.Errorf("control: unknown transport %q", options.Transport)
	}

	return &Listener{
		options: options,
		logger:  options.Logger,
		ready:   make(chan struct{}),
	}, nil
}

// State returns the current lifecycle state.
func (l *Listener) State() State {
	return State(l.state.Load())
}

// Ready returns a channel closed once the transport is bound.
func (l *Listener) Ready() <-chan struct{} { return l.ready }

// Addr returns the resolved bind target. Valid only after Ready is
// closed; for TCP binds on port 0 it carries the assigned port.
func (l *Listener) Addr() net.Addr { return l.addr }

// Run binds the transport and serves until ctx is cancelled. Bind
// failures return a *ListenerError. An unrecoverable failure raised
// during dispatch transitions to StateCrashed, logs the failure, emits
// one diagnostic line, and returns nil; with Debug set it re-raises
// instead so the process dies loudly.
func (l *Listener) Run(ctx context.Context) error {
	switch l.options.Transport {
	case TransportIPC:
		return l.runIPC(ctx)
	default:
		return l.runHTTP(ctx)
	}
}

func (l *Listener) setState(state State) {
	l.state.Store(int32(state))
}

// crash applies the unrecoverable-failure policy. Called with the
// recovered panic value after the transport has shut down.
func (l *Listener) crash(recovered any) error {
	l.setState(StateCrashed)
	l.logger.Error("unrecoverable dispatch failure", "panic", recovered)
	fmt.Fprintf(os.Stderr, "fatal: internal error: %v\n", recovered)
	if l.options.Debug {
		panic(recovered)
	}
	return nil
}
