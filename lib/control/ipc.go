// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/caskade-network/caskade/lib/codec"
)

// readTimeout is how long the server waits for a connected client to
// send its request. A well-behaved client writes immediately.
const readTimeout = 30 * time.Second

// writeTimeout is how long the server waits for the response write.
const writeTimeout = 10 * time.Second

// maxRequestSize bounds a single CBOR request. Message kits dominate
// request size; 1 MB leaves room for large ciphertexts.
const maxRequestSize = 1024 * 1024

// envelope is the wire response for the CBOR transport: {ok} plus
// either error or data.
type envelope struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// runIPC serves the CBOR protocol on the unix socket. Connections are
// accepted and handled strictly in sequence; a request blocked on a
// chain call holds off the next accept.
func (l *Listener) runIPC(ctx context.Context) error {
	if err := os.Remove(l.options.SocketPath); err != nil && !os.IsNotExist(err) {
		return &ListenerError{Transport: TransportIPC,
			Err: fmt.Errorf("removing stale socket %s: %w", l.options.SocketPath, err)}
	}

	listener, err := net.Listen("unix", l.options.SocketPath)
	if err != nil {
		return &ListenerError{Transport: TransportIPC, Err: err}
	}
	defer func() {
		listener.Close()
		os.Remove(l.options.SocketPath)
	}()

	l.addr = listener.Addr()
	l.setState(StateBound)
	close(l.ready)

	if l.options.DryRun {
		l.logger.Info("dry run: socket bound, not serving", "path", l.options.SocketPath)
		l.setState(StateStopped)
		return nil
	}

	l.setState(StateServing)
	l.logger.Info("control listener serving", "transport", TransportIPC, "path", l.options.SocketPath)

	// Unblock Accept when the context is cancelled.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			l.logger.Error("accept failed", "error", err)
			continue
		}

		// Handled inline, not in a goroutine: one request at a time.
		if recovered := l.handleConn(ctx, conn); recovered != nil {
			listener.Close()
			os.Remove(l.options.SocketPath)
			return l.crash(recovered)
		}
	}

	l.setState(StateStopped)
	return nil
}

// handleConn processes one request-response cycle. A panic out of
// dispatch is captured and returned so the serve loop can apply the
// crash policy; every other failure is answered on the wire and the
// listener keeps serving.
func (l *Listener) handleConn(ctx context.Context, conn net.Conn) (recovered any) {
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			recovered = r
			l.writeEnvelope(conn, envelope{OK: false, Error: "internal error"})
		}
	}()

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	// One self-delimiting CBOR value per connection; no framing.
	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		l.writeEnvelope(conn, envelope{OK: false, Error: fmt.Sprintf("invalid request: %v", err)})
		return nil
	}

	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		l.writeEnvelope(conn, envelope{OK: false, Error: fmt.Sprintf("invalid request: %v", err)})
		return nil
	}
	if header.Action == "" {
		l.writeEnvelope(conn, envelope{OK: false, Error: "missing required field: action"})
		return nil
	}

	request, err := decodeRequest(header.Action, func(v any) error {
		return codec.Unmarshal(raw, v)
	})
	if err != nil {
		l.writeEnvelope(conn, envelope{OK: false, Error: err.Error()})
		return nil
	}

	result, err := l.options.Dispatcher.Dispatch(ctx, request)
	if err != nil {
		l.writeEnvelope(conn, envelope{OK: false, Error: err.Error()})
		return nil
	}

	data, err := codec.Marshal(result)
	if err != nil {
		l.writeEnvelope(conn, envelope{OK: false, Error: fmt.Sprintf("internal: marshaling response: %v", err)})
		return nil
	}
	l.writeEnvelope(conn, envelope{OK: true, Data: data})
	return nil
}

// writeEnvelope sends one response. Write failures are logged at debug
// level; the connection is closing regardless.
func (l *Listener) writeEnvelope(conn net.Conn, response envelope) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		l.logger.Debug("failed to write response", "error", err)
	}
}
