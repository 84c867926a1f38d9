// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/caskade-network/caskade/lib/policy"
)

// shutdownTimeout bounds the graceful drain of an in-flight request
// after the context is cancelled.
const shutdownTimeout = 10 * time.Second

// runHTTP serves the JSON protocol on a TCP port.
func (l *Listener) runHTTP(ctx context.Context) error {
	listener, err := net.Listen("tcp", l.options.Address)
	if err != nil {
		return &ListenerError{Transport: TransportHTTP, Err: err}
	}

	l.addr = listener.Addr()
	l.setState(StateBound)
	close(l.ready)

	if l.options.DryRun {
		listener.Close()
		l.logger.Info("dry run: address bound, not serving", "address", l.addr.String())
		l.setState(StateStopped)
		return nil
	}

	l.setState(StateServing)
	l.logger.Info("control listener serving", "transport", TransportHTTP, "address", l.addr.String())

	// The HTTP runtime swallows handler panics, so the handler reports
	// an unrecoverable failure here instead of letting it propagate.
	crashed := make(chan any, 1)

	server := &http.Server{
		Handler:           l.httpHandler(crashed),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveDone := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	var recovered any
	select {
	case <-ctx.Done():
		l.logger.Info("control listener shutting down")
	case recovered = <-crashed:
	case err := <-serveDone:
		if err != nil {
			l.setState(StateCrashed)
			return &ListenerError{Transport: TransportHTTP, Err: err}
		}
		l.setState(StateStopped)
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		l.logger.Error("shutdown error", "error", err)
	}

	if recovered != nil {
		return l.crash(recovered)
	}
	l.setState(StateStopped)
	return nil
}

// httpHandler builds the route table. One route per request variant,
// POST only, matching the action vocabulary of the CBOR transport.
func (l *Listener) httpHandler(crashed chan<- any) http.Handler {
	mux := http.NewServeMux()

	// serialize enforces the one-request-at-a-time policy across all
	// routes.
	var serialize sync.Mutex

	route := func(action string) {
		mux.HandleFunc("POST /"+action, func(w http.ResponseWriter, r *http.Request) {
			serialize.Lock()
			defer serialize.Unlock()
			defer func() {
				if recovered := recover(); recovered != nil {
					writeJSONError(w, http.StatusInternalServerError, "internal error")
					select {
					case crashed <- recovered:
					default:
					}
				}
			}()
			l.handleHTTP(w, r, action)
		})
	}

	for _, action := range []string{
		policy.PublicKeysRequest{}.Action(),
		policy.DerivePolicyKeyRequest{}.Action(),
		policy.GrantRequest{}.Action(),
		policy.RevokeRequest{}.Action(),
		policy.DecryptRequest{}.Action(),
	} {
		route(action)
	}
	return mux
}

func (l *Listener) handleHTTP(w http.ResponseWriter, r *http.Request, action string) {
	request, err := decodeRequest(action, func(v any) error {
		return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestSize)).Decode(v)
	})
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := l.options.Dispatcher.Dispatch(r.Context(), request)
	if err != nil {
		writeJSONError(w, httpStatusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		l.logger.Debug("failed to write response", "error", err)
	}
}

// httpStatusFor maps dispatcher errors to status codes: request faults
// are 400, collaborator faults are 502.
func httpStatusFor(err error) int {
	var validation *policy.ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest
	}
	var operation *policy.OperationError
	if errors.As(err, &operation) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, "{\"error\":%s}\n", mustJSONString(message))
}

func mustJSONString(s string) string {
	encoded, err := json.Marshal(s)
	if err != nil {
		return `"internal error"`
	}
	return string(encoded)
}
