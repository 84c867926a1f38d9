// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

// Package control runs the authority's control-plane listener.
//
// A [Listener] binds exactly one transport per process: CBOR over a
// unix socket for machine callers, or JSON over HTTP for operators and
// tooling. Both transports deserialize the envelope, hand the typed
// request to the policy dispatcher, and serialize the result; neither
// interprets request bodies beyond that.
//
// Requests are served strictly one at a time. A grant with payment can
// block on a chain call for seconds; refusing to accept a second
// request while the first is in flight is deliberate backpressure, so
// a slow chain shows up as queueing at the client instead of a pile of
// half-enacted policies.
//
// Lifecycle is the Created, Bound, Serving, then Stopped or Crashed
// state machine. Dry-run mode goes Bound straight to Stopped: the bind
// is exercised and the process exits clean without accepting anything,
// which is what deployment smoke checks want.
package control
