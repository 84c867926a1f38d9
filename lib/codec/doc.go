// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR wire codec for the authority's IPC
// control plane.
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map
// keys, smallest integer encoding, no indefinite-length items. The same
// logical request always produces identical bytes, which keeps request
// logging and replay diagnostics stable. Decoding accepts standard CBOR
// and silently ignores unknown fields for forward compatibility.
//
// Consumers import only this package, never fxamacker/cbor directly.
package codec
