// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

// Package policy defines the control-plane request set and the
// dispatcher that gates every policy operation.
//
// Requests are a closed tagged variant set ([Request]): public-keys,
// derive-policy-pubkey, grant, revoke, decrypt. There is no
// loosely-typed field bag that could smuggle an unrecognized field
// past validation to the crypto boundary.
//
// [Dispatcher.Dispatch] validates a request completely (field
// presence, key encodings, threshold bounds, mode-dependent payment
// fields) before any external call is issued. A request that fails
// validation produces no side effect anywhere.
//
// The actual re-encryption cryptography and policy enactment live
// behind the [Service] interface; [SocketService] is the production
// client for the co-located crypto service process.
package policy
