// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

// Package authority holds the unlocked policy authority: the actor
// that signs, derives per-label policy keys, and issues or revokes
// access policies.
//
// An [Authority] is created exactly once per process, after the
// keystore custody gate has produced the master secret ([Unlock]). It
// is read-only for the rest of the process lifetime: deriving a policy
// key is a pure function of the master secret and a label, not a
// mutation. The master secret itself never crosses a process boundary
// and never appears in any response.
//
// Key material layout: the secp256k1 verifying (signing) and
// encrypting keys are HKDF expansions of the master secret under
// distinct labels; policy keys are BLAKE3 key derivations of the
// master secret under the policy label. Both derivations are
// deterministic — the same (master secret, label) pair always yields
// the same key.
package authority
