// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

// Package authority implements the "caskade authority" command group:
// the lifecycle of a policy authority (init, view, destroy, run) and
// the policy operations an operator can perform directly from the
// command line (public-keys, derive-policy-pubkey, grant, revoke,
// decrypt).
package authority
