// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

// Package config resolves startup parameters into the authority's
// runtime configuration.
//
// A [Configuration] is constructed exactly once per process invocation
// and never mutated afterwards: every component that needs it receives
// the resolved value explicitly — there is no ambient process-wide
// configuration state. The resolver validates parameter combinations
// fail-fast, in a fixed order, before any credential or network I/O
// happens (see [Resolver.Resolve]).
//
// Two storage modes exist. Ephemeral configurations live only in
// memory and are always federated. Persistent configurations are
// backed by a YAML file; loading one that does not exist is a
// recoverable condition ([Error] with [KindMissingConfigFile]) so the
// caller can offer interactive creation instead of failing hard.
//
// Key exports:
//
//   - [Configuration] -- the immutable resolved value
//   - [Params] -- raw startup parameters, typically bound from flags
//   - [Resolver] -- Resolve (run/inspect flows) and Generate (init flow)
//   - [Load] and [Save] -- YAML persistence with a typed not-found result
//
// This package depends on no other Caskade packages.
package config
