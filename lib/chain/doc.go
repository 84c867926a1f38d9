// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

// Package chain talks to the operator's Ethereum provider. Its one job
// during authority creation is operator account selection: list the
// accounts the provider controls and let the operator pick the one
// that pays for chain-backed policies.
package chain
