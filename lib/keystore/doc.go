// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

// Package keystore is the custody boundary for the authority's master
// secret. It wraps filippo.io/age passphrase (scrypt) encryption for
// the three operations the authority needs: generate a sealed master
// secret on disk, unlock it with a passphrase, and generate an
// ephemeral in-memory secret for development authorities.
//
// Master secrets and passphrases travel as *secret.Buffer values
// (mmap-backed, locked against swap, zeroed on close). The master
// secret never leaves this custody boundary in serialized form; the
// sealed file on disk is the only persistent copy.
//
// Unlock makes exactly one decryption attempt. A passphrase mismatch
// is reported as [ErrAuthenticationFailed] and the process is expected
// to terminate — retry loops, if offered at all, are a caller UX
// concern, never implemented here.
package keystore
