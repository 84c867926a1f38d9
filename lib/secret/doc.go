// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret provides a memory-safe buffer for sensitive data:
// authority master secrets, keystore passphrases, and decrypted
// cleartext.
//
// [Buffer] allocates memory outside the Go heap via mmap(MAP_ANONYMOUS),
// locks it into physical RAM via mlock (preventing swap), and marks it
// excluded from core dumps via madvise(MADV_DONTDUMP). On Close, the
// memory is zeroed, unlocked, and unmapped. Because the memory lives
// outside the Go heap, the garbage collector cannot copy or relocate
// it, so secret material does not persist after release.
//
// Constructors:
//
//   - [New] -- allocates a zero-filled buffer of a given size
//   - [NewFromBytes] -- copies into protected memory, zeros the source
//
// Access via [Buffer.Bytes] (slice into the mmap region) or
// [Buffer.String] (heap copy for API boundaries that require strings).
// [Buffer.Equal] compares in constant time. After Close, any access
// panics. Close is idempotent.
//
// Depends on golang.org/x/sys/unix. No Caskade-internal dependencies.
// Imported by lib/keystore for master secret custody and by the CLI
// for passphrase handling.
package secret
