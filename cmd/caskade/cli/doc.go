// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the caskade binary: a small
// command tree over pflag, struct-tag flag binding, categorized
// errors, and terminal-aware logging and prompting.
package cli
