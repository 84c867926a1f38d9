// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import "github.com/caskade-network/caskade/cmd/caskade/cli"

// Command returns the "authority" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "authority",
		Summary: "Manage and run a policy authority",
		Description: `Manage a policy authority: the actor that owns policy labels,
derives per-label encryption keys, and grants or revokes recipient
access through the threshold re-encryption network.`,
		Subcommands: []*cli.Command{
			InitCommand(),
			ViewCommand(),
			DestroyCommand(),
			RunCommand(),
			PublicKeysCommand(),
			DerivePolicyPubkeyCommand(),
			GrantCommand(),
			RevokeCommand(),
			DecryptCommand(),
		},
	}
}
