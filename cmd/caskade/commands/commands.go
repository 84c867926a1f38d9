// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete caskade CLI command tree.
package commands

import (
	"fmt"

	authoritycmd "github.com/caskade-network/caskade/cmd/caskade/authority"
	"github.com/caskade-network/caskade/cmd/caskade/cli"
	"github.com/caskade-network/caskade/lib/version"
)

// Root builds and returns the complete caskade CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "caskade",
		Description: `Caskade: threshold proxy re-encryption network tooling.

Run a policy authority, grant and revoke recipient access, and manage
the authority's configuration and key custody.`,
		Subcommands: []*cli.Command{
			authoritycmd.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("caskade %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Create a federated authority",
				Command:     "caskade authority init --federated-only",
			},
			{
				Description: "Serve an ephemeral development authority",
				Command:     "caskade authority run --dev",
			},
			{
				Description: "Derive the encryption key for a policy label",
				Command:     "caskade authority derive-policy-pubkey --label secrets/research",
			},
		},
	}
}
