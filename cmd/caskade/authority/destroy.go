// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/caskade-network/caskade/cmd/caskade/cli"
	"github.com/caskade-network/caskade/lib/config"
)

type destroyParams struct {
	Config configOptions
	Force  bool `flag:"force" desc:"skip the confirmation prompt"`
}

// DestroyCommand removes a persistent authority's configuration and
// keystore.
func DestroyCommand() *cli.Command {
	var params destroyParams

	return &cli.Command{
		Name:    "destroy",
		Summary: "Delete the authority's configuration and keystore",
		Description: `Delete the authority's configuration file and sealed keystore.

This is irreversible: the master secret is destroyed with the
keystore, and every key the authority ever derived from it becomes
unrecoverable.`,
		Usage: "caskade authority destroy [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("destroy", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}

			configuration, err := params.Config.resolve()
			if err != nil {
				return err
			}
			if configuration.Ephemeral() {
				return cli.Validation("an ephemeral authority has nothing to destroy")
			}

			configPath := params.Config.configFilePath()
			if !params.Force {
				if !confirmDestroy(configPath) {
					fmt.Fprintln(os.Stderr, "Aborted.")
					return nil
				}
			}

			removed, err := config.Destroy(configuration, configPath)
			if err != nil {
				return cli.Internal("destroying authority: %w", err)
			}
			for _, path := range removed {
				fmt.Fprintf(os.Stderr, "Removed %s\n", path)
			}
			return nil
		},
	}
}

// confirmDestroy asks for an explicit yes on the terminal. Anything
// other than "y"/"yes" aborts.
func confirmDestroy(configPath string) bool {
	fmt.Fprintf(os.Stderr, "Permanently destroy the authority at %s? [y/N]: ", configPath)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
