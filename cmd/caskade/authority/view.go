// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/caskade-network/caskade/cmd/caskade/cli"
	"github.com/caskade-network/caskade/lib/config"
)

type viewParams struct {
	cli.JSONOutput
	Config configOptions
}

// configSummary is the serializable shape of a resolved configuration.
// No key material appears here; view never touches the keystore.
type configSummary struct {
	Mode            string   `json:"mode"`
	Network         string   `json:"network"`
	Domains         []string `json:"domains"`
	ProviderURI     string   `json:"provider_uri,omitempty"`
	OperatorAccount string   `json:"operator_account,omitempty"`
	RegistryPath    string   `json:"registry_path,omitempty"`
	DiscoveryPort   int      `json:"discovery_port"`
	KeystorePath    string   `json:"keystore_path,omitempty"`
	HardwareWallet  bool     `json:"hw_wallet,omitempty"`
}

// ViewCommand prints the resolved configuration.
func ViewCommand() *cli.Command {
	var params viewParams

	return &cli.Command{
		Name:    "view",
		Summary: "Show the resolved authority configuration",
		Usage:   "caskade authority view [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("view", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}

			configuration, err := params.Config.resolve()
			if err != nil {
				return err
			}

			summary := summarize(configuration)
			if done, err := params.EmitJSON(summary); done {
				return err
			}

			fmt.Printf("mode:             %s\n", summary.Mode)
			fmt.Printf("network:          %s\n", summary.Network)
			fmt.Printf("domains:          %s\n", strings.Join(summary.Domains, ", "))
			if summary.ProviderURI != "" {
				fmt.Printf("provider:         %s\n", summary.ProviderURI)
			}
			if summary.OperatorAccount != "" {
				fmt.Printf("operator account: %s\n", summary.OperatorAccount)
			}
			if summary.RegistryPath != "" {
				fmt.Printf("registry:         %s\n", summary.RegistryPath)
			}
			fmt.Printf("discovery port:   %d\n", summary.DiscoveryPort)
			if summary.KeystorePath != "" {
				fmt.Printf("keystore:         %s\n", summary.KeystorePath)
			}
			if summary.HardwareWallet {
				fmt.Printf("keystore seal:    hardware wallet\n")
			}
			return nil
		},
	}
}

func summarize(configuration *config.Configuration) configSummary {
	return configSummary{
		Mode:            string(configuration.Mode()),
		Network:         string(configuration.Network()),
		Domains:         configuration.Domains(),
		ProviderURI:     configuration.ProviderURI(),
		OperatorAccount: configuration.OperatorAccount(),
		RegistryPath:    configuration.RegistryPath(),
		DiscoveryPort:   configuration.DiscoveryPort(),
		KeystorePath:    configuration.KeystorePath(),
		HardwareWallet:  configuration.HardwareWallet(),
	}
}
