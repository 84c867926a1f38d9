// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/caskade-network/caskade/cmd/caskade/cli"
	"github.com/caskade-network/caskade/lib/authority"
	"github.com/caskade-network/caskade/lib/chain"
	"github.com/caskade-network/caskade/lib/config"
	"github.com/caskade-network/caskade/lib/keystore"
	"github.com/caskade-network/caskade/lib/secret"
)

type initParams struct {
	Config       configOptions
	PasswordFile string `flag:"password-file" desc:"path to file containing the keystore password, or - to prompt"`
}

// InitCommand creates a persistent authority: a configuration file and
// a sealed keystore holding a fresh master secret.
func InitCommand() *cli.Command {
	var params initParams

	return &cli.Command{
		Name:    "init",
		Summary: "Create a new policy authority",
		Description: `Create a persistent policy authority.

Generates a fresh master secret, seals it into a password-protected
keystore, and writes the configuration file. Chain-backed authorities
need a provider URI; if no operator account is given, one is selected
interactively from the provider's accounts.

The keystore password is prompted twice unless --password-file is
given. There is no recovery path for a lost password. With --hw-wallet
the keystore is sealed to a proof from the operator's wallet instead
and no password exists.`,
		Usage: "caskade authority init [flags]",
		Examples: []cli.Example{
			{
				Description: "Create a federated authority (no chain)",
				Command:     "caskade authority init --federated-only",
			},
			{
				Description: "Create a chain-backed authority",
				Command:     "caskade authority init --provider http://localhost:8545",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("init", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			return runInit(&params)
		},
	}
}

func runInit(params *initParams) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	selector := &chain.AccountSelector{}
	configuration, err := config.Resolver{}.Generate(ctx, params.Config.params(), selector, &chain.ManagedClient{})
	if err != nil {
		return cli.Validation("%v", err)
	}

	configPath := params.Config.configFilePath()
	if _, err := os.Stat(configPath); err == nil {
		return cli.Conflict("an authority already exists at %s (run 'caskade authority destroy' first)", configPath)
	}

	var master *secret.Buffer
	if configuration.HardwareWallet() {
		prover := &chain.WalletProver{
			ProviderURI: configuration.ProviderURI(),
			Account:     configuration.OperatorAccount(),
		}
		master, err = keystore.GenerateWithProver(ctx, configuration.KeystorePath(), prover)
		if err != nil {
			return cli.Internal("creating keystore: %w", err)
		}
	} else {
		passphrase, err := cli.ReadPassphrase(params.PasswordFile, true)
		if err != nil {
			return err
		}
		defer passphrase.Close()

		master, err = keystore.Generate(configuration.KeystorePath(), passphrase)
		if err != nil {
			return cli.Internal("creating keystore: %w", err)
		}
	}

	auth, err := authority.New(configuration, master)
	if err != nil {
		master.Close()
		return cli.Internal("deriving authority keys: %w", err)
	}
	defer auth.Close()

	if err := config.Save(configuration, configPath); err != nil {
		return cli.Internal("writing configuration: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Authority created.\n")
	fmt.Fprintf(os.Stderr, "  configuration: %s\n", configPath)
	fmt.Fprintf(os.Stderr, "  keystore:      %s\n", configuration.KeystorePath())
	fmt.Fprintf(os.Stderr, "  verifying key: %s\n", auth.VerifyingKeyHex())
	return nil
}
