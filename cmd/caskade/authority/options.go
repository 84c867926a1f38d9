// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/caskade-network/caskade/cmd/caskade/cli"
	"github.com/caskade-network/caskade/lib/authority"
	"github.com/caskade-network/caskade/lib/chain"
	"github.com/caskade-network/caskade/lib/config"
	"github.com/caskade-network/caskade/lib/keystore"
	"github.com/caskade-network/caskade/lib/secret"
)

// configOptions is the flag block shared by every command that
// resolves an authority configuration. It implements [cli.FlagBinder]
// because --federated-only is tri-state: the resolver must see the
// difference between "flag absent" and "flag explicitly false", which
// needs pflag's Changed tracking rather than a plain bool field.
type configOptions struct {
	Ephemeral       bool
	ManagedClient   bool
	HardwareWallet  bool
	Domain          string
	ProviderURI     string
	OperatorAccount string
	RegistryPath    string
	DiscoveryPort   int
	ConfigFile      string
	KeystorePath    string

	federatedOnly bool
	flagSet       *pflag.FlagSet
}

func (o *configOptions) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.BoolVar(&o.Ephemeral, "dev", false, "run an ephemeral in-memory authority (nothing persisted)")
	flagSet.BoolVar(&o.federatedOnly, "federated-only", false, "operate without blockchain backing")
	flagSet.BoolVar(&o.ManagedClient, "managed-client", false, "derive the provider from a managed chain client process")
	flagSet.BoolVar(&o.HardwareWallet, "hw-wallet", false, "seal and unlock the keystore with a wallet proof instead of a password (chain-backed only)")
	flagSet.StringVar(&o.Domain, "domain", "", "network domain to serve")
	flagSet.StringVar(&o.ProviderURI, "provider", "", "chain provider endpoint URI")
	flagSet.StringVar(&o.OperatorAccount, "operator-account", "", "EIP-55 checksum address paying for chain operations")
	flagSet.StringVar(&o.RegistryPath, "registry", "", "contract registry file path")
	flagSet.IntVar(&o.DiscoveryPort, "discovery-port", 0, "peer discovery port")
	flagSet.StringVar(&o.ConfigFile, "config", "", "configuration file path")
	flagSet.StringVar(&o.KeystorePath, "keystore", "", "sealed keystore file path")
	o.flagSet = flagSet
}

// params converts the parsed flags into resolver parameters,
// preserving the unset state of --federated-only.
func (o *configOptions) params() config.Params {
	params := config.Params{
		Ephemeral:       o.Ephemeral,
		ManagedClient:   o.ManagedClient,
		HardwareWallet:  o.HardwareWallet,
		Domain:          o.Domain,
		ProviderURI:     o.ProviderURI,
		OperatorAccount: o.OperatorAccount,
		RegistryPath:    o.RegistryPath,
		DiscoveryPort:   o.DiscoveryPort,
		ConfigFile:      o.ConfigFile,
		KeystorePath:    o.KeystorePath,
	}
	if o.flagSet != nil && o.flagSet.Changed("federated-only") {
		federated := o.federatedOnly
		params.Federated = &federated
	}
	return params
}

// resolve produces the running configuration, mapping resolver errors
// to categorized command errors. A missing configuration file gets the
// init hint; everything else passes through with its message.
func (o *configOptions) resolve() (*config.Configuration, error) {
	configuration, err := config.Resolver{}.Resolve(o.params())
	if err != nil {
		var configErr *config.Error
		if errors.As(err, &configErr) {
			if configErr.Recoverable() {
				return nil, cli.NotFound("%v\n\nRun 'caskade authority init' to create one, or pass --dev for an ephemeral authority.", err)
			}
			return nil, cli.Validation("%v", err)
		}
		return nil, cli.Internal("resolving configuration: %w", err)
	}
	return configuration, nil
}

// configFilePath is the effective configuration file location.
func (o *configOptions) configFilePath() string {
	if o.ConfigFile != "" {
		return o.ConfigFile
	}
	return config.DefaultConfigPath(config.DefaultConfigRoot())
}

// acquirePassphrase obtains the keystore passphrase for unlocking.
//
// In machine mode (IPC transport, no terminal expected) the designated
// environment variable is the only source; its absence is a startup
// error, never an implicit empty password. Interactively the operator
// is prompted, or --password-file is read. A keystore sealed to a
// hardware-wallet proof needs no password at all: the proof is the
// credential.
func acquirePassphrase(configuration *config.Configuration, passwordFile string, machineMode bool) (*secret.Buffer, error) {
	if configuration.Ephemeral() || configuration.HardwareWallet() {
		return nil, nil
	}

	if machineMode {
		passphrase, found, err := keystore.EnvPassphraseBuffer()
		if err != nil {
			return nil, cli.Validation("%v", err)
		}
		if !found {
			return nil, cli.Validation("%s must be set to unlock the keystore in machine-readable mode", keystore.EnvPassphrase)
		}
		return passphrase, nil
	}

	return cli.ReadPassphrase(passwordFile, false)
}

// walletProofTimeout bounds the provider round trip for a
// hardware-wallet proof, including the operator confirming on the
// device.
const walletProofTimeout = 60 * time.Second

// unlock opens the custody gate. A rejected credential (wrong
// passphrase, or a proof from the wrong wallet) prints its own message
// and maps to the distinguished authentication exit code; the keystore
// allows exactly one attempt per process.
func unlock(configuration *config.Configuration, passphrase *secret.Buffer) (*authority.Authority, error) {
	var auth *authority.Authority
	var err error

	if configuration.HardwareWallet() {
		ctx, cancel := context.WithTimeout(context.Background(), walletProofTimeout)
		defer cancel()
		prover := &chain.WalletProver{
			ProviderURI: configuration.ProviderURI(),
			Account:     configuration.OperatorAccount(),
		}
		auth, err = authority.UnlockWithProver(ctx, configuration, prover)
	} else {
		auth, err = authority.Unlock(configuration, passphrase)
	}
	if err != nil {
		if errors.Is(err, keystore.ErrAuthenticationFailed) {
			fmt.Fprintln(os.Stderr, "Authentication failed: the credential does not open this keystore.")
			return nil, &cli.ExitError{Code: cli.ExitAuthenticationFailed}
		}
		return nil, cli.Internal("unlocking authority: %w", err)
	}
	return auth, nil
}

// unlockFromFlags is the common path for one-shot commands: resolve
// the configuration, obtain a passphrase interactively (or from
// --password-file), and open the custody gate.
func unlockFromFlags(options *configOptions, passwordFile string) (*authority.Authority, error) {
	configuration, err := options.resolve()
	if err != nil {
		return nil, err
	}

	passphrase, err := acquirePassphrase(configuration, passwordFile, false)
	if err != nil {
		return nil, err
	}
	if passphrase != nil {
		defer passphrase.Close()
	}

	return unlock(configuration, passphrase)
}

// defaultServiceSocket is where the co-located crypto service listens
// unless overridden.
func defaultServiceSocket() string {
	return filepath.Join(config.DefaultConfigRoot(), "crypto.sock")
}
