// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/caskade-network/caskade/cmd/caskade/cli"
)

type publicKeysParams struct {
	cli.JSONOutput
	Config       configOptions
	PasswordFile string `flag:"password-file" desc:"path to file containing the keystore password, or - to prompt"`
}

// PublicKeysCommand prints the authority's long-term public keys.
func PublicKeysCommand() *cli.Command {
	var params publicKeysParams

	return &cli.Command{
		Name:    "public-keys",
		Summary: "Show the authority's verifying and encrypting keys",
		Usage:   "caskade authority public-keys [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("public-keys", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}

			auth, err := unlockFromFlags(&params.Config, params.PasswordFile)
			if err != nil {
				return err
			}
			defer auth.Close()

			keys := struct {
				VerifyingKey  string `json:"public_verifying_key"`
				EncryptingKey string `json:"public_encrypting_key"`
			}{
				VerifyingKey:  auth.VerifyingKeyHex(),
				EncryptingKey: hex.EncodeToString(auth.EncryptingKey()),
			}
			if done, err := params.EmitJSON(keys); done {
				return err
			}

			fmt.Printf("verifying key:  %s\n", keys.VerifyingKey)
			fmt.Printf("encrypting key: %s\n", keys.EncryptingKey)
			return nil
		},
	}
}

type derivePolicyKeyParams struct {
	cli.JSONOutput
	Config       configOptions
	Label        string `flag:"label" desc:"policy label to derive the key for"`
	PasswordFile string `flag:"password-file" desc:"path to file containing the keystore password, or - to prompt"`
}

// DerivePolicyPubkeyCommand derives and prints the policy public key
// for a label. Deterministic; safe to run repeatedly.
func DerivePolicyPubkeyCommand() *cli.Command {
	var params derivePolicyKeyParams

	return &cli.Command{
		Name:    "derive-policy-pubkey",
		Summary: "Derive the policy public key for a label",
		Usage:   "caskade authority derive-policy-pubkey --label <label> [flags]",
		Examples: []cli.Example{
			{
				Description: "Derive the key a data owner encrypts under",
				Command:     "caskade authority derive-policy-pubkey --label secrets/research",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("derive-policy-pubkey", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			if params.Label == "" {
				return cli.Validation("--label is required")
			}

			auth, err := unlockFromFlags(&params.Config, params.PasswordFile)
			if err != nil {
				return err
			}
			defer auth.Close()

			key, err := auth.DerivePolicyPublicKey(params.Label)
			if err != nil {
				return cli.Internal("deriving policy key: %w", err)
			}

			result := struct {
				Label               string `json:"label"`
				PolicyEncryptingKey string `json:"policy_encrypting_key"`
			}{
				Label:               params.Label,
				PolicyEncryptingKey: hex.EncodeToString(key),
			}
			if done, err := params.EmitJSON(result); done {
				return err
			}

			fmt.Printf("%s\n", result.PolicyEncryptingKey)
			return nil
		},
	}
}
