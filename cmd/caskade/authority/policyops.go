// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/caskade-network/caskade/cmd/caskade/cli"
	"github.com/caskade-network/caskade/lib/policy"
	"github.com/caskade-network/caskade/lib/secret"
)

// policyOpParams is the flag block shared by the one-shot policy
// operations: they unlock the authority and dispatch a single request
// through the same validation path the listener uses.
type policyOpParams struct {
	Config        configOptions
	ServiceSocket string `flag:"service-socket" desc:"unix socket of the crypto service (default: <config root>/crypto.sock)"`
	PasswordFile  string `flag:"password-file" desc:"path to file containing the keystore password, or - to prompt"`
}

// dispatchOnce unlocks the authority, builds the production dispatcher,
// and runs one request. Output is always JSON on stdout so these
// commands compose in scripts exactly like the HTTP responses.
func dispatchOnce(params *policyOpParams, request policy.Request) error {
	auth, err := unlockFromFlags(&params.Config, params.PasswordFile)
	if err != nil {
		return err
	}
	defer auth.Close()

	serviceSocket := params.ServiceSocket
	if serviceSocket == "" {
		serviceSocket = defaultServiceSocket()
	}
	service := policy.NewSocketService(serviceSocket)
	logger := cli.NewCommandLogger(false).With("command", "authority/"+request.Action())
	dispatcher := policy.NewDispatcher(auth, service, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := dispatcher.Dispatch(ctx, request)
	if err != nil {
		var validation *policy.ValidationError
		if errors.As(err, &validation) {
			return cli.Validation("%v", err)
		}
		var operation *policy.OperationError
		if errors.As(err, &operation) {
			return cli.Transient("%v", err)
		}
		return cli.Internal("%v", err)
	}
	return cli.WriteJSON(result)
}

type grantParams struct {
	policyOpParams
	BobEncryptingKey string `flag:"bob-encrypting-key" desc:"recipient's encrypting key (hex compressed point)"`
	BobVerifyingKey  string `flag:"bob-verifying-key" desc:"recipient's verifying key (hex compressed point)"`
	Label            string `flag:"label" desc:"policy label"`
	M                int    `flag:"m" desc:"decryption threshold" default:"2"`
	N                int    `flag:"n" desc:"total key fragments" default:"3"`
	Expiration       string `flag:"expiration" desc:"policy expiration (RFC 3339)"`
	Value            string `flag:"value" desc:"total payment in wei (chain-backed only)"`
	Rate             string `flag:"rate" desc:"payment rate in wei per period (chain-backed only)"`
}

// GrantCommand issues an access policy to a recipient.
func GrantCommand() *cli.Command {
	var params grantParams

	return &cli.Command{
		Name:    "grant",
		Summary: "Grant a recipient access under a policy label",
		Usage:   "caskade authority grant --bob-encrypting-key <hex> --bob-verifying-key <hex> --label <label> --expiration <rfc3339> [flags]",
		Examples: []cli.Example{
			{
				Description: "Grant with a 2-of-3 threshold on a federated authority",
				Command:     "caskade authority grant --label secrets/research --bob-encrypting-key 03ab... --bob-verifying-key 02cd... --expiration 2027-06-01T00:00:00Z",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("grant", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			return dispatchOnce(&params.policyOpParams, &policy.GrantRequest{
				BobEncryptingKey: params.BobEncryptingKey,
				BobVerifyingKey:  params.BobVerifyingKey,
				Label:            params.Label,
				M:                params.M,
				N:                params.N,
				Expiration:       params.Expiration,
				Value:            params.Value,
				Rate:             params.Rate,
			})
		},
	}
}

type revokeParams struct {
	policyOpParams
	Label           string `flag:"label" desc:"policy label"`
	BobVerifyingKey string `flag:"bob-verifying-key" desc:"recipient's verifying key (hex compressed point)"`
}

// RevokeCommand withdraws a previously granted policy.
func RevokeCommand() *cli.Command {
	var params revokeParams

	return &cli.Command{
		Name:    "revoke",
		Summary: "Revoke a previously granted policy",
		Usage:   "caskade authority revoke --label <label> --bob-verifying-key <hex> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("revoke", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			return dispatchOnce(&params.policyOpParams, &policy.RevokeRequest{
				Label:           params.Label,
				BobVerifyingKey: params.BobVerifyingKey,
			})
		},
	}
}

type decryptParams struct {
	policyOpParams
	Label          string `flag:"label" desc:"policy label"`
	MessageKitFile string `flag:"message-kit" desc:"path to the base64 message kit, or - for stdin"`
}

// DecryptCommand decrypts a message kit under a label the authority
// owns.
func DecryptCommand() *cli.Command {
	var params decryptParams

	return &cli.Command{
		Name:    "decrypt",
		Summary: "Decrypt a message kit under an owned policy label",
		Usage:   "caskade authority decrypt --label <label> --message-kit <path> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("decrypt", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			if params.MessageKitFile == "" {
				return cli.Validation("--message-kit is required")
			}

			kit, err := secret.ReadFromPath(params.MessageKitFile)
			if err != nil {
				return cli.Validation("reading message kit: %v", err)
			}
			encoded := kit.String()
			kit.Close()

			return dispatchOnce(&params.policyOpParams, &policy.DecryptRequest{
				Label:      params.Label,
				MessageKit: encoded,
			})
		},
	}
}
