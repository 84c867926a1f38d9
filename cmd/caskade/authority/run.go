// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/caskade-network/caskade/cmd/caskade/cli"
	"github.com/caskade-network/caskade/lib/config"
	"github.com/caskade-network/caskade/lib/control"
	"github.com/caskade-network/caskade/lib/policy"
)

type runParams struct {
	Config        configOptions
	IPC           bool   `flag:"ipc" desc:"serve CBOR on a unix socket instead of JSON over HTTP"`
	Socket        string `flag:"socket" desc:"unix socket path for --ipc (default: <config root>/authority.sock)"`
	HTTPAddress   string `flag:"http-address" desc:"TCP listen address for the HTTP transport" default:"127.0.0.1:9155"`
	ServiceSocket string `flag:"service-socket" desc:"unix socket of the crypto service (default: <config root>/crypto.sock)"`
	PasswordFile  string `flag:"password-file" desc:"path to file containing the keystore password, or - to prompt"`
	DryRun        bool   `flag:"dry-run" desc:"bind the transport, validate startup wiring, and exit"`
	Debug         bool   `flag:"debug" desc:"debug logging; re-raise internal failures with a stack trace"`
}

// RunCommand starts the control-plane listener and serves until
// interrupted.
func RunCommand() *cli.Command {
	var params runParams

	return &cli.Command{
		Name:    "run",
		Summary: "Run the authority's control-plane listener",
		Description: `Unlock the authority and serve policy requests.

Exactly one transport is active: JSON over HTTP (the default) or, with
--ipc, deterministic CBOR on a unix socket. In IPC mode the keystore
password comes from the ` + "CASKADE_AUTHORITY_PASSWORD" + ` environment
variable; interactively it is prompted. A keystore sealed with
--hw-wallet at init time needs no password in either mode: the wallet
proof is requested through the provider instead.

--dry-run binds the transport and exits 0 without serving, for
deployment smoke checks.`,
		Usage: "caskade authority run [flags]",
		Examples: []cli.Example{
			{
				Description: "Serve an ephemeral development authority over HTTP",
				Command:     "caskade authority run --dev",
			},
			{
				Description: "Serve the persistent authority on a unix socket",
				Command:     "CASKADE_AUTHORITY_PASSWORD=... caskade authority run --ipc",
			},
			{
				Description: "Verify startup wiring without serving",
				Command:     "caskade authority run --dev --dry-run",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("run", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			return runServe(&params)
		},
	}
}

func runServe(params *runParams) error {
	logger := cli.NewCommandLogger(params.Debug).With("command", "authority/run")

	configuration, err := params.Config.resolve()
	if err != nil {
		return err
	}

	passphrase, err := acquirePassphrase(configuration, params.PasswordFile, params.IPC)
	if err != nil {
		return err
	}
	if passphrase != nil {
		defer passphrase.Close()
	}

	auth, err := unlock(configuration, passphrase)
	if err != nil {
		return err
	}
	defer auth.Close()

	// The verifying key is the authority's public identity; operators
	// paste this line into recipient configuration.
	fmt.Fprintf(os.Stderr, "Authority verifying key: %s\n", auth.VerifyingKeyHex())

	serviceSocket := params.ServiceSocket
	if serviceSocket == "" {
		serviceSocket = defaultServiceSocket()
	}
	service := policy.NewSocketService(serviceSocket)
	dispatcher := policy.NewDispatcher(auth, service, logger)

	options := control.Options{
		DryRun:     params.DryRun,
		Debug:      params.Debug,
		Dispatcher: dispatcher,
		Logger:     logger,
	}
	if params.IPC {
		options.Transport = control.TransportIPC
		options.SocketPath = params.Socket
		if options.SocketPath == "" {
			options.SocketPath = filepath.Join(config.DefaultConfigRoot(), "authority.sock")
		}
	} else {
		options.Transport = control.TransportHTTP
		options.Address = params.HTTPAddress
	}

	listener, err := control.NewListener(options)
	if err != nil {
		return cli.Validation("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := listener.Run(ctx); err != nil {
		var listenerErr *control.ListenerError
		if errors.As(err, &listenerErr) {
			return cli.Transient("%v", err)
		}
		return cli.Internal("%v", err)
	}
	return nil
}
