// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package chain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/rpc"
)

// ManagedClient attaches to a chain client process running on the
// local host and reports its provider endpoint. The client process
// itself is managed outside this module; attaching is a liveness
// check, so a node that is not running fails here rather than at the
// first chain operation.
//
// IPCPath defaults to the conventional geth socket under the
// operator's home directory.
type ManagedClient struct {
	IPCPath string
}

// ProviderURI attaches to the managed client over its IPC socket and
// returns the endpoint to record as the provider URI.
func (c *ManagedClient) ProviderURI(ctx context.Context) (string, error) {
	path := c.IPCPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locating the managed client socket: %w", err)
		}
		path = filepath.Join(home, ".ethereum", "geth.ipc")
	}

	client, err := rpc.DialContext(ctx, path)
	if err != nil {
		return "", fmt.Errorf("attaching to managed client at %s: %w", path, err)
	}
	defer client.Close()

	var version string
	if err := client.CallContext(ctx, &version, "web3_clientVersion"); err != nil {
		return "", fmt.Errorf("checking managed client at %s (is the node running?): %w", path, err)
	}
	return path, nil
}
