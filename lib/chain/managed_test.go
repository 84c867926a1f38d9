// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package chain

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
)

// web3API serves web3_clientVersion, the call the managed-client
// attachment uses as its liveness check.
type web3API struct {
	version string
}

func (api *web3API) ClientVersion() string { return api.version }

func managedClientSocket(t *testing.T) string {
	t.Helper()
	server := rpc.NewServer()
	if err := server.RegisterName("web3", &web3API{version: "test-node/1.0"}); err != nil {
		t.Fatalf("RegisterName() error: %v", err)
	}

	socket := filepath.Join(t.TempDir(), "client.ipc")
	listener, err := net.Listen("unix", socket)
	if err != nil {
		t.Fatalf("Listen() error: %v", err)
	}
	go server.ServeListener(listener)
	t.Cleanup(func() {
		server.Stop()
		listener.Close()
	})
	return socket
}

func TestManagedClient_ProviderURI(t *testing.T) {
	socket := managedClientSocket(t)

	client := &ManagedClient{IPCPath: socket}
	uri, err := client.ProviderURI(context.Background())
	if err != nil {
		t.Fatalf("ProviderURI() error: %v", err)
	}
	if uri != socket {
		t.Errorf("ProviderURI() = %q, want %q", uri, socket)
	}
}

func TestManagedClient_NodeNotRunning(t *testing.T) {
	client := &ManagedClient{IPCPath: filepath.Join(t.TempDir(), "absent.ipc")}
	if _, err := client.ProviderURI(context.Background()); err == nil {
		t.Error("ProviderURI() succeeded with no client process listening")
	}
}
