// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package chain

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
)

// ethAPI serves eth_accounts with a fixed account list.
type ethAPI struct {
	accounts []string
}

func (api *ethAPI) Accounts() []string { return api.accounts }

func providerWithAccounts(t *testing.T, accounts ...string) string {
	t.Helper()
	server := rpc.NewServer()
	if err := server.RegisterName("eth", &ethAPI{accounts: accounts}); err != nil {
		t.Fatalf("RegisterName() error: %v", err)
	}
	httpServer := httptest.NewServer(server)
	t.Cleanup(httpServer.Close)
	t.Cleanup(server.Stop)
	return httpServer.URL
}

func TestSelectAccount_SingleAccount(t *testing.T) {
	provider := providerWithAccounts(t, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")

	var out bytes.Buffer
	selector := &AccountSelector{In: strings.NewReader(""), Out: &out}
	selected, err := selector.SelectAccount(context.Background(), provider)
	if err != nil {
		t.Fatalf("SelectAccount() error: %v", err)
	}
	// EIP-55 checksum form of the lowercase provider address.
	if selected != "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed" {
		t.Errorf("SelectAccount() = %q, want the checksummed address", selected)
	}
}

func TestSelectAccount_PromptsForChoice(t *testing.T) {
	provider := providerWithAccounts(t,
		"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		"0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359",
	)

	var out bytes.Buffer
	selector := &AccountSelector{In: strings.NewReader("1\n"), Out: &out}
	selected, err := selector.SelectAccount(context.Background(), provider)
	if err != nil {
		t.Fatalf("SelectAccount() error: %v", err)
	}
	if selected != "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359" {
		t.Errorf("SelectAccount() = %q, want the second account checksummed", selected)
	}
	if !strings.Contains(out.String(), "0: ") || !strings.Contains(out.String(), "1: ") {
		t.Errorf("prompt did not list accounts:\n%s", out.String())
	}
}

func TestSelectAccount_DefaultsToFirst(t *testing.T) {
	provider := providerWithAccounts(t,
		"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		"0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359",
	)

	selector := &AccountSelector{In: strings.NewReader("\n"), Out: &bytes.Buffer{}}
	selected, err := selector.SelectAccount(context.Background(), provider)
	if err != nil {
		t.Fatalf("SelectAccount() error: %v", err)
	}
	if selected != "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed" {
		t.Errorf("SelectAccount() = %q, want the first account", selected)
	}
}

func TestSelectAccount_RejectsBadInput(t *testing.T) {
	provider := providerWithAccounts(t,
		"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		"0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359",
	)

	for _, input := range []string{"notanumber\n", "7\n", "-1\n"} {
		selector := &AccountSelector{In: strings.NewReader(input), Out: &bytes.Buffer{}}
		if _, err := selector.SelectAccount(context.Background(), provider); err == nil {
			t.Errorf("SelectAccount() accepted input %q", input)
		}
	}
}

func TestSelectAccount_NoAccounts(t *testing.T) {
	provider := providerWithAccounts(t)

	selector := &AccountSelector{In: strings.NewReader(""), Out: &bytes.Buffer{}}
	if _, err := selector.SelectAccount(context.Background(), provider); err == nil {
		t.Error("SelectAccount() succeeded against an empty provider")
	}
}

func TestSelectAccount_UnreachableProvider(t *testing.T) {
	selector := &AccountSelector{In: strings.NewReader(""), Out: &bytes.Buffer{}}
	_, err := selector.SelectAccount(context.Background(), "http://127.0.0.1:1/")
	if err == nil {
		t.Error("SelectAccount() succeeded against an unreachable provider")
	}
}
