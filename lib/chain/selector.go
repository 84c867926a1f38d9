// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package chain

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
)

// AccountSelector implements interactive operator account selection
// against a chain provider. It lists the provider's unlocked accounts
// and prompts for a choice; the selected address is returned in its
// EIP-55 checksum form.
//
// In and Out default to the terminal. Tests substitute buffers.
type AccountSelector struct {
	In  io.Reader
	Out io.Writer
}

// SelectAccount queries eth_accounts on the provider and prompts the
// operator to choose. A provider with a single account short-circuits
// the prompt; a provider with none is an error.
func (s *AccountSelector) SelectAccount(ctx context.Context, providerURI string) (string, error) {
	in := s.In
	if in == nil {
		in = os.Stdin
	}
	out := s.Out
	if out == nil {
		out = os.Stderr
	}

	client, err := rpc.DialContext(ctx, providerURI)
	if err != nil {
		return "", fmt.Errorf("connecting to provider %s: %w", providerURI, err)
	}
	defer client.Close()

	var accounts []string
	if err := client.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return "", fmt.Errorf("listing provider accounts: %w", err)
	}
	if len(accounts) == 0 {
		return "", fmt.Errorf("provider %s controls no accounts", providerURI)
	}

	if len(accounts) == 1 {
		selected := common.HexToAddress(accounts[0]).Hex()
		fmt.Fprintf(out, "Using the provider's only account: %s\n", selected)
		return selected, nil
	}

	fmt.Fprintf(out, "Select the operator account:\n")
	for i, account := range accounts {
		fmt.Fprintf(out, "  %d: %s\n", i, common.HexToAddress(account).Hex())
	}
	fmt.Fprintf(out, "Account index [0]: ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading account selection: %w", err)
	}
	line = strings.TrimSpace(line)

	index := 0
	if line != "" {
		index, err = strconv.Atoi(line)
		if err != nil {
			return "", fmt.Errorf("account selection %q is not a number", line)
		}
	}
	if index < 0 || index >= len(accounts) {
		return "", fmt.Errorf("account index %d is out of range (0-%d)", index, len(accounts)-1)
	}
	return common.HexToAddress(accounts[index]).Hex(), nil
}
