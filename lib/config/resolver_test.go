// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func boolPointer(v bool) *bool { return &v }

// fakeSelector records whether account selection was invoked.
type fakeSelector struct {
	account string
	err     error
	called  bool
}

func (f *fakeSelector) SelectAccount(_ context.Context, _ string) (string, error) {
	f.called = true
	return f.account, f.err
}

// fakeManagedClient reports a fixed provider endpoint, standing in for
// an attached chain client process.
type fakeManagedClient struct {
	uri    string
	err    error
	called bool
}

func (f *fakeManagedClient) ProviderURI(_ context.Context) (string, error) {
	f.called = true
	return f.uri, f.err
}

// checksummedAccount is the EIP-55 reference test vector.
const checksummedAccount = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func TestResolve_ManagedClientWithFederatedOnly(t *testing.T) {
	_, err := Resolver{}.Resolve(Params{
		ManagedClient: true,
		Federated:     boolPointer(true),
	})

	var configError *Error
	if !errors.As(err, &configError) {
		t.Fatalf("Resolve() error = %v, want *config.Error", err)
	}
	if configError.Kind != KindIncompatibleModeFlags {
		t.Errorf("Kind = %q, want %q", configError.Kind, KindIncompatibleModeFlags)
	}
	if configError.Recoverable() {
		t.Error("IncompatibleModeFlags reported as recoverable")
	}
}

func TestResolve_EphemeralExplicitlyNotFederated(t *testing.T) {
	_, err := Resolver{}.Resolve(Params{
		Ephemeral: true,
		Federated: boolPointer(false),
	})

	var configError *Error
	if !errors.As(err, &configError) {
		t.Fatalf("Resolve() error = %v, want *config.Error", err)
	}
	if configError.Kind != KindInvalidEphemeralFederation {
		t.Errorf("Kind = %q, want %q", configError.Kind, KindInvalidEphemeralFederation)
	}
}

func TestResolve_EphemeralUnsetFederationIsAllowed(t *testing.T) {
	// nil (flag not passed) and an explicit true are both fine; only
	// an explicit false is rejected.
	for name, federated := range map[string]*bool{"unset": nil, "explicit_true": boolPointer(true)} {
		t.Run(name, func(t *testing.T) {
			configuration, err := Resolver{}.Resolve(Params{Ephemeral: true, Federated: federated})
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if !configuration.FederatedOnly() {
				t.Error("ephemeral configuration is not federated")
			}
			if !configuration.Ephemeral() {
				t.Error("Ephemeral() = false")
			}
		})
	}
}

func TestResolve_EphemeralDefaultsToTemporaryDomain(t *testing.T) {
	configuration, err := Resolver{}.Resolve(Params{Ephemeral: true})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	domains := configuration.Domains()
	if len(domains) != 1 || domains[0] != TemporaryDomain {
		t.Errorf("Domains() = %v, want [%s]", domains, TemporaryDomain)
	}
	if configuration.DiscoveryPort() != DefaultDiscoveryPort {
		t.Errorf("DiscoveryPort() = %d, want %d", configuration.DiscoveryPort(), DefaultDiscoveryPort)
	}
}

func TestResolve_MissingConfigFileIsRecoverable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.yaml")

	_, err := Resolver{}.Resolve(Params{ConfigFile: path})

	var configError *Error
	if !errors.As(err, &configError) {
		t.Fatalf("Resolve() error = %v, want *config.Error", err)
	}
	if configError.Kind != KindMissingConfigFile {
		t.Errorf("Kind = %q, want %q", configError.Kind, KindMissingConfigFile)
	}
	if !configError.Recoverable() {
		t.Error("MissingConfigFile not reported as recoverable")
	}
}

func TestResolve_LoadsAndOverrides(t *testing.T) {
	directory := t.TempDir()
	path := filepath.Join(directory, "authority.yaml")

	stored, err := Resolver{}.Generate(context.Background(), Params{
		ProviderURI:     "http://localhost:8545",
		OperatorAccount: checksummedAccount,
		Domain:          "caskade:mainnet",
		KeystorePath:    filepath.Join(directory, "authority.keystore"),
	}, &fakeSelector{}, nil)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if err := Save(stored, path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	configuration, err := Resolver{}.Resolve(Params{
		ConfigFile:    path,
		DiscoveryPort: 9200,
	})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if configuration.Network() != NetworkChainBacked {
		t.Errorf("Network() = %q, want %q", configuration.Network(), NetworkChainBacked)
	}
	if configuration.DiscoveryPort() != 9200 {
		t.Errorf("DiscoveryPort() = %d, want 9200 (runtime override)", configuration.DiscoveryPort())
	}
	if configuration.OperatorAccount() != checksummedAccount {
		t.Errorf("OperatorAccount() = %q, want %q", configuration.OperatorAccount(), checksummedAccount)
	}
}

func TestGenerate_EphemeralIsRejected(t *testing.T) {
	_, err := Resolver{}.Generate(context.Background(), Params{Ephemeral: true}, &fakeSelector{}, nil)

	var configError *Error
	if !errors.As(err, &configError) {
		t.Fatalf("Generate() error = %v, want *config.Error", err)
	}
	if configError.Kind != KindIncompatibleModeFlags {
		t.Errorf("Kind = %q, want %q", configError.Kind, KindIncompatibleModeFlags)
	}
}

func TestGenerate_ChainBackedRequiresProviderURI(t *testing.T) {
	_, err := Resolver{}.Generate(context.Background(), Params{}, &fakeSelector{}, nil)

	var configError *Error
	if !errors.As(err, &configError) {
		t.Fatalf("Generate() error = %v, want *config.Error", err)
	}
	if configError.Kind != KindMissingProviderURI {
		t.Errorf("Kind = %q, want %q", configError.Kind, KindMissingProviderURI)
	}
}

func TestGenerate_FederatedNeedsNoProvider(t *testing.T) {
	selector := &fakeSelector{}
	configuration, err := Resolver{}.Generate(context.Background(), Params{
		Federated: boolPointer(true),
	}, selector, nil)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !configuration.FederatedOnly() {
		t.Error("FederatedOnly() = false")
	}
	if selector.called {
		t.Error("account selector invoked for a federated configuration")
	}
}

func TestGenerate_SelectsOperatorAccountWhenUnset(t *testing.T) {
	selector := &fakeSelector{account: checksummedAccount}
	configuration, err := Resolver{}.Generate(context.Background(), Params{
		ProviderURI: "http://localhost:8545",
	}, selector, nil)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !selector.called {
		t.Error("account selector was not invoked")
	}
	if configuration.OperatorAccount() != checksummedAccount {
		t.Errorf("OperatorAccount() = %q, want %q", configuration.OperatorAccount(), checksummedAccount)
	}
}

func TestGenerate_ManagedClientDerivesProvider(t *testing.T) {
	client := &fakeManagedClient{uri: "/var/run/geth.ipc"}
	configuration, err := Resolver{}.Generate(context.Background(), Params{
		ManagedClient:   true,
		OperatorAccount: checksummedAccount,
	}, nil, client)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !client.called {
		t.Error("managed client source was not consulted")
	}
	if configuration.ProviderURI() != "/var/run/geth.ipc" {
		t.Errorf("ProviderURI() = %q, want the derived endpoint", configuration.ProviderURI())
	}
	if configuration.Network() != NetworkChainBacked {
		t.Errorf("Network() = %q, want %q", configuration.Network(), NetworkChainBacked)
	}
}

func TestGenerate_ManagedClientExplicitProviderWins(t *testing.T) {
	client := &fakeManagedClient{uri: "/var/run/geth.ipc"}
	configuration, err := Resolver{}.Generate(context.Background(), Params{
		ManagedClient:   true,
		ProviderURI:     "http://localhost:8545",
		OperatorAccount: checksummedAccount,
	}, nil, client)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if client.called {
		t.Error("managed client source consulted despite an explicit provider")
	}
	if configuration.ProviderURI() != "http://localhost:8545" {
		t.Errorf("ProviderURI() = %q, want the explicit endpoint", configuration.ProviderURI())
	}
}

func TestGenerate_ManagedClientSourceFailure(t *testing.T) {
	client := &fakeManagedClient{err: errors.New("node is not running")}
	_, err := Resolver{}.Generate(context.Background(), Params{
		ManagedClient:   true,
		OperatorAccount: checksummedAccount,
	}, nil, client)
	if err == nil {
		t.Fatal("Generate() succeeded with an unreachable managed client")
	}
}

func TestGenerate_HardwareWalletRequiresChainBacking(t *testing.T) {
	_, err := Resolver{}.Generate(context.Background(), Params{
		Federated:      boolPointer(true),
		HardwareWallet: true,
	}, nil, nil)

	var configError *Error
	if !errors.As(err, &configError) {
		t.Fatalf("Generate() error = %v, want *config.Error", err)
	}
	if configError.Kind != KindIncompatibleModeFlags {
		t.Errorf("Kind = %q, want %q", configError.Kind, KindIncompatibleModeFlags)
	}
}

func TestResolve_RejectsChainOverridesOnFederated(t *testing.T) {
	directory := t.TempDir()
	path := filepath.Join(directory, "authority.yaml")

	stored, err := Resolver{}.Generate(context.Background(), Params{
		Federated:    boolPointer(true),
		KeystorePath: filepath.Join(directory, "authority.keystore"),
	}, nil, nil)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if err := Save(stored, path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	// The file itself is valid; the runtime override would construct
	// the shape Load rejects.
	_, err = Resolver{}.Resolve(Params{
		ConfigFile:  path,
		ProviderURI: "http://localhost:8545",
	})
	if err == nil {
		t.Error("Resolve() layered a provider onto a federated configuration")
	}
}

func TestGenerate_RejectsBadChecksum(t *testing.T) {
	// All-lowercase spelling of a valid address fails EIP-55.
	_, err := Resolver{}.Generate(context.Background(), Params{
		ProviderURI:     "http://localhost:8545",
		OperatorAccount: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
	}, &fakeSelector{}, nil)
	if err == nil {
		t.Fatal("Generate() accepted an address with an invalid checksum")
	}
}
