// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Params are the raw startup parameters for configuration resolution,
// typically bound from CLI flags. Fields that distinguish "unset" from
// an explicit zero value use pointers.
type Params struct {
	// Ephemeral requests an in-memory development authority.
	Ephemeral bool

	// Federated is the tri-state --federated-only flag: nil when the
	// operator did not pass the flag, otherwise the explicit value.
	// The distinction matters: an ephemeral authority combined with
	// an explicit Federated=false is rejected.
	Federated *bool

	// ManagedClient requests a managed chain client process whose
	// provider URI is derived rather than supplied: at generation time
	// the resolver asks the ManagedClientSource for the endpoint
	// instead of requiring --provider. Mutually exclusive with
	// explicit federated-only operation.
	ManagedClient bool

	// HardwareWallet seals the keystore to a proof from the operator's
	// wallet instead of a password. Requires a chain-backed
	// configuration: the proof comes through the provider's signer.
	HardwareWallet bool

	// Domain is the network domain to serve. Empty selects
	// TemporaryDomain for ephemeral authorities and leaves persisted
	// domains untouched otherwise.
	Domain string

	// ProviderURI is the chain provider endpoint.
	ProviderURI string

	// OperatorAccount is the EIP-55 checksum address paying for
	// chain-backed operations. May be left empty at generation time,
	// in which case an account is selected interactively.
	OperatorAccount string

	// RegistryPath overrides the contract registry location.
	RegistryPath string

	// DiscoveryPort overrides the peer discovery port. Zero keeps the
	// configured or default port.
	DiscoveryPort int

	// ConfigFile is the persistent configuration file path. Empty
	// selects the default path under DefaultConfigRoot.
	ConfigFile string

	// KeystorePath overrides the sealed keystore location.
	KeystorePath string

	// Middleware is the injected peer-discovery transport handle.
	Middleware Middleware
}

// AccountSelector chooses an operator account from the accounts the
// chain provider exposes. Implementations are interactive — they
// prompt the operator — so resolution code treats this as an explicit
// side effect and tests substitute a fake.
type AccountSelector interface {
	SelectAccount(ctx context.Context, providerURI string) (string, error)
}

// ManagedClientSource reports the provider endpoint of a chain client
// process managed outside this module. Attaching contacts a live
// process, so like AccountSelector it is an explicit collaborator
// rather than ambient state.
type ManagedClientSource interface {
	ProviderURI(ctx context.Context) (string, error)
}

// Resolver turns raw parameters into an immutable Configuration.
// The zero value is ready to use.
type Resolver struct{}

// Resolve validates params and produces the running configuration.
// Validation is fail-fast in a fixed order; the first violation wins:
//
//  1. A managed chain client and federated-only operation cannot both
//     be requested, and a hardware wallet requires chain backing
//     (KindIncompatibleModeFlags).
//  2. Ephemeral mode must not explicitly disable federation
//     (KindInvalidEphemeralFederation).
//  3. Persistent mode loads the configuration file; a missing file is
//     the recoverable KindMissingConfigFile. Runtime overrides are
//     checked against the same shape rules as the file itself.
//
// No credential or network I/O happens here.
func (Resolver) Resolve(params Params) (*Configuration, error) {
	if err := checkModeFlags(params); err != nil {
		return nil, err
	}

	if params.Ephemeral {
		return ephemeralConfiguration(params), nil
	}

	path := params.ConfigFile
	if path == "" {
		path = DefaultConfigPath(DefaultConfigRoot())
	}

	stored, found, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading configuration from %s: %w", path, err)
	}
	if !found {
		return nil, newError(KindMissingConfigFile, "no configuration file at %s", path)
	}

	return applyOverrides(stored, params)
}

// Generate validates params for the creation flow (init) and produces
// the configuration to persist. Ephemeral authorities cannot be
// generated. When the configuration is chain-backed and no operator
// account was given, one is requested from the selector; when a
// managed client was requested without an explicit provider URI, the
// endpoint comes from the client source. Both are explicit
// collaborators rather than ambient state because both reach outside
// the process.
func (Resolver) Generate(ctx context.Context, params Params, selector AccountSelector, client ManagedClientSource) (*Configuration, error) {
	if err := checkModeFlags(params); err != nil {
		return nil, err
	}
	if params.Ephemeral {
		return nil, newError(KindIncompatibleModeFlags,
			"cannot generate a persistent configuration for an ephemeral authority")
	}

	federated := params.Federated != nil && *params.Federated

	if params.ManagedClient && params.ProviderURI == "" {
		if client == nil {
			return nil, fmt.Errorf("config: a managed chain client was requested but no client source is available")
		}
		derived, err := client.ProviderURI(ctx)
		if err != nil {
			return nil, fmt.Errorf("deriving provider from managed client: %w", err)
		}
		params.ProviderURI = derived
	}

	if !federated && params.ProviderURI == "" {
		return nil, newError(KindMissingProviderURI,
			"a provider URI is required to create a chain-backed authority")
	}

	network := NetworkChainBacked
	if federated {
		network = NetworkFederated
	}

	operatorAccount := params.OperatorAccount
	if network == NetworkChainBacked && operatorAccount == "" {
		selected, err := selector.SelectAccount(ctx, params.ProviderURI)
		if err != nil {
			return nil, fmt.Errorf("selecting operator account: %w", err)
		}
		operatorAccount = selected
	}
	if operatorAccount != "" {
		if err := validateChecksumAddress(operatorAccount); err != nil {
			return nil, err
		}
	}

	domains := []string{}
	if params.Domain != "" {
		domains = []string{params.Domain}
	}
	discoveryPort := params.DiscoveryPort
	if discoveryPort == 0 {
		discoveryPort = DefaultDiscoveryPort
	}
	keystorePath := params.KeystorePath
	if keystorePath == "" {
		keystorePath = DefaultKeystorePath(DefaultConfigRoot())
	}

	return &Configuration{
		mode:            ModePersistent,
		network:         network,
		domains:         domains,
		providerURI:     params.ProviderURI,
		operatorAccount: operatorAccount,
		registryPath:    params.RegistryPath,
		discoveryPort:   discoveryPort,
		keystorePath:    keystorePath,
		hardwareWallet:  params.HardwareWallet,
		middleware:      params.Middleware,
	}, nil
}

// checkModeFlags enforces the two mode rules shared by Resolve and
// Generate, in order.
func checkModeFlags(params Params) error {
	federatedRequested := params.Federated != nil && *params.Federated
	if federatedRequested && params.ManagedClient {
		return newError(KindIncompatibleModeFlags,
			"a managed chain client cannot be combined with federated-only operation")
	}
	if (federatedRequested || params.Ephemeral) && params.HardwareWallet {
		return newError(KindIncompatibleModeFlags,
			"a hardware wallet requires a chain-backed authority")
	}

	// Rejecting ephemeral + explicit federated=false mirrors the
	// upstream behavior; whether it is intentional business logic is
	// pending product confirmation, so the rejection is preserved
	// as-is.
	if params.Ephemeral && params.Federated != nil && !*params.Federated {
		return newError(KindInvalidEphemeralFederation,
			"an ephemeral authority cannot explicitly disable federation")
	}
	return nil
}

// ephemeralConfiguration builds the in-memory development
// configuration: always federated, never persisted.
func ephemeralConfiguration(params Params) *Configuration {
	domains := []string{TemporaryDomain}
	if params.Domain != "" {
		domains = []string{params.Domain}
	}
	discoveryPort := params.DiscoveryPort
	if discoveryPort == 0 {
		discoveryPort = DefaultDiscoveryPort
	}
	return &Configuration{
		mode:          ModeEphemeral,
		network:       NetworkFederated,
		domains:       domains,
		discoveryPort: discoveryPort,
		middleware:    params.Middleware,
	}
}

// applyOverrides layers runtime parameters over a loaded persistent
// configuration. The stored value is not mutated; a new Configuration
// is returned. The merged value must satisfy the same shape rules Load
// enforces on the file: overrides are just another way to construct a
// configuration, not a way around its invariants.
func applyOverrides(stored *Configuration, params Params) (*Configuration, error) {
	merged := *stored
	if params.Domain != "" {
		merged.domains = []string{params.Domain}
	}
	if params.ProviderURI != "" {
		merged.providerURI = params.ProviderURI
	}
	if params.OperatorAccount != "" {
		merged.operatorAccount = params.OperatorAccount
	}
	if params.RegistryPath != "" {
		merged.registryPath = params.RegistryPath
	}
	if params.DiscoveryPort != 0 {
		merged.discoveryPort = params.DiscoveryPort
	}
	if params.KeystorePath != "" {
		merged.keystorePath = params.KeystorePath
	}
	merged.middleware = params.Middleware

	if merged.network == NetworkFederated &&
		(merged.providerURI != "" || merged.operatorAccount != "" || merged.registryPath != "") {
		return nil, fmt.Errorf("config: federated configuration cannot carry chain-backed overrides")
	}
	return &merged, nil
}

// validateChecksumAddress verifies s is a valid EIP-55 checksum
// address. All-lowercase and all-uppercase forms are rejected: the
// mixed-case checksum is the only accepted spelling, so a mistyped
// address fails loudly instead of selecting the wrong account.
func validateChecksumAddress(s string) error {
	if !common.IsHexAddress(s) {
		return fmt.Errorf("config: %q is not a hex account address", s)
	}
	mixed, err := common.NewMixedcaseAddressFromString(s)
	if err != nil {
		return fmt.Errorf("config: parsing account address %q: %w", s, err)
	}
	if !mixed.ValidChecksum() {
		return fmt.Errorf("config: account address %q fails its EIP-55 checksum", s)
	}
	return nil
}
