// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
)

// Mode selects how the authority's configuration and key material are
// stored.
type Mode string

const (
	// ModeEphemeral keeps everything in memory: a fresh master secret
	// per process, nothing written to disk, no credential required.
	ModeEphemeral Mode = "ephemeral"

	// ModePersistent stores the configuration as a YAML file and the
	// master secret in a passphrase-sealed keystore file.
	ModePersistent Mode = "persistent"
)

// NetworkMode selects whether the authority participates in on-chain
// payment and staking.
type NetworkMode string

const (
	// NetworkFederated operates without any blockchain backing.
	// Chain-backed fields (provider URI, operator account, registry)
	// are forbidden.
	NetworkFederated NetworkMode = "federated"

	// NetworkChainBacked requires a provider URI and an operator
	// account; policy grants may carry payment terms.
	NetworkChainBacked NetworkMode = "chain-backed"
)

// TemporaryDomain is the network domain assigned to ephemeral
// authorities that did not name one explicitly.
const TemporaryDomain = "caskade:temporary"

// DefaultDiscoveryPort is the peer discovery port used when none is
// configured.
const DefaultDiscoveryPort = 9151

// Middleware is the opaque handle to the peer-discovery network
// transport. It is injected at resolve time and carried through to the
// authority's networking context; this package never interprets it.
type Middleware any

// Configuration is the immutable description of how the authority
// runs. Values are constructed by [Resolver.Resolve],
// [Resolver.Generate], or [Load], and are read-only afterwards.
type Configuration struct {
	mode            Mode
	network         NetworkMode
	domains         []string
	providerURI     string
	operatorAccount string
	registryPath    string
	discoveryPort   int
	keystorePath    string
	hardwareWallet  bool
	middleware      Middleware
}

// Mode returns the storage mode.
func (c *Configuration) Mode() Mode { return c.mode }

// Network returns the network mode.
func (c *Configuration) Network() NetworkMode { return c.network }

// FederatedOnly reports whether the authority operates without
// blockchain backing. Copied into the Authority at unlock time.
func (c *Configuration) FederatedOnly() bool { return c.network == NetworkFederated }

// Ephemeral reports whether the configuration is in-memory only.
func (c *Configuration) Ephemeral() bool { return c.mode == ModeEphemeral }

// Domains returns a copy of the network domain names the authority
// serves.
func (c *Configuration) Domains() []string {
	domains := make([]string, len(c.domains))
	copy(domains, c.domains)
	return domains
}

// ProviderURI returns the chain provider endpoint. Empty when
// federated.
func (c *Configuration) ProviderURI() string { return c.providerURI }

// OperatorAccount returns the EIP-55 checksum address of the
// operator's chain account. Empty when federated.
func (c *Configuration) OperatorAccount() string { return c.operatorAccount }

// RegistryPath returns the contract registry location. Meaningful only
// when chain-backed; may be empty to use the network default.
func (c *Configuration) RegistryPath() string { return c.registryPath }

// DiscoveryPort returns the peer discovery port.
func (c *Configuration) DiscoveryPort() int { return c.discoveryPort }

// KeystorePath returns the path of the sealed master secret file.
// Empty for ephemeral configurations.
func (c *Configuration) KeystorePath() string { return c.keystorePath }

// HardwareWallet reports whether the keystore is sealed to a proof
// from the operator's wallet rather than a password. Decided at
// generation time; the sealing method is a property of the keystore
// file, so it cannot be overridden at run time.
func (c *Configuration) HardwareWallet() bool { return c.hardwareWallet }

// Middleware returns the injected peer-discovery transport handle.
func (c *Configuration) Middleware() Middleware { return c.middleware }

// DefaultConfigRoot returns the directory holding persistent authority
// state: the configuration file and the sealed keystore.
func DefaultConfigRoot() string {
	if root := os.Getenv("CASKADE_CONFIG_ROOT"); root != "" {
		return root
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		// No home directory (containers, stripped-down service
		// accounts). Fall back to the working directory.
		return ".caskade"
	}
	return filepath.Join(configDir, "caskade")
}

// DefaultConfigPath returns the default authority configuration file
// path under root.
func DefaultConfigPath(root string) string {
	return filepath.Join(root, "authority.yaml")
}

// DefaultKeystorePath returns the default sealed keystore path under
// root.
func DefaultKeystorePath(root string) string {
	return filepath.Join(root, "authority.keystore")
}
