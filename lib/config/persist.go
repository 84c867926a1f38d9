// Copyright 2026 The Caskade Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfiguration is the on-disk YAML shape of a persistent
// Configuration. The middleware handle is runtime-injected and never
// serialized; the mode is implied (only persistent configurations are
// written).
type fileConfiguration struct {
	Network         NetworkMode `yaml:"network"`
	Domains         []string    `yaml:"domains"`
	ProviderURI     string      `yaml:"provider_uri,omitempty"`
	OperatorAccount string      `yaml:"operator_account,omitempty"`
	RegistryPath    string      `yaml:"registry_path,omitempty"`
	DiscoveryPort   int         `yaml:"discovery_port"`
	KeystorePath    string      `yaml:"keystore_path"`
	HardwareWallet  bool        `yaml:"hw_wallet,omitempty"`
}

// Load reads a persistent configuration from path. The second return
// value reports whether the file exists: (nil, false, nil) means "not
// found", a recoverable condition distinct from a malformed file or an
// I/O failure.
func Load(path string) (*Configuration, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", path, err)
	}

	var file fileConfiguration
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, true, fmt.Errorf("parsing %s: %w", path, err)
	}

	switch file.Network {
	case NetworkFederated, NetworkChainBacked:
	default:
		return nil, true, fmt.Errorf("%s: unknown network mode %q", path, file.Network)
	}
	if file.Network == NetworkFederated && (file.ProviderURI != "" || file.OperatorAccount != "" || file.RegistryPath != "" || file.HardwareWallet) {
		return nil, true, fmt.Errorf("%s: federated configuration carries chain-backed fields", path)
	}

	discoveryPort := file.DiscoveryPort
	if discoveryPort == 0 {
		discoveryPort = DefaultDiscoveryPort
	}

	return &Configuration{
		mode:            ModePersistent,
		network:         file.Network,
		domains:         append([]string(nil), file.Domains...),
		providerURI:     file.ProviderURI,
		operatorAccount: file.OperatorAccount,
		registryPath:    file.RegistryPath,
		discoveryPort:   discoveryPort,
		keystorePath:    file.KeystorePath,
		hardwareWallet:  file.HardwareWallet,
	}, true, nil
}

// Save writes a persistent configuration to path with owner-only
// permissions, creating parent directories as needed. Ephemeral
// configurations are never written; attempting to is a programming
// error.
func Save(configuration *Configuration, path string) error {
	if configuration.Ephemeral() {
		return fmt.Errorf("config: refusing to persist an ephemeral configuration")
	}

	file := fileConfiguration{
		Network:         configuration.network,
		Domains:         configuration.domains,
		ProviderURI:     configuration.providerURI,
		OperatorAccount: configuration.operatorAccount,
		RegistryPath:    configuration.registryPath,
		DiscoveryPort:   configuration.discoveryPort,
		KeystorePath:    configuration.keystorePath,
		HardwareWallet:  configuration.hardwareWallet,
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Destroy removes the persistent configuration file and, if present,
// the sealed keystore it references. Returns the removed paths.
func Destroy(configuration *Configuration, path string) ([]string, error) {
	if configuration.Ephemeral() {
		return nil, fmt.Errorf("config: an ephemeral configuration has nothing to destroy")
	}

	var removed []string
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			return removed, fmt.Errorf("removing %s: %w", path, err)
		}
	} else {
		removed = append(removed, path)
	}

	if keystore := configuration.keystorePath; keystore != "" {
		if err := os.Remove(keystore); err != nil {
			if !os.IsNotExist(err) {
				return removed, fmt.Errorf("removing %s: %w", keystore, err)
			}
		} else {
			removed = append(removed, keystore)
		}
	}
	return removed, nil
}
