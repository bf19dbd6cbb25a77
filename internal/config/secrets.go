// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package config

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

// SecretMapping describes one provider secret that can live in the OS
// keyring instead of the config file or environment.
type SecretMapping struct {
	KeyringKey string
	Setter     func(*Config, string)
	IsSet      func(*Config) bool
}

// GetSecretMappings lists every secret voxd may load from the keyring.
func GetSecretMappings() []SecretMapping {
	return []SecretMapping{
		{
			KeyringKey: "anthropic_api_key",
			Setter:     func(c *Config, val string) { c.LLM.AnthropicAPIKey = val },
			IsSet:      func(c *Config) bool { return c.LLM.AnthropicAPIKey != "" },
		},
		{
			KeyringKey: "bedrock_access_key_id",
			Setter:     func(c *Config, val string) { c.LLM.BedrockAccessKeyID = val },
			IsSet:      func(c *Config) bool { return c.LLM.BedrockAccessKeyID != "" },
		},
		{
			KeyringKey: "bedrock_secret_access_key",
			Setter:     func(c *Config, val string) { c.LLM.BedrockSecretAccessKey = val },
			IsSet:      func(c *Config) bool { return c.LLM.BedrockSecretAccessKey != "" },
		},
	}
}

// loadSecretsFromKeyring fills in any secret field left empty by the
// config file, env vars, and flags, from the OS keyring.
func loadSecretsFromKeyring(cfg *Config) error {
	for _, mapping := range GetSecretMappings() {
		if mapping.IsSet(cfg) {
			continue
		}
		val, err := keyring.Get(ServiceName, mapping.KeyringKey)
		if err != nil {
			continue // not present in keyring; leave unset
		}
		mapping.Setter(cfg, val)
	}
	return nil
}

// GetSecretFromKeyring reads one secret by its keyring key name.
func GetSecretFromKeyring(key string) (string, error) {
	return keyring.Get(ServiceName, key)
}

// SaveSecretToKeyring stores one secret under the voxd keyring service.
func SaveSecretToKeyring(key, value string) error {
	if err := keyring.Set(ServiceName, key, value); err != nil {
		return fmt.Errorf("config: failed to save secret %q: %w", key, err)
	}
	return nil
}

// DeleteSecretFromKeyring removes one secret from the OS keyring.
func DeleteSecretFromKeyring(key string) error {
	if err := keyring.Delete(ServiceName, key); err != nil {
		return fmt.Errorf("config: failed to delete secret %q: %w", key, err)
	}
	return nil
}

// ListAvailableSecretKeys returns the keyring key names voxd recognizes.
func ListAvailableSecretKeys() []string {
	mappings := GetSecretMappings()
	keys := make([]string, len(mappings))
	for i, m := range mappings {
		keys[i] = m.KeyringKey
	}
	return keys
}
