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

import "fmt"

// Validate checks fields whose absence would make an early startup
// failure (§7 "Fatal") preferable to a later, harder-to-diagnose one.
func (c *Config) Validate() error {
	switch c.Transport.Type {
	case "stdio", "http":
	default:
		return fmt.Errorf("config: transport.type must be \"stdio\" or \"http\", got %q", c.Transport.Type)
	}

	switch c.LLM.Provider {
	case "anthropic":
		if c.LLM.AnthropicAPIKey == "" {
			return fmt.Errorf("config: llm.anthropic_api_key is required when llm.provider is \"anthropic\"")
		}
	case "bedrock":
		// Credentials may come from the default AWS chain; nothing to
		// require here beyond a resolvable region, which has a default.
	default:
		return fmt.Errorf("config: unsupported llm.provider %q", c.LLM.Provider)
	}

	if c.Database.MaxMajorCivs <= 0 {
		return fmt.Errorf("config: database.max_major_civs must be positive")
	}
	if c.Session.MaxRecoveryAttempts < 0 {
		return fmt.Errorf("config: session.max_recovery_attempts must be >= 0")
	}

	return nil
}
