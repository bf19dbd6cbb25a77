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
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "stdio", cfg.Transport.Type)
	require.Equal(t, "anthropic", cfg.LLM.Provider)
	require.Equal(t, 30, cfg.Database.AutoSaveInterval)
	require.Equal(t, 3, cfg.Session.MaxRecoveryAttempts)
	require.Equal(t, 60, cfg.Orchestrator.ToolTimeoutSeconds)
}

func TestValidateRejectsUnknownTransport(t *testing.T) {
	cfg := &Config{}
	cfg.Transport.Type = "carrier-pigeon"
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.AnthropicAPIKey = "sk-test"
	cfg.Database.MaxMajorCivs = 22

	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateRequiresAnthropicKey(t *testing.T) {
	cfg := &Config{}
	cfg.Transport.Type = "stdio"
	cfg.LLM.Provider = "anthropic"
	cfg.Database.MaxMajorCivs = 22

	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateAcceptsBedrockWithoutExplicitKeys(t *testing.T) {
	cfg := &Config{}
	cfg.Transport.Type = "http"
	cfg.LLM.Provider = "bedrock"
	cfg.Database.MaxMajorCivs = 22

	require.NoError(t, cfg.Validate())
}
