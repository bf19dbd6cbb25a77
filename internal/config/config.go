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

// Package config loads voxd's configuration: a YAML file, environment
// overrides under the VOXD_ prefix, and CLI flags bound by cmd/voxd.
// Priority: CLI flags > env vars > config file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// ServiceName names the OS keyring service used for provider secrets.
	ServiceName = "voxd"
	// DefaultConfigFileName is the base name (without extension) voxd
	// searches for in its config path.
	DefaultConfigFileName = "voxd"
	envPrefix             = "VOXD"
)

// Config holds every configuration surface named in spec §6, plus the
// ambient additions (database, observability) carried regardless of
// the spec's Non-goals.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Transport     TransportConfig     `mapstructure:"transport"`
	Bridge        BridgeConfig        `mapstructure:"bridge"`
	NamedPipe     NamedPipeConfig     `mapstructure:"namedpipe"`
	REST          RESTConfig          `mapstructure:"rest"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Database      DatabaseConfig      `mapstructure:"database"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Session       SessionConfig       `mapstructure:"session"`
	Orchestrator  OrchestratorConfig  `mapstructure:"orchestrator"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ServerConfig names the MCP server's identity (spec §6 server.*).
type ServerConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// TransportConfig selects the MCP server's transport (spec §6 transport.*).
type TransportConfig struct {
	Type string     `mapstructure:"type"` // "stdio" or "http"
	Port int        `mapstructure:"port"`
	Host string     `mapstructure:"host"`
	CORS CORSConfig `mapstructure:"cors"`
}

// CORSConfig mirrors spec §6 transport.cors.*.
type CORSConfig struct {
	Origin         []string `mapstructure:"origin"`
	Methods        []string `mapstructure:"methods"`
	AllowedHeaders []string `mapstructure:"allowedHeaders"`
	Credentials    bool     `mapstructure:"credentials"`
}

// BridgeConfig locates the Bridge Service (spec §6 bridge.*).
type BridgeConfig struct {
	URL           string               `mapstructure:"url"`
	BridgeService BridgeServiceConfig  `mapstructure:"bridgeService"`
	Pause         BridgePauseSetConfig `mapstructure:"pause"`
}

// BridgeServiceConfig mirrors spec §6 bridgeService.*.
type BridgeServiceConfig struct {
	Endpoint BridgeServiceEndpoint `mapstructure:"endpoint"`
}

// BridgeServiceEndpoint mirrors spec §6 bridgeService.endpoint.*.
type BridgeServiceEndpoint struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// BridgePauseSetConfig configures Bridge's paused-player set behaviour.
type BridgePauseSetConfig struct {
	SSEQueueHighWaterMark int `mapstructure:"sse_queue_high_water_mark"`
}

// NamedPipeConfig identifies the DLL Connector's pipe (spec §6 namedpipe.*).
type NamedPipeConfig struct {
	ID    string      `mapstructure:"id"`
	Retry RetryConfig `mapstructure:"retry"`
}

// RetryConfig governs connector reconnection backoff.
type RetryConfig struct {
	BaseDelayMS int `mapstructure:"base_delay_ms"`
	MaxDelayMS  int `mapstructure:"max_delay_ms"`
	RequestMS   int `mapstructure:"request_timeout_ms"`
}

// RESTConfig is the Bridge Service's own HTTP listener (spec §6 rest.*).
type RESTConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

// LoggingConfig mirrors spec §6 logging.*.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig locates the per-gameID Knowledge Store files.
type DatabaseConfig struct {
	DataDir          string `mapstructure:"data_dir"`
	ArchiveDir       string `mapstructure:"archive_dir"`
	AutoSaveInterval int    `mapstructure:"auto_save_interval_seconds"`
	MaxMajorCivs     int    `mapstructure:"max_major_civs"`
}

// LLMConfig selects and parameterizes the generic model interface
// (internal/llmprovider), spanning both supported backends.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"` // "anthropic" | "bedrock"
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	TimeoutSec  int     `mapstructure:"timeout_seconds"`

	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`

	BedrockRegion          string `mapstructure:"bedrock_region"`
	BedrockModelID         string `mapstructure:"bedrock_model_id"`
	BedrockAccessKeyID     string `mapstructure:"bedrock_access_key_id"`
	BedrockSecretAccessKey string `mapstructure:"bedrock_secret_access_key"`
	BedrockSessionToken    string `mapstructure:"bedrock_session_token"`
	BedrockProfile         string `mapstructure:"bedrock_profile"`

	RateLimitEnabled  bool    `mapstructure:"rate_limit_enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	TokensPerMinute   int64   `mapstructure:"tokens_per_minute"`
}

// SessionConfig governs StrategistSession lifecycle (spec §4.5, §9).
type SessionConfig struct {
	LaunchScript        string `mapstructure:"launch_script"`
	MaxRecoveryAttempts int    `mapstructure:"max_recovery_attempts"`
	RecoveryBackoffSec  int    `mapstructure:"recovery_backoff_seconds"`
}

// OrchestratorConfig governs VoxContext/VoxPlayer behaviour (spec §4.4, §9).
type OrchestratorConfig struct {
	ToolTimeoutSeconds int            `mapstructure:"tool_timeout_seconds"`
	MaxSteps           int            `mapstructure:"max_steps"`
	LLMPlayers         map[string]int `mapstructure:"llm_players"` // agentName -> playerID
}

// ObservabilityConfig is carried as ambient infrastructure even though
// the spec's Non-goals exclude deep analytics (see SPEC_FULL.md).
type ObservabilityConfig struct {
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
}

// Load reads voxd's configuration following the priority documented on
// the package. cfgFile, if non-empty, names an explicit YAML file.
func Load(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/voxd/")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".voxd"))
		}
		viper.SetConfigName(DefaultConfigFileName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: error reading config file %s: %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}

	// Non-fatal: keyring may be unavailable in headless/CI environments;
	// CLI flags or env vars remain valid alternatives.
	_ = loadSecretsFromKeyring(&cfg)

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.name", "vox-deorum-orchestrator")
	viper.SetDefault("server.version", "0.1.0")

	viper.SetDefault("transport.type", "stdio")
	viper.SetDefault("transport.port", 7700)
	viper.SetDefault("transport.host", "0.0.0.0")
	viper.SetDefault("transport.cors.origin", []string{"*"})
	viper.SetDefault("transport.cors.methods", []string{"GET", "POST", "DELETE"})
	viper.SetDefault("transport.cors.allowedHeaders", []string{"*"})
	viper.SetDefault("transport.cors.credentials", false)

	viper.SetDefault("bridge.url", "http://localhost:5050")
	viper.SetDefault("bridge.bridgeService.endpoint.host", "localhost")
	viper.SetDefault("bridge.bridgeService.endpoint.port", 5050)
	viper.SetDefault("bridge.pause.sse_queue_high_water_mark", 1000)

	viper.SetDefault("namedpipe.id", "vox-deorum-connector")
	viper.SetDefault("namedpipe.retry.base_delay_ms", 500)
	viper.SetDefault("namedpipe.retry.max_delay_ms", 30000)
	viper.SetDefault("namedpipe.retry.request_timeout_ms", 30000)

	viper.SetDefault("rest.port", 5050)
	viper.SetDefault("rest.host", "0.0.0.0")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("database.data_dir", "./data")
	viper.SetDefault("database.archive_dir", "./archive")
	viper.SetDefault("database.auto_save_interval_seconds", 30)
	viper.SetDefault("database.max_major_civs", 22)

	viper.SetDefault("llm.provider", "anthropic")
	viper.SetDefault("llm.model", "claude-sonnet-4-5-20250929")
	viper.SetDefault("llm.bedrock_region", "us-west-2")
	viper.SetDefault("llm.bedrock_model_id", "us.anthropic.claude-sonnet-4-5-20250929-v1:0")
	viper.SetDefault("llm.max_tokens", 4096)
	viper.SetDefault("llm.temperature", 1.0)
	viper.SetDefault("llm.timeout_seconds", 60)
	viper.SetDefault("llm.rate_limit_enabled", true)
	viper.SetDefault("llm.requests_per_second", 2.0)
	viper.SetDefault("llm.tokens_per_minute", 40000)

	viper.SetDefault("session.max_recovery_attempts", 3)
	viper.SetDefault("session.recovery_backoff_seconds", 10)

	viper.SetDefault("orchestrator.tool_timeout_seconds", 60)
	viper.SetDefault("orchestrator.max_steps", 10)

	viper.SetDefault("observability.metrics_enabled", true)
}
