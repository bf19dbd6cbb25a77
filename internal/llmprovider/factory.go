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
package llmprovider

import (
	"context"
	"fmt"
)

// FactoryConfig selects and parameterizes one Provider. It mirrors the
// llm.* keys in internal/config except llm.bedrock_model_id, which has no
// field here: the Bedrock binding takes its model ID from Model.
type FactoryConfig struct {
	Provider    string // "anthropic" or "bedrock"
	Model       string
	MaxTokens   int
	Temperature float64

	AnthropicAPIKey string

	BedrockRegion          string
	BedrockAccessKeyID     string
	BedrockSecretAccessKey string
	BedrockSessionToken    string
	BedrockProfile         string

	RateLimiter RateLimiterConfig
}

// New builds the Provider named by cfg.Provider.
func New(ctx context.Context, cfg FactoryConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "anthropic":
		return NewAnthropicProvider(AnthropicConfig{
			APIKey:      cfg.AnthropicAPIKey,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			RateLimiter: cfg.RateLimiter,
		})
	case "bedrock":
		return NewBedrockProvider(ctx, BedrockConfig{
			Region:          cfg.BedrockRegion,
			AccessKeyID:     cfg.BedrockAccessKeyID,
			SecretAccessKey: cfg.BedrockSecretAccessKey,
			SessionToken:    cfg.BedrockSessionToken,
			Profile:         cfg.BedrockProfile,
			ModelID:         cfg.Model,
			MaxTokens:       cfg.MaxTokens,
			Temperature:     cfg.Temperature,
			RateLimiter:     cfg.RateLimiter,
		})
	default:
		return nil, fmt.Errorf("llmprovider: unsupported provider %q", cfg.Provider)
	}
}
