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

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

const defaultBedrockModelID = "us.anthropic.claude-sonnet-4-5-20250929-v1:0"

// BedrockConfig configures the Bedrock-hosted Claude binding. It is an
// alternate provider behind the same Provider interface, selected by
// llm.provider: "bedrock" in internal/config.
type BedrockConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Profile         string
	ModelID         string
	MaxTokens       int
	Temperature     float64
	RateLimiter     RateLimiterConfig
}

// BedrockProvider implements Provider via the Anthropic SDK's Bedrock
// transport, so message/tool conversion is shared with AnthropicProvider.
type BedrockProvider struct {
	client      anthropic.Client
	modelID     string
	maxTokens   int64
	temperature float64
	rateLimiter *RateLimiter
}

// NewBedrockProvider resolves AWS credentials via the standard chain
// (explicit keys, named profile, or the default IAM/env chain) and
// wires them into the Anthropic SDK's Bedrock transport.
func NewBedrockProvider(ctx context.Context, cfg BedrockConfig) (*BedrockProvider, error) {
	if cfg.ModelID == "" {
		cfg.ModelID = defaultBedrockModelID
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 1.0
	}

	var awsCfg aws.Config
	var err error
	switch {
	case cfg.AccessKeyID != "" && cfg.SecretAccessKey != "":
		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken,
			)),
		)
	case cfg.Profile != "":
		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithSharedConfigProfile(cfg.Profile),
		)
	default:
		awsCfg, err = config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, fmt.Errorf("bedrock: failed to load AWS config: %w", err)
	}

	var limiter *RateLimiter
	if cfg.RateLimiter.Enabled {
		limiter = NewRateLimiter(cfg.RateLimiter)
	}

	return &BedrockProvider{
		client:      anthropic.NewClient(bedrock.WithConfig(awsCfg)),
		modelID:     cfg.ModelID,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
		rateLimiter: limiter,
	}, nil
}

// Name implements Provider.
func (p *BedrockProvider) Name() string { return "bedrock" }

// Complete implements Provider.
func (p *BedrockProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.modelID),
		Messages:    toSDKMessages(req.Messages),
		MaxTokens:   p.maxTokens,
		Temperature: anthropic.Float(p.temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = toSDKTools(req.Tools)
	}

	var msg *anthropic.Message
	var err error
	if p.rateLimiter != nil {
		var result interface{}
		result, err = p.rateLimiter.Do(ctx, func(ctx context.Context) (interface{}, error) {
			return p.client.Messages.New(ctx, params)
		})
		if err == nil {
			msg = result.(*anthropic.Message)
			p.rateLimiter.RecordTokenUsage(int64(msg.Usage.InputTokens + msg.Usage.OutputTokens))
		}
	} else {
		msg, err = p.client.Messages.New(ctx, params)
	}
	if err != nil {
		return nil, fmt.Errorf("bedrock: invocation failed: %w", err)
	}
	return fromSDKMessage(msg), nil
}
