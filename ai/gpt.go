// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/agonych/udpchat-ai/config"
)

// GPTProvider talks to OpenAI's chat completions API, or to an Azure
// OpenAI deployment when one is configured, preferring Azure exactly as
// the prior Python implementation did.
type GPTProvider struct {
	client openai.Client
	model  string
}

// NewGPTProvider builds a provider from cfg, pointing the client at an
// Azure OpenAI deployment when AzureEndpoint/AzureDeployment are both set,
// else at plain OpenAI.
func NewGPTProvider(cfg *config.AIConfig) *GPTProvider {
	if cfg.AzureEndpoint != "" && cfg.AzureDeployment != "" {
		return &GPTProvider{
			client: openai.NewClient(
				option.WithBaseURL(strings.TrimSuffix(cfg.AzureEndpoint, "/")),
				option.WithAPIKey(cfg.OpenAIAPIKey),
				option.WithQuery("api-version", "2024-05-01-preview"),
			),
			model: cfg.AzureDeployment,
		}
	}
	return &GPTProvider{
		client: openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey)),
		model:  cfg.OpenAIModel,
	}
}

// Respond asks the configured GPT model to continue the conversation,
// using the same creative, low-repetition sampling parameters as the prior
// Python implementation.
func (p *GPTProvider) Respond(ctx context.Context, history []Message, user, draft string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	for _, m := range buildChatPrompt(history, user, draft) {
		switch m.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:            openai.ChatModel(p.model),
		Messages:         messages,
		Temperature:      openai.Float(0.9),
		MaxTokens:        openai.Int(300),
		TopP:             openai.Float(0.95),
		FrequencyPenalty: openai.Float(0.3),
		PresencePenalty:  openai.Float(0.2),
	})
	if err != nil {
		return "", fmt.Errorf("ai: gpt completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("ai: gpt completion returned no choices")
	}

	return strings.Trim(strings.TrimSpace(resp.Choices[0].Message.Content), `"'`), nil
}
