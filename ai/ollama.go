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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/agonych/udpchat-ai/config"
)

// OllamaProvider talks to a local Ollama daemon's /api/chat endpoint. No
// Go client for Ollama appears anywhere in the example pack, so this is a
// thin hand-rolled REST call rather than a wrapped SDK.
type OllamaProvider struct {
	host   string
	model  string
	client *http.Client
}

// NewOllamaProvider builds a provider against cfg's configured host/model.
func NewOllamaProvider(cfg *config.AIConfig) *OllamaProvider {
	return &OllamaProvider{
		host:   strings.TrimSuffix(cfg.OllamaHost, "/"),
		model:  cfg.OllamaModel,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// Respond asks the configured Ollama model to continue the conversation.
func (p *OllamaProvider) Respond(ctx context.Context, history []Message, user, draft string) (string, error) {
	reqBody, err := json.Marshal(ollamaChatRequest{
		Model:    p.model,
		Messages: buildChatPrompt(history, user, draft),
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("ai: encode ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api/chat", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("ai: build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai: ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai: ollama request failed: status %d", resp.StatusCode)
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ai: decode ollama response: %w", err)
	}

	return strings.Trim(strings.TrimSpace(out.Message.Content), `"'`), nil
}
