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

// Package ai implements the AI_MESSAGE assistant backend: building a chat
// prompt from room history and asking either a local Ollama model or an
// OpenAI/Azure OpenAI model to continue (or improve) it.
package ai

import (
	"context"
	"fmt"

	"github.com/agonych/udpchat-ai/config"
)

// Message is one entry of room history fed into the prompt.
type Message struct {
	SenderName string
	Content    string
}

// Provider generates the next chat message on behalf of a named user, given
// recent room history and an optional draft to improve instead of
// continuing the conversation.
type Provider interface {
	Respond(ctx context.Context, history []Message, user, draft string) (string, error)
}

// NewProvider builds the Provider selected by cfg.Mode.
func NewProvider(cfg *config.AIConfig) (Provider, error) {
	switch cfg.Mode {
	case "ollama":
		return NewOllamaProvider(cfg), nil
	case "gpt":
		return NewGPTProvider(cfg), nil
	default:
		return nil, fmt.Errorf("ai: unknown mode %q", cfg.Mode)
	}
}
