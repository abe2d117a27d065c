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

import "fmt"

// chatMessage is one turn of the prompt sent to the model, independent of
// which backend ultimately consumes it.
type chatMessage struct {
	Role    string
	Content string
}

const systemPrompt = "You are '%s' in a group chat. You are knowledgeable, helpful, and engaging. Your responses should: " +
	"- Provide substantive, useful information when asked questions\n" +
	"- Be specific and detailed rather than generic\n" +
	"- Show genuine expertise and willingness to help\n" +
	"- Use examples and practical details when explaining concepts\n" +
	"- Ask follow-up questions that show you're thinking deeper about the topic\n" +
	"- Be conversational but informative - like talking to a knowledgeable friend\n" +
	"- Avoid repetitive phrases or generic responses\n" +
	"- Match the user's level of interest and technical depth\n" +
	"- Be encouraging and supportive while being genuinely helpful\n" +
	"- Don't just acknowledge questions - actually answer them with useful content"

// buildChatPrompt renders room history plus either a continue-the-chat or
// improve-this-draft instruction into the message list a model expects.
// draft is the user's own in-progress message when they asked the
// assistant to polish it rather than speak on their behalf; empty means
// "say what comes next".
func buildChatPrompt(history []Message, user, draft string) []chatMessage {
	prompt := make([]chatMessage, 0, len(history)+2)
	prompt = append(prompt, chatMessage{Role: "system", Content: fmt.Sprintf(systemPrompt, user)})

	for _, m := range history {
		prompt = append(prompt, chatMessage{
			Role:    "user",
			Content: fmt.Sprintf("%s: %s", m.SenderName, m.Content),
		})
	}

	if draft != "" {
		prompt = append(prompt, chatMessage{
			Role: "user",
			Content: fmt.Sprintf(
				"As %s, you're planning to send this message: '%s'. "+
					"Improve it to make it sound more natural, accurate, and casual in this group chat context.",
				user, draft,
			),
		})
	} else {
		prompt = append(prompt, chatMessage{
			Role: "user",
			Content: fmt.Sprintf(
				"Based on the conversation above, what would %s naturally say next? "+
					"Be helpful, informative, and engaging. If someone asked a question, provide a detailed, "+
					"useful answer. If they're learning something, give them practical information and examples. "+
					"Show your knowledge and be genuinely helpful rather than just acknowledging their question. "+
					"Respond as %s would - like a knowledgeable friend who wants to help.",
				user, user,
			),
		})
	}

	return prompt
}
