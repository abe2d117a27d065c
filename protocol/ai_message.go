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

package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agonych/udpchat-ai/ai"
	"github.com/agonych/udpchat-ai/internal/metrics"
	"github.com/agonych/udpchat-ai/repository"
)

const aiHistoryLimit = 100

// handleAIMessage asks the configured assistant provider either to continue
// the conversation or to polish a draft, then stores and broadcasts the
// result as an announcement message. On success it sends no direct reply;
// the generated message arrives the same way a human's MESSAGE would.
// Validation and provider failures come back as a direct ERROR response.
func handleAIMessage(ctx context.Context, f Facade, sess *repository.Session, data json.RawMessage) (Response, error) {
	if sess.UserID == "" {
		return errResponse("Authentication required."), nil
	}

	var d messageData
	if err := json.Unmarshal(data, &d); err != nil {
		return errResponse("Invalid request."), nil
	}
	roomID := strings.TrimSpace(d.RoomID)
	draft := strings.TrimSpace(d.Content)
	if roomID == "" {
		return errResponse("Room ID is required."), nil
	}

	store := f.Store()

	room, err := loadRoom(ctx, store, roomID)
	if err != nil {
		return nil, fmt.Errorf("protocol: ai_message lookup room: %w", err)
	}
	if room == nil {
		return errResponse("Room not found."), nil
	}

	user, err := store.Users().GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("protocol: ai_message lookup user: %w", err)
	}

	isMember, err := store.Members().IsMember(ctx, room.ID, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("protocol: ai_message check membership: %w", err)
	}
	if !isMember {
		return errResponse("You must join the room to request AI messages."), nil
	}

	recent, err := roomMessageHistory(ctx, store, room, aiHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("protocol: ai_message load history: %w", err)
	}
	history := make([]ai.Message, len(recent))
	for i, m := range recent {
		history[i] = ai.Message{SenderName: m.Name, Content: m.Content}
	}

	provider := f.AI()
	if provider == nil {
		return errResponse("Invalid AI mode configured."), nil
	}

	aiText, err := provider.Respond(ctx, history, user.DisplayName, draft)
	if err != nil {
		return errResponse(fmt.Sprintf("AI generation failed: %s", err)), nil
	}

	msg, err := store.Messages().Create(ctx, &repository.Message{
		RoomID:         room.ID,
		UserID:         sess.UserID,
		Content:        aiText,
		IsAnnouncement: true,
	})
	if err != nil {
		return nil, fmt.Errorf("protocol: ai_message insert: %w", err)
	}
	if err := store.Rooms().Touch(ctx, room.ID); err != nil {
		return nil, fmt.Errorf("protocol: ai_message touch room: %w", err)
	}

	metrics.AIMessagesSentTotal.Inc()

	sessionIDs, err := memberSessionIDs(ctx, f, room.ID)
	if err != nil {
		return nil, fmt.Errorf("protocol: ai_message resolve sessions: %w", err)
	}
	f.Broadcast(ctx, ok("MESSAGE", map[string]interface{}{
		"room_id":    room.RoomID,
		"message_id": msg.ID,
		"user_id":    user.ID,
		"name":       user.DisplayName,
		"content":    aiText,
		"timestamp":  msg.CreatedAt.Unix(),
	}), sessionIDs)

	return nil, nil
}
