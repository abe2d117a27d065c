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

	"github.com/agonych/udpchat-ai/internal/metrics"
	"github.com/agonych/udpchat-ai/repository"
)

type messageData struct {
	RoomID  string `json:"room_id"`
	Content string `json:"content"`
}

// handleMessage stores a user-authored chat message and fans it out to
// every live member of the room.
func handleMessage(ctx context.Context, f Facade, sess *repository.Session, data json.RawMessage) (Response, error) {
	if sess.UserID == "" {
		return errResponse("Authentication required."), nil
	}

	var d messageData
	if err := json.Unmarshal(data, &d); err != nil {
		return errResponse("Invalid request."), nil
	}
	roomID := strings.TrimSpace(d.RoomID)
	content := strings.TrimSpace(d.Content)
	if roomID == "" || content == "" {
		return errResponse("Room ID and content are required."), nil
	}

	store := f.Store()

	room, err := loadRoom(ctx, store, roomID)
	if err != nil {
		return nil, fmt.Errorf("protocol: message lookup room: %w", err)
	}
	if room == nil {
		return errResponse("Room not found."), nil
	}

	isMember, err := store.Members().IsMember(ctx, room.ID, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("protocol: message check membership: %w", err)
	}
	if !isMember {
		return errResponse("You must join the room before sending messages."), nil
	}

	user, err := store.Users().GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("protocol: message lookup user: %w", err)
	}

	msg, err := store.Messages().Create(ctx, &repository.Message{
		RoomID:  room.ID,
		UserID:  sess.UserID,
		Content: content,
	})
	if err != nil {
		return nil, fmt.Errorf("protocol: message insert: %w", err)
	}
	if err := store.Rooms().Touch(ctx, room.ID); err != nil {
		return nil, fmt.Errorf("protocol: message touch room: %w", err)
	}

	metrics.MessagesSentTotal.Inc()

	sessionIDs, err := memberSessionIDs(ctx, f, room.ID)
	if err != nil {
		return nil, fmt.Errorf("protocol: message resolve sessions: %w", err)
	}
	f.Broadcast(ctx, ok("MESSAGE", map[string]interface{}{
		"room_id":    room.RoomID,
		"message_id": msg.ID,
		"user_id":    user.ID,
		"name":       user.DisplayName,
		"content":    content,
		"timestamp":  msg.CreatedAt.Unix(),
	}), sessionIDs)

	return ok("MESSAGE_SENT", map[string]interface{}{
		"message_id": msg.ID,
		"room_id":    room.RoomID,
		"content":    content,
		"timestamp":  msg.CreatedAt.Unix(),
	}), nil
}
