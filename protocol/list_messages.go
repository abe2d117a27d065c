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

	"github.com/agonych/udpchat-ai/repository"
)

const roomHistoryLimit = 100

type messageHistoryEntry struct {
	MessageID int64  `json:"message_id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// roomMessageHistory loads the room's recent messages (already oldest-first
// from the repository) and joins each sender's display name.
func roomMessageHistory(ctx context.Context, store repository.Store, room *repository.Room, limit int) ([]messageHistoryEntry, error) {
	msgs, err := store.Messages().Last(ctx, room.ID, limit)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(msgs))
	entries := make([]messageHistoryEntry, 0, len(msgs))
	for _, msg := range msgs {
		name, cached := names[msg.UserID]
		if !cached {
			if user, err := store.Users().GetByID(ctx, msg.UserID); err == nil {
				name = user.DisplayName
			}
			names[msg.UserID] = name
		}
		entries = append(entries, messageHistoryEntry{
			MessageID: msg.ID,
			UserID:    msg.UserID,
			Name:      name,
			Content:   msg.Content,
			Timestamp: msg.CreatedAt.Unix(),
		})
	}
	return entries, nil
}

// handleListMessages returns the room's most recent history, oldest first.
func handleListMessages(ctx context.Context, f Facade, sess *repository.Session, data json.RawMessage) (Response, error) {
	if sess.UserID == "" {
		return errResponse("Authentication required."), nil
	}

	var d roomIDData
	if err := json.Unmarshal(data, &d); err != nil {
		return errResponse("Invalid request."), nil
	}
	roomID := strings.TrimSpace(d.RoomID)
	if roomID == "" {
		return errResponse("Room ID is required."), nil
	}

	store := f.Store()
	room, err := loadRoom(ctx, store, roomID)
	if err != nil {
		return nil, fmt.Errorf("protocol: list_messages lookup room: %w", err)
	}
	if room == nil {
		return errResponse("Room not found."), nil
	}

	entries, err := roomMessageHistory(ctx, store, room, roomHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("protocol: list_messages: %w", err)
	}

	return ok("ROOM_HISTORY", entries), nil
}
