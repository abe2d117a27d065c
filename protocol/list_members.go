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

type memberEntry struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	IsAdmin  bool   `json:"is_admin"`
	JoinedAt int64  `json:"joined_at"`
}

// handleListMembers returns the full roster of a room, joined with display
// names.
func handleListMembers(ctx context.Context, f Facade, sess *repository.Session, data json.RawMessage) (Response, error) {
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
		return nil, fmt.Errorf("protocol: list_members lookup room: %w", err)
	}
	if room == nil {
		return errResponse("Room not found."), nil
	}

	members, err := store.Members().ListMembers(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("protocol: list_members: %w", err)
	}

	entries := make([]memberEntry, 0, len(members))
	for _, member := range members {
		name := ""
		if user, err := store.Users().GetByID(ctx, member.UserID); err == nil {
			name = user.DisplayName
		}
		entries = append(entries, memberEntry{
			UserID:   member.UserID,
			Name:     name,
			IsAdmin:  member.IsAdmin,
			JoinedAt: member.JoinedAt.Unix(),
		})
	}

	return ok("ROOM_MEMBERS", entries), nil
}
