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
	"errors"
	"fmt"
	"strings"

	"github.com/agonych/udpchat-ai/internal/metrics"
	"github.com/agonych/udpchat-ai/repository"
)

type roomListEntry struct {
	RoomID       string `json:"room_id"`
	Name         string `json:"name"`
	LastActiveAt int64  `json:"last_active_at"`
}

func publicRoomList(ctx context.Context, store repository.Store) ([]roomListEntry, error) {
	rooms, err := store.Rooms().List(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]roomListEntry, 0, len(rooms))
	for _, room := range rooms {
		if !room.IsPublic {
			continue
		}
		entries = append(entries, roomListEntry{
			RoomID:       room.RoomID,
			Name:         room.Name,
			LastActiveAt: room.LastActiveAt.Unix(),
		})
	}
	return entries, nil
}

// handleListRooms answers with every public room on the server.
func handleListRooms(ctx context.Context, f Facade, _ *repository.Session, _ json.RawMessage) (Response, error) {
	entries, err := publicRoomList(ctx, f.Store())
	if err != nil {
		return nil, fmt.Errorf("protocol: list_rooms: %w", err)
	}
	return ok("ROOM_LIST", entries), nil
}

type createRoomData struct {
	Name string `json:"name"`
}

// handleCreateRoom creates a new public room owned (as admin) by the
// requesting user, then broadcasts the refreshed room list to everyone.
func handleCreateRoom(ctx context.Context, f Facade, sess *repository.Session, data json.RawMessage) (Response, error) {
	if sess.UserID == "" {
		return errResponse("Authentication required."), nil
	}

	var d createRoomData
	if err := json.Unmarshal(data, &d); err != nil {
		return errResponse("Invalid request."), nil
	}
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return errResponse("Room name is required."), nil
	}

	store := f.Store()

	exists, err := store.Rooms().ExistsByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("protocol: create_room check name: %w", err)
	}
	if exists {
		return errResponse("Room with that name already exists."), nil
	}

	roomID, err := newRoomID()
	if err != nil {
		return nil, fmt.Errorf("protocol: create_room mint id: %w", err)
	}

	room, err := store.Rooms().Create(ctx, &repository.Room{
		RoomID:   roomID,
		Name:     name,
		IsPublic: true,
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return errResponse("Room with that name already exists."), nil
		}
		return nil, fmt.Errorf("protocol: create_room: %w", err)
	}

	if err := store.Members().Add(ctx, &repository.Member{
		RoomID:  room.ID,
		UserID:  sess.UserID,
		IsAdmin: true,
	}); err != nil {
		return nil, fmt.Errorf("protocol: create_room add admin member: %w", err)
	}

	metrics.RoomsCreatedTotal.Inc()

	entries, err := publicRoomList(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("protocol: create_room refresh list: %w", err)
	}
	f.Broadcast(ctx, ok("ROOM_LIST", entries), nil)

	return ok("ROOM_CREATED", map[string]interface{}{
		"room_id": room.RoomID,
		"name":    room.Name,
	}), nil
}
