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
	"time"

	"github.com/agonych/udpchat-ai/repository"
)

type roomIDData struct {
	RoomID string `json:"room_id"`
}

func loadRoom(ctx context.Context, store repository.Store, roomID string) (*repository.Room, error) {
	room, err := store.Rooms().GetByRoomID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return room, nil
}

// memberSessionIDs resolves every current member of roomID to the
// session ids of their currently live connections.
func memberSessionIDs(ctx context.Context, f Facade, roomID int64) ([]string, error) {
	userIDs, err := f.Store().Members().ListUserIDs(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return f.SessionIDsForUsers(ctx, userIDs)
}

// handleJoinRoom adds the authenticated user to a room's membership roster
// and tells every live member about the new arrival; the joiner's own live
// sessions receive the MEMBER_JOINED broadcast too.
func handleJoinRoom(ctx context.Context, f Facade, sess *repository.Session, data json.RawMessage) (Response, error) {
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
		return nil, fmt.Errorf("protocol: join_room lookup room: %w", err)
	}
	if room == nil {
		return errResponse("Room not found."), nil
	}

	isMember, err := store.Members().IsMember(ctx, room.ID, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("protocol: join_room check membership: %w", err)
	}
	if isMember {
		return nil, nil
	}

	user, err := store.Users().GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("protocol: join_room lookup user: %w", err)
	}

	if err := store.Members().Add(ctx, &repository.Member{RoomID: room.ID, UserID: sess.UserID}); err != nil {
		return nil, fmt.Errorf("protocol: join_room add member: %w", err)
	}

	sessionIDs, err := memberSessionIDs(ctx, f, room.ID)
	if err != nil {
		return nil, fmt.Errorf("protocol: join_room resolve sessions: %w", err)
	}
	f.Broadcast(ctx, ok("MEMBER_JOINED", map[string]interface{}{
		"room_id": room.RoomID,
		"member": map[string]interface{}{
			"user_id":   user.ID,
			"name":      user.DisplayName,
			"is_admin":  user.IsAdmin,
			"joined_at": time.Now().Unix(),
		},
	}), sessionIDs)

	return ok("JOINED_ROOM", map[string]interface{}{
		"room_id": room.RoomID,
		"name":    room.Name,
	}), nil
}

// handleLeaveRoom removes the authenticated user from a room's membership
// roster. If the room is left empty it is deleted and the refreshed public
// room list is broadcast; otherwise remaining members are notified. The
// user's other live sessions (other devices signed in as the same account)
// additionally receive ROOM_LEFT so they can clear the room from their own
// view without waiting on a STATUS poll.
func handleLeaveRoom(ctx context.Context, f Facade, sess *repository.Session, data json.RawMessage) (Response, error) {
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
		return nil, fmt.Errorf("protocol: leave_room lookup room: %w", err)
	}
	if room == nil {
		return errResponse("Room not found."), nil
	}

	isMember, err := store.Members().IsMember(ctx, room.ID, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("protocol: leave_room check membership: %w", err)
	}
	if !isMember {
		return errResponse("You are not a member of this room."), nil
	}

	if err := store.Members().Remove(ctx, room.ID, sess.UserID); err != nil {
		return nil, fmt.Errorf("protocol: leave_room remove member: %w", err)
	}

	remainingCount, err := store.Members().Count(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("protocol: leave_room count members: %w", err)
	}

	if remainingCount > 0 {
		sessionIDs, err := memberSessionIDs(ctx, f, room.ID)
		if err != nil {
			return nil, fmt.Errorf("protocol: leave_room resolve sessions: %w", err)
		}
		f.Broadcast(ctx, ok("MEMBER_LEFT", map[string]interface{}{
			"room_id":   room.RoomID,
			"member_id": sess.UserID,
		}), sessionIDs)
	} else {
		if err := store.Rooms().Delete(ctx, room.ID); err != nil {
			return nil, fmt.Errorf("protocol: leave_room delete empty room: %w", err)
		}
		entries, err := publicRoomList(ctx, store)
		if err != nil {
			return nil, fmt.Errorf("protocol: leave_room refresh list: %w", err)
		}
		f.Broadcast(ctx, ok("ROOM_LIST", entries), nil)
	}

	siblingIDs, err := f.SessionIDsForUsers(ctx, []string{sess.UserID})
	if err != nil {
		return nil, fmt.Errorf("protocol: leave_room resolve sibling sessions: %w", err)
	}
	siblings := siblingIDs[:0]
	for _, id := range siblingIDs {
		if id != sess.ID {
			siblings = append(siblings, id)
		}
	}
	if len(siblings) > 0 {
		f.Broadcast(ctx, ok("ROOM_LEFT", map[string]interface{}{"room_id": room.RoomID}), siblings)
	}

	return ok("LEFT_ROOM", map[string]interface{}{
		"room_id": room.RoomID,
		"name":    room.Name,
	}), nil
}
