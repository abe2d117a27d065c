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

type loginData struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// roomSummary is the {room_id,name} shape embedded in WELCOME/STATUS
// whenever the user currently belongs to a room.
type roomSummary struct {
	RoomID string `json:"room_id"`
	Name   string `json:"name"`
}

func roomSummaryFor(room *repository.Room) *roomSummary {
	if room == nil {
		return nil
	}
	return &roomSummary{RoomID: room.RoomID, Name: room.Name}
}

// handleLogin authenticates or auto-provisions a user by email, optionally
// challenging for a password when the account has one set.
func handleLogin(ctx context.Context, f Facade, sess *repository.Session, data json.RawMessage) (Response, error) {
	var d loginData
	if err := json.Unmarshal(data, &d); err != nil {
		return errResponse("Invalid request."), nil
	}

	email := strings.ToLower(strings.TrimSpace(d.Email))
	if !isValidEmail(email) {
		email = ""
	}
	if email == "" {
		return errResponse("Please provide a valid email address"), nil
	}

	store := f.Store()

	user, err := store.Users().GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("protocol: login lookup user: %w", err)
		}
		user = &repository.User{
			Email:       email,
			DisplayName: strings.SplitN(email, "@", 2)[0],
		}
		if user, err = store.Users().Create(ctx, user); err != nil {
			return nil, fmt.Errorf("protocol: login create user: %w", err)
		}
	}

	if user.PasswordHash != "" {
		if d.Password == "" {
			return ok("PLEASE_LOGIN", map[string]interface{}{
				"message": "Please type your password to continue",
				"email":   email,
			}), nil
		}
		if hashPassword(d.Password) != user.PasswordHash {
			return ok("UNAUTHORISED", map[string]interface{}{"message": "Incorrect password"}), nil
		}
	}

	sess.UserID = user.ID
	if err := store.Sessions().Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("protocol: login bind session: %w", err)
	}

	room, err := store.Rooms().MostRecentForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("protocol: login lookup room: %w", err)
	}

	metrics.UserLoginsTotal.Inc()

	return ok("WELCOME", map[string]interface{}{
		"user": map[string]interface{}{
			"email":   user.Email,
			"name":    user.DisplayName,
			"user_id": user.ID,
			"room":    roomSummaryFor(room),
		},
	}), nil
}
