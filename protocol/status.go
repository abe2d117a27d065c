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

	"github.com/agonych/udpchat-ai/repository"
)

// handleStatus reports the current session's bound user (if any) and room,
// the packet clients poll every few seconds to keep the connection alive.
func handleStatus(ctx context.Context, f Facade, sess *repository.Session, _ json.RawMessage) (Response, error) {
	userInfo := map[string]interface{}{}

	if sess.UserID != "" {
		user, err := f.Store().Users().GetByID(ctx, sess.UserID)
		if err != nil {
			return nil, fmt.Errorf("protocol: status lookup user: %w", err)
		}
		room, err := f.Store().Rooms().MostRecentForUser(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("protocol: status lookup room: %w", err)
		}
		userInfo = map[string]interface{}{
			"email":   user.Email,
			"name":    user.DisplayName,
			"user_id": user.ID,
			"room":    roomSummaryFor(room),
		}
	}

	return ok("STATUS", map[string]interface{}{
		"session_id": sess.ID,
		"user":       userInfo,
	}), nil
}
