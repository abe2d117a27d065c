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
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/agonych/udpchat-ai/repository"
)

type mergeSessionData struct {
	OldSessionID  string `json:"old_session_id"`
	OldSessionKey string `json:"old_session_key"`
}

var mergeSessionFailed = Response{"type": "MERGE_SESSION_FAILED"}

// handleMergeSession re-attaches the user bound to an older transport
// session (identified by its id and hex-encoded key, as issued at
// handshake time) onto the current one, letting a client survive a socket
// bounce without forcing the user through LOGIN again.
func handleMergeSession(ctx context.Context, f Facade, sess *repository.Session, data json.RawMessage) (Response, error) {
	var d mergeSessionData
	if err := json.Unmarshal(data, &d); err != nil {
		return mergeSessionFailed, nil
	}

	oldID := strings.TrimSpace(d.OldSessionID)
	oldKeyHex := strings.TrimSpace(d.OldSessionKey)
	if oldID == "" || oldKeyHex == "" {
		return mergeSessionFailed, nil
	}

	store := f.Store()

	oldSession, err := store.Sessions().Get(ctx, oldID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return mergeSessionFailed, nil
		}
		return nil, fmt.Errorf("protocol: merge_session lookup old session: %w", err)
	}
	if len(oldSession.SessionKey) == 0 || hex.EncodeToString(oldSession.SessionKey) != oldKeyHex {
		return mergeSessionFailed, nil
	}
	if oldSession.UserID == "" {
		return mergeSessionFailed, nil
	}

	user, err := store.Users().GetByID(ctx, oldSession.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return mergeSessionFailed, nil
		}
		return nil, fmt.Errorf("protocol: merge_session lookup user: %w", err)
	}

	sess.UserID = user.ID
	if err := store.Sessions().Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("protocol: merge_session bind session: %w", err)
	}

	room, err := store.Rooms().MostRecentForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("protocol: merge_session lookup room: %w", err)
	}

	return ok("WELCOME", map[string]interface{}{
		"user": map[string]interface{}{
			"email":   user.Email,
			"name":    user.DisplayName,
			"user_id": user.ID,
			"room":    roomSummaryFor(room),
		},
	}), nil
}
