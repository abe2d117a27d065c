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

	"github.com/agonych/udpchat-ai/ai"
	"github.com/agonych/udpchat-ai/internal/logger"
	"github.com/agonych/udpchat-ai/repository"
)

// Facade is everything a packet handler needs from the running server,
// standing in for the donor's `self.server` reference. server.Server is the
// implementation.
type Facade interface {
	Store() repository.Store
	AI() ai.Provider
	Logger() logger.Logger

	// Broadcast enqueues payload for delivery to every session id in
	// sessionIDs through the retry dispatcher (C9). A nil sessionIDs means
	// every currently live session, mirroring the donor's
	// server.broadcast(message) default.
	Broadcast(ctx context.Context, payload Response, sessionIDs []string)

	// SessionIDsForUsers resolves a set of user ids to the live session ids
	// currently bound to them, the Go equivalent of the donor's
	// Session.find_all(db, user_id=[...]) plus the active_sessions filter.
	SessionIDsForUsers(ctx context.Context, userIDs []string) ([]string, error)

	// Acknowledge notifies the retry dispatcher that sessionID has received
	// msgID, so it stops retrying that task.
	Acknowledge(sessionID, msgID string)
}

// Handler processes one packet type's data against the current session and
// returns the direct response payload, if any. A nil Response with a nil
// error means no direct reply is sent (e.g. ACK, broadcast-only packets).
type Handler func(ctx context.Context, f Facade, sess *repository.Session, data json.RawMessage) (Response, error)
