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

package server

import (
	"context"
	"fmt"

	"github.com/agonych/udpchat-ai/ai"
	"github.com/agonych/udpchat-ai/internal/logger"
	"github.com/agonych/udpchat-ai/protocol"
	"github.com/agonych/udpchat-ai/repository"
)

// Store satisfies protocol.Facade.
func (s *Server) Store() repository.Store { return s.store }

// AI satisfies protocol.Facade.
func (s *Server) AI() ai.Provider { return s.aiProvider }

// Logger satisfies protocol.Facade.
func (s *Server) Logger() logger.Logger { return s.log }

// Acknowledge satisfies protocol.Facade, forwarding to C9.
func (s *Server) Acknowledge(sessionID, msgID string) {
	s.dispatcher.Acknowledge(sessionID, msgID)
}

// SessionIDsForUsers is C11's gate: it resolves a set of user ids to their
// persisted sessions, then narrows that down to the ones currently live in
// this process's session table, mirroring the donor's
// Session.find_all(db, user_id=[...]) filtered against active_sessions.
func (s *Server) SessionIDsForUsers(ctx context.Context, userIDs []string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	persisted, err := s.store.Sessions().ListByUserIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("server: resolve sessions for users: %w", err)
	}

	ids := make([]string, 0, len(persisted))
	for _, sess := range persisted {
		if _, live := s.sessions.Get(sess.ID); live {
			ids = append(ids, sess.ID)
		}
	}
	return ids, nil
}

// Broadcast is C11's fan-out entry point: it enqueues payload for delivery
// to every session id in sessionIDs through the retry dispatcher. A nil
// sessionIDs broadcasts to every currently live session, matching the
// donor's server.broadcast(message) default.
func (s *Server) Broadcast(ctx context.Context, payload protocol.Response, sessionIDs []string) {
	targets := sessionIDs
	if targets == nil {
		entries := s.sessions.All()
		targets = make([]string, len(entries))
		for i, e := range entries {
			targets[i] = e.SessionID
		}
	}

	for _, id := range targets {
		s.dispatcher.Enqueue(ctx, id, map[string]interface{}(payload))
	}
}
