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
	"encoding/json"
	"fmt"
	"net"

	"github.com/agonych/udpchat-ai/envelope"
	"github.com/agonych/udpchat-ai/repository"
	"github.com/agonych/udpchat-ai/session"
)

// udpSender implements dispatch.Sender over a bound UDP socket. It
// resolves the session's live peer address and durable key at send time
// rather than caching either, since a retried task can outlive both a
// MERGE_SESSION key rotation and a peer's address change across NAT
// rebinding.
type udpSender struct {
	conn     *net.UDPConn
	codec    *envelope.Codec
	sessions repository.SessionStore
	live     *session.Manager
}

// Send seals payload under sess's current key and writes it to its last
// known peer address. A session with no live entry (never handshaked
// since the last restart, or evicted by the sweeper) is reported as an
// error so the dispatcher retries it rather than silently dropping it.
func (u *udpSender) Send(ctx context.Context, sessionID string, payload map[string]interface{}) error {
	entry, live := u.live.Get(sessionID)
	if !live {
		return fmt.Errorf("server: session %s has no live peer address", sessionID)
	}

	sess, err := u.sessions.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("server: load session %s: %w", sessionID, err)
	}

	msg, err := u.codec.Seal(sess, payload)
	if err != nil {
		return fmt.Errorf("server: seal payload for %s: %w", sessionID, err)
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("server: encode secure message: %w", err)
	}

	if _, err := u.conn.WriteTo(raw, entry.PeerAddr); err != nil {
		return fmt.Errorf("server: write to %s: %w", entry.PeerAddr, err)
	}
	return nil
}
