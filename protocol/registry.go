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

	"github.com/agonych/udpchat-ai/internal/logger"
	"github.com/agonych/udpchat-ai/repository"
)

// Registry maps a packet type tag to its Handler, the Go counterpart of the
// donor's PACKET_REGISTRY dict in protocol/__init__.py.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry builds the registry with every packet type this server
// understands.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	r.register("ACK", handleAck)
	r.register("HELLO", handleHello)
	r.register("LOGIN", handleLogin)
	r.register("LOGOUT", handleLogout)
	r.register("STATUS", handleStatus)
	r.register("MERGE_SESSION", handleMergeSession)
	r.register("LIST_ROOMS", handleListRooms)
	r.register("CREATE_ROOM", handleCreateRoom)
	r.register("JOIN_ROOM", handleJoinRoom)
	r.register("LEAVE_ROOM", handleLeaveRoom)
	r.register("MESSAGE", handleMessage)
	r.register("AI_MESSAGE", handleAIMessage)
	r.register("LIST_MESSAGES", handleListMessages)
	r.register("LIST_MEMBERS", handleListMembers)
	return r
}

func (r *Registry) register(packetType string, h Handler) {
	r.handlers[packetType] = h
}

// Dispatch decodes raw as a Packet and runs the matching handler. An unknown
// packet type yields an ERROR response rather than a Go error, since it is
// a normal protocol outcome a misbehaving or out-of-date client can trigger.
func (r *Registry) Dispatch(ctx context.Context, f Facade, sess *repository.Session, raw json.RawMessage) (Response, error) {
	var pkt Packet
	if err := json.Unmarshal(raw, &pkt); err != nil {
		return nil, fmt.Errorf("protocol: decode packet: %w", err)
	}

	handler, known := r.handlers[pkt.Type]
	if !known {
		f.Logger().Warn("unknown packet type", logger.String("type", pkt.Type))
		return errResponse(fmt.Sprintf("Unknown packet type: %s", pkt.Type)), nil
	}

	data := pkt.Data
	if data == nil {
		data = json.RawMessage("{}")
	}
	return handler(ctx, f, sess, data)
}
