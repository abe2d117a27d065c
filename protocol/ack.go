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

	"github.com/agonych/udpchat-ai/internal/logger"
	"github.com/agonych/udpchat-ai/repository"
)

type ackData struct {
	MsgID string `json:"msg_id"`
}

// handleAck notifies the retry dispatcher that a previously sent packet
// reached its destination. It never replies.
func handleAck(_ context.Context, f Facade, sess *repository.Session, data json.RawMessage) (Response, error) {
	var d ackData
	if err := json.Unmarshal(data, &d); err != nil || d.MsgID == "" {
		f.Logger().Debug("ack without msg_id", logger.String("session_id", sess.ID))
		return nil, nil
	}
	f.Acknowledge(sess.ID, d.MsgID)
	return nil, nil
}
