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

// handleLogout clears the bound user from the session without tearing down
// the transport session itself.
func handleLogout(ctx context.Context, f Facade, sess *repository.Session, _ json.RawMessage) (Response, error) {
	if sess.UserID == "" {
		return errResponse("You are not logged in."), nil
	}

	sess.UserID = ""
	if err := f.Store().Sessions().Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("protocol: logout clear session: %w", err)
	}

	return ok("STATUS", map[string]interface{}{
		"session_id": sess.ID,
		"user":       nil,
	}), nil
}
