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
	"encoding/hex"

	"github.com/agonych/udpchat-ai/crypto"
)

// newRoomID mints a 32 hex-char opaque room identifier, the same entropy
// and shape handshake.Engine uses for session ids.
func newRoomID() (string, error) {
	key, err := crypto.GenerateSessionKey()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key[:16]), nil
}
