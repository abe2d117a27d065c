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

// Package protocol implements C7 (the packet dispatch table) and C8 (one
// handler per packet type) over the decrypted SECURE_MSG payload.
package protocol

import "encoding/json"

// Packet is the decoded shape of every decrypted client payload: a type tag
// plus a type-specific data object.
type Packet struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Response is the shape of every payload handed back to the caller for
// delivery. It is a bare map rather than a fixed struct because HELLO
// replies with a top-level "message" field instead of the common
// {"type","data"} shape used by everything else.
type Response map[string]interface{}

// ok builds the common {"type","data"} response shape.
func ok(typ string, data interface{}) Response {
	return Response{"type": typ, "data": data}
}

// errResponse builds the ERROR response shape returned for any recoverable
// application-level failure (bad input, not found, not authorized).
func errResponse(message string) Response {
	return ok("ERROR", map[string]interface{}{"message": message})
}
