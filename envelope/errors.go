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

package envelope

// TransportError is a failure in the secure envelope itself (as opposed to
// a failure in the decrypted payload's application logic). The receive
// loop reports its Message back to the client as a plaintext SERVER_ERROR,
// since there is no session key to reply under.
type TransportError struct {
	Message string
}

func (e *TransportError) Error() string {
	return e.Message
}

// Sentinel transport errors, worded to match what clients are expected to
// see on the wire.
var (
	ErrIncomplete      = &TransportError{Message: "Message format is incomplete"}
	ErrSessionNotFound = &TransportError{Message: "Session ID not found"}
	ErrNonceReused     = &TransportError{Message: "This nonce was already used"}
	ErrDecryptFailed   = &TransportError{Message: "Message decryption failed"}
)
