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

// Package crypto provides the handshake and transport-encryption primitives
// for the chat server: RSA key bootstrap, RSA-OAEP session-key wrapping,
// RSA-PSS signing, AES-256-GCM sealing, and nonce minting.
//
// Key generation and PEM persistence live in crypto/keys; everything else
// is in this package because it all operates on the session key rather
// than key material lifecycle.
package crypto
