// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

package repository

import "time"

// Session is a persisted secure-transport session.
type Session struct {
	ID           string
	UserID       string // empty when the transport has no bound user yet
	SessionKey   []byte // 256-bit AES key
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// Nonce is one entry in the replay-detection ledger. Identity is the
// composite (SessionID, NonceHex).
type Nonce struct {
	SessionID string
	NonceHex  string
	CreatedAt time.Time
}

// User is an authenticated chat participant.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string // MD5 hex; empty when no password set
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Room is a named chat channel.
type Room struct {
	ID           int64
	RoomID       string // 32 hex char external id
	Name         string
	IsPublic     bool
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// Member is a (room, user) association.
type Member struct {
	RoomID   int64
	UserID   string
	IsAdmin  bool
	JoinedAt time.Time
}

// Message is an append-only chat message.
type Message struct {
	ID             int64
	RoomID         int64
	UserID         string
	Content        string
	IsAnnouncement bool
	CreatedAt      time.Time
}
