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

// Package envelope implements C6, the SECURE_MSG transport frame: nonce
// replay detection, AES-GCM sealing and opening, and the mapping onto the
// C2/C4 session tables.
package envelope

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/agonych/udpchat-ai/crypto"
	"github.com/agonych/udpchat-ai/repository"
	"github.com/agonych/udpchat-ai/session"
)

// SecureMsg is the wire shape of every post-handshake datagram, in both
// directions.
type SecureMsg struct {
	Type       string `json:"type"`
	SessionID  string `json:"session_id"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// Deferred accepts a unit of work to run later on the repository's owning
// thread, rather than inline on the receive loop's goroutine. C10 supplies
// the concrete queue; tests may supply a synchronous stand-in.
type Deferred interface {
	Enqueue(fn func(ctx context.Context))
}

// Codec opens and seals SecureMsg frames against the durable session store,
// the nonce ledger, and the live session table.
type Codec struct {
	sessions repository.SessionStore
	nonces   repository.NonceStore
	live     *session.Manager
	deferred Deferred
}

// NewCodec builds a Codec over the repository's session and nonce stores.
func NewCodec(sessions repository.SessionStore, nonces repository.NonceStore, live *session.Manager, deferred Deferred) *Codec {
	return &Codec{sessions: sessions, nonces: nonces, live: live, deferred: deferred}
}

// Open validates and decrypts an inbound SecureMsg, following spec.md's
// five-step ingress sequence: locate the session, reject a replayed nonce,
// refresh liveness, then decrypt. It returns the session record (the
// caller needs its UserID and SessionKey for dispatch and for replies) and
// the decrypted payload as raw JSON.
func (c *Codec) Open(ctx context.Context, msg SecureMsg, peer net.Addr) (*repository.Session, json.RawMessage, error) {
	if msg.SessionID == "" || msg.Nonce == "" || msg.Ciphertext == "" {
		return nil, nil, ErrIncomplete
	}

	sess, err := c.sessions.Get(ctx, msg.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("envelope: load session: %w", err)
	}

	seen, err := c.nonces.Seen(ctx, sess.ID, msg.Nonce)
	if err != nil {
		return nil, nil, fmt.Errorf("envelope: check nonce: %w", err)
	}
	if seen {
		return nil, nil, ErrNonceReused
	}
	if err := c.nonces.Remember(ctx, sess.ID, msg.Nonce); err != nil {
		return nil, nil, fmt.Errorf("envelope: record nonce: %w", err)
	}

	c.live.Touch(sess.ID, peer)
	c.deferred.Enqueue(func(ctx context.Context) {
		_ = c.sessions.UpdateActivity(ctx, sess.ID)
	})

	nonce, err := hex.DecodeString(msg.Nonce)
	if err != nil {
		return nil, nil, ErrDecryptFailed
	}
	ciphertext, err := hex.DecodeString(msg.Ciphertext)
	if err != nil {
		return nil, nil, ErrDecryptFailed
	}

	plaintext, err := crypto.Open(sess.SessionKey, nonce, ciphertext)
	if err != nil {
		return nil, nil, ErrDecryptFailed
	}

	return sess, json.RawMessage(plaintext), nil
}

// Seal mints a fresh nonce, encrypts payload under the session's key, and
// queues the nonce for the ledger, so a server-sent frame reflected back to
// the server is rejected as a replay. payload is marshaled as JSON before
// sealing.
func (c *Codec) Seal(sess *repository.Session, payload interface{}) (*SecureMsg, error) {
	nonce, err := crypto.MintNonce()
	if err != nil {
		return nil, fmt.Errorf("envelope: mint nonce: %w", err)
	}
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("envelope: marshal payload: %w", err)
	}
	ciphertext, err := crypto.Seal(sess.SessionKey, nonce, plaintext)
	if err != nil {
		return nil, fmt.Errorf("envelope: seal: %w", err)
	}

	nonceHex := hex.EncodeToString(nonce)
	c.deferred.Enqueue(func(ctx context.Context) {
		_ = c.nonces.Remember(ctx, sess.ID, nonceHex)
	})

	return &SecureMsg{
		Type:       "SECURE_MSG",
		SessionID:  sess.ID,
		Nonce:      nonceHex,
		Ciphertext: hex.EncodeToString(ciphertext),
	}, nil
}
