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

// Package handshake implements C5: the SESSION_INIT request/response that
// bootstraps a secure transport session.
package handshake

import (
	"context"
	"crypto/rsa"
	"encoding/hex"
	"fmt"
	"net"
	"time"

	"github.com/agonych/udpchat-ai/crypto"
	"github.com/agonych/udpchat-ai/internal/logger"
	"github.com/agonych/udpchat-ai/repository"
	"github.com/agonych/udpchat-ai/session"
)

// randomID produces a 32 hex-char opaque identifier (128 bits of entropy),
// used for session ids.
func randomID() (string, error) {
	key, err := crypto.GenerateSessionKey() // reuse the 32-byte RNG helper
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key[:16]), nil
}

// Request is the decoded ingress SESSION_INIT envelope.
type Request struct {
	ClientKeyDER []byte // decoded from client_key (base64 DER SPKI)
}

// Response is the plaintext egress SESSION_INIT envelope.
type Response struct {
	Type         string `json:"type"`
	SessionID    string `json:"session_id"`
	EncryptedKey string `json:"encrypted_key"`
	ServerPubkey string `json:"server_pubkey"`
	Signature    string `json:"signature"`
	Fingerprint  string `json:"fingerprint"`
}

// Engine executes the handshake: mint a session id and key, wrap and sign
// the key under the client's public key, persist the session, register it
// in the live table, and build the plaintext response.
type Engine struct {
	priv        *rsa.PrivateKey
	pubDER      []byte
	fingerprint string

	sessions *session.Manager
	store    repository.SessionStore
	log      logger.Logger
}

// NewEngine builds a handshake engine around the server's long-lived RSA
// keypair.
func NewEngine(priv *rsa.PrivateKey, sessions *session.Manager, store repository.SessionStore, log logger.Logger) (*Engine, error) {
	pubDER, err := crypto.MarshalPublicKeyDER(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("handshake: marshal server public key: %w", err)
	}
	return &Engine{
		priv:        priv,
		pubDER:      pubDER,
		fingerprint: crypto.Fingerprint(pubDER),
		sessions:    sessions,
		store:       store,
		log:         log,
	}, nil
}

// Fingerprint returns the server's published fingerprint, the out-of-band
// trust anchor clients pin to.
func (e *Engine) Fingerprint() string {
	return e.fingerprint
}

// Handle runs one SESSION_INIT exchange. No retry is performed for the
// handshake itself: if the client never sees the response it simply
// initiates a new one.
func (e *Engine) Handle(ctx context.Context, req Request, peer net.Addr) (*Response, error) {
	clientPub, err := crypto.ParsePublicKeyDER(req.ClientKeyDER)
	if err != nil {
		return nil, fmt.Errorf("handshake: invalid client public key: %w", err)
	}

	sessionID, err := randomID()
	if err != nil {
		return nil, fmt.Errorf("handshake: mint session id: %w", err)
	}
	aesKey, err := crypto.GenerateSessionKey()
	if err != nil {
		return nil, fmt.Errorf("handshake: mint session key: %w", err)
	}

	wrapped, err := crypto.WrapSessionKey(clientPub, aesKey)
	if err != nil {
		return nil, fmt.Errorf("handshake: wrap session key: %w", err)
	}
	signature, err := crypto.Sign(e.priv, aesKey)
	if err != nil {
		return nil, fmt.Errorf("handshake: sign session key: %w", err)
	}

	now := time.Now()
	rec := &repository.Session{
		ID:           sessionID,
		SessionKey:   aesKey,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	if err := e.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("handshake: persist session: %w", err)
	}

	e.sessions.Touch(sessionID, peer)

	e.log.Info("handshake completed", logger.String("session_id", sessionID), logger.String("peer", peer.String()))

	return &Response{
		Type:         "SESSION_INIT",
		SessionID:    sessionID,
		EncryptedKey: hex.EncodeToString(wrapped),
		ServerPubkey: hex.EncodeToString(e.pubDER),
		Signature:    hex.EncodeToString(signature),
		Fingerprint:  e.fingerprint,
	}, nil
}
