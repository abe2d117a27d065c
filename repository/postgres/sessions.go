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

package postgres

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agonych/udpchat-ai/repository"
)

// SessionStore implements repository.SessionStore for PostgreSQL.
type SessionStore struct {
	db *pgxpool.Pool
}

// Create persists a freshly handshaken session (C5).
func (s *SessionStore) Create(ctx context.Context, sess *repository.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, session_key, created_at, last_active_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5)
	`
	_, err := s.db.Exec(ctx, query,
		sess.ID,
		sess.UserID,
		hex.EncodeToString(sess.SessionKey),
		sess.CreatedAt,
		sess.LastActiveAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create session %s: %w", sess.ID, err)
	}
	return nil
}

// Get retrieves a session by id.
func (s *SessionStore) Get(ctx context.Context, id string) (*repository.Session, error) {
	query := `
		SELECT id, COALESCE(user_id, ''), session_key, created_at, last_active_at
		FROM sessions
		WHERE id = $1
	`
	var sess repository.Session
	var keyHex string
	err := s.db.QueryRow(ctx, query, id).Scan(
		&sess.ID, &sess.UserID, &keyHex, &sess.CreatedAt, &sess.LastActiveAt,
	)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("postgres: get session %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get session %s: %w", id, err)
	}
	sess.SessionKey, err = hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("postgres: decode session key %s: %w", id, err)
	}
	return &sess, nil
}

// Update rewrites the bound user and key of an existing session (LOGIN,
// LOGOUT, MERGE_SESSION all mutate through this path).
func (s *SessionStore) Update(ctx context.Context, sess *repository.Session) error {
	query := `
		UPDATE sessions
		SET user_id = NULLIF($1, ''), session_key = $2, last_active_at = $3
		WHERE id = $4
	`
	result, err := s.db.Exec(ctx, query, sess.UserID, hex.EncodeToString(sess.SessionKey), sess.LastActiveAt, sess.ID)
	if err != nil {
		return fmt.Errorf("postgres: update session %s: %w", sess.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update session %s: %w", sess.ID, repository.ErrNotFound)
	}
	return nil
}

// UpdateActivity refreshes last_active_at. This is the deferred-write-queue
// path queued from the ingress side of C6 (Codec.Open).
func (s *SessionStore) UpdateActivity(ctx context.Context, id string) error {
	query := `UPDATE sessions SET last_active_at = $1 WHERE id = $2`
	_, err := s.db.Exec(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("postgres: touch session %s: %w", id, err)
	}
	return nil
}

// Delete removes a single session (and cascades its nonce ledger entries).
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete session %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("postgres: delete session %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// DeleteInactiveBefore backs the sweeper's 60s must_cleanup signal (C2/C10).
func (s *SessionStore) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE last_active_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: purge inactive sessions: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeleteAll purges every persisted session, run once at startup since no
// client can hold a pre-restart session key.
func (s *SessionStore) DeleteAll(ctx context.Context) (int64, error) {
	result, err := s.db.Exec(ctx, `DELETE FROM sessions`)
	if err != nil {
		return 0, fmt.Errorf("postgres: purge all sessions: %w", err)
	}
	return result.RowsAffected(), nil
}

// Count returns the number of persisted sessions.
func (s *SessionStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count sessions: %w", err)
	}
	return count, nil
}

// ListByUserIDs returns every persisted session bound to one of userIDs,
// backing the broadcast gate's room-membership-to-session-id resolution.
func (s *SessionStore) ListByUserIDs(ctx context.Context, userIDs []string) ([]*repository.Session, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, COALESCE(user_id, ''), session_key, created_at, last_active_at
		FROM sessions
		WHERE user_id = ANY($1)
	`
	rows, err := s.db.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("postgres: list sessions by user ids: %w", err)
	}
	defer rows.Close()

	var sessions []*repository.Session
	for rows.Next() {
		var sess repository.Session
		var keyHex string
		if err := rows.Scan(&sess.ID, &sess.UserID, &keyHex, &sess.CreatedAt, &sess.LastActiveAt); err != nil {
			return nil, fmt.Errorf("postgres: scan session: %w", err)
		}
		sess.SessionKey, err = hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("postgres: decode session key %s: %w", sess.ID, err)
		}
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}
