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

// Package postgres is the pgx-backed implementation of repository.Store.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agonych/udpchat-ai/repository"
)

// Store implements repository.Store for PostgreSQL.
type Store struct {
	pool     *pgxpool.Pool
	users    *UserStore
	sessions *SessionStore
	nonces   *NonceStore
	rooms    *RoomStore
	members  *MemberStore
	messages *MessageStore
}

// Config holds PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	// DSN, if non-empty, is used verbatim instead of the fields above.
	DSN string
}

func (c *Config) dsn() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// NewStore creates a new PostgreSQL-backed store and verifies connectivity.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	pool, err := pgxpool.New(ctx, cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("postgres: create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping database: %w", err)
	}

	return &Store{
		pool:     pool,
		users:    &UserStore{db: pool},
		sessions: &SessionStore{db: pool},
		nonces:   &NonceStore{db: pool},
		rooms:    &RoomStore{db: pool},
		members:  &MemberStore{db: pool},
		messages: &MessageStore{db: pool},
	}, nil
}

func (s *Store) Users() repository.UserStore       { return s.users }
func (s *Store) Sessions() repository.SessionStore { return s.sessions }
func (s *Store) Nonces() repository.NonceStore     { return s.nonces }
func (s *Store) Rooms() repository.RoomStore       { return s.rooms }
func (s *Store) Members() repository.MemberStore   { return s.members }
func (s *Store) Messages() repository.MessageStore { return s.messages }

// Close closes the database connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Bootstrap creates the six logical tables if they do not already exist.
// Backs the `init_db` CLI command (spec §6).
func (s *Store) Bootstrap(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("postgres: bootstrap schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	display_name  TEXT NOT NULL,
	password_hash TEXT NOT NULL DEFAULT '',
	is_admin      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY,
	user_id        TEXT REFERENCES users(id) ON DELETE SET NULL,
	session_key    TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_active_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS nonces (
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	nonce_hex  TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (session_id, nonce_hex)
);

CREATE TABLE IF NOT EXISTS rooms (
	id             BIGSERIAL PRIMARY KEY,
	room_id        TEXT NOT NULL UNIQUE,
	name           TEXT NOT NULL UNIQUE,
	is_public      BOOLEAN NOT NULL DEFAULT TRUE,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_active_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS members (
	room_id   BIGINT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	user_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	is_admin  BOOLEAN NOT NULL DEFAULT FALSE,
	joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (room_id, user_id)
);

CREATE TABLE IF NOT EXISTS messages (
	id              BIGSERIAL PRIMARY KEY,
	room_id         BIGINT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	user_id         TEXT NOT NULL REFERENCES users(id),
	content         TEXT NOT NULL,
	is_announcement BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_messages_room_created ON messages(room_id, created_at);
`
