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

// Package memstore is an in-memory repository.Store, selected by
// REPOSITORY_DRIVER=memory in place of a live PostgreSQL connection.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agonych/udpchat-ai/repository"
)

// Store is a single process-local, mutex-guarded implementation of
// repository.Store. It is not optimized; it needs no external database and
// keeps nothing across restarts.
type Store struct {
	mu sync.Mutex

	users    map[string]*repository.User
	sessions map[string]*repository.Session
	nonces   map[string]struct{}
	rooms    map[int64]*repository.Room
	members  map[int64]map[string]*repository.Member
	messages map[int64][]*repository.Message

	nextRoomID int64
	nextMsgID  int64
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:    make(map[string]*repository.User),
		sessions: make(map[string]*repository.Session),
		nonces:   make(map[string]struct{}),
		rooms:    make(map[int64]*repository.Room),
		members:  make(map[int64]map[string]*repository.Member),
		messages: make(map[int64][]*repository.Message),
	}
}

func (s *Store) Users() repository.UserStore       { return (*userStore)(s) }
func (s *Store) Sessions() repository.SessionStore  { return (*sessionStore)(s) }
func (s *Store) Nonces() repository.NonceStore      { return (*nonceStore)(s) }
func (s *Store) Rooms() repository.RoomStore        { return (*roomStore)(s) }
func (s *Store) Members() repository.MemberStore    { return (*memberStore)(s) }
func (s *Store) Messages() repository.MessageStore  { return (*messageStore)(s) }

func (s *Store) Close() error                     { return nil }
func (s *Store) Ping(ctx context.Context) error   { return nil }
func (s *Store) Bootstrap(ctx context.Context) error { return nil }

type userStore Store

func (u *userStore) Create(ctx context.Context, user *repository.User) (*repository.User, error) {
	s := (*Store)(u)
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	cp := *user
	s.users[user.ID] = &cp
	return user, nil
}

func (u *userStore) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	s := (*Store)(u)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, usr := range s.users {
		if usr.Email == email {
			cp := *usr
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("memstore: get user %s: %w", email, repository.ErrNotFound)
}

func (u *userStore) GetByID(ctx context.Context, id string) (*repository.User, error) {
	s := (*Store)(u)
	s.mu.Lock()
	defer s.mu.Unlock()
	usr, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("memstore: get user %s: %w", id, repository.ErrNotFound)
	}
	cp := *usr
	return &cp, nil
}

func (u *userStore) Update(ctx context.Context, user *repository.User) error {
	s := (*Store)(u)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return fmt.Errorf("memstore: update user %s: %w", user.ID, repository.ErrNotFound)
	}
	user.UpdatedAt = time.Now()
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

type sessionStore Store

func (t *sessionStore) Create(ctx context.Context, sess *repository.Session) error {
	s := (*Store)(t)
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (t *sessionStore) Get(ctx context.Context, id string) (*repository.Session, error) {
	s := (*Store)(t)
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("memstore: get session %s: %w", id, repository.ErrNotFound)
	}
	cp := *sess
	return &cp, nil
}

func (t *sessionStore) Update(ctx context.Context, sess *repository.Session) error {
	s := (*Store)(t)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; !ok {
		return fmt.Errorf("memstore: update session %s: %w", sess.ID, repository.ErrNotFound)
	}
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (t *sessionStore) UpdateActivity(ctx context.Context, id string) error {
	s := (*Store)(t)
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("memstore: touch session %s: %w", id, repository.ErrNotFound)
	}
	sess.LastActiveAt = time.Now()
	return nil
}

func (t *sessionStore) Delete(ctx context.Context, id string) error {
	s := (*Store)(t)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("memstore: delete session %s: %w", id, repository.ErrNotFound)
	}
	delete(s.sessions, id)
	return nil
}

func (t *sessionStore) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s := (*Store)(t)
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sess := range s.sessions {
		if sess.LastActiveAt.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (t *sessionStore) DeleteAll(ctx context.Context) (int64, error) {
	s := (*Store)(t)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.sessions))
	s.sessions = make(map[string]*repository.Session)
	return n, nil
}

func (t *sessionStore) Count(ctx context.Context) (int64, error) {
	s := (*Store)(t)
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.sessions)), nil
}

func (t *sessionStore) ListByUserIDs(ctx context.Context, userIDs []string) ([]*repository.Session, error) {
	s := (*Store)(t)
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		want[id] = true
	}
	var out []*repository.Session
	for _, sess := range s.sessions {
		if sess.UserID != "" && want[sess.UserID] {
			cp := *sess
			out = append(out, &cp)
		}
	}
	return out, nil
}

type nonceStore Store

func nonceKey(sessionID, nonceHex string) string { return sessionID + "|" + nonceHex }

func (n *nonceStore) Seen(ctx context.Context, sessionID, nonceHex string) (bool, error) {
	s := (*Store)(n)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.nonces[nonceKey(sessionID, nonceHex)]
	return ok, nil
}

func (n *nonceStore) Remember(ctx context.Context, sessionID, nonceHex string) error {
	s := (*Store)(n)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonces[nonceKey(sessionID, nonceHex)] = struct{}{}
	return nil
}

func (n *nonceStore) DeleteForSession(ctx context.Context, sessionID string) error {
	s := (*Store)(n)
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := sessionID + "|"
	for k := range s.nonces {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(s.nonces, k)
		}
	}
	return nil
}

type roomStore Store

func (r *roomStore) Create(ctx context.Context, room *repository.Room) (*repository.Room, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rooms {
		if existing.Name == room.Name {
			return nil, fmt.Errorf("memstore: create room %s: %w", room.Name, repository.ErrAlreadyExists)
		}
	}
	s.nextRoomID++
	room.ID = s.nextRoomID
	now := time.Now()
	room.CreatedAt, room.LastActiveAt = now, now
	cp := *room
	s.rooms[room.ID] = &cp
	s.members[room.ID] = make(map[string]*repository.Member)
	return room, nil
}

func (r *roomStore) GetByRoomID(ctx context.Context, roomID string) (*repository.Room, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, room := range s.rooms {
		if room.RoomID == roomID {
			cp := *room
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("memstore: get room %s: %w", roomID, repository.ErrNotFound)
}

func (r *roomStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, room := range s.rooms {
		if room.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r *roomStore) List(ctx context.Context) ([]*repository.Room, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*repository.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		cp := *room
		out = append(out, &cp)
	}
	return out, nil
}

func (r *roomStore) Touch(ctx context.Context, id int64) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return fmt.Errorf("memstore: touch room %d: %w", id, repository.ErrNotFound)
	}
	room.LastActiveAt = time.Now()
	return nil
}

func (r *roomStore) Delete(ctx context.Context, id int64) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; !ok {
		return fmt.Errorf("memstore: delete room %d: %w", id, repository.ErrNotFound)
	}
	delete(s.rooms, id)
	delete(s.members, id)
	delete(s.messages, id)
	return nil
}

func (r *roomStore) MostRecentForUser(ctx context.Context, userID string) (*repository.Room, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *repository.Room
	for roomID, roster := range s.members {
		if _, ok := roster[userID]; !ok {
			continue
		}
		room := s.rooms[roomID]
		if room == nil {
			continue
		}
		if best == nil || room.LastActiveAt.After(best.LastActiveAt) {
			cp := *room
			best = &cp
		}
	}
	return best, nil
}

type memberStore Store

func (m *memberStore) Add(ctx context.Context, member *repository.Member) error {
	s := (*Store)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	roster, ok := s.members[member.RoomID]
	if !ok {
		roster = make(map[string]*repository.Member)
		s.members[member.RoomID] = roster
	}
	member.JoinedAt = time.Now()
	cp := *member
	roster[member.UserID] = &cp
	return nil
}

func (m *memberStore) Remove(ctx context.Context, roomID int64, userID string) error {
	s := (*Store)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	roster, ok := s.members[roomID]
	if !ok {
		return fmt.Errorf("memstore: remove member room=%d user=%s: %w", roomID, userID, repository.ErrNotFound)
	}
	if _, ok := roster[userID]; !ok {
		return fmt.Errorf("memstore: remove member room=%d user=%s: %w", roomID, userID, repository.ErrNotFound)
	}
	delete(roster, userID)
	return nil
}

func (m *memberStore) IsMember(ctx context.Context, roomID int64, userID string) (bool, error) {
	s := (*Store)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	roster, ok := s.members[roomID]
	if !ok {
		return false, nil
	}
	_, ok = roster[userID]
	return ok, nil
}

func (m *memberStore) ListUserIDs(ctx context.Context, roomID int64) ([]string, error) {
	s := (*Store)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	roster := s.members[roomID]
	out := make([]string, 0, len(roster))
	for userID := range roster {
		out = append(out, userID)
	}
	return out, nil
}

func (m *memberStore) ListMembers(ctx context.Context, roomID int64) ([]*repository.Member, error) {
	s := (*Store)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	roster := s.members[roomID]
	out := make([]*repository.Member, 0, len(roster))
	for _, member := range roster {
		cp := *member
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memberStore) Count(ctx context.Context, roomID int64) (int64, error) {
	s := (*Store)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.members[roomID])), nil
}

type messageStore Store

func (msg *messageStore) Create(ctx context.Context, m *repository.Message) (*repository.Message, error) {
	s := (*Store)(msg)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMsgID++
	m.ID = s.nextMsgID
	m.CreatedAt = time.Now()
	cp := *m
	s.messages[m.RoomID] = append(s.messages[m.RoomID], &cp)
	return m, nil
}

func (msg *messageStore) Last(ctx context.Context, roomID int64, limit int) ([]*repository.Message, error) {
	s := (*Store)(msg)
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.messages[roomID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]*repository.Message, len(all))
	copy(out, all)
	return out, nil
}
