package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agonych/udpchat-ai/repository"
)

// MemberStore implements repository.MemberStore for PostgreSQL. The members
// table has no surrogate id column; its primary key is the composite
// (room_id, user_id), so unlike most other stores Add never scans a
// RETURNING clause.
type MemberStore struct {
	db *pgxpool.Pool
}

// Add inserts a membership row.
func (m *MemberStore) Add(ctx context.Context, member *repository.Member) error {
	member.JoinedAt = time.Now()
	query := `INSERT INTO members (room_id, user_id, is_admin, joined_at) VALUES ($1, $2, $3, $4)`
	_, err := m.db.Exec(ctx, query, member.RoomID, member.UserID, member.IsAdmin, member.JoinedAt)
	if err != nil {
		return fmt.Errorf("postgres: add member room=%d user=%s: %w", member.RoomID, member.UserID, err)
	}
	return nil
}

// Remove deletes a membership row.
func (m *MemberStore) Remove(ctx context.Context, roomID int64, userID string) error {
	query := `DELETE FROM members WHERE room_id = $1 AND user_id = $2`
	result, err := m.db.Exec(ctx, query, roomID, userID)
	if err != nil {
		return fmt.Errorf("postgres: remove member room=%d user=%s: %w", roomID, userID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("postgres: remove member room=%d user=%s: %w", roomID, userID, repository.ErrNotFound)
	}
	return nil
}

// IsMember reports whether the user belongs to the room.
func (m *MemberStore) IsMember(ctx context.Context, roomID int64, userID string) (bool, error) {
	query := `SELECT 1 FROM members WHERE room_id = $1 AND user_id = $2`
	var discard int
	err := m.db.QueryRow(ctx, query, roomID, userID).Scan(&discard)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("postgres: check membership room=%d user=%s: %w", roomID, userID, err)
	}
	return true, nil
}

// ListUserIDs returns the user ids of every member of a room, used to
// compute broadcast targets and LEAVE_ROOM's auto-destroy check.
func (m *MemberStore) ListUserIDs(ctx context.Context, roomID int64) ([]string, error) {
	rows, err := m.db.Query(ctx, `SELECT user_id FROM members WHERE room_id = $1`, roomID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list member ids room=%d: %w", roomID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListMembers returns the full roster for LIST_MEMBERS, ordered by join
// time. It reads the members table only; display names are not included.
func (m *MemberStore) ListMembers(ctx context.Context, roomID int64) ([]*repository.Member, error) {
	query := `
		SELECT room_id, user_id, is_admin, joined_at
		FROM members
		WHERE room_id = $1
		ORDER BY joined_at
	`
	rows, err := m.db.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list members room=%d: %w", roomID, err)
	}
	defer rows.Close()

	var members []*repository.Member
	for rows.Next() {
		var member repository.Member
		if err := rows.Scan(&member.RoomID, &member.UserID, &member.IsAdmin, &member.JoinedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan member: %w", err)
		}
		members = append(members, &member)
	}
	return members, rows.Err()
}

// Count returns the number of members in a room, used to decide whether
// LEAVE_ROOM should auto-destroy it.
func (m *MemberStore) Count(ctx context.Context, roomID int64) (int64, error) {
	var count int64
	err := m.db.QueryRow(ctx, `SELECT COUNT(*) FROM members WHERE room_id = $1`, roomID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count members room=%d: %w", roomID, err)
	}
	return count, nil
}
