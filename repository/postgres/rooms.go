package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agonych/udpchat-ai/repository"
)

// RoomStore implements repository.RoomStore for PostgreSQL.
type RoomStore struct {
	db *pgxpool.Pool
}

// Create inserts a room and returns it with its surrogate id populated,
// using the RETURNING id idiom.
func (r *RoomStore) Create(ctx context.Context, room *repository.Room) (*repository.Room, error) {
	now := time.Now()
	room.CreatedAt, room.LastActiveAt = now, now

	query := `
		INSERT INTO rooms (room_id, name, is_public, created_at, last_active_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, room.RoomID, room.Name, room.IsPublic, room.CreatedAt, room.LastActiveAt).Scan(&room.ID)
	if err != nil {
		return nil, fmt.Errorf("postgres: create room %s: %w", room.Name, err)
	}
	return room, nil
}

// GetByRoomID looks up a room by its external opaque id.
func (r *RoomStore) GetByRoomID(ctx context.Context, roomID string) (*repository.Room, error) {
	query := `
		SELECT id, room_id, name, is_public, created_at, last_active_at
		FROM rooms WHERE room_id = $1
	`
	var room repository.Room
	err := r.db.QueryRow(ctx, query, roomID).Scan(
		&room.ID, &room.RoomID, &room.Name, &room.IsPublic, &room.CreatedAt, &room.LastActiveAt,
	)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("postgres: get room %s: %w", roomID, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get room %s: %w", roomID, err)
	}
	return &room, nil
}

// ExistsByName reports whether a room with this display name already exists.
func (r *RoomStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	var discard int
	err := r.db.QueryRow(ctx, `SELECT 1 FROM rooms WHERE name = $1`, name).Scan(&discard)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("postgres: check room name %s: %w", name, err)
	}
	return true, nil
}

// List returns every room, for LIST_ROOMS.
func (r *RoomStore) List(ctx context.Context) ([]*repository.Room, error) {
	query := `SELECT id, room_id, name, is_public, created_at, last_active_at FROM rooms ORDER BY name`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*repository.Room
	for rows.Next() {
		var room repository.Room
		if err := rows.Scan(&room.ID, &room.RoomID, &room.Name, &room.IsPublic, &room.CreatedAt, &room.LastActiveAt); err != nil {
			return nil, fmt.Errorf("postgres: scan room: %w", err)
		}
		rooms = append(rooms, &room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate rooms: %w", err)
	}
	return rooms, nil
}

// Touch refreshes a room's last_active_at, called on new messages (MESSAGE
// and AI_MESSAGE).
func (r *RoomStore) Touch(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE rooms SET last_active_at = $1 WHERE id = $2`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("postgres: touch room %d: %w", id, err)
	}
	return nil
}

// Delete removes a room, cascading its memberships and messages.
func (r *RoomStore) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete room %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("postgres: delete room %d: %w", id, repository.ErrNotFound)
	}
	return nil
}

// MostRecentForUser returns the room the user most recently touched via
// membership. Used by LOGIN to populate WELCOME's room field.
func (r *RoomStore) MostRecentForUser(ctx context.Context, userID string) (*repository.Room, error) {
	query := `
		SELECT rooms.id, rooms.room_id, rooms.name, rooms.is_public, rooms.created_at, rooms.last_active_at
		FROM rooms
		JOIN members ON rooms.id = members.room_id
		WHERE members.user_id = $1
		ORDER BY rooms.last_active_at DESC
		LIMIT 1
	`
	var room repository.Room
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&room.ID, &room.RoomID, &room.Name, &room.IsPublic, &room.CreatedAt, &room.LastActiveAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: most recent room for user %s: %w", userID, err)
	}
	return &room, nil
}
