package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agonych/udpchat-ai/repository"
)

// MessageStore implements repository.MessageStore for PostgreSQL.
type MessageStore struct {
	db *pgxpool.Pool
}

// Create appends a message and returns it with its surrogate id populated.
func (m *MessageStore) Create(ctx context.Context, msg *repository.Message) (*repository.Message, error) {
	msg.CreatedAt = time.Now()
	query := `
		INSERT INTO messages (room_id, user_id, content, is_announcement, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := m.db.QueryRow(ctx, query, msg.RoomID, msg.UserID, msg.Content, msg.IsAnnouncement, msg.CreatedAt).Scan(&msg.ID)
	if err != nil {
		return nil, fmt.Errorf("postgres: create message room=%d: %w", msg.RoomID, err)
	}
	return msg, nil
}

// Last returns up to limit of the most recent messages in a room, oldest
// first — the source table is scanned newest-first and then reversed so
// callers (LIST_MESSAGES, AI_MESSAGE context) always see chronological
// order, fixing the ambiguity spec.md §9 flags in the original source.
func (m *MessageStore) Last(ctx context.Context, roomID int64, limit int) ([]*repository.Message, error) {
	query := `
		SELECT id, room_id, user_id, content, is_announcement, created_at
		FROM messages
		WHERE room_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := m.db.Query(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: last messages room=%d: %w", roomID, err)
	}
	defer rows.Close()

	var messages []*repository.Message
	for rows.Next() {
		var msg repository.Message
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.UserID, &msg.Content, &msg.IsAnnouncement, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate messages: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
