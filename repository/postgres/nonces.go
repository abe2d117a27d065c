package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NonceStore implements repository.NonceStore (C3) for PostgreSQL. The
// table carries a composite primary key (session_id, nonce_hex) so a
// duplicate insert fails the uniqueness constraint rather than requiring a
// read-then-write race.
type NonceStore struct {
	db *pgxpool.Pool
}

// Seen reports whether (sessionID, nonceHex) was already recorded.
func (n *NonceStore) Seen(ctx context.Context, sessionID, nonceHex string) (bool, error) {
	query := `SELECT 1 FROM nonces WHERE session_id = $1 AND nonce_hex = $2`
	var discard int
	err := n.db.QueryRow(ctx, query, sessionID, nonceHex).Scan(&discard)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("postgres: check nonce: %w", err)
	}
	return true, nil
}

// Remember records (sessionID, nonceHex) as used.
func (n *NonceStore) Remember(ctx context.Context, sessionID, nonceHex string) error {
	query := `INSERT INTO nonces (session_id, nonce_hex, created_at) VALUES ($1, $2, $3)`
	_, err := n.db.Exec(ctx, query, sessionID, nonceHex, time.Now())
	if err != nil {
		return fmt.Errorf("postgres: remember nonce: %w", err)
	}
	return nil
}

// DeleteForSession drops all ledger entries belonging to a session.
func (n *NonceStore) DeleteForSession(ctx context.Context, sessionID string) error {
	_, err := n.db.Exec(ctx, `DELETE FROM nonces WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("postgres: delete nonces for session %s: %w", sessionID, err)
	}
	return nil
}
