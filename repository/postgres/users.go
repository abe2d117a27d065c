package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agonych/udpchat-ai/repository"
)

// UserStore implements repository.UserStore for PostgreSQL.
type UserStore struct {
	db *pgxpool.Pool
}

// Create auto-provisions a user on first LOGIN.
func (u *UserStore) Create(ctx context.Context, user *repository.User) (*repository.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now

	query := `
		INSERT INTO users (id, email, display_name, password_hash, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := u.db.Exec(ctx, query,
		user.ID, user.Email, user.DisplayName, user.PasswordHash, user.IsAdmin, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: create user %s: %w", user.Email, err)
	}
	return user, nil
}

// GetByEmail looks up a user by their (already normalized) email.
func (u *UserStore) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	query := `
		SELECT id, email, display_name, password_hash, is_admin, created_at, updated_at
		FROM users WHERE email = $1
	`
	return u.scanOne(ctx, query, email)
}

// GetByID looks up a user by their opaque id.
func (u *UserStore) GetByID(ctx context.Context, id string) (*repository.User, error) {
	query := `
		SELECT id, email, display_name, password_hash, is_admin, created_at, updated_at
		FROM users WHERE id = $1
	`
	return u.scanOne(ctx, query, id)
}

func (u *UserStore) scanOne(ctx context.Context, query string, arg string) (*repository.User, error) {
	var user repository.User
	err := u.db.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.IsAdmin, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("postgres: get user %s: %w", arg, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get user %s: %w", arg, err)
	}
	return &user, nil
}

// Update rewrites mutable user fields (display name, password hash, admin flag).
func (u *UserStore) Update(ctx context.Context, user *repository.User) error {
	user.UpdatedAt = time.Now()
	query := `
		UPDATE users
		SET display_name = $1, password_hash = $2, is_admin = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := u.db.Exec(ctx, query, user.DisplayName, user.PasswordHash, user.IsAdmin, user.UpdatedAt, user.ID)
	if err != nil {
		return fmt.Errorf("postgres: update user %s: %w", user.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update user %s: %w", user.ID, repository.ErrNotFound)
	}
	return nil
}
