package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"fireguard/internal/models"
)

const uniqueViolation = "23505"

// CreateUser inserts a new active user.
func (d *DB) CreateUser(ctx context.Context, email, passwordHash string) (models.User, error) {
	u := models.User{Email: email, PasswordHash: passwordHash}
	err := d.WithTx(ctx, func(tx pgx.Tx) error {
		query := `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at, is_active`
		return tx.QueryRow(ctx, query, email, passwordHash).Scan(&u.ID, &u.CreatedAt, &u.IsActive)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// GetUserByEmail fetches a user regardless of its active flag.
func (d *DB) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	query := `
	SELECT id, email, password_hash, created_at, is_active
	FROM users
	WHERE email = $1`
	err := d.Pool.QueryRow(ctx, query, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("failed to get user %s: %w", email, err)
	}
	return u, nil
}

// ListActiveRecipients returns the email of every active user.
func (d *DB) ListActiveRecipients(ctx context.Context) ([]string, error) {
	rows, err := d.Pool.Query(ctx, `SELECT email FROM users WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan user email: %w", err)
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
