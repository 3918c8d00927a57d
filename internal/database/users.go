// users.go handles user-related database operations.
package database

import (
	"context"
	"fmt"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/apperr"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
)

// CreateUser inserts a new user record. A duplicate email is a Conflict.
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := db.QueryRowContext(ctx, query,
		u.Email, u.PasswordHash, u.Name,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return apperr.Conflict("An account with this email already exists")
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a user by email address.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := db.GetContext(ctx, &u, `SELECT * FROM users WHERE LOWER(email) = LOWER($1)`, email)
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	return &u, nil
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	return &u, nil
}
